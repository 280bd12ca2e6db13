package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SessionID is a 128-bit opaque identifier. Collision probability is
// negligible at this size, and the raw bytes come from crypto/rand, so
// ids are not guessable.
type SessionID [16]byte

// NewSessionID generates a random session identifier.
func NewSessionID() (SessionID, error) {
	var sid SessionID
	_, err := rand.Read(sid[:])
	return sid, err
}

func (s SessionID) Bytes() []byte {
	return s[:]
}

// String renders the id as unpadded base64url, the form delivered in
// cookies.
func (s SessionID) String() string {
	return base64.RawURLEncoding.EncodeToString(s[:])
}

// ParseSessionID decodes a cookie-form session id. Rejects anything that
// is not exactly 16 decoded bytes.
func ParseSessionID(sessionID string) (SessionID, error) {
	var sid SessionID

	raw, err := base64.RawURLEncoding.DecodeString(sessionID)
	if err != nil {
		return sid, err
	}
	if len(raw) != len(sid) {
		return sid, errors.New("invalid session id size")
	}

	copy(sid[:], raw)
	return sid, nil
}

// Fingerprint hashes the client user-agent and IP captured at session
// creation. Only the hash is stored; the raw values never leave the
// request.
func Fingerprint(userAgent, ip string) [32]byte {
	h := sha256.New()
	h.Write([]byte(userAgent))
	h.Write([]byte{0})
	h.Write([]byte(ip))

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

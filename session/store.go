// Package session implements the Redis-backed server-side session store:
// opaque 128-bit ids, fingerprint binding, and sliding expiration whose
// extension is atomic and never moves expiry backwards.
package session

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/courtmatch/courtgate/internal"
)

var (
	// ErrNotFound is returned when no record exists for the session id.
	ErrNotFound = errors.New("session not found")
	// ErrExpired is returned when the record exists but is past its expiry.
	ErrExpired = errors.New("session expired")
	// ErrFingerprintMismatch is returned when the presented client
	// fingerprint does not match the one captured at creation. The session
	// is destroyed before this error is returned.
	ErrFingerprintMismatch = errors.New("session fingerprint mismatch")
	// ErrRedisUnavailable wraps storage-layer failures. Callers must fail
	// closed on it, never treat it as an allow.
	ErrRedisUnavailable = errors.New("redis unavailable")
)

// extendScript moves the session expiry forward atomically. Concurrent
// extensions race benignly: whichever target is furthest in the future
// wins, and expiry never decreases.
const extendScript = `
local data = redis.call("GET", KEYS[1])
if not data then
  return 0
end
local sess = cjson.decode(data)
local target = tonumber(ARGV[1])
local now = tonumber(ARGV[2])
if sess.expires_at and tonumber(sess.expires_at) >= target then
  return 2
end
sess.expires_at = target
redis.call("SET", KEYS[1], cjson.encode(sess), "PX", (target - now) * 1000)
return 1
`

var extendLua = redis.NewScript(extendScript)

// Store holds session records in Redis under a configurable key prefix.
// Lifetime is the full session window; refreshThreshold is the remaining
// lifetime below which a validated access slides the window forward.
type Store struct {
	redis            redis.UniversalClient
	prefix           string
	lifetime         time.Duration
	refreshThreshold time.Duration
}

// NewStore creates a session [Store] backed by the given Redis client.
func NewStore(rdb redis.UniversalClient, prefix string, lifetime, refreshThreshold time.Duration) *Store {
	return &Store{
		redis:            rdb,
		prefix:           prefix,
		lifetime:         lifetime,
		refreshThreshold: refreshThreshold,
	}
}

func (s *Store) key(sessionID string) string {
	return s.prefix + ":" + sessionID
}

// Create generates a fresh opaque id, persists the record with the full
// lifetime TTL, and returns the session for cookie delivery.
func (s *Store) Create(ctx context.Context, userID string, fingerprint [32]byte, data map[string]string) (*Session, error) {
	sid, err := internal.NewSessionID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		SessionID:       sid.String(),
		UserID:          userID,
		FingerprintHash: hex.EncodeToString(fingerprint[:]),
		CreatedAt:       now.Unix(),
		ExpiresAt:       now.Add(s.lifetime).Unix(),
		Data:            data,
	}

	blob, err := json.Marshal(sess)
	if err != nil {
		return nil, err
	}

	if err := s.redis.Set(ctx, s.key(sess.SessionID), blob, s.lifetime).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sess, nil
}

// Validate resolves a session id to its record, failing closed on
// absence, expiry, or fingerprint mismatch. Expired and hijack-suspect
// records are destroyed. A validated session whose remaining lifetime is
// below the refresh threshold is extended by a full window; the extension
// is the only mutation other than create/destroy.
func (s *Store) Validate(ctx context.Context, sessionID string, fingerprint [32]byte) (*Session, error) {
	if _, err := internal.ParseSessionID(sessionID); err != nil {
		return nil, ErrNotFound
	}

	data, err := s.redis.Get(ctx, s.key(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		// Corrupt record: destroy and report absent rather than leak it.
		if derr := s.Destroy(ctx, sessionID); derr != nil {
			return nil, derr
		}
		return nil, ErrNotFound
	}
	sess.SessionID = sessionID

	now := time.Now()
	if sess.ExpiresAt <= now.Unix() {
		if derr := s.Destroy(ctx, sessionID); derr != nil {
			return nil, derr
		}
		return nil, ErrExpired
	}

	if sess.FingerprintHash != hex.EncodeToString(fingerprint[:]) {
		if derr := s.Destroy(ctx, sessionID); derr != nil {
			return nil, derr
		}
		return nil, ErrFingerprintMismatch
	}

	if time.Unix(sess.ExpiresAt, 0).Sub(now) < s.refreshThreshold {
		target := now.Add(s.lifetime).Unix()
		if err := s.extend(ctx, sessionID, target, now.Unix()); err != nil {
			return nil, err
		}
		sess.ExpiresAt = target
	}

	return &sess, nil
}

func (s *Store) extend(ctx context.Context, sessionID string, target, now int64) error {
	if err := extendLua.Run(ctx, s.redis, []string{s.key(sessionID)}, target, now).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Destroy removes the record. Idempotent: destroying an absent session is
// not an error.
func (s *Store) Destroy(ctx context.Context, sessionID string) error {
	if err := s.redis.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

package session

// Session is the server-held record behind a cookie credential. The
// fingerprint hash binds the session to the user-agent and IP observed at
// creation; a mismatch on a later request is treated as a hijack attempt.
type Session struct {
	SessionID       string            `json:"-"`
	UserID          string            `json:"user_id"`
	FingerprintHash string            `json:"fp"`
	CreatedAt       int64             `json:"created_at"`
	ExpiresAt       int64             `json:"expires_at"`
	Data            map[string]string `json:"data,omitempty"`
}

package courtgate

import (
	"context"
	"time"

	"github.com/courtmatch/courtgate/rbac"
	"github.com/courtmatch/courtgate/tier"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus uint8

const (
	// AccountActive allows authentication.
	AccountActive AccountStatus = iota
	// AccountSuspended denies authentication while preserving the record.
	AccountSuspended
)

// UserRecord is the identity snapshot returned by [UserProvider]. Role
// and Tier are raw store values; the gateway parses them and fails closed
// on anything unknown.
type UserRecord struct {
	UserID       string
	Identifier   string
	PasswordHash string
	Role         string
	Tier         string
	Status       AccountStatus
}

// UserProvider is the identity-lookup collaborator. Implementations must
// return an error wrapping [ErrUserNotFound] for absent identities so the
// gateway can collapse it with a wrong password into one indistinct
// failure.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (UserRecord, error)
	GetUserByCredential(ctx context.Context, emailOrUsername string) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// CredentialSource records which credential resolved the identity.
type CredentialSource string

const (
	// SourceToken marks identities resolved from a bearer token.
	SourceToken CredentialSource = "token"
	// SourceSession marks identities resolved from a session cookie.
	SourceSession CredentialSource = "session"
)

// AuthContext is the per-request identity context produced by
// [Gateway.Authenticate]. It is passed explicitly through the request
// chain, never stored in process-wide state. Permissions and Tier are a
// snapshot as of resolution; privilege-escalating checks re-resolve live
// state through the gateway.
type AuthContext struct {
	UserID      string
	Role        rbac.Role
	Tier        tier.Tier
	Permissions []string
	SessionID   string
	Source      CredentialSource
}

// HasPermission checks the context's permission snapshot.
func (a *AuthContext) HasPermission(perm rbac.Permission) bool {
	return rbac.HasPermission(a.Role, perm)
}

// LoginResult carries the credentials issued by a successful login.
type LoginResult struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	SessionID    string
}

// TokenPair carries the credentials issued by a refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RateStatus is the outcome of a rate-limit check, shaped for the
// X-RateLimit response headers.
type RateStatus struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// AuditEvent is the public audit record handed to an [AuditSink].
type AuditEvent struct {
	Timestamp time.Time
	EventType string
	UserID    string
	SessionID string
	IP        string
	Success   bool
	Error     string
	Metadata  map[string]string
}

// AuditSink receives audit events from the gateway's async dispatcher.
// Implementations must not block for long; a slow sink causes drops, not
// request latency.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

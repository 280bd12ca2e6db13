package courtgate

import (
	"errors"
	"net/http"
)

var (
	// ErrTokenMalformed is returned when a bearer token is not a
	// well-formed compact token.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenSignatureInvalid is returned when the token signature does
	// not verify against the server secret.
	ErrTokenSignatureInvalid = errors.New("invalid token signature")
	// ErrTokenExpired is returned when a correctly signed token is past
	// its expiry.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenWrongType is returned when a refresh token is presented
	// where an access token is expected, or vice versa.
	ErrTokenWrongType = errors.New("wrong token type")

	// ErrSessionNotFound is returned when no record exists for a session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when the session record is past its expiry.
	ErrSessionExpired = errors.New("session expired")
	// ErrSessionFingerprintMismatch is returned when the client
	// fingerprint differs from the one bound at session creation.
	ErrSessionFingerprintMismatch = errors.New("session fingerprint mismatch")

	// ErrNoCredentials is returned when a request presents neither a
	// bearer token nor a session cookie.
	ErrNoCredentials = errors.New("no credentials presented")
	// ErrInvalidCredentials is returned on login for a wrong password or
	// an unknown identifier; the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound must be returned (or wrapped) by UserProvider
	// implementations for absent identities.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountSuspended is returned when the identity exists but its
	// account status forbids access.
	ErrAccountSuspended = errors.New("account suspended")

	// ErrPermissionDenied is returned on authorization failures.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTierLimitExceeded is returned when a tier gate denies a feature.
	ErrTierLimitExceeded = errors.New("tier limit exceeded")
	// ErrRateLimited is returned when a fixed-window budget is exhausted.
	ErrRateLimited = errors.New("rate limited")
	// ErrStorageUnavailable wraps infrastructure failures of the session
	// or counter storage. Always a deny, and the only error class the
	// gateway retries.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrGatewayNotReady is returned when a Gateway method is called on a
	// zero value rather than a built instance.
	ErrGatewayNotReady = errors.New("gateway not initialized")
)

// ErrorCode maps a gateway error to the stable machine-readable code used
// in the failure envelope.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrTokenMalformed):
		return "MALFORMED_TOKEN"
	case errors.Is(err, ErrTokenSignatureInvalid):
		return "INVALID_SIGNATURE"
	case errors.Is(err, ErrTokenExpired):
		return "TOKEN_EXPIRED"
	case errors.Is(err, ErrTokenWrongType):
		return "WRONG_TOKEN_TYPE"
	case errors.Is(err, ErrSessionNotFound):
		return "SESSION_NOT_FOUND"
	case errors.Is(err, ErrSessionExpired):
		return "SESSION_EXPIRED"
	case errors.Is(err, ErrSessionFingerprintMismatch):
		return "SESSION_FINGERPRINT_MISMATCH"
	case errors.Is(err, ErrNoCredentials):
		return "NO_CREDENTIALS"
	case errors.Is(err, ErrInvalidCredentials):
		return "INVALID_CREDENTIALS"
	case errors.Is(err, ErrAccountSuspended):
		return "ACCOUNT_SUSPENDED"
	case errors.Is(err, ErrPermissionDenied):
		return "PERMISSION_DENIED"
	case errors.Is(err, ErrTierLimitExceeded):
		return "TIER_LIMIT_EXCEEDED"
	case errors.Is(err, ErrRateLimited):
		return "RATE_LIMITED"
	case errors.Is(err, ErrStorageUnavailable):
		return "STORAGE_UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus maps a gateway error onto the boundary contract: 401 for
// "who are you" failures, 403 for "you can't do that", 429 for throttling,
// 503 for storage outages.
func HTTPStatus(err error) int {
	switch {
	case IsAuthenticationError(err):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrTierLimitExceeded),
		errors.Is(err, ErrAccountSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsAuthenticationError reports whether the failure is about identity
// resolution rather than authorization. Callers use this to decide
// between prompting re-login and showing a permission message.
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrTokenMalformed) ||
		errors.Is(err, ErrTokenSignatureInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenWrongType) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrSessionFingerprintMismatch) ||
		errors.Is(err, ErrNoCredentials) ||
		errors.Is(err, ErrInvalidCredentials)
}

// Package courtgate provides the identity, session, and access-control
// core for a court-sports tournament platform: HS256 JWT access/refresh
// tokens, Redis-backed fingerprinted sessions, fixed-window rate limits,
// role-based permissions, resource-level authorization, and tier gating.
//
// The package is designed for concurrent server workloads: Gateway
// methods are safe to call from multiple goroutines after construction
// through [Builder.Build].
//
// # Architecture boundaries
//
// courtgate is the public surface. It exposes [Gateway], [Builder],
// [Config], and value types (AuthContext, LoginResult, RateStatus,
// etc.). Subpackages token, session, rbac, tier, and password hold one
// concern each and never import the root; rate limiting and audit
// dispatch live under internal/ and are not exported.
//
// # Credential resolution
//
// Authenticate accepts a bearer token, a session id, or both. A valid
// access token resolves without any Redis round-trip and its claims are
// trusted as issued; a session resolves through Redis and re-reads the
// identity store, so role and tier changes take effect immediately on
// the session path but only at re-issue on the token path. Issued access
// tokens cannot be revoked before expiry; destroying the session only
// severs refresh.
package courtgate

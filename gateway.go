package courtgate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/courtmatch/courtgate/internal"
	"github.com/courtmatch/courtgate/internal/audit"
	"github.com/courtmatch/courtgate/internal/rate"
	"github.com/courtmatch/courtgate/password"
	"github.com/courtmatch/courtgate/rbac"
	"github.com/courtmatch/courtgate/session"
	"github.com/courtmatch/courtgate/tier"
	"github.com/courtmatch/courtgate/token"
)

// Gateway is the façade external callers invoke. It resolves identities
// from bearer tokens or session cookies, evaluates permissions and tier
// limits, and throttles by identity and action. Construct one through
// [Builder.Build]; methods are safe for concurrent use afterwards.
type Gateway struct {
	config Config

	tokens     *token.Service
	sessions   *session.Store
	limiter    *rate.Limiter
	authorizer *rbac.Authorizer
	gate       *tier.Gate
	passwords  *password.Hasher
	users      UserProvider

	audit   *audit.Dispatcher
	metrics metrics
}

// Close flushes and stops the audit dispatcher.
func (g *Gateway) Close() {
	if g != nil {
		g.audit.Close()
	}
}

// AuditDropped returns the number of audit events lost to backpressure.
func (g *Gateway) AuditDropped() uint64 {
	if g == nil {
		return 0
	}
	return g.audit.Dropped()
}

// SessionCookieName returns the configured cookie carrying the session id.
func (g *Gateway) SessionCookieName() string {
	return g.config.Session.CookieName
}

// Login authenticates a credential pair and, on success, creates a
// session bound to the caller's fingerprint and issues an access/refresh
// token pair. Every attempt, successful or not, consumes one unit of the
// credential's login budget; a successful login resets the window.
func (g *Gateway) Login(ctx context.Context, identifier, plaintext string) (*LoginResult, error) {
	if g == nil || g.users == nil {
		return nil, ErrGatewayNotReady
	}

	allowed, err := g.rateCheck(ctx, credentialKey(identifier), rate.ActionLogin)
	if err != nil {
		return nil, err
	}
	if !allowed {
		g.metrics.login("rate_limited")
		g.metrics.denial("rate")
		g.emitAudit(ctx, "login_rate_limited", "", "", false, ErrRateLimited.Error())
		return nil, ErrRateLimited
	}

	user, err := g.users.GetUserByCredential(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			g.metrics.login("failure")
			g.emitAudit(ctx, "login_failure", "", "", false, "unknown identifier")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if user.Status != AccountActive {
		g.metrics.login("suspended")
		g.emitAudit(ctx, "login_failure", user.UserID, "", false, ErrAccountSuspended.Error())
		return nil, ErrAccountSuspended
	}

	ok, err := g.passwords.Verify(plaintext, user.PasswordHash)
	if err != nil {
		g.metrics.login("failure")
		g.emitAudit(ctx, "login_failure", user.UserID, "", false, "unverifiable password hash")
		return nil, ErrInvalidCredentials
	}
	if !ok {
		g.metrics.login("failure")
		g.emitAudit(ctx, "login_failure", user.UserID, "", false, ErrInvalidCredentials.Error())
		return nil, ErrInvalidCredentials
	}

	role, roleOK := rbac.ParseRole(user.Role)
	if !roleOK {
		g.metrics.login("failure")
		g.emitAudit(ctx, "login_failure", user.UserID, "", false, "unknown role "+user.Role)
		return nil, ErrInvalidCredentials
	}

	g.maybeRehash(ctx, user, plaintext)

	// Earlier failed attempts stop counting once the credential proves
	// itself.
	_ = g.limiter.Reset(ctx, credentialKey(identifier), rate.ActionLogin)

	fp := internal.Fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))

	var sess *session.Session
	err = g.withStorageRetry(ctx, func() error {
		var cerr error
		sess, cerr = g.sessions.Create(ctx, user.UserID, fp, nil)
		return cerr
	})
	if err != nil {
		return nil, mapSessionErr(err)
	}
	g.metrics.session("created")

	access, err := g.tokens.IssueAccess(user.UserID, sess.SessionID, string(role), user.Tier, rbac.Permissions(role))
	if err != nil {
		return nil, err
	}
	g.metrics.tokenIssued("access")

	refresh, err := g.tokens.IssueRefresh(user.UserID, sess.SessionID)
	if err != nil {
		return nil, err
	}
	g.metrics.tokenIssued("refresh")

	g.metrics.login("success")
	g.emitAudit(ctx, "login_success", user.UserID, sess.SessionID, true, "")

	return &LoginResult{
		UserID:       user.UserID,
		AccessToken:  access,
		RefreshToken: refresh,
		SessionID:    sess.SessionID,
	}, nil
}

// maybeRehash upgrades the stored hash when current cost parameters are
// stronger. Best effort: a failed update never blocks the login.
func (g *Gateway) maybeRehash(ctx context.Context, user UserRecord, plaintext string) {
	needs, err := g.passwords.NeedsRehash(user.PasswordHash)
	if err != nil || !needs {
		return
	}
	newHash, err := g.passwords.Hash(plaintext)
	if err != nil {
		return
	}
	if err := g.users.UpdatePasswordHash(ctx, user.UserID, newHash); err != nil {
		g.emitAudit(ctx, "password_rehash_failed", user.UserID, "", false, err.Error())
	}
}

// Refresh redeems a refresh token for a fresh token pair. The originating
// session must still be live and fingerprint-bound, so destroying the
// session severs re-issuance; role, tier, and permissions are re-resolved
// from the identity store rather than copied from the old token.
func (g *Gateway) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if g == nil || g.users == nil {
		return nil, ErrGatewayNotReady
	}

	claims, err := g.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, mapTokenErr(err)
	}

	fp := internal.Fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))

	err = g.withStorageRetry(ctx, func() error {
		_, verr := g.sessions.Validate(ctx, claims.SessionID, fp)
		return verr
	})
	if err != nil {
		return nil, mapSessionErr(err)
	}

	user, err := g.users.GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if user.Status != AccountActive {
		return nil, ErrAccountSuspended
	}

	role, ok := rbac.ParseRole(user.Role)
	if !ok {
		return nil, ErrInvalidCredentials
	}

	access, err := g.tokens.IssueAccess(user.UserID, claims.SessionID, string(role), user.Tier, rbac.Permissions(role))
	if err != nil {
		return nil, err
	}
	g.metrics.tokenIssued("access")

	refresh, err := g.tokens.IssueRefresh(user.UserID, claims.SessionID)
	if err != nil {
		return nil, err
	}
	g.metrics.tokenIssued("refresh")

	g.emitAudit(ctx, "token_refresh", user.UserID, claims.SessionID, true, "")

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Authenticate resolves a request's identity from a bearer token or a
// session cookie. When both are present the token wins and the session is
// not independently re-validated. Failures here are authentication
// failures, distinct from authorization denials.
func (g *Gateway) Authenticate(ctx context.Context, bearerToken, sessionID string) (*AuthContext, error) {
	if g == nil || g.users == nil {
		return nil, ErrGatewayNotReady
	}

	switch {
	case bearerToken != "":
		return g.authenticateToken(ctx, bearerToken)
	case sessionID != "":
		return g.authenticateSession(ctx, sessionID)
	default:
		return nil, ErrNoCredentials
	}
}

func (g *Gateway) authenticateToken(ctx context.Context, bearerToken string) (*AuthContext, error) {
	claims, err := g.tokens.ParseAccess(bearerToken)
	if err != nil {
		g.metrics.authentication(SourceToken, "failure")
		return nil, mapTokenErr(err)
	}

	role, ok := rbac.ParseRole(claims.Role)
	if !ok {
		g.metrics.authentication(SourceToken, "failure")
		return nil, ErrTokenMalformed
	}
	t, ok := tier.ParseTier(claims.Tier)
	if !ok {
		g.metrics.authentication(SourceToken, "failure")
		return nil, ErrTokenMalformed
	}

	g.metrics.authentication(SourceToken, "success")
	return &AuthContext{
		UserID:      claims.Subject,
		Role:        role,
		Tier:        t,
		Permissions: claims.Permissions,
		SessionID:   claims.SessionID,
		Source:      SourceToken,
	}, nil
}

func (g *Gateway) authenticateSession(ctx context.Context, sessionID string) (*AuthContext, error) {
	fp := internal.Fingerprint(userAgentFromContext(ctx), clientIPFromContext(ctx))

	var sess *session.Session
	err := g.withStorageRetry(ctx, func() error {
		var verr error
		sess, verr = g.sessions.Validate(ctx, sessionID, fp)
		return verr
	})
	if err != nil {
		g.metrics.authentication(SourceSession, "failure")
		if errors.Is(err, session.ErrFingerprintMismatch) {
			g.emitAudit(ctx, "session_hijack_suspected", "", sessionID, false, err.Error())
		}
		return nil, mapSessionErr(err)
	}

	// Session-resolved identities carry live role and tier, not a token
	// snapshot.
	user, err := g.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		g.metrics.authentication(SourceSession, "failure")
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if user.Status != AccountActive {
		g.metrics.authentication(SourceSession, "failure")
		return nil, ErrAccountSuspended
	}

	role, ok := rbac.ParseRole(user.Role)
	if !ok {
		g.metrics.authentication(SourceSession, "failure")
		return nil, ErrSessionNotFound
	}
	t, ok := tier.ParseTier(user.Tier)
	if !ok {
		g.metrics.authentication(SourceSession, "failure")
		return nil, ErrSessionNotFound
	}

	g.metrics.authentication(SourceSession, "success")
	return &AuthContext{
		UserID:      user.UserID,
		Role:        role,
		Tier:        t,
		Permissions: rbac.Permissions(role),
		SessionID:   sess.SessionID,
		Source:      SourceSession,
	}, nil
}

// Logout destroys the session. Idempotent; logging out an absent session
// succeeds.
func (g *Gateway) Logout(ctx context.Context, sessionID string) error {
	if g == nil {
		return ErrGatewayNotReady
	}

	err := g.withStorageRetry(ctx, func() error {
		return g.sessions.Destroy(ctx, sessionID)
	})
	if err != nil {
		return mapSessionErr(err)
	}

	g.metrics.session("destroyed")
	g.emitAudit(ctx, "logout", "", sessionID, true, "")
	return nil
}

// RequirePermission checks the resolved role against the static table.
func (g *Gateway) RequirePermission(authCtx *AuthContext, perm rbac.Permission) error {
	if authCtx == nil || !rbac.HasPermission(authCtx.Role, perm) {
		g.metrics.denial("permission")
		return ErrPermissionDenied
	}
	return nil
}

// CanEditTournament reports whether the identity may modify the
// tournament. Collaborator failures fail closed as StorageUnavailable.
func (g *Gateway) CanEditTournament(ctx context.Context, authCtx *AuthContext, tournamentID string) (bool, error) {
	ok, err := g.authorizer.CanEditTournament(ctx, authCtx.UserID, authCtx.Role, tournamentID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		g.metrics.denial("permission")
	}
	return ok, nil
}

// CanManageClub reports whether the identity administers the club.
func (g *Gateway) CanManageClub(ctx context.Context, authCtx *AuthContext, clubID string) (bool, error) {
	ok, err := g.authorizer.CanManageClub(ctx, authCtx.UserID, authCtx.Role, clubID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		g.metrics.denial("permission")
	}
	return ok, nil
}

// CanRegisterForTournament evaluates registration eligibility against one
// consistent tournament snapshot.
func (g *Gateway) CanRegisterForTournament(ctx context.Context, authCtx *AuthContext, tournamentID string) (bool, error) {
	ok, err := g.authorizer.CanRegisterForTournament(ctx, authCtx.UserID, authCtx.Role, tournamentID)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		g.metrics.denial("permission")
	}
	return ok, nil
}

// CanAccessFeature re-resolves the user's tier and usage and applies the
// feature limit. Token-embedded tiers are never consulted here.
func (g *Gateway) CanAccessFeature(ctx context.Context, userID string, feature tier.Feature) (bool, error) {
	ok, err := g.gate.Allows(ctx, userID, feature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if !ok {
		g.metrics.denial("tier")
	}
	return ok, nil
}

// RequireFeature is [Gateway.CanAccessFeature] with a denial mapped onto
// the error taxonomy.
func (g *Gateway) RequireFeature(ctx context.Context, userID string, feature tier.Feature) error {
	ok, err := g.CanAccessFeature(ctx, userID, feature)
	if err != nil {
		return err
	}
	if !ok {
		return ErrTierLimitExceeded
	}
	return nil
}

// CheckLimits returns the user's at-or-over-capacity features under their
// current tier, computed from fresh usage counts.
func (g *Gateway) CheckLimits(ctx context.Context, userID string) (map[tier.Feature]tier.LimitStatus, error) {
	out, err := g.gate.CheckLimits(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

// Allow consumes one unit of the subject's budget for the named action
// and reports window state for the rate-limit response headers.
func (g *Gateway) Allow(ctx context.Context, subjectKey, action string) (RateStatus, error) {
	if g == nil {
		return RateStatus{}, ErrGatewayNotReady
	}

	act := rate.Action(action)
	policy, ok := g.limiter.Policy(act)
	if !ok {
		return RateStatus{Allowed: true}, nil
	}

	allowed, err := g.rateCheck(ctx, subjectKey, act)
	if err != nil {
		return RateStatus{}, err
	}

	remaining, err := g.limiter.Remaining(ctx, subjectKey, act)
	if err != nil {
		return RateStatus{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	resetIn, err := g.limiter.ResetIn(ctx, subjectKey, act)
	if err != nil {
		return RateStatus{}, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if !allowed {
		g.metrics.denial("rate")
	}

	return RateStatus{
		Allowed:   allowed,
		Limit:     policy.MaxAttempts,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

func (g *Gateway) rateCheck(ctx context.Context, subjectKey string, action rate.Action) (bool, error) {
	var allowed bool
	err := g.withStorageRetry(ctx, func() error {
		var cerr error
		allowed, cerr = g.limiter.CheckAndIncrement(ctx, subjectKey, action)
		return cerr
	})
	if err != nil {
		// Counter storage down: deny rather than fail open.
		return false, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return allowed, nil
}

// withStorageRetry re-runs op on storage-unavailable failures only, with
// a bounded attempt count and fixed backoff. All other error classes are
// terminal for the request.
func (g *Gateway) withStorageRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = op()
		if err == nil || !isStorageErr(err) || attempt >= g.config.StorageRetry.Attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(g.config.StorageRetry.Backoff):
		}
	}
}

func isStorageErr(err error) bool {
	return errors.Is(err, session.ErrRedisUnavailable) ||
		errors.Is(err, rate.ErrRedisUnavailable) ||
		errors.Is(err, ErrStorageUnavailable)
}

func mapTokenErr(err error) error {
	switch {
	case errors.Is(err, token.ErrMalformed):
		return ErrTokenMalformed
	case errors.Is(err, token.ErrSignature):
		return ErrTokenSignatureInvalid
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrWrongType):
		return ErrTokenWrongType
	default:
		return ErrTokenMalformed
	}
}

func mapSessionErr(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return ErrSessionNotFound
	case errors.Is(err, session.ErrExpired):
		return ErrSessionExpired
	case errors.Is(err, session.ErrFingerprintMismatch):
		return ErrSessionFingerprintMismatch
	case errors.Is(err, session.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	default:
		return err
	}
}

func credentialKey(identifier string) string {
	return "cred:" + identifier
}

func (g *Gateway) emitAudit(ctx context.Context, eventType, userID, sessionID string, success bool, errStr string) {
	if g.audit == nil {
		return
	}
	g.audit.Emit(ctx, audit.Event{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		SessionID: sessionID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Error:     errStr,
	})
}

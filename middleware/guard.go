// Package middleware provides net/http glue for a courtgate Gateway:
// credential extraction, per-request rate limiting, permission checks,
// and a JSON failure envelope.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/courtmatch/courtgate"
	"github.com/courtmatch/courtgate/rbac"
)

type contextKey struct{ name string }

var authContextKey = contextKey{"auth-context"}

// AuthFromContext returns the identity resolved by [Guard], or nil when
// the request never passed through it.
func AuthFromContext(ctx context.Context) *courtgate.AuthContext {
	authCtx, _ := ctx.Value(authContextKey).(*courtgate.AuthContext)
	return authCtx
}

// Options configures one Guard instance.
type Options struct {
	// Permission, when non-zero, must be held by the resolved role.
	Permission rbac.Permission

	// Action, when non-empty, charges the request against the caller's
	// budget for that action and sets the X-RateLimit headers.
	Action string

	// CookieName overrides the gateway's configured session cookie.
	CookieName string
}

// Guard returns middleware that authenticates the request against gw,
// optionally enforces a permission and a rate budget, and stores the
// resolved AuthContext for downstream handlers. Failures are written as
// the JSON failure envelope; the wrapped handler only runs for requests
// that pass every configured check.
func Guard(gw *courtgate.Gateway, opts Options) func(http.Handler) http.Handler {
	cookieName := opts.CookieName
	if cookieName == "" {
		cookieName = gw.SessionCookieName()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := courtgate.WithClientIP(r.Context(), clientIP(r))
			ctx = courtgate.WithUserAgent(ctx, r.UserAgent())

			authCtx, err := gw.Authenticate(ctx, bearerToken(r), sessionID(r, cookieName))
			if err != nil {
				writeError(w, err)
				return
			}

			if opts.Action != "" {
				status, rerr := gw.Allow(ctx, "user:"+authCtx.UserID, opts.Action)
				if rerr != nil {
					writeError(w, rerr)
					return
				}
				setRateHeaders(w, status)
				if !status.Allowed {
					writeError(w, courtgate.ErrRateLimited)
					return
				}
			}

			if opts.Permission != "" {
				if perr := gw.RequirePermission(authCtx, opts.Permission); perr != nil {
					writeError(w, perr)
					return
				}
			}

			ctx = context.WithValue(ctx, authContextKey, authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return h[len(prefix):]
	}
	return ""
}

func sessionID(r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// clientIP prefers the left-most X-Forwarded-For hop, falling back to
// the socket peer.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func setRateHeaders(w http.ResponseWriter, status courtgate.RateStatus) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(status.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(status.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.Itoa(int(status.ResetIn.Seconds())))
}

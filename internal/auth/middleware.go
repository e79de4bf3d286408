package auth

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/menuhub/menuhub/internal/telemetry"
)

// SessionCookieName is the cookie carrying the opaque session token.
const SessionCookieName = "_session"

type contextKey string

const principalContextKey contextKey = "principal"

// Gate is the enforcement point for admin-scoped requests. It resolves the
// caller's identity, asks the engine for a decision, and either passes the
// request through with the principal in its context or terminates it with a
// redirect. It holds no cross-request state.
type Gate struct {
	resolver *Resolver
	engine   *Engine
}

// NewGate creates a new request gate.
func NewGate(resolver *Resolver, engine *Engine) *Gate {
	return &Gate{
		resolver: resolver,
		engine:   engine,
	}
}

// Middleware returns the HTTP middleware enforcing admin-scope access.
func (g *Gate) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isAdminPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			telemetry.GetMetrics().AdminRequestsTotal.Add(r.Context(), 1)

			principal := g.resolver.Resolve(r.Context(), sessionToken(r))

			decision := g.engine.Authorize(r.Context(), principal, r.URL.Path)
			if !decision.Allowed {
				telemetry.GetMetrics().AdminDeniedTotal.Add(r.Context(), 1)
				log.Debug().
					Str("path", r.URL.Path).
					Str("kind", string(principal.Kind)).
					Str("redirect", decision.Redirect).
					Msg("Admin request denied")
				http.Redirect(w, r, decision.Redirect, http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext extracts the principal stored by the gate. Handlers
// behind the gate always find one; elsewhere the second return is false.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	principal, ok := ctx.Value(principalContextKey).(Principal)
	return principal, ok
}

// sessionToken extracts the opaque session token from the request cookie.
// A missing cookie yields an empty token, which resolves to Anonymous.
func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

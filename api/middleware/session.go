package middleware

import (
	"context"
	"net/http"

	"github.com/agrolease/agrolease-backend/internal/session"
	"github.com/agrolease/agrolease-backend/pkg/logger"
)

type sessionResolver interface {
	Resolve(ctx context.Context, userID string) *session.Session
}

// ResolveSession loads the caller's profile once per request and attaches the
// session for services that act on behalf of the user. Runs after Auth.
//
// When the profile cannot be read the session still carries the identity and
// role from the token, with Resolved left false.
func ResolveSession(resolver sessionResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID := UserIDFromContext(ctx)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}

			sess := resolver.Resolve(ctx, userID)
			if !sess.Resolved {
				sess.Role = RoleFromContext(ctx)
				sess.Landing = session.LandingFor(sess.Role)
				if logg != nil {
					logg.Warn(ctx, "session.unresolved_token_fallback")
				}
			}
			next.ServeHTTP(w, r.WithContext(session.WithContext(ctx, sess)))
		})
	}
}

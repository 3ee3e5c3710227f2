package auth

import (
	"net/http"

	"github.com/mind-engage/mindengage-learn/internal/apperr"
	"github.com/mind-engage/mindengage-learn/internal/rbac"
)

// AttachRoleFromDB replaces the token role with the role stored for the
// user, so demotions take effect before the token expires. Tokens of deleted
// users are rejected.
func AttachRoleFromDB(users *UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			p, ok := rbac.PrincipalFromContext(ctx)
			if !ok {
				jsonError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			u, err := users.Get(ctx, p.UserID)
			switch {
			case err == nil:
				p.Role = u.Role
				next.ServeHTTP(w, r.WithContext(rbac.WithPrincipal(ctx, p)))
			case apperr.Is(err, apperr.KindNotFound):
				jsonError(w, http.StatusUnauthorized, "unknown user")
			default:
				jsonError(w, http.StatusServiceUnavailable, "user lookup failed")
			}
		})
	}
}

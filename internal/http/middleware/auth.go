package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/rlagosf/rafc-go-backend/internal/http/response"
	"github.com/rlagosf/rafc-go-backend/internal/security"
)

type claimsContextKey struct{}

// Authenticator guards staff-only routes with bearer access tokens.
type Authenticator struct {
	jwtManager *security.JWTManager
}

func NewAuthenticator(jwtManager *security.JWTManager) *Authenticator {
	return &Authenticator{jwtManager: jwtManager}
}

func (a *Authenticator) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			claims, err := a.jwtManager.ParseAccessToken(raw)
			if err != nil {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid access token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey{}, claims)))
		})
	}
}

// RequireAnyRole runs after Middleware and rejects callers whose token
// carries none of the given roles.
func RequireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing access token", nil)
				return
			}
			for _, want := range roles {
				for _, have := range claims.Roles {
					if strings.EqualFold(have, want) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}
			response.Error(w, r, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
		})
	}
}

func ClaimsFromContext(ctx context.Context) (*security.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*security.Claims)
	return claims, ok
}

func bearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}

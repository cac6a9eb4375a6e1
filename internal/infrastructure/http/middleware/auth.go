package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rezkam/taskhub/internal/application/auth"
	"github.com/rezkam/taskhub/internal/infrastructure/http/response"
)

// AuthCookieName is the HTTP-only cookie carrying the session token for
// same-site clients. Cross-site clients send a Bearer header instead.
const AuthCookieName = "auth_token"

// TokenVerifier validates a raw token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Claims, error)
}

type contextKey struct{}

// UserID extracts the authenticated user id from the request context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(contextKey{}).(string)
	return id, ok
}

// WithUserID returns a context carrying the user id. Exported for
// handler tests that bypass the middleware.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextKey{}, userID)
}

// Auth is HTTP middleware for JWT authentication.
type Auth struct {
	verifier TokenVerifier
}

// NewAuth creates the auth middleware.
func NewAuth(verifier TokenVerifier) *Auth {
	return &Auth{verifier: verifier}
}

// Validate authenticates the request from the auth cookie or the
// Authorization header and stores the user id in the request context.
func (a *Auth) Validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			response.Unauthorized(w, "missing credentials")
			return
		}

		claims, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			slog.WarnContext(r.Context(), "authentication failed",
				"path", r.URL.Path, "method", r.Method)
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
	})
}

// tokenFromRequest prefers the cookie, falling back to a Bearer header.
func tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(AuthCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	header := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token
	}
	return ""
}

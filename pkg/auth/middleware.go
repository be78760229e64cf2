package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is a private type so request-context entries cannot
// collide with other packages
type contextKey string

const (
	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "user_id"
	// UserEmailKey is the context key for the user email
	UserEmailKey contextKey = "user_email"
	// UserRoleKey is the context key for the user role
	UserRoleKey contextKey = "user_role"
	// AuthMethodKey records whether the request carried a JWT or an API key
	AuthMethodKey contextKey = "auth_method"
)

// AuthMiddleware guards the session and export endpoints. It accepts
// either a Bearer JWT or an X-API-Key header. With optional set, a
// request without credentials passes through anonymously, which is how
// single-user local deployments run.
type AuthMiddleware struct {
	jwtManager    *JWTManager
	apiKeyManager *APIKeyManager
	optional      bool
}

// NewAuthMiddleware creates the middleware
func NewAuthMiddleware(jwtManager *JWTManager, apiKeyManager *APIKeyManager, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager:    jwtManager,
		apiKeyManager: apiKeyManager,
		optional:      optional,
	}
}

// Handler wraps next with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token := strings.TrimPrefix(authHeader, "Bearer ")
			if authed, ok := m.withJWT(r, token); ok {
				next.ServeHTTP(w, authed)
				return
			}
			if !m.optional {
				http.Error(w, "Unauthorized: Invalid or expired token", http.StatusUnauthorized)
				return
			}
		}

		if apiKey := r.Header.Get("X-API-Key"); apiKey != "" {
			if authed, ok := m.withAPIKey(r, apiKey); ok {
				next.ServeHTTP(w, authed)
				return
			}
			if !m.optional {
				http.Error(w, "Unauthorized: Invalid or revoked API key", http.StatusUnauthorized)
				return
			}
		}

		if m.optional {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Unauthorized: No valid authentication provided", http.StatusUnauthorized)
	})
}

// withJWT validates a token and returns the request annotated with the
// user identity
func (m *AuthMiddleware) withJWT(r *http.Request, token string) (*http.Request, bool) {
	claims, err := m.jwtManager.Verify(token)
	if err != nil {
		return r, false
	}

	ctx := r.Context()
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
	ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
	ctx = context.WithValue(ctx, AuthMethodKey, "jwt")

	return r.WithContext(ctx), true
}

// withAPIKey validates an API key and returns the annotated request
func (m *AuthMiddleware) withAPIKey(r *http.Request, key string) (*http.Request, bool) {
	apiKey, err := m.apiKeyManager.Verify(key)
	if err != nil {
		return r, false
	}

	ctx := r.Context()
	ctx = context.WithValue(ctx, UserIDKey, apiKey.UserID)
	ctx = context.WithValue(ctx, AuthMethodKey, "apikey")

	return r.WithContext(ctx), true
}

// GetUserID extracts the user ID from the request context
func GetUserID(r *http.Request) (string, bool) {
	userID, ok := r.Context().Value(UserIDKey).(string)
	return userID, ok
}

// GetUserEmail extracts the user email from the request context
func GetUserEmail(r *http.Request) (string, bool) {
	email, ok := r.Context().Value(UserEmailKey).(string)
	return email, ok
}

// GetUserRole extracts the user role from the request context
func GetUserRole(r *http.Request) (string, bool) {
	role, ok := r.Context().Value(UserRoleKey).(string)
	return role, ok
}

// GetAuthMethod reports how the request authenticated
func GetAuthMethod(r *http.Request) (string, bool) {
	method, ok := r.Context().Value(AuthMethodKey).(string)
	return method, ok
}

// RequireRole rejects requests whose authenticated role differs from
// role. It must run after Handler.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userRole, ok := GetUserRole(r)
			if !ok || userRole != role {
				http.Error(w, "Forbidden: Insufficient permissions", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

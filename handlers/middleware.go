package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/camden-git/requestsysbackend/config"
	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// UserFromContext returns the authenticated user stored by
// AuthMiddleware, or nil when there is none.
func UserFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// AuthMiddleware creates a middleware handler for JWT authentication.
// It verifies the token and, if valid, fetches the user and adds them to
// the request context. The user record (including the legacy admin
// flag) is loaded fresh on every request; identity is never cached
// beyond the call.
func AuthMiddleware(userRepo repository.UserRepository, cfg config.Config, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authorization header format must be Bearer {token}")
			return
		}
		tokenString := parts[1]

		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(cfg.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Invalid token")
			return
		}

		var userID uint
		if _, err := fmt.Sscan(claims.Subject, &userID); err != nil {
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Invalid user ID in token")
			return
		}

		user, err := userRepo.GetByID(userID)
		if err != nil {
			// the user may have been deleted after the token was issued
			WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "User not found")
			return
		}
		if !user.IsActive {
			WriteAPIError(w, http.StatusUnauthorized, "account_disabled", "This account has been deactivated")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission is a middleware that re-resolves the authenticated
// user's effective policy and checks a single permission key. It should
// be used after AuthMiddleware.
func RequirePermission(policy *services.PolicyService, requiredPermission string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r)
		if user == nil {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "User not found in context")
			return
		}

		resolved, err := policy.ResolveFor(user)
		if err != nil {
			WriteServiceError(w, err)
			return
		}
		if !resolved.Has(requiredPermission) {
			WriteAPIError(w, http.StatusForbidden, "forbidden",
				fmt.Sprintf("Requires permission '%s'", requiredPermission))
			return
		}

		next.ServeHTTP(w, r)
	})
}

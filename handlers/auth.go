package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/camden-git/requestsysbackend/config"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
	"github.com/golang-jwt/jwt/v5"
)

type AuthHandler struct {
	UserRepo repository.UserRepository
	Policy   *services.PolicyService
	Cfg      config.Config
}

func NewAuthHandler(userRepo repository.UserRepository, policy *services.PolicyService, cfg config.Config) *AuthHandler {
	return &AuthHandler{UserRepo: userRepo, Policy: policy, Cfg: cfg}
}

type LoginPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string         `json:"token"`
	User      UserSummaryDTO `json:"user"`
	ExpiresAt time.Time      `json:"expires_at"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload")
		return
	}

	user, err := h.UserRepo.GetByUsername(payload.Username)
	if err != nil {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}
	if !user.IsActive {
		WriteAPIError(w, http.StatusUnauthorized, "account_disabled", "This account has been deactivated")
		return
	}
	if !user.CheckPassword(payload.Password) {
		WriteAPIError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	expirationTime := time.Now().Add(time.Duration(h.Cfg.JWTExpirationHours) * time.Hour)
	claims := &jwt.RegisteredClaims{
		Subject:   fmt.Sprint(user.ID),
		ExpiresAt: jwt.NewNumericDate(expirationTime),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		Issuer:    "requestsysbackend",
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.Cfg.JWTSecret))
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "token_error", "Failed to generate token")
		return
	}

	response := LoginResponse{
		Token:     tokenString,
		User:      toUserSummaryDTO(*user),
		ExpiresAt: expirationTime,
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(response)
}

// Me returns the authenticated user together with their freshly
// resolved effective policy, so the frontend can decide which controls
// to render.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r)
	if user == nil {
		WriteAPIError(w, http.StatusUnauthorized, "unauthenticated", "Authentication required")
		return
	}

	policy, err := h.Policy.ResolveFor(user)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"user":   toUserSummaryDTO(*user),
		"policy": policy,
	})
}

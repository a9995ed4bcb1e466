package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminUserHandler struct {
	UserRepo     repository.UserRepository
	RoleRepo     repository.RoleRepository
	OverrideRepo repository.OverrideRepository
	Policy       *services.PolicyService
}

func NewAdminUserHandler(userRepo repository.UserRepository, roleRepo repository.RoleRepository, overrideRepo repository.OverrideRepository, policy *services.PolicyService) *AdminUserHandler {
	return &AdminUserHandler{UserRepo: userRepo, RoleRepo: roleRepo, OverrideRepo: overrideRepo, Policy: policy}
}

// UserSummaryDTO is a minimal user representation for embedding in other responses.
type UserSummaryDTO struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	RoleID   *uint  `json:"role_id,omitempty"`
	RoleName string `json:"role_name,omitempty"`
	IsAdmin  bool   `json:"is_admin"`
	IsActive bool   `json:"is_active"`
}

func toUserSummaryDTO(user models.User) UserSummaryDTO {
	dto := UserSummaryDTO{
		ID:       user.ID,
		Username: user.Username,
		RoleID:   user.RoleID,
		IsAdmin:  user.IsAdmin,
		IsActive: user.IsActive,
	}
	if user.Role != nil {
		dto.RoleName = user.Role.Name
	}
	return dto
}

type UserCreatePayload struct {
	Username string `json:"username"`
	// Password is optional; when omitted a random initial password is
	// generated and returned once in the response.
	Password string `json:"password"`
	RoleID   *uint  `json:"role_id"`
}

type UserCreateResponse struct {
	User UserSummaryDTO `json:"user"`
	// InitialPassword is only set when the password was generated.
	InitialPassword string `json:"initial_password,omitempty"`
}

func (h *AdminUserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.UserRepo.ListAll()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve users: "+err.Error())
		return
	}
	dtos := make([]UserSummaryDTO, len(users))
	for i, user := range users {
		dtos[i] = toUserSummaryDTO(user)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(dtos)
}

func (h *AdminUserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve user: "+err.Error())
		}
		return
	}

	override, err := h.OverrideRepo.GetByUserID(userID)
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve permission override: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"user":     toUserSummaryDTO(*user),
		"override": override,
	})
}

func (h *AdminUserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload UserCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	if payload.Username == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Username is required")
		return
	}

	if payload.RoleID != nil {
		if _, err := h.RoleRepo.GetByID(*payload.RoleID); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Assigned role does not exist")
			return
		}
	}

	initialPassword := ""
	password := payload.Password
	if password == "" {
		initialPassword = uuid.New().String()
		password = initialPassword
	}

	user := &models.User{
		Username: payload.Username,
		RoleID:   payload.RoleID,
		IsActive: true,
	}
	if err := user.SetPassword(password); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}
	if err := h.UserRepo.Create(user); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to create user: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(UserCreateResponse{
		User:            toUserSummaryDTO(*user),
		InitialPassword: initialPassword,
	})
}

type UserUpdatePayload struct {
	RoleID   *uint   `json:"role_id,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (h *AdminUserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var payload UserUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}

	user, err := h.UserRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve user: "+err.Error())
		}
		return
	}

	if payload.RoleID != nil {
		if _, err := h.RoleRepo.GetByID(*payload.RoleID); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Assigned role does not exist")
			return
		}
		user.RoleID = payload.RoleID
		user.Role = nil
	}
	if payload.IsActive != nil {
		user.IsActive = *payload.IsActive
	}
	if payload.Password != nil && *payload.Password != "" {
		if err := user.SetPassword(*payload.Password); err != nil {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to hash password")
			return
		}
	}

	if err := h.UserRepo.Update(user); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to update user: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(toUserSummaryDTO(*user))
}

func (h *AdminUserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	actor := UserFromContext(r)
	if actor != nil && actor.ID == userID {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "You cannot delete your own account")
		return
	}

	if _, err := h.UserRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to check user before delete: "+err.Error())
		}
		return
	}

	if err := h.UserRepo.Delete(userID); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete user: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type OverridePayload struct {
	Grants               []string `json:"grants"`
	Denials              []string `json:"denials"`
	MaxRequests          *int     `json:"max_requests"`
	RetentionDays        *int     `json:"retention_days"`
	NotificationsEnabled *bool    `json:"notifications_enabled"`
}

// SetOverride replaces the user's permission override. Keys must be
// defined and may not appear in both the grant and denial sets.
func (h *AdminUserHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	var payload OverridePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}

	denied := make(map[string]bool, len(payload.Denials))
	for _, key := range payload.Denials {
		if !permissions.IsValidPermissionKey(key) {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload", fmt.Sprintf("Invalid permission key: %s", key))
			return
		}
		denied[key] = true
	}
	for _, key := range payload.Grants {
		if !permissions.IsValidPermissionKey(key) {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload", fmt.Sprintf("Invalid permission key: %s", key))
			return
		}
		if denied[key] {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload",
				fmt.Sprintf("Permission key '%s' cannot be both granted and denied", key))
			return
		}
	}

	if _, err := h.UserRepo.GetByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "User not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve user: "+err.Error())
		}
		return
	}

	override := &models.PermissionOverride{
		UserID:               userID,
		Grants:               payload.Grants,
		Denials:              payload.Denials,
		MaxRequests:          payload.MaxRequests,
		RetentionDays:        payload.RetentionDays,
		NotificationsEnabled: payload.NotificationsEnabled,
	}
	if err := h.OverrideRepo.Upsert(override); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to save permission override: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(override)
}

// DeleteOverride removes the user's override so everything inherits
// from their role again.
func (h *AdminUserHandler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	if err := h.OverrideRepo.DeleteByUserID(userID); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete permission override: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetUserPolicy returns the user's freshly resolved effective policy.
func (h *AdminUserHandler) GetUserPolicy(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUserID(w, r)
	if !ok {
		return
	}

	policy, err := h.Policy.ResolvePolicy(userID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(policy)
}

func parseUserID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "userID")
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid user ID format")
		return 0, false
	}
	return uint(parsed), true
}

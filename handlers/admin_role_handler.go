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
	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
)

type AdminRoleHandler struct {
	RoleRepo repository.RoleRepository
}

func NewAdminRoleHandler(roleRepo repository.RoleRepository) *AdminRoleHandler {
	return &AdminRoleHandler{RoleRepo: roleRepo}
}

type RoleCreatePayload struct {
	Name                 string          `json:"name"`
	DisplayName          string          `json:"display_name"`
	Description          string          `json:"description"`
	Permissions          map[string]bool `json:"permissions"`
	MaxRequests          *int            `json:"max_requests"`
	RetentionDays        *int            `json:"retention_days"`
	NotificationsEnabled bool            `json:"notifications_enabled"`
}

type RoleUpdatePayload struct {
	DisplayName          *string          `json:"display_name,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Permissions          *map[string]bool `json:"permissions,omitempty"`
	MaxRequests          *int             `json:"max_requests,omitempty"`
	RetentionDays        *int             `json:"retention_days,omitempty"`
	NotificationsEnabled *bool            `json:"notifications_enabled,omitempty"`
}

func validatePermissionMap(perms map[string]bool) error {
	for key := range perms {
		if !permissions.IsValidPermissionKey(key) {
			return fmt.Errorf("invalid permission key: %s", key)
		}
	}
	return nil
}

func (h *AdminRoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.RoleRepo.ListAll()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve roles: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(roles)
}

func (h *AdminRoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseRoleID(w, r)
	if !ok {
		return
	}

	role, err := h.RoleRepo.GetByID(roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Role not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve role: "+err.Error())
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(role)
}

func (h *AdminRoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var payload RoleCreatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}

	if payload.Name == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Role name is required")
		return
	}
	if payload.Name == models.AdministratorRoleName {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload",
			fmt.Sprintf("Role name '%s' is reserved.", models.AdministratorRoleName))
		return
	}
	if err := validatePermissionMap(payload.Permissions); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", err.Error())
		return
	}

	role := &models.Role{
		Name:                 payload.Name,
		DisplayName:          payload.DisplayName,
		Description:          payload.Description,
		Permissions:          payload.Permissions,
		MaxRequests:          payload.MaxRequests,
		RetentionDays:        payload.RetentionDays,
		NotificationsEnabled: payload.NotificationsEnabled,
	}
	if err := h.RoleRepo.Create(role); err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to create role: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(role)
}

func (h *AdminRoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseRoleID(w, r)
	if !ok {
		return
	}

	var payload RoleUpdatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}

	role, err := h.RoleRepo.GetByID(roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Role not found")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to retrieve role for update: "+err.Error())
		}
		return
	}

	if role.Name == models.AdministratorRoleName {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "The Administrator role cannot be modified.")
		return
	}

	if payload.DisplayName != nil {
		role.DisplayName = *payload.DisplayName
	}
	if payload.Description != nil {
		role.Description = *payload.Description
	}
	if payload.Permissions != nil {
		if err := validatePermissionMap(*payload.Permissions); err != nil {
			WriteAPIError(w, http.StatusBadRequest, "invalid_payload", err.Error())
			return
		}
		role.Permissions = *payload.Permissions
	}
	if payload.MaxRequests != nil {
		role.MaxRequests = payload.MaxRequests
	}
	if payload.RetentionDays != nil {
		role.RetentionDays = payload.RetentionDays
	}
	if payload.NotificationsEnabled != nil {
		role.NotificationsEnabled = *payload.NotificationsEnabled
	}

	if err := h.RoleRepo.Update(role); err != nil {
		if errors.Is(err, repository.ErrDefaultRoleConflict) || errors.Is(err, repository.ErrNoDefaultRole) {
			WriteAPIError(w, http.StatusConflict, "default_role_conflict", err.Error())
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to update role: "+err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(role)
}

// SetDefaultRole moves the default flag onto the given role atomically.
func (h *AdminRoleHandler) SetDefaultRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseRoleID(w, r)
	if !ok {
		return
	}

	if err := h.RoleRepo.SetDefault(roleID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Role not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to set default role: "+err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminRoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	roleID, ok := parseRoleID(w, r)
	if !ok {
		return
	}

	role, err := h.RoleRepo.GetByID(roleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			WriteAPIError(w, http.StatusNotFound, "not_found", "Role not found")
			return
		}
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to check role before delete: "+err.Error())
		return
	}

	if role.Name == models.AdministratorRoleName {
		WriteAPIError(w, http.StatusForbidden, "forbidden", "The Administrator role cannot be deleted.")
		return
	}

	if err := h.RoleRepo.Delete(roleID); err != nil {
		switch {
		case errors.Is(err, repository.ErrRoleInUse):
			WriteAPIError(w, http.StatusConflict, "role_in_use",
				"Role is assigned to one or more users; reassign them first.")
		case errors.Is(err, repository.ErrNoDefaultRole):
			WriteAPIError(w, http.StatusConflict, "default_role_conflict",
				"The default role cannot be deleted; set another default first.")
		default:
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to delete role: "+err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func parseRoleID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	raw := chi.URLParam(r, "roleID")
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_id", "Invalid role ID format")
		return 0, false
	}
	return uint(parsed), true
}

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/repository"
	"gorm.io/gorm"
)

type SetupHandler struct {
	UserRepo repository.UserRepository
	RoleRepo repository.RoleRepository
	DB       *gorm.DB
}

func NewSetupHandler(db *gorm.DB, userRepo repository.UserRepository, roleRepo repository.RoleRepository) *SetupHandler {
	return &SetupHandler{UserRepo: userRepo, RoleRepo: roleRepo, DB: db}
}

type FirstAdminPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CreateFirstAdmin handles the creation of the initial administrator user.
// This endpoint is only usable while no users exist in the system.
func (h *SetupHandler) CreateFirstAdmin(w http.ResponseWriter, r *http.Request) {
	count, err := h.UserRepo.Count()
	if err != nil {
		WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Database error while checking for existing users.")
		return
	}
	if count > 0 {
		WriteAPIError(w, http.StatusForbidden, "setup_completed", "Setup has already been completed: users exist.")
		return
	}

	var payload FirstAdminPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Invalid request payload: "+err.Error())
		return
	}
	if payload.Username == "" || payload.Password == "" {
		WriteAPIError(w, http.StatusBadRequest, "invalid_payload", "Username and password are required")
		return
	}

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		var innerCount int64
		if err := tx.Model(&models.User{}).Count(&innerCount).Error; err != nil {
			return fmt.Errorf("failed to count existing users in transaction: %w", err)
		}
		if innerCount > 0 {
			return errors.New("setup already completed")
		}

		var adminRole models.Role
		if err := tx.Where("name = ?", models.AdministratorRoleName).First(&adminRole).Error; err != nil {
			return fmt.Errorf("could not find the '%s' role, which should have been auto-generated: %w", models.AdministratorRoleName, err)
		}

		adminUser := &models.User{
			Username: payload.Username,
			RoleID:   &adminRole.ID,
			IsActive: true,
		}
		if err := adminUser.SetPassword(payload.Password); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		if err := tx.Create(adminUser).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}

		return nil
	})

	if txErr != nil {
		if txErr.Error() == "setup already completed" {
			WriteAPIError(w, http.StatusForbidden, "setup_completed", "Setup has already been completed.")
		} else {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to create first admin user: "+txErr.Error())
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Initial admin user created successfully. Please log in."})
}

package services

import (
	"errors"
	"fmt"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
	"gorm.io/gorm"
)

// PolicyService resolves a user's effective policy from current role and
// override state. Every decision point calls it again; nothing is cached
// across writes to roles or overrides.
type PolicyService struct {
	UserRepo     repository.UserRepository
	RoleRepo     repository.RoleRepository
	OverrideRepo repository.OverrideRepository
}

func NewPolicyService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, overrideRepo repository.OverrideRepository) *PolicyService {
	return &PolicyService{UserRepo: userRepo, RoleRepo: roleRepo, OverrideRepo: overrideRepo}
}

// ResolvePolicy loads the user and resolves their effective policy.
func (s *PolicyService) ResolvePolicy(userID uint) (permissions.EffectivePolicy, error) {
	user, err := s.UserRepo.GetByID(userID)
	if err != nil {
		return permissions.EffectivePolicy{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return s.ResolveFor(user)
}

// ResolveFor resolves the effective policy for an already-loaded user.
// The user's assigned role is used when it still exists; otherwise the
// registry's default role applies. When neither can be found the
// configuration is broken and ErrRoleMissing is returned.
func (s *PolicyService) ResolveFor(user *models.User) (permissions.EffectivePolicy, error) {
	role, err := s.roleFor(user)
	if err != nil {
		return permissions.EffectivePolicy{}, err
	}

	override, err := s.OverrideRepo.GetByUserID(user.ID)
	if err != nil {
		return permissions.EffectivePolicy{}, fmt.Errorf("failed to load permission override for user %d: %w", user.ID, err)
	}

	return permissions.Resolve(user, role, override), nil
}

func (s *PolicyService) roleFor(user *models.User) (*models.Role, error) {
	if user.RoleID != nil {
		role, err := s.RoleRepo.GetByID(*user.RoleID)
		if err == nil {
			return role, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to load role %d: %w", *user.RoleID, err)
		}
		// assigned role was deleted; fall through to the default role
	}

	role, err := s.RoleRepo.GetDefault()
	if err != nil {
		if errors.Is(err, repository.ErrNoDefaultRole) {
			return nil, fmt.Errorf("resolving policy for user %d: %w", user.ID, ErrRoleMissing)
		}
		return nil, fmt.Errorf("failed to load default role: %w", err)
	}
	return role, nil
}

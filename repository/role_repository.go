package repository

import (
	"errors"
	"fmt"

	"github.com/camden-git/requestsysbackend/models"
	"gorm.io/gorm"
)

var (
	// ErrNoDefaultRole indicates the exactly-one-default invariant is
	// broken on the read side, or a write would leave no default role.
	ErrNoDefaultRole = errors.New("no role is marked as default")
	// ErrDefaultRoleConflict indicates a write would mark a second role
	// as default. Use SetDefault to move the flag atomically.
	ErrDefaultRoleConflict = errors.New("another role is already marked as default")
	// ErrRoleInUse indicates the role is still assigned to users.
	ErrRoleInUse = errors.New("role is assigned to one or more users")
)

type GormRoleRepository struct {
	db *gorm.DB
}

func NewGormRoleRepository(db *gorm.DB) RoleRepository {
	return &GormRoleRepository{db: db}
}

func (r *GormRoleRepository) Create(role *models.Role) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if role.IsDefault {
			var defaults int64
			if err := tx.Model(&models.Role{}).Where("is_default = ?", true).Count(&defaults).Error; err != nil {
				return err
			}
			if defaults > 0 {
				return ErrDefaultRoleConflict
			}
		}
		return tx.Create(role).Error
	})
}

func (r *GormRoleRepository) GetByID(id uint) (*models.Role, error) {
	var role models.Role
	err := r.db.First(&role, id).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) GetByName(name string) (*models.Role, error) {
	var role models.Role
	err := r.db.Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) GetDefault() (*models.Role, error) {
	var role models.Role
	err := r.db.Where("is_default = ?", true).First(&role).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDefaultRole
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *GormRoleRepository) ListAll() ([]models.Role, error) {
	var roles []models.Role
	err := r.db.Order("id").Find(&roles).Error
	return roles, err
}

// Update saves the role while keeping the default-role invariant: it
// rejects marking a second role default and rejects clearing the flag
// from the only default.
func (r *GormRoleRepository) Update(role *models.Role) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var current models.Role
		if err := tx.First(&current, role.ID).Error; err != nil {
			return err
		}
		if role.IsDefault && !current.IsDefault {
			var defaults int64
			if err := tx.Model(&models.Role{}).Where("is_default = ? AND id <> ?", true, role.ID).Count(&defaults).Error; err != nil {
				return err
			}
			if defaults > 0 {
				return ErrDefaultRoleConflict
			}
		}
		if !role.IsDefault && current.IsDefault {
			return ErrNoDefaultRole
		}
		return tx.Save(role).Error
	})
}

// SetDefault moves the default flag onto the given role in one
// transaction so no reader ever observes zero or two defaults committed.
func (r *GormRoleRepository) SetDefault(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Role{}).Where("is_default = ?", true).Update("is_default", false).Error; err != nil {
			return err
		}
		return tx.Model(&models.Role{}).Where("id = ?", id).Update("is_default", true).Error
	})
}

func (r *GormRoleRepository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var role models.Role
		if err := tx.First(&role, id).Error; err != nil {
			return err
		}
		if role.IsDefault {
			return fmt.Errorf("cannot delete the default role: %w", ErrNoDefaultRole)
		}
		var users int64
		if err := tx.Model(&models.User{}).Where("role_id = ?", id).Count(&users).Error; err != nil {
			return err
		}
		if users > 0 {
			return ErrRoleInUse
		}
		return tx.Delete(&models.Role{}, id).Error
	})
}

func (r *GormRoleRepository) CountUsers(roleID uint) (int64, error) {
	var users int64
	err := r.db.Model(&models.User{}).Where("role_id = ?", roleID).Count(&users).Error
	return users, err
}

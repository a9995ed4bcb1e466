package repository

import (
	"errors"

	"github.com/camden-git/requestsysbackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormOverrideRepository struct {
	db *gorm.DB
}

func NewGormOverrideRepository(db *gorm.DB) OverrideRepository {
	return &GormOverrideRepository{db: db}
}

// GetByUserID returns the user's override row, or (nil, nil) when the
// user has none; absence simply means "inherit everything".
func (r *GormOverrideRepository) GetByUserID(userID uint) (*models.PermissionOverride, error) {
	var override models.PermissionOverride
	err := r.db.Where("user_id = ?", userID).First(&override).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &override, nil
}

func (r *GormOverrideRepository) Upsert(override *models.PermissionOverride) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"grants", "denials", "max_requests", "retention_days", "notifications_enabled", "updated_at",
		}),
	}).Create(override).Error
}

func (r *GormOverrideRepository) DeleteByUserID(userID uint) error {
	return r.db.Where("user_id = ?", userID).Delete(&models.PermissionOverride{}).Error
}

package repository

import (
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/camden-git/requestsysbackend/models"
	"gorm.io/gorm"
)

type GormRequestRepository struct {
	db *gorm.DB
}

func NewGormRequestRepository(db *gorm.DB) RequestRepository {
	return &GormRequestRepository{db: db}
}

func (r *GormRequestRepository) Create(request *models.MediaRequest) error {
	return r.db.Create(request).Error
}

func (r *GormRequestRepository) GetByID(id uint) (*models.MediaRequest, error) {
	var request models.MediaRequest
	err := r.db.First(&request, id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// List returns requests matching the filter, newest first. The query is
// assembled with squirrel so optional filters stay readable.
func (r *GormRequestRepository) List(filter RequestFilter) ([]models.MediaRequest, error) {
	qb := sq.Select("*").From("media_requests")
	if filter.OwnerUserID != nil {
		qb = qb.Where(sq.Eq{"owner_user_id": *filter.OwnerUserID})
	}
	if filter.Status != nil {
		qb = qb.Where(sq.Eq{"status": *filter.Status})
	}
	if filter.Kind != nil {
		qb = qb.Where(sq.Eq{"kind": *filter.Kind})
	}
	qb = qb.OrderBy("created_at DESC", "id DESC")
	if filter.Limit > 0 {
		qb = qb.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		qb = qb.Offset(uint64(filter.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, err
	}

	var requests []models.MediaRequest
	if err := r.db.Raw(query, args...).Scan(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *GormRequestRepository) FindActive(ownerID uint, catalogID string, kind models.MediaKind) (*models.MediaRequest, error) {
	var request models.MediaRequest
	err := r.db.
		Where("owner_user_id = ? AND catalog_id = ? AND kind = ? AND status <> ?",
			ownerID, catalogID, kind, models.StatusRejected).
		First(&request).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *GormRequestRepository) CountOutstanding(ownerID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.MediaRequest{}).
		Where("owner_user_id = ? AND status IN ?", ownerID, []models.RequestStatus{models.StatusPending, models.StatusApproved}).
		Count(&count).Error
	return count, err
}

// UpdateStatus moves a request from one status to another only if it is
// still in the expected status, so concurrent transitions cannot
// silently overwrite each other. The returned bool reports whether the
// guarded update actually changed a row.
func (r *GormRequestRepository) UpdateStatus(id uint, from, to models.RequestStatus, approvedBy *uint, at time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":     to,
		"updated_at": at,
	}
	if to == models.StatusApproved {
		updates["approved_at"] = at
		updates["approved_by_user_id"] = approvedBy
	}

	result := r.db.Model(&models.MediaRequest{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a request. Deleting a row that is already gone is not
// an error; the sweeper and user-initiated deletes may race.
func (r *GormRequestRepository) Delete(id uint) error {
	return r.db.Delete(&models.MediaRequest{}, id).Error
}

func (r *GormRequestRepository) ListTerminal() ([]models.MediaRequest, error) {
	var requests []models.MediaRequest
	err := r.db.
		Where("status IN ?", []models.RequestStatus{models.StatusAvailable, models.StatusRejected}).
		Find(&requests).Error
	return requests, err
}

// Transaction runs fn against a repository bound to a single store
// transaction. The admission path relies on this to make its duplicate
// check, quota count and insert indivisible.
func (r *GormRequestRepository) Transaction(fn func(RequestRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&GormRequestRepository{db: tx})
	})
}

package repository

import (
	"time"

	"github.com/camden-git/requestsysbackend/models"
)

// RoleRepository defines the methods for role data operations. Create,
// Update and Delete enforce the registry invariants: exactly one role is
// marked default at all times, and a role referenced by users cannot be
// deleted.
type RoleRepository interface {
	Create(role *models.Role) error
	GetByID(id uint) (*models.Role, error)
	GetByName(name string) (*models.Role, error)
	// GetDefault returns the single role marked as default. It fails
	// with ErrNoDefaultRole when the invariant is broken.
	GetDefault() (*models.Role, error)
	ListAll() ([]models.Role, error)
	Update(role *models.Role) error
	// SetDefault atomically moves the default flag to the given role.
	SetDefault(id uint) error
	Delete(id uint) error

	CountUsers(roleID uint) (int64, error)
}

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByUsername(username string) (*models.User, error)
	Update(user *models.User) error
	Delete(id uint) error
	ListAll() ([]models.User, error)
	Count() (int64, error)
}

// OverrideRepository defines the methods for per-user permission
// override data operations. Each user has at most one override row.
type OverrideRepository interface {
	GetByUserID(userID uint) (*models.PermissionOverride, error)
	Upsert(override *models.PermissionOverride) error
	DeleteByUserID(userID uint) error
}

// RequestFilter narrows List results. nil fields are not filtered on.
type RequestFilter struct {
	OwnerUserID *uint
	Status      *models.RequestStatus
	Kind        *models.MediaKind
	Limit       int
	Offset      int
}

// RequestRepository defines the methods for media request data
// operations. Transaction yields a repository scoped to a single store
// transaction; the admission path uses it so the duplicate check, quota
// count and insert are indivisible.
type RequestRepository interface {
	Create(request *models.MediaRequest) error
	GetByID(id uint) (*models.MediaRequest, error)
	List(filter RequestFilter) ([]models.MediaRequest, error)
	// FindActive returns the non-rejected request for the given owner
	// and catalog item, if one exists.
	FindActive(ownerID uint, catalogID string, kind models.MediaKind) (*models.MediaRequest, error)
	// CountOutstanding counts the owner's pending + approved requests.
	CountOutstanding(ownerID uint) (int64, error)
	// UpdateStatus performs a guarded transition: the row is only
	// updated when it is still in the expected status. It reports
	// whether a row was changed.
	UpdateStatus(id uint, from, to models.RequestStatus, approvedBy *uint, at time.Time) (bool, error)
	Delete(id uint) error
	ListTerminal() ([]models.MediaRequest, error)

	Transaction(fn func(RequestRepository) error) error
}

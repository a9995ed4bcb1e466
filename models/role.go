package models

import "time"

// AdministratorRoleName is the built-in role that carries every defined
// permission. It is synced on startup and cannot be edited or deleted.
const AdministratorRoleName = "Administrator"

// DefaultRoleName is the built-in role that is marked as default on a
// fresh database. Users without a valid role assignment fall back to
// whichever role currently carries IsDefault.
const DefaultRoleName = "User"

// Role defines the base permission set and base limits shared by every
// user assigned to it. Exactly one role in the system carries IsDefault;
// the repository enforces that at the write boundary.
type Role struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"uniqueIndex;not null"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsDefault   bool   `json:"is_default" gorm:"index"`

	// Permissions maps permission keys (see the permissions package) to
	// their base value for this role. Keys absent from the map resolve to false.
	Permissions map[string]bool `json:"permissions" gorm:"serializer:json"`

	// MaxRequests caps a user's simultaneously pending/approved requests.
	// nil means unlimited.
	MaxRequests *int `json:"max_requests"`

	// RetentionDays is how long finished requests are kept before the
	// retention sweeper removes them. nil means forever.
	RetentionDays *int `json:"retention_days"`

	NotificationsEnabled bool `json:"notifications_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasPermission returns the role's base value for a permission key.
// Unknown keys are false.
func (r *Role) HasPermission(key string) bool {
	if r.Permissions == nil {
		return false
	}
	return r.Permissions[key]
}

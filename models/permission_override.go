package models

import "time"

// UnlimitedSentinel is the value an override stores to explicitly encode
// "unlimited" (for MaxRequests) or "keep forever" (for RetentionDays).
// A nil override scalar means "inherit from the role", so explicit
// unlimited needs its own encoding.
const UnlimitedSentinel = 0

// PermissionOverride stores a user's per-key deviations from their
// role's base permission set, plus optional scalar limit overrides.
//
// Grants and Denials are kept as separate sets so that "explicitly
// false" and "absent, inherit from role" stay distinguishable. A key in
// neither set inherits the role's value.
type PermissionOverride struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	UserID uint `json:"user_id" gorm:"uniqueIndex;not null"`
	User   User `json:"-" gorm:"foreignKey:UserID"`

	Grants  []string `json:"grants" gorm:"serializer:json"`
	Denials []string `json:"denials" gorm:"serializer:json"`

	// Scalar overrides. nil inherits the role's value; UnlimitedSentinel
	// encodes explicit unlimited/forever.
	MaxRequests   *int `json:"max_requests"`
	RetentionDays *int `json:"retention_days"`

	NotificationsEnabled *bool `json:"notifications_enabled"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lookup reports the override's explicit value for a permission key and
// whether one is present. Denials win over grants if a key somehow
// appears in both sets.
func (o *PermissionOverride) Lookup(key string) (value, ok bool) {
	for _, k := range o.Denials {
		if k == key {
			return false, true
		}
	}
	for _, k := range o.Grants {
		if k == key {
			return true, true
		}
	}
	return false, false
}

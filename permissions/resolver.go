package permissions

import (
	"strings"

	"github.com/camden-git/requestsysbackend/models"
)

// EffectivePolicy is the fully resolved permission map and limits for a
// user at a single decision point. It is computed on every call and
// never persisted or cached; edits to roles or overrides take effect on
// the next resolution.
type EffectivePolicy struct {
	UserID      uint            `json:"user_id"`
	Permissions map[string]bool `json:"permissions"`

	// MaxRequests is the resolved concurrent-request cap. nil means unlimited.
	MaxRequests *int `json:"max_requests"`
	// RetentionDays is the resolved retention window. nil means keep forever.
	RetentionDays *int `json:"retention_days"`

	NotificationsEnabled bool `json:"notifications_enabled"`
}

// Has returns the resolved value for a permission key. Keys that were
// unknown at resolution time are false.
func (p *EffectivePolicy) Has(key string) bool {
	return p.Permissions[key]
}

// AutoApproves reports whether the policy grants auto-approval for the
// given media kind, either through the blanket key or the kind-specific one.
func (p *EffectivePolicy) AutoApproves(kind models.MediaKind) bool {
	if p.Has(RequestAutoApprove) {
		return true
	}
	switch kind {
	case models.KindMovie:
		return p.Has(RequestAutoApproveMovies)
	case models.KindTV:
		return p.Has(RequestAutoApproveTV)
	}
	return false
}

// Resolve merges a user's role base values with their per-user override
// into one effective policy. It is pure: the inputs are never mutated
// and the same inputs always produce the same policy.
//
// Precedence per key, highest first:
//  1. legacy admin flag: every admin.* key is forced true
//  2. explicit override grant/denial
//  3. role base value
//  4. false (unknown keys fail closed)
//
// override may be nil when the user has no override row.
func Resolve(user *models.User, role *models.Role, override *models.PermissionOverride) EffectivePolicy {
	policy := EffectivePolicy{
		UserID:               user.ID,
		Permissions:          make(map[string]bool, len(allPermissionKeys)),
		MaxRequests:          role.MaxRequests,
		RetentionDays:        role.RetentionDays,
		NotificationsEnabled: role.NotificationsEnabled,
	}

	for _, key := range allPermissionKeys {
		policy.Permissions[key] = role.HasPermission(key)
	}

	if override != nil {
		for _, key := range allPermissionKeys {
			if value, ok := override.Lookup(key); ok {
				policy.Permissions[key] = value
			}
		}
		if override.MaxRequests != nil {
			policy.MaxRequests = scalarOverride(*override.MaxRequests)
		}
		if override.RetentionDays != nil {
			policy.RetentionDays = scalarOverride(*override.RetentionDays)
		}
		if override.NotificationsEnabled != nil {
			policy.NotificationsEnabled = *override.NotificationsEnabled
		}
	}

	// the legacy admin flag is escalation-only: applied last so an
	// override can never deny an admin.* key for these accounts
	if user.IsAdmin {
		for _, key := range allPermissionKeys {
			if strings.HasPrefix(key, AdminPrefix) {
				policy.Permissions[key] = true
			}
		}
	}

	return policy
}

// scalarOverride maps a stored override value to its effective form:
// the UnlimitedSentinel becomes nil (unlimited/forever), anything else
// is taken literally.
func scalarOverride(value int) *int {
	if value == models.UnlimitedSentinel {
		return nil
	}
	v := value
	return &v
}

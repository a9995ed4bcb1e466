package permissions

import (
	"testing"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func baseRole() *models.Role {
	return &models.Role{
		ID:   1,
		Name: "viewer",
		Permissions: map[string]bool{
			RequestMovies: true,
			RequestTV:     false,
		},
		MaxRequests:          intPtr(2),
		RetentionDays:        intPtr(30),
		NotificationsEnabled: true,
	}
}

func TestResolveRoleBaseValues(t *testing.T) {
	user := &models.User{ID: 10}
	policy := Resolve(user, baseRole(), nil)

	assert.True(t, policy.Has(RequestMovies))
	assert.False(t, policy.Has(RequestTV))
	require.NotNil(t, policy.MaxRequests)
	assert.Equal(t, 2, *policy.MaxRequests)
	require.NotNil(t, policy.RetentionDays)
	assert.Equal(t, 30, *policy.RetentionDays)
	assert.True(t, policy.NotificationsEnabled)
}

func TestResolveIsDeterministic(t *testing.T) {
	user := &models.User{ID: 10}
	role := baseRole()
	override := &models.PermissionOverride{
		UserID: 10,
		Grants: []string{RequestTV},
	}

	first := Resolve(user, role, override)
	second := Resolve(user, role, override)
	assert.Equal(t, first, second)
}

func TestResolveDoesNotMutateInputs(t *testing.T) {
	user := &models.User{ID: 10}
	role := baseRole()
	override := &models.PermissionOverride{
		UserID:  10,
		Grants:  []string{RequestTV},
		Denials: []string{RequestMovies},
	}

	Resolve(user, role, override)

	assert.Equal(t, map[string]bool{RequestMovies: true, RequestTV: false}, role.Permissions)
	assert.Equal(t, []string{RequestTV}, override.Grants)
	assert.Equal(t, []string{RequestMovies}, override.Denials)
}

func TestResolveOverridePrecedence(t *testing.T) {
	user := &models.User{ID: 10}
	role := baseRole()

	// override grant beats the role's false
	granted := Resolve(user, role, &models.PermissionOverride{Grants: []string{RequestTV}})
	assert.True(t, granted.Has(RequestTV))

	// override denial beats the role's true
	denied := Resolve(user, role, &models.PermissionOverride{Denials: []string{RequestMovies}})
	assert.False(t, denied.Has(RequestMovies))

	// removing the override reverts to the role base value
	reverted := Resolve(user, role, nil)
	assert.False(t, reverted.Has(RequestTV))
	assert.True(t, reverted.Has(RequestMovies))
}

func TestResolveFailsClosed(t *testing.T) {
	user := &models.User{ID: 10}
	role := &models.Role{ID: 1, Name: "empty"}

	policy := Resolve(user, role, nil)
	for key, value := range policy.Permissions {
		assert.Falsef(t, value, "key %s should resolve to false for an empty role", key)
	}
	assert.False(t, policy.Has("request.nonexistent"))
}

func TestResolveLegacyAdminEscalation(t *testing.T) {
	user := &models.User{ID: 10, IsAdmin: true}
	role := baseRole()

	// a denial on an admin key cannot weaken the legacy flag
	override := &models.PermissionOverride{Denials: []string{AdminApproveRequests}}
	policy := Resolve(user, role, override)

	assert.True(t, policy.Has(AdminApproveRequests))
	assert.True(t, policy.Has(AdminMarkAvailable))
	assert.True(t, policy.Has(AdminDeleteRequests))
	assert.True(t, policy.Has(AdminManageUsers))
	assert.True(t, policy.Has(AdminManageRoles))

	// escalation only touches the admin namespace
	assert.False(t, policy.Has(RequestTV))
}

func TestResolveScalarOverrides(t *testing.T) {
	user := &models.User{ID: 10}
	role := baseRole()

	t.Run("inherit when nil", func(t *testing.T) {
		policy := Resolve(user, role, &models.PermissionOverride{})
		require.NotNil(t, policy.MaxRequests)
		assert.Equal(t, 2, *policy.MaxRequests)
	})

	t.Run("explicit value wins", func(t *testing.T) {
		policy := Resolve(user, role, &models.PermissionOverride{MaxRequests: intPtr(7), RetentionDays: intPtr(14)})
		require.NotNil(t, policy.MaxRequests)
		assert.Equal(t, 7, *policy.MaxRequests)
		require.NotNil(t, policy.RetentionDays)
		assert.Equal(t, 14, *policy.RetentionDays)
	})

	t.Run("sentinel encodes explicit unlimited", func(t *testing.T) {
		policy := Resolve(user, role, &models.PermissionOverride{
			MaxRequests:   intPtr(models.UnlimitedSentinel),
			RetentionDays: intPtr(models.UnlimitedSentinel),
		})
		assert.Nil(t, policy.MaxRequests)
		assert.Nil(t, policy.RetentionDays)
	})

	t.Run("notifications override", func(t *testing.T) {
		off := false
		policy := Resolve(user, role, &models.PermissionOverride{NotificationsEnabled: &off})
		assert.False(t, policy.NotificationsEnabled)
	})
}

func TestAutoApproveKinds(t *testing.T) {
	user := &models.User{ID: 10}

	t.Run("blanket key covers both kinds", func(t *testing.T) {
		role := &models.Role{Permissions: map[string]bool{RequestAutoApprove: true}}
		policy := Resolve(user, role, nil)
		assert.True(t, policy.AutoApproves(models.KindMovie))
		assert.True(t, policy.AutoApproves(models.KindTV))
	})

	t.Run("kind specific keys", func(t *testing.T) {
		role := &models.Role{Permissions: map[string]bool{RequestAutoApproveMovies: true}}
		policy := Resolve(user, role, nil)
		assert.True(t, policy.AutoApproves(models.KindMovie))
		assert.False(t, policy.AutoApproves(models.KindTV))
	})
}

package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/camden-git/requestsysbackend/permissions"
	"github.com/camden-git/requestsysbackend/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	db        *gorm.DB
	users     repository.UserRepository
	roles     repository.RoleRepository
	overrides repository.OverrideRepository
	requests  repository.RequestRepository
	policy    *PolicyService
	admission *AdmissionService
	lifecycle *LifecycleService
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to :memory: is a distinct database, so
	// pin the pool to a single connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.Role{}, &models.User{}, &models.PermissionOverride{}, &models.MediaRequest{}))

	env := &testEnv{
		db:        db,
		users:     repository.NewGormUserRepository(db),
		roles:     repository.NewGormRoleRepository(db),
		overrides: repository.NewGormOverrideRepository(db),
		requests:  repository.NewGormRequestRepository(db),
	}
	env.policy = NewPolicyService(env.users, env.roles, env.overrides)
	env.admission = NewAdmissionService(env.policy, env.requests, nil)
	env.lifecycle = NewLifecycleService(env.policy, env.requests, nil)
	return env
}

func (env *testEnv) seedRole(t *testing.T, role *models.Role) *models.Role {
	t.Helper()
	require.NoError(t, env.roles.Create(role))
	return role
}

func (env *testEnv) seedUser(t *testing.T, username string, roleID *uint) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x", RoleID: roleID, IsActive: true}
	require.NoError(t, env.users.Create(user))
	return user
}

func intPtr(v int) *int { return &v }

func movie(catalogID string) models.CatalogItem {
	return models.CatalogItem{CatalogID: catalogID, Kind: models.KindMovie, Title: "Movie " + catalogID}
}

func show(catalogID string) models.CatalogItem {
	return models.CatalogItem{CatalogID: catalogID, Kind: models.KindTV, Title: "Show " + catalogID}
}

func (env *testEnv) viewerRole(t *testing.T) *models.Role {
	return env.seedRole(t, &models.Role{
		Name:      "viewer",
		IsDefault: true,
		Permissions: map[string]bool{
			permissions.RequestMovies: true,
			permissions.RequestTV:     false,
		},
		MaxRequests: intPtr(2),
	})
}

func (env *testEnv) adminRole(t *testing.T) *models.Role {
	perms := make(map[string]bool)
	for _, key := range permissions.GetAllPermissionKeys() {
		perms[key] = true
	}
	return env.seedRole(t, &models.Role{Name: "admin", Permissions: perms})
}

func TestCreateRequestCapabilityChecks(t *testing.T) {
	env := setupEnv(t)
	role := env.viewerRole(t)
	user := env.seedUser(t, "alice", &role.ID)

	t.Run("movie allowed", func(t *testing.T) {
		request, err := env.admission.CreateRequest(user.ID, movie("m1"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, request.Status)
		assert.Equal(t, user.ID, request.OwnerUserID)
	})

	t.Run("series forbidden", func(t *testing.T) {
		_, err := env.admission.CreateRequest(user.ID, show("s1"))
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("4k needs its own permission", func(t *testing.T) {
		item := movie("m4k")
		item.Is4K = true
		_, err := env.admission.CreateRequest(user.ID, item)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown kind forbidden", func(t *testing.T) {
		_, err := env.admission.CreateRequest(user.ID, models.CatalogItem{CatalogID: "x", Kind: "music"})
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestCreateRequestDuplicates(t *testing.T) {
	env := setupEnv(t)
	role := env.seedRole(t, &models.Role{
		Name:        "requester",
		IsDefault:   true,
		Permissions: map[string]bool{permissions.RequestMovies: true},
	})
	user := env.seedUser(t, "alice", &role.ID)
	admin := env.seedUser(t, "root", nil)
	admin.IsAdmin = true
	require.NoError(t, env.users.Update(admin))

	first, err := env.admission.CreateRequest(user.ID, movie("m1"))
	require.NoError(t, err)

	t.Run("active duplicate rejected with details", func(t *testing.T) {
		_, err := env.admission.CreateRequest(user.ID, movie("m1"))
		var dup *DuplicateRequestError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, first.ID, dup.ExistingID)
		assert.Equal(t, models.StatusPending, dup.Status)
	})

	t.Run("another user may request the same item", func(t *testing.T) {
		bob := env.seedUser(t, "bob", &role.ID)
		_, err := env.admission.CreateRequest(bob.ID, movie("m1"))
		assert.NoError(t, err)
	})

	t.Run("re-request allowed after rejection", func(t *testing.T) {
		_, err := env.lifecycle.Transition(first.ID, admin.ID, models.StatusRejected)
		require.NoError(t, err)

		replacement, err := env.admission.CreateRequest(user.ID, movie("m1"))
		require.NoError(t, err)
		assert.NotEqual(t, first.ID, replacement.ID)
	})
}

func TestCreateRequestQuota(t *testing.T) {
	env := setupEnv(t)
	role := env.viewerRole(t)
	admin := env.adminRole(t)
	user := env.seedUser(t, "alice", &role.ID)
	moderator := env.seedUser(t, "mod", &admin.ID)

	// scenario from the product requirements: max_requests = 2
	a, err := env.admission.CreateRequest(user.ID, movie("a"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, a.Status)

	b, err := env.admission.CreateRequest(user.ID, movie("b"))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, b.Status)

	_, err = env.admission.CreateRequest(user.ID, movie("c"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// approval keeps the request outstanding; the quota stays spent
	_, err = env.lifecycle.Transition(a.ID, moderator.ID, models.StatusApproved)
	require.NoError(t, err)
	_, err = env.admission.CreateRequest(user.ID, movie("c"))
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	_, err = env.admission.CreateRequest(user.ID, show("d"))
	assert.ErrorIs(t, err, ErrForbidden)

	// once a request reaches a terminal state the slot frees up
	_, err = env.lifecycle.Transition(a.ID, moderator.ID, models.StatusAvailable)
	require.NoError(t, err)
	_, err = env.admission.CreateRequest(user.ID, movie("c"))
	assert.NoError(t, err)
}

func TestCreateRequestUnlimitedQuota(t *testing.T) {
	env := setupEnv(t)
	role := env.seedRole(t, &models.Role{
		Name:        "unlimited",
		IsDefault:   true,
		Permissions: map[string]bool{permissions.RequestMovies: true},
		// MaxRequests nil = unlimited
	})
	user := env.seedUser(t, "alice", &role.ID)

	for i := 0; i < 10; i++ {
		_, err := env.admission.CreateRequest(user.ID, movie(string(rune('a'+i))))
		require.NoError(t, err)
	}
}

func TestCreateRequestAutoApproval(t *testing.T) {
	env := setupEnv(t)
	role := env.seedRole(t, &models.Role{
		Name:      "trusted",
		IsDefault: true,
		Permissions: map[string]bool{
			permissions.RequestMovies:            true,
			permissions.RequestTV:                true,
			permissions.RequestAutoApproveMovies: true,
		},
	})
	user := env.seedUser(t, "alice", &role.ID)

	t.Run("movie is created already approved", func(t *testing.T) {
		request, err := env.admission.CreateRequest(user.ID, movie("m1"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, request.Status)
		assert.Nil(t, request.ApprovedByUserID, "auto-approval records no approver")
		assert.NotNil(t, request.ApprovedAt)

		stored, err := env.requests.GetByID(request.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, stored.Status)
		assert.Nil(t, stored.ApprovedByUserID)
	})

	t.Run("series still lands pending", func(t *testing.T) {
		request, err := env.admission.CreateRequest(user.ID, show("s1"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, request.Status)
	})
}

func TestCreateRequestOverridesApply(t *testing.T) {
	env := setupEnv(t)
	role := env.viewerRole(t)
	user := env.seedUser(t, "alice", &role.ID)

	// the role denies series; an override grant must win
	require.NoError(t, env.overrides.Upsert(&models.PermissionOverride{
		UserID: user.ID,
		Grants: []string{permissions.RequestTV},
	}))
	_, err := env.admission.CreateRequest(user.ID, show("s1"))
	assert.NoError(t, err)

	// and a denial must win over the role's grant
	require.NoError(t, env.overrides.Upsert(&models.PermissionOverride{
		UserID:  user.ID,
		Denials: []string{permissions.RequestMovies},
	}))
	_, err = env.admission.CreateRequest(user.ID, movie("m1"))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateRequestRoleFallback(t *testing.T) {
	env := setupEnv(t)
	env.viewerRole(t) // default

	t.Run("user without role uses the default", func(t *testing.T) {
		user := env.seedUser(t, "alice", nil)
		request, err := env.admission.CreateRequest(user.ID, movie("m1"))
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, request.Status)
	})
}

func TestCreateRequestRoleMissing(t *testing.T) {
	env := setupEnv(t)
	// no default role configured at all
	user := env.seedUser(t, "alice", nil)

	_, err := env.admission.CreateRequest(user.ID, movie("m1"))
	assert.ErrorIs(t, err, ErrRoleMissing)
}

// Concurrent submissions for one user must never overshoot the quota:
// exactly max_requests succeed, the rest fail with ErrQuotaExceeded.
func TestCreateRequestConcurrentQuota(t *testing.T) {
	env := setupEnv(t)
	role := env.viewerRole(t) // max_requests = 2
	user := env.seedUser(t, "alice", &role.ID)

	const attempts = 6
	results := make([]error, attempts)
	var wg sync.WaitGroup
	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func(i int) {
			defer wg.Done()
			_, err := env.admission.CreateRequest(user.ID, movie(string(rune('a'+i))))
			results[i] = err
		}(i)
	}
	wg.Wait()

	succeeded, quotaFailed := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrQuotaExceeded):
			quotaFailed++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 2, succeeded)
	assert.Equal(t, attempts-2, quotaFailed)

	outstanding, err := env.requests.CountOutstanding(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, outstanding)
}

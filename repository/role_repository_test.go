package repository

import (
	"testing"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// every pooled connection to :memory: is a distinct database, so
	// pin the pool to a single connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.Role{}, &models.User{}, &models.PermissionOverride{}, &models.MediaRequest{})
	require.NoError(t, err)

	return db
}

func TestRoleRepositoryDefaultInvariant(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRoleRepository(db)

	require.NoError(t, repo.Create(&models.Role{Name: "standard", IsDefault: true}))

	t.Run("second default is rejected", func(t *testing.T) {
		err := repo.Create(&models.Role{Name: "other", IsDefault: true})
		assert.ErrorIs(t, err, ErrDefaultRoleConflict)
	})

	t.Run("get default", func(t *testing.T) {
		role, err := repo.GetDefault()
		require.NoError(t, err)
		assert.Equal(t, "standard", role.Name)
	})

	t.Run("update cannot mark a second default", func(t *testing.T) {
		require.NoError(t, repo.Create(&models.Role{Name: "trusted"}))
		trusted, err := repo.GetByName("trusted")
		require.NoError(t, err)

		trusted.IsDefault = true
		assert.ErrorIs(t, repo.Update(trusted), ErrDefaultRoleConflict)
	})

	t.Run("update cannot clear the only default", func(t *testing.T) {
		standard, err := repo.GetByName("standard")
		require.NoError(t, err)

		standard.IsDefault = false
		assert.ErrorIs(t, repo.Update(standard), ErrNoDefaultRole)
	})

	t.Run("set default swaps atomically", func(t *testing.T) {
		trusted, err := repo.GetByName("trusted")
		require.NoError(t, err)
		require.NoError(t, repo.SetDefault(trusted.ID))

		def, err := repo.GetDefault()
		require.NoError(t, err)
		assert.Equal(t, "trusted", def.Name)

		roles, err := repo.ListAll()
		require.NoError(t, err)
		defaults := 0
		for _, role := range roles {
			if role.IsDefault {
				defaults++
			}
		}
		assert.Equal(t, 1, defaults)
	})
}

func TestRoleRepositoryGetDefaultMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRoleRepository(db)

	_, err := repo.GetDefault()
	assert.ErrorIs(t, err, ErrNoDefaultRole)
}

func TestRoleRepositoryDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRoleRepository(db)
	userRepo := NewGormUserRepository(db)

	require.NoError(t, repo.Create(&models.Role{Name: "standard", IsDefault: true}))
	require.NoError(t, repo.Create(&models.Role{Name: "limited"}))
	limited, err := repo.GetByName("limited")
	require.NoError(t, err)

	t.Run("role in use cannot be deleted", func(t *testing.T) {
		user := &models.User{Username: "alice", PasswordHash: "x", RoleID: &limited.ID, IsActive: true}
		require.NoError(t, userRepo.Create(user))

		assert.ErrorIs(t, repo.Delete(limited.ID), ErrRoleInUse)

		count, err := repo.CountUsers(limited.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)

		// after reassignment the delete goes through
		user.RoleID = nil
		require.NoError(t, userRepo.Update(user))
		assert.NoError(t, repo.Delete(limited.ID))
	})

	t.Run("default role cannot be deleted", func(t *testing.T) {
		standard, err := repo.GetByName("standard")
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Delete(standard.ID), ErrNoDefaultRole)
	})
}

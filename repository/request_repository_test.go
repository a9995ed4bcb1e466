package repository

import (
	"testing"
	"time"

	"github.com/camden-git/requestsysbackend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedUser(t *testing.T, repo UserRepository, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x", IsActive: true}
	require.NoError(t, repo.Create(user))
	return user
}

func seedRequest(t *testing.T, repo RequestRepository, ownerID uint, catalogID string, kind models.MediaKind, status models.RequestStatus) *models.MediaRequest {
	t.Helper()
	request := &models.MediaRequest{
		OwnerUserID: ownerID,
		CatalogID:   catalogID,
		Kind:        kind,
		Title:       "Title " + catalogID,
		Status:      status,
	}
	require.NoError(t, repo.Create(request))
	return request
}

func TestRequestRepositoryFindActive(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	user := seedUser(t, NewGormUserRepository(db), "alice")

	t.Run("no request", func(t *testing.T) {
		found, err := repo.FindActive(user.ID, "100", models.KindMovie)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("rejected requests do not block", func(t *testing.T) {
		seedRequest(t, repo, user.ID, "100", models.KindMovie, models.StatusRejected)
		found, err := repo.FindActive(user.ID, "100", models.KindMovie)
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("pending request is active", func(t *testing.T) {
		created := seedRequest(t, repo, user.ID, "200", models.KindMovie, models.StatusPending)
		found, err := repo.FindActive(user.ID, "200", models.KindMovie)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, created.ID, found.ID)
	})

	t.Run("same catalog id, different kind", func(t *testing.T) {
		found, err := repo.FindActive(user.ID, "200", models.KindTV)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestRequestRepositoryCountOutstanding(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	user := seedUser(t, NewGormUserRepository(db), "alice")

	seedRequest(t, repo, user.ID, "1", models.KindMovie, models.StatusPending)
	seedRequest(t, repo, user.ID, "2", models.KindMovie, models.StatusApproved)
	seedRequest(t, repo, user.ID, "3", models.KindMovie, models.StatusAvailable)
	seedRequest(t, repo, user.ID, "4", models.KindMovie, models.StatusRejected)

	count, err := repo.CountOutstanding(user.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "only pending and approved count against the quota")
}

func TestRequestRepositoryUpdateStatusGuard(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	user := seedUser(t, NewGormUserRepository(db), "alice")
	request := seedRequest(t, repo, user.ID, "1", models.KindMovie, models.StatusPending)

	approver := user.ID
	changed, err := repo.UpdateStatus(request.ID, models.StatusPending, models.StatusApproved, &approver, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	// the request already left pending; a stale transition must not apply
	changed, err = repo.UpdateStatus(request.ID, models.StatusPending, models.StatusRejected, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	updated, err := repo.GetByID(request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, updated.Status)
	require.NotNil(t, updated.ApprovedByUserID)
	assert.Equal(t, user.ID, *updated.ApprovedByUserID)
	assert.NotNil(t, updated.ApprovedAt)
}

func TestRequestRepositoryList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	userRepo := NewGormUserRepository(db)
	alice := seedUser(t, userRepo, "alice")
	bob := seedUser(t, userRepo, "bob")

	seedRequest(t, repo, alice.ID, "1", models.KindMovie, models.StatusPending)
	seedRequest(t, repo, alice.ID, "2", models.KindTV, models.StatusApproved)
	seedRequest(t, repo, bob.ID, "3", models.KindMovie, models.StatusPending)

	t.Run("unfiltered", func(t *testing.T) {
		all, err := repo.List(RequestFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("by owner", func(t *testing.T) {
		mine, err := repo.List(RequestFilter{OwnerUserID: &alice.ID})
		require.NoError(t, err)
		assert.Len(t, mine, 2)
	})

	t.Run("by status and kind", func(t *testing.T) {
		pending := models.StatusPending
		movie := models.KindMovie
		filtered, err := repo.List(RequestFilter{Status: &pending, Kind: &movie})
		require.NoError(t, err)
		assert.Len(t, filtered, 2)
	})

	t.Run("paged", func(t *testing.T) {
		page, err := repo.List(RequestFilter{Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page, 2)

		rest, err := repo.List(RequestFilter{Limit: 2, Offset: 2})
		require.NoError(t, err)
		assert.Len(t, rest, 1)
	})
}

func TestRequestRepositoryDeleteIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	user := seedUser(t, NewGormUserRepository(db), "alice")
	request := seedRequest(t, repo, user.ID, "1", models.KindMovie, models.StatusRejected)

	require.NoError(t, repo.Delete(request.ID))
	// deleting an already-deleted row is not an error
	assert.NoError(t, repo.Delete(request.ID))
}

func TestRequestRepositoryListTerminal(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormRequestRepository(db)
	user := seedUser(t, NewGormUserRepository(db), "alice")

	seedRequest(t, repo, user.ID, "1", models.KindMovie, models.StatusPending)
	seedRequest(t, repo, user.ID, "2", models.KindMovie, models.StatusApproved)
	seedRequest(t, repo, user.ID, "3", models.KindMovie, models.StatusAvailable)
	seedRequest(t, repo, user.ID, "4", models.KindMovie, models.StatusRejected)

	terminal, err := repo.ListTerminal()
	require.NoError(t, err)
	require.Len(t, terminal, 2)
	for _, request := range terminal {
		assert.True(t, request.Status.IsTerminal())
	}
}

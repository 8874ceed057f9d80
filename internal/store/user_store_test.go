package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserStore_CreateAndGetByEmail(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	users := NewUserStore(db)
	ctx := ctxWithUser("") // Create/GetByEmail are pre-auth paths

	user, err := users.Create(ctx, "New@Test.Local", "hash", "New User")
	require.NoError(t, err)

	assert.Equal(t, "new@test.local", user.Email)
	assert.Equal(t, 1, user.Gamification.Level)
	assert.Equal(t, 0, user.Gamification.Experience)
	assert.Empty(t, user.Badges)

	found, err := users.GetByEmail(ctx, "new@test.local")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, "hash", found.PasswordHash)
}

func TestUserStore_DuplicateEmail(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	users := NewUserStore(db)
	ctx := ctxWithUser("")

	_, err := users.Create(ctx, "dupe@test.local", "hash", "First")
	require.NoError(t, err)

	_, err = users.Create(ctx, "dupe@test.local", "hash", "Second")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestAddReward_LevelUpAcrossThreshold(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "reward@test.local")
	_, err := db.Exec("UPDATE users SET level = 2, experience = 150 WHERE id = $1", userID)
	require.NoError(t, err)

	ctx := ctxWithUser(userID)

	g, levelUp, err := AddReward(ctx, db, userID, 10, 60)
	require.NoError(t, err)

	assert.True(t, levelUp)
	assert.Equal(t, 3, g.Level)
	assert.Equal(t, 210, g.Experience)
	assert.Equal(t, 10, g.ActionPoints)

	user, err := NewUserStore(db).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, user.Gamification.Level)
	assert.Equal(t, 210, user.Gamification.Experience)
}

func TestAddReward_NoLevelUpBelowThreshold(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	userID := createTestUser(t, db, "reward-low@test.local")

	g, levelUp, err := AddReward(ctxWithUser(userID), db, userID, 5, 50)
	require.NoError(t, err)

	assert.False(t, levelUp)
	assert.Equal(t, 1, g.Level)
	assert.Equal(t, 50, g.Experience)
}

func TestAddReward_UnknownUser(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	_, _, err := AddReward(ctxWithUser(""), db, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a99", 1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

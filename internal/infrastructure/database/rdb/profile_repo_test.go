package rdb_test

import (
	"context"
	"testing"

	"github.com/pannpers/go-apperr/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/infrastructure/database/rdb"
)

func TestProfileRepository_Get(t *testing.T) {
	cleanDatabase()
	repo := rdb.NewProfileRepository(testDB)
	ctx := context.Background()

	t.Run("first access creates a default private profile", func(t *testing.T) {
		profile, err := repo.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, "user-a", profile.UserHash)
		assert.False(t, profile.IsPublic)
		assert.Nil(t, profile.Alias)
	})

	t.Run("second access returns the same row", func(t *testing.T) {
		first, err := repo.Get(ctx, "user-b")
		require.NoError(t, err)
		second, err := repo.Get(ctx, "user-b")
		require.NoError(t, err)
		assert.Equal(t, first.CreatedAt, second.CreatedAt)
	})
}

func TestProfileRepository_SetAlias(t *testing.T) {
	cleanDatabase()
	repo := rdb.NewProfileRepository(testDB)
	ctx := context.Background()

	t.Run("assigns a free alias", func(t *testing.T) {
		profile, err := repo.SetAlias(ctx, "user-a", "Phi-Player")
		require.NoError(t, err)
		require.NotNil(t, profile.Alias)
		assert.Equal(t, "Phi-Player", *profile.Alias)
	})

	t.Run("matching alias is case-insensitively unique", func(t *testing.T) {
		_, err := repo.SetAlias(ctx, "user-b", "phi-player")
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
	})

	t.Run("re-setting the same alias to its own owner is idempotent", func(t *testing.T) {
		_, err := repo.SetAlias(ctx, "user-a", "Phi-Player")
		require.NoError(t, err)
	})

	t.Run("lookup by alias is case-insensitive", func(t *testing.T) {
		profile, err := repo.GetByAlias(ctx, "PHI-PLAYER")
		require.NoError(t, err)
		assert.Equal(t, "user-a", profile.UserHash)
	})
}

func TestProfileRepository_ForceAlias(t *testing.T) {
	cleanDatabase()
	repo := rdb.NewProfileRepository(testDB)
	ctx := context.Background()

	_, err := repo.SetAlias(ctx, "user-a", "Contested")
	require.NoError(t, err)

	t.Run("reassigns the alias and clears it from the previous owner", func(t *testing.T) {
		profile, err := repo.ForceAlias(ctx, "user-b", "Contested")
		require.NoError(t, err)
		require.NotNil(t, profile.Alias)
		assert.Equal(t, "Contested", *profile.Alias)

		previous, err := repo.Get(ctx, "user-a")
		require.NoError(t, err)
		assert.Nil(t, previous.Alias)
	})
}

func TestProfileRepository_SetVisibility(t *testing.T) {
	cleanDatabase()
	repo := rdb.NewProfileRepository(testDB)
	ctx := context.Background()

	_, err := repo.Get(ctx, "user-a")
	require.NoError(t, err)

	profile, err := repo.SetVisibility(ctx, "user-a", true, true, false, true)
	require.NoError(t, err)
	assert.True(t, profile.IsPublic)
	assert.True(t, profile.ShowRksComposition)
	assert.False(t, profile.ShowBestTop3)
	assert.True(t, profile.ShowApTop3)
}

package rdb_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liverty-music/backend/internal/entity"
	"github.com/liverty-music/backend/internal/infrastructure/database/rdb"
)

func TestModerationRepository_InsertAndListByUser(t *testing.T) {
	cleanDatabase()
	repo := rdb.NewModerationRepository(testDB)
	ctx := context.Background()

	t.Run("no flags yet returns an empty slice", func(t *testing.T) {
		rows, err := repo.ListByUser(ctx, "user-a")
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	first, err := repo.Insert(ctx, &entity.ModerationFlag{
		UserHash: "user-a",
		Status:   entity.ModerationPending,
		Reason:   "suspicion score above threshold",
	})
	require.NoError(t, err)
	assert.Positive(t, first.ID)

	second, err := repo.Insert(ctx, &entity.ModerationFlag{
		UserHash: "user-a",
		Status:   entity.ModerationApproved,
		Reason:   "manual review passed",
	})
	require.NoError(t, err)

	t.Run("lists newest first for the given user only", func(t *testing.T) {
		rows, err := repo.ListByUser(ctx, "user-a")
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, second.ID, rows[0].ID)
		assert.Equal(t, first.ID, rows[1].ID)

		none, err := repo.ListByUser(ctx, "user-b")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

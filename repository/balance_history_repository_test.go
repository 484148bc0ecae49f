package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/domain/entities"
	"prospector/repository/testutil"
)

func TestBalanceHistoryRepository_Record(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 1000, 0, 0)

	relatedID := "session-1"
	relatedType := entities.RelatedTypeMinesSession

	history := &entities.BalanceHistory{
		AccountKey:      "alice",
		Currency:        entities.CurrencyGold,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: entities.TransactionTypeMinesStake,
		TransactionMetadata: map[string]any{
			"hazard_count": float64(5),
		},
		RelatedID:   &relatedID,
		RelatedType: &relatedType,
	}
	require.NoError(t, repo.Record(ctx, history))
	assert.NotZero(t, history.ID)
	assert.False(t, history.CreatedAt.IsZero())

	entries, err := repo.GetByAccount(ctx, "alice", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, entities.CurrencyGold, got.Currency)
	assert.Equal(t, int64(-100), got.ChangeAmount)
	assert.Equal(t, entities.TransactionTypeMinesStake, got.TransactionType)
	assert.Equal(t, map[string]any{"hazard_count": float64(5)}, got.TransactionMetadata)
	require.NotNil(t, got.RelatedID)
	assert.Equal(t, "session-1", *got.RelatedID)
	require.NotNil(t, got.RelatedType)
	assert.Equal(t, entities.RelatedTypeMinesSession, *got.RelatedType)
}

func TestBalanceHistoryRepository_GetByAccount(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 0)
	testutil.SeedAccount(t, testDB.DB, "bob", 0, 0, 0)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, repo.Record(ctx, &entities.BalanceHistory{
			AccountKey:      "alice",
			Currency:        entities.CurrencyGold,
			BalanceBefore:   (i - 1) * 10,
			BalanceAfter:    i * 10,
			ChangeAmount:    10,
			TransactionType: entities.TransactionTypeAccrual,
		}))
	}
	require.NoError(t, repo.Record(ctx, &entities.BalanceHistory{
		AccountKey:      "bob",
		Currency:        entities.CurrencyGold,
		BalanceBefore:   0,
		BalanceAfter:    5,
		ChangeAmount:    5,
		TransactionType: entities.TransactionTypeAccrual,
	}))

	t.Run("newest first", func(t *testing.T) {
		entries, err := repo.GetByAccount(ctx, "alice", 10)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, int64(30), entries[0].BalanceAfter)
		assert.Equal(t, int64(10), entries[2].BalanceAfter)
	})

	t.Run("limit applies", func(t *testing.T) {
		entries, err := repo.GetByAccount(ctx, "alice", 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(30), entries[0].BalanceAfter)
	})

	t.Run("scoped to the account", func(t *testing.T) {
		entries, err := repo.GetByAccount(ctx, "bob", 10)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(5), entries[0].ChangeAmount)
	})
}

func TestBalanceHistoryRepository_GetByDateRange(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewBalanceHistoryRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 0)

	var recorded []*entities.BalanceHistory
	for i := int64(1); i <= 2; i++ {
		history := &entities.BalanceHistory{
			AccountKey:      "alice",
			Currency:        entities.CurrencyGold,
			BalanceBefore:   (i - 1) * 10,
			BalanceAfter:    i * 10,
			ChangeAmount:    10,
			TransactionType: entities.TransactionTypeAccrual,
		}
		require.NoError(t, repo.Record(ctx, history))
		recorded = append(recorded, history)
	}

	now := time.Now().UTC()

	t.Run("covering range returns oldest first", func(t *testing.T) {
		entries, err := repo.GetByDateRange(ctx, "alice", now.Add(-time.Hour), now.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, int64(10), entries[0].BalanceAfter)
		assert.Equal(t, int64(20), entries[1].BalanceAfter)
	})

	t.Run("range before the writes is empty", func(t *testing.T) {
		entries, err := repo.GetByDateRange(ctx, "alice", now.Add(-2*time.Hour), now.Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("end bound is exclusive", func(t *testing.T) {
		entries, err := repo.GetByDateRange(ctx, "alice", now.Add(-time.Hour), recorded[0].CreatedAt)
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, recorded[0].ID, e.ID)
		}
	})
}

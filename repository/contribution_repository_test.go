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

func TestContributionRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewContributionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 1000, 0, 0)

	t.Run("assigns id and timestamp", func(t *testing.T) {
		contribution := testutil.CreateTestContribution("alice", 100, time.Now())
		require.NoError(t, repo.Create(ctx, contribution))
		assert.NotZero(t, contribution.ID)
		assert.False(t, contribution.CreatedAt.IsZero())
	})

	t.Run("rejects invalid amount", func(t *testing.T) {
		contribution := testutil.CreateTestContribution("alice", 0, time.Now())
		err := repo.Create(ctx, contribution)
		assert.Error(t, err)
	})
}

func TestContributionRepository_TotalsByDay(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewContributionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 1000, 0, 0)
	testutil.SeedAccount(t, testDB.DB, "bob", 1000, 0, 0)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	otherDay := day.AddDate(0, 0, -1)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("alice", 100, day)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("alice", 50, day)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("bob", 200, day)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("bob", 999, otherDay)))

	totals, err := repo.TotalsByDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	// Grouped per account, largest contributor first, other days excluded
	assert.Equal(t, "bob", totals[0].AccountKey)
	assert.Equal(t, int64(200), totals[0].Total)
	assert.Equal(t, "alice", totals[1].AccountKey)
	assert.Equal(t, int64(150), totals[1].Total)

	empty, err := repo.TotalsByDay(ctx, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestContributionRepository_GetAccountTotalByDay(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewContributionRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 1000, 0, 0)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	total, err := repo.GetAccountTotalByDay(ctx, "alice", day)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("alice", 100, day)))
	require.NoError(t, repo.Create(ctx, testutil.CreateTestContribution("alice", 25, day)))

	total, err = repo.GetAccountTotalByDay(ctx, "alice", day)
	require.NoError(t, err)
	assert.Equal(t, int64(125), total)
}

func TestContributionRepository_ListUnresolvedDays(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	contributions := NewContributionRepository(testDB.DB)
	awards := NewRewardAwardRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 1000, 0, 0)
	testutil.SeedAccount(t, testDB.DB, "bob", 1000, 0, 0)

	today := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	dayOne := today.AddDate(0, 0, -3)
	dayTwo := today.AddDate(0, 0, -2)
	dayThree := today.AddDate(0, 0, -1)

	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("alice", 100, dayOne)))
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("alice", 100, dayTwo)))
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("bob", 200, dayTwo)))
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("alice", 100, dayThree)))
	// Today's bucket is still open and must never appear
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("alice", 100, today)))

	t.Run("returns unpaid days oldest first", func(t *testing.T) {
		days, err := contributions.ListUnresolvedDays(ctx, today)
		require.NoError(t, err)
		require.Len(t, days, 3)
		assert.True(t, days[0].Equal(dayOne))
		assert.True(t, days[1].Equal(dayTwo))
		assert.True(t, days[2].Equal(dayThree))
	})

	t.Run("fully awarded day drops out", func(t *testing.T) {
		require.NoError(t, awards.Create(ctx, &entities.RewardAward{
			AccountKey: "alice", Day: dayOne, Amount: 1000,
		}))

		days, err := contributions.ListUnresolvedDays(ctx, today)
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.True(t, days[0].Equal(dayTwo))
	})

	t.Run("partially awarded day stays", func(t *testing.T) {
		require.NoError(t, awards.Create(ctx, &entities.RewardAward{
			AccountKey: "alice", Day: dayTwo, Amount: 333,
		}))

		days, err := contributions.ListUnresolvedDays(ctx, today)
		require.NoError(t, err)
		require.Len(t, days, 2)
		assert.True(t, days[0].Equal(dayTwo))
	})

	t.Run("zero amount award pins the day as resolved", func(t *testing.T) {
		require.NoError(t, awards.Create(ctx, &entities.RewardAward{
			AccountKey: "bob", Day: dayTwo, Amount: 0,
		}))
		require.NoError(t, awards.Create(ctx, &entities.RewardAward{
			AccountKey: "alice", Day: dayThree, Amount: 1000,
		}))

		days, err := contributions.ListUnresolvedDays(ctx, today)
		require.NoError(t, err)
		assert.Empty(t, days)
	})
}

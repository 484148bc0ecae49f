package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/domain"
	"prospector/repository/testutil"
)

func TestAccountRepository_UpsertDefault(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("creates a zero-balance account", func(t *testing.T) {
		account, created, err := repo.UpsertDefault(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.True(t, created)
		assert.Equal(t, "alice", account.AccountKey)
		assert.Equal(t, int64(0), account.GoldBalance)
		assert.Equal(t, int64(0), account.GemBalance)
		assert.Equal(t, int64(0), account.TokenBalance)
		assert.Equal(t, int64(1), account.AccrualRate)
		assert.False(t, account.Digging)
		assert.Nil(t, account.LastTickAt)
	})

	t.Run("returns the existing account unchanged", func(t *testing.T) {
		testutil.SeedAccount(t, testDB.DB, "bob", 500, 10, 3)

		account, created, err := repo.UpsertDefault(ctx, "bob")
		require.NoError(t, err)

		assert.False(t, created)
		assert.Equal(t, int64(500), account.GoldBalance)
		assert.Equal(t, int64(10), account.GemBalance)
		assert.Equal(t, int64(3), account.TokenBalance)
	})
}

func TestAccountRepository_GetByKey(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("missing account yields nil", func(t *testing.T) {
		account, err := repo.GetByKey(ctx, "ghost")
		require.NoError(t, err)
		assert.Nil(t, account)
	})

	t.Run("round trips every field", func(t *testing.T) {
		testutil.SeedAccount(t, testDB.DB, "alice", 100, 20, 5)

		account, err := repo.GetByKey(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.Equal(t, int64(100), account.GoldBalance)
		assert.Equal(t, int64(20), account.GemBalance)
		assert.Equal(t, int64(5), account.TokenBalance)
		assert.False(t, account.CreatedAt.IsZero())
	})
}

func TestAccountRepository_Update(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	t.Run("persists mutable fields", func(t *testing.T) {
		testutil.SeedAccount(t, testDB.DB, "alice", 100, 0, 0)

		account, err := repo.GetByKey(ctx, "alice")
		require.NoError(t, err)

		now := time.Now().UTC().Truncate(time.Second)
		account.GoldBalance = 250
		account.UpgradeLevel = 2
		account.AccrualRate = 3
		account.Digging = true
		account.LastTickAt = &now

		require.NoError(t, repo.Update(ctx, account))

		got, err := repo.GetByKey(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(250), got.GoldBalance)
		assert.Equal(t, int32(2), got.UpgradeLevel)
		assert.Equal(t, int64(3), got.AccrualRate)
		assert.True(t, got.Digging)
		require.NotNil(t, got.LastTickAt)
		assert.True(t, got.LastTickAt.Equal(now))
	})

	t.Run("rejects negative balances before the store sees them", func(t *testing.T) {
		testutil.SeedAccount(t, testDB.DB, "bob", 100, 0, 0)

		account, err := repo.GetByKey(ctx, "bob")
		require.NoError(t, err)

		account.GoldBalance = -1
		err = repo.Update(ctx, account)
		assert.ErrorIs(t, err, domain.ErrInvalidBalance)

		// The stored row is untouched
		got, err := repo.GetByKey(ctx, "bob")
		require.NoError(t, err)
		assert.Equal(t, int64(100), got.GoldBalance)
	})

	t.Run("missing account surfaces as not found", func(t *testing.T) {
		account, _, err := repo.UpsertDefault(ctx, "carol")
		require.NoError(t, err)

		account.AccountKey = "ghost"
		err = repo.Update(ctx, account)
		assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	})
}

func TestAccountRepository_GetByKeyForUpdate(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewAccountRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 100, 0, 0)

	account, err := repo.GetByKeyForUpdate(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, int64(100), account.GoldBalance)

	missing, err := repo.GetByKeyForUpdate(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

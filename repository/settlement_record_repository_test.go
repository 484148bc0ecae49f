package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/domain"
	"prospector/domain/entities"
	"prospector/repository/testutil"
)

func TestSettlementRecordRepository_Create(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRecordRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 1000)

	t.Run("assigns id and timestamp", func(t *testing.T) {
		record := testutil.CreateTestSettlementRecord("alice", 100)
		require.NoError(t, repo.Create(ctx, record))
		assert.NotZero(t, record.ID)
		assert.False(t, record.CreatedAt.IsZero())
	})

	t.Run("duplicate request id is rejected", func(t *testing.T) {
		record := testutil.CreateTestSettlementRecord("alice", 100)
		require.NoError(t, repo.Create(ctx, record))

		dup := testutil.CreateTestSettlementRecord("alice", 200)
		dup.RequestID = record.RequestID
		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrDuplicateRequest)
	})
}

func TestSettlementRecordRepository_GetByRequestID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRecordRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 1000)

	got, err := repo.GetByRequestID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)

	record := testutil.CreateTestSettlementRecord("alice", 400)
	require.NoError(t, repo.Create(ctx, record))

	got, err = repo.GetByRequestID(ctx, record.RequestID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, record.RequestID, got.RequestID)
	assert.Equal(t, "alice", got.AccountKey)
	assert.Equal(t, int64(400), got.Amount)
	assert.Equal(t, entities.SettlementStatusPending, got.Status)
	assert.Nil(t, got.ExternalTxID)
	assert.Nil(t, got.FailureReason)
	assert.Nil(t, got.CompletedAt)
}

func TestSettlementRecordRepository_Update(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRecordRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 1000)

	t.Run("confirm persists external tx id", func(t *testing.T) {
		record := testutil.CreateTestSettlementRecord("alice", 400)
		require.NoError(t, repo.Create(ctx, record))

		record.Confirm("tx-777", time.Now().UTC())
		require.NoError(t, repo.Update(ctx, record))

		got, err := repo.GetByRequestID(ctx, record.RequestID)
		require.NoError(t, err)
		assert.Equal(t, entities.SettlementStatusConfirmed, got.Status)
		require.NotNil(t, got.ExternalTxID)
		assert.Equal(t, "tx-777", *got.ExternalTxID)
		assert.NotNil(t, got.CompletedAt)
	})

	t.Run("fail persists the reason", func(t *testing.T) {
		record := testutil.CreateTestSettlementRecord("alice", 400)
		require.NoError(t, repo.Create(ctx, record))

		record.Fail("destination unknown", time.Now().UTC())
		require.NoError(t, repo.Update(ctx, record))

		got, err := repo.GetByRequestID(ctx, record.RequestID)
		require.NoError(t, err)
		assert.Equal(t, entities.SettlementStatusFailed, got.Status)
		require.NotNil(t, got.FailureReason)
		assert.Equal(t, "destination unknown", *got.FailureReason)
	})
}

func TestSettlementRecordRepository_GetTotalSettledSince(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRecordRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 10000)

	since := time.Now().UTC().Add(-time.Hour)

	total, err := repo.GetTotalSettledSince(ctx, "alice", since)
	require.NoError(t, err)
	assert.Equal(t, int64(0), total)

	pending := testutil.CreateTestSettlementRecord("alice", 100)
	require.NoError(t, repo.Create(ctx, pending))

	confirmed := testutil.CreateTestSettlementRecord("alice", 250)
	require.NoError(t, repo.Create(ctx, confirmed))
	confirmed.Confirm("tx-1", time.Now().UTC())
	require.NoError(t, repo.Update(ctx, confirmed))

	// Failed transfers were refunded and no longer count against the window
	failed := testutil.CreateTestSettlementRecord("alice", 999)
	require.NoError(t, repo.Create(ctx, failed))
	failed.Fail("rejected", time.Now().UTC())
	require.NoError(t, repo.Update(ctx, failed))

	total, err = repo.GetTotalSettledSince(ctx, "alice", since)
	require.NoError(t, err)
	assert.Equal(t, int64(350), total)
}

func TestSettlementRecordRepository_ListPendingOlderThan(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewSettlementRecordRepository(testDB.DB)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 1000)

	fresh := testutil.CreateTestSettlementRecord("alice", 100)
	require.NoError(t, repo.Create(ctx, fresh))

	resolved := testutil.CreateTestSettlementRecord("alice", 100)
	require.NoError(t, repo.Create(ctx, resolved))
	resolved.Confirm("tx-1", time.Now().UTC())
	require.NoError(t, repo.Update(ctx, resolved))

	// Nothing predates a cutoff in the past
	stuck, err := repo.ListPendingOlderThan(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	assert.Empty(t, stuck)

	// With the cutoff in the future only the still-pending record shows up
	stuck, err = repo.ListPendingOlderThan(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, stuck, 1)
	assert.Equal(t, fresh.RequestID, stuck[0].RequestID)
}

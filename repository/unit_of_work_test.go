package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/application"
	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/repository/testutil"
)

// recordingPublisher queues events until Flush, matching the
// transactional publisher contract without a broker
type recordingPublisher struct {
	pending   []events.Event
	flushed   []events.Event
	discarded int
}

func (p *recordingPublisher) Publish(event events.Event) error {
	p.pending = append(p.pending, event)
	return nil
}

func (p *recordingPublisher) Flush(ctx context.Context) error {
	p.flushed = append(p.flushed, p.pending...)
	p.pending = nil
	return nil
}

func (p *recordingPublisher) Discard() {
	p.discarded++
	p.pending = nil
}

func newTestUnitOfWorkFactory(testDB *testutil.TestDatabase, publisher *recordingPublisher) application.UnitOfWorkFactory {
	return NewUnitOfWorkFactory(testDB.DB, func() application.TransactionalEventPublisher {
		return publisher
	})
}

func TestUnitOfWork_CommitPersistsAndFlushes(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	publisher := &recordingPublisher{}
	factory := newTestUnitOfWorkFactory(testDB, publisher)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	account, created, err := uow.AccountRepository().UpsertDefault(ctx, "alice")
	require.NoError(t, err)
	require.True(t, created)
	account.GoldBalance = 500
	require.NoError(t, uow.AccountRepository().Update(ctx, account))

	require.NoError(t, uow.EventBus().Publish(events.BalanceChangeEvent{
		AccountKey:      "alice",
		Currency:        entities.CurrencyGold,
		OldBalance:      0,
		NewBalance:      500,
		ChangeAmount:    500,
		TransactionType: entities.TransactionTypeAccrual,
	}))

	// Nothing leaves the queue before the commit
	assert.Empty(t, publisher.flushed)

	require.NoError(t, uow.Commit())

	// The write is visible outside the transaction
	got, err := NewAccountRepository(testDB.DB).GetByKey(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(500), got.GoldBalance)

	require.Len(t, publisher.flushed, 1)
	assert.Equal(t, events.EventTypeBalanceChange, publisher.flushed[0].Type())
}

func TestUnitOfWork_RollbackDiscards(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	publisher := &recordingPublisher{}
	factory := newTestUnitOfWorkFactory(testDB, publisher)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))

	_, _, err := uow.AccountRepository().UpsertDefault(ctx, "alice")
	require.NoError(t, err)
	require.NoError(t, uow.EventBus().Publish(events.AccountCreatedEvent{AccountKey: "alice"}))

	require.NoError(t, uow.Rollback())

	// Neither the row nor the event survives
	got, err := NewAccountRepository(testDB.DB).GetByKey(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Empty(t, publisher.flushed)
	assert.Equal(t, 1, publisher.discarded)
}

func TestUnitOfWork_RollbackWithoutBeginIsHarmless(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	publisher := &recordingPublisher{}
	factory := newTestUnitOfWorkFactory(testDB, publisher)

	uow := factory.Create()
	assert.NoError(t, uow.Rollback())
}

func TestUnitOfWork_DoubleBeginRejected(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	publisher := &recordingPublisher{}
	factory := newTestUnitOfWorkFactory(testDB, publisher)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer func() { _ = uow.Rollback() }()

	assert.Error(t, uow.Begin(ctx))
}

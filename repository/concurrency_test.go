package repository

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/application"
	"prospector/config"
	"prospector/domain"
	"prospector/domain/events"
	"prospector/repository/testutil"
)

// lockedPublisher is safe for concurrent use, unlike the per-transaction
// recording stub
type lockedPublisher struct {
	mu        sync.Mutex
	published []events.Event
}

func (p *lockedPublisher) Publish(event events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, event)
	return nil
}

func TestDistributePool_ConcurrentSweepsAwardOnce(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	config.SetTestConfig(config.NewTestConfig())
	defer config.ResetConfig()

	testutil.SeedAccount(t, testDB.DB, "alice", 0, 0, 0)
	testutil.SeedAccount(t, testDB.DB, "bob", 0, 0, 0)

	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)
	contributions := NewContributionRepository(testDB.DB)
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("alice", 100, day)))
	require.NoError(t, contributions.Create(ctx, testutil.CreateTestContribution("bob", 200, day)))

	factory := NewUnitOfWorkFactory(testDB.DB, func() application.TransactionalEventPublisher {
		return &recordingPublisher{}
	})
	core := application.NewCore(factory, nil, nil, &lockedPublisher{})

	const sweeps = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		awarded atomic.Int64
		skipped atomic.Int64
		failed  atomic.Int64
	)
	for i := 0; i < sweeps; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			result, err := core.DistributePool(ctx, day)
			if !assert.NoError(t, err) {
				return
			}
			awarded.Add(int64(result.Awarded))
			skipped.Add(int64(result.Skipped))
			failed.Add(int64(result.Failed))
		}()
	}
	close(start)
	wg.Wait()

	// Across every racing sweep each contributor is credited exactly once
	assert.Equal(t, int64(2), awarded.Load())
	assert.Equal(t, int64(2*(sweeps-1)), skipped.Load())
	assert.Equal(t, int64(0), failed.Load())

	awards, err := NewRewardAwardRepository(testDB.DB).ListByDay(ctx, day)
	require.NoError(t, err)
	require.Len(t, awards, 2)
	assert.Equal(t, int64(667), awards[0].Amount)
	assert.Equal(t, int64(333), awards[1].Amount)

	accounts := NewAccountRepository(testDB.DB)
	alice, err := accounts.GetByKey(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(333), alice.GemBalance)
	bob, err := accounts.GetByKey(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(667), bob.GemBalance)
}

func TestAccountRepository_ConcurrentMutationsNeverGoNegative(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()

	testutil.SeedAccount(t, testDB.DB, "alice", 100, 0, 0)

	const (
		workers    = 6
		iterations = 30
	)
	var (
		wg        sync.WaitGroup
		start     = make(chan struct{})
		committed atomic.Int64
	)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			<-start
			for i := 0; i < iterations; i++ {
				// Skewed negative so the floor is actually contested
				delta := int64(rng.Intn(100)) - 55

				tx, err := testDB.DB.Begin(ctx)
				if !assert.NoError(t, err) {
					return
				}
				repo := newAccountRepository(tx)

				account, err := repo.GetByKeyForUpdate(ctx, "alice")
				if !assert.NoError(t, err) || !assert.NotNil(t, account) {
					_ = tx.Rollback(ctx)
					return
				}
				assert.GreaterOrEqual(t, account.GoldBalance, int64(0))

				account.GoldBalance += delta
				err = repo.Update(ctx, account)
				if account.GoldBalance < 0 {
					assert.ErrorIs(t, err, domain.ErrInvalidBalance)
					assert.NoError(t, tx.Rollback(ctx))
					continue
				}
				if !assert.NoError(t, err) {
					_ = tx.Rollback(ctx)
					return
				}
				if assert.NoError(t, tx.Commit(ctx)) {
					committed.Add(delta)
				}
			}
		}(int64(w) + 1)
	}
	close(start)
	wg.Wait()

	final, err := NewAccountRepository(testDB.DB).GetByKey(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.GreaterOrEqual(t, final.GoldBalance, int64(0))
	assert.Equal(t, 100+committed.Load(), final.GoldBalance)
}

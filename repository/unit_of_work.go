package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prospector/application"
	"prospector/database"
	"prospector/domain/interfaces"
)

// unitOfWork implements the application.UnitOfWork interface
type unitOfWork struct {
	db                     *database.DB
	tx                     pgx.Tx
	ctx                    context.Context
	transactionalPublisher application.TransactionalEventPublisher
	accountRepo            interfaces.AccountRepository
	balanceHistoryRepo     interfaces.BalanceHistoryRepository
	minesSessionRepo       interfaces.MinesSessionRepository
	contributionRepo       interfaces.ContributionRepository
	rewardAwardRepo        interfaces.RewardAwardRepository
	settlementRecordRepo   interfaces.SettlementRecordRepository
}

type unitOfWorkFactory struct {
	db               *database.DB
	publisherFactory func() application.TransactionalEventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWork factory. Each unit of
// work gets its own transactional publisher so pending events track the
// transaction they were raised in.
func NewUnitOfWorkFactory(db *database.DB, publisherFactory func() application.TransactionalEventPublisher) application.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		db:               db,
		publisherFactory: publisherFactory,
	}
}

// Create creates a new UnitOfWork instance
func (f *unitOfWorkFactory) Create() application.UnitOfWork {
	return &unitOfWork{
		db:                     f.db,
		transactionalPublisher: f.publisherFactory(),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx

	// Create repositories bound to the transaction
	u.accountRepo = newAccountRepository(tx)
	u.balanceHistoryRepo = newBalanceHistoryRepository(tx)
	u.minesSessionRepo = newMinesSessionRepository(tx)
	u.contributionRepo = newContributionRepository(tx)
	u.rewardAwardRepo = newRewardAwardRepository(tx)
	u.settlementRecordRepo = newSettlementRecordRepository(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	u.tx = nil

	// Events are best-effort once the transaction is durable
	if u.transactionalPublisher != nil {
		_ = u.transactionalPublisher.Flush(u.ctx)
	}

	return nil
}

// Rollback rolls back the transaction and discards pending events
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil // Nothing to rollback
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil

	if u.transactionalPublisher != nil {
		u.transactionalPublisher.Discard()
	}

	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// AccountRepository returns the account repository for this unit of work
func (u *unitOfWork) AccountRepository() interfaces.AccountRepository {
	if u.accountRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.accountRepo
}

// BalanceHistoryRepository returns the balance history repository for this unit of work
func (u *unitOfWork) BalanceHistoryRepository() interfaces.BalanceHistoryRepository {
	if u.balanceHistoryRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.balanceHistoryRepo
}

// MinesSessionRepository returns the mines session repository for this unit of work
func (u *unitOfWork) MinesSessionRepository() interfaces.MinesSessionRepository {
	if u.minesSessionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.minesSessionRepo
}

// ContributionRepository returns the contribution repository for this unit of work
func (u *unitOfWork) ContributionRepository() interfaces.ContributionRepository {
	if u.contributionRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.contributionRepo
}

// RewardAwardRepository returns the reward award repository for this unit of work
func (u *unitOfWork) RewardAwardRepository() interfaces.RewardAwardRepository {
	if u.rewardAwardRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.rewardAwardRepo
}

// SettlementRecordRepository returns the settlement record repository for this unit of work
func (u *unitOfWork) SettlementRecordRepository() interfaces.SettlementRecordRepository {
	if u.settlementRecordRepo == nil {
		panic("unit of work not started - call Begin() first")
	}
	return u.settlementRecordRepo
}

// EventBus returns the transactional event publisher for this unit of work
func (u *unitOfWork) EventBus() interfaces.EventPublisher {
	if u.transactionalPublisher == nil {
		panic("transactional publisher not configured")
	}
	return u.transactionalPublisher
}

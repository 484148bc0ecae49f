package application

import (
	"context"

	"prospector/domain/interfaces"
)

// TransactionalEventPublisher queues events during a transaction and
// publishes them only after the transaction commits
type TransactionalEventPublisher interface {
	interfaces.EventPublisher

	// Flush publishes all pending events; called after a successful commit
	Flush(ctx context.Context) error

	// Discard drops all pending events; called on rollback
	Discard()
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	AccountRepository() interfaces.AccountRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	MinesSessionRepository() interfaces.MinesSessionRepository
	ContributionRepository() interfaces.ContributionRepository
	RewardAwardRepository() interfaces.RewardAwardRepository
	SettlementRecordRepository() interfaces.SettlementRecordRepository

	// EventBus returns the transactional event publisher bound to this
	// unit of work
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create creates a new UnitOfWork instance
	Create() UnitOfWork
}

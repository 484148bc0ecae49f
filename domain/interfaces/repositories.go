package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prospector/domain/entities"
	"prospector/domain/events"
)

// AccountRepository defines the interface for ledger account data access
type AccountRepository interface {
	// GetByKey retrieves an account by its key, nil if absent
	GetByKey(ctx context.Context, accountKey string) (*entities.Account, error)

	// GetByKeyForUpdate retrieves an account and locks its row for the
	// duration of the surrounding transaction
	GetByKeyForUpdate(ctx context.Context, accountKey string) (*entities.Account, error)

	// UpsertDefault atomically creates a zero-balance account if the key
	// is absent. Returns the account and whether it was created.
	UpsertDefault(ctx context.Context, accountKey string) (*entities.Account, bool, error)

	// Update persists the account's mutable fields. The account must
	// pass validation; an invalid mutation is rejected without writing.
	Update(ctx context.Context, account *entities.Account) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByAccount returns recent balance history for an account
	GetByAccount(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error)

	// GetByDateRange returns balance history within a date range
	GetByDateRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error)
}

// MinesSessionRepository defines the interface for mines session data access
type MinesSessionRepository interface {
	// Create creates a new mines session
	Create(ctx context.Context, session *entities.MinesSession) error

	// GetByID retrieves a session by its token, nil if absent
	GetByID(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error)

	// GetByIDForUpdate retrieves a session and locks its row for the
	// duration of the surrounding transaction
	GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error)

	// GetActiveByAccount returns the account's active session, nil if none
	GetActiveByAccount(ctx context.Context, accountKey string) (*entities.MinesSession, error)

	// Update persists the session's mutable fields. The write is
	// conditional on the stored row still being active; updating a
	// terminal session returns ErrInvalidTransition.
	Update(ctx context.Context, session *entities.MinesSession) error

	// GetTotalStakedSince returns the sum of stakes the account has
	// placed since the given time, regardless of session outcome
	GetTotalStakedSince(ctx context.Context, accountKey string, since time.Time) (int64, error)
}

// ContributionRepository defines the interface for reward pool contribution data access
type ContributionRepository interface {
	// Create creates a new contribution record
	Create(ctx context.Context, contribution *entities.Contribution) error

	// TotalsByDay returns per-account contribution totals for a day bucket
	TotalsByDay(ctx context.Context, day time.Time) ([]*entities.AccountContribution, error)

	// GetAccountTotalByDay returns one account's contribution total for a day bucket
	GetAccountTotalByDay(ctx context.Context, accountKey string, day time.Time) (int64, error)

	// ListUnresolvedDays returns day buckets before the given day that
	// have contributions from at least one account without a matching
	// reward award
	ListUnresolvedDays(ctx context.Context, before time.Time) ([]time.Time, error)
}

// RewardAwardRepository defines the interface for reward award data access
type RewardAwardRepository interface {
	// Create inserts an award row. Each (account, day) pair can hold at
	// most one row; inserting a duplicate returns ErrAlreadyAwarded.
	Create(ctx context.Context, award *entities.RewardAward) error

	// GetByAccountAndDay retrieves an account's award for a day bucket, nil if absent
	GetByAccountAndDay(ctx context.Context, accountKey string, day time.Time) (*entities.RewardAward, error)

	// ListByDay returns all awards for a day bucket
	ListByDay(ctx context.Context, day time.Time) ([]*entities.RewardAward, error)
}

// SettlementRecordRepository defines the interface for settlement record data access
type SettlementRecordRepository interface {
	// Create inserts a settlement record. Request ids are unique;
	// inserting a duplicate returns ErrDuplicateRequest.
	Create(ctx context.Context, record *entities.SettlementRecord) error

	// GetByRequestID retrieves a record by its request id, nil if absent
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error)

	// GetByRequestIDForUpdate retrieves a record and locks its row for
	// the duration of the surrounding transaction
	GetByRequestIDForUpdate(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error)

	// Update persists the record's status fields
	Update(ctx context.Context, record *entities.SettlementRecord) error

	// GetTotalSettledSince returns the sum of non-failed settlement
	// amounts for an account since the given time
	GetTotalSettledSince(ctx context.Context, accountKey string, since time.Time) (int64, error)

	// ListPendingOlderThan returns pending records created before the
	// given cutoff, oldest first
	ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entities.SettlementRecord, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

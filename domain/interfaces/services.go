package interfaces

import (
	"context"
	"time"

	"github.com/google/uuid"

	"prospector/domain/entities"
)

// AccountService defines the interface for account lifecycle operations
type AccountService interface {
	// GetOrCreateAccount retrieves an existing account or creates a
	// zero-balance one
	GetOrCreateAccount(ctx context.Context, accountKey string) (*entities.Account, error)

	// RefreshAccrualRate re-derives the account's accrual rate from the
	// external rate source
	RefreshAccrualRate(ctx context.Context, accountKey string) (*entities.Account, error)

	// PurchaseUpgrade spends gold to raise the account's upgrade level
	// and accrual rate
	PurchaseUpgrade(ctx context.Context, accountKey string) (*entities.UpgradeResult, error)

	// ConvertGems exchanges gems for tokens at the configured rate
	ConvertGems(ctx context.Context, accountKey string, amount int64) (*entities.ConvertResult, error)

	// GetBalanceHistory returns recent balance changes for an account
	GetBalanceHistory(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error)

	// GetBalanceHistoryRange returns balance changes within [from, to),
	// oldest first
	GetBalanceHistoryRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error)
}

// AccrualService defines the interface for idle accrual operations
type AccrualService interface {
	// Tick credits gold for whole seconds elapsed since the last tick
	Tick(ctx context.Context, accountKey string) (*entities.TickResult, error)

	// StartDigging activates the account's accrual session
	StartDigging(ctx context.Context, accountKey string) (*entities.Account, error)

	// StopDigging performs a final tick and deactivates the session
	StopDigging(ctx context.Context, accountKey string) (*entities.TickResult, error)
}

// MinesService defines the interface for mines wager operations
type MinesService interface {
	// StartSession debits the stake and opens a session with a random
	// hazard layout
	StartSession(ctx context.Context, accountKey string, stake int64, hazardCount int32) (*entities.MinesSession, error)

	// Reveal uncovers a cell; a hazard loses the session and burns the
	// stake into the day's reward pool
	Reveal(ctx context.Context, sessionID uuid.UUID, cell int32) (*entities.RevealResult, error)

	// CashOut locks in the current multiplier and credits the payout
	CashOut(ctx context.Context, sessionID uuid.UUID) (*entities.CashOutResult, error)

	// GetSession retrieves a session by token; the hazard layout is
	// omitted while the session is active
	GetSession(ctx context.Context, sessionID uuid.UUID) (*entities.MinesSession, error)
}

// PoolService defines the interface for daily reward pool operations
type PoolService interface {
	// RecordContribution debits gold and adds it to today's pool
	RecordContribution(ctx context.Context, accountKey string, amount int64) (*entities.Contribution, error)

	// Award credits one account's share for a day and inserts the award
	// row; the insert is the commit point and fails on duplicates
	Award(ctx context.Context, accountKey string, day time.Time, amount int64) (*entities.RewardAward, error)

	// GetStatus summarizes a day's pool for a caller
	GetStatus(ctx context.Context, accountKey string, day time.Time) (*entities.PoolStatus, error)

	// TotalsForDay returns per-account contribution totals for a day
	TotalsForDay(ctx context.Context, day time.Time) ([]*entities.AccountContribution, error)

	// AwardedKeysForDay returns the accounts already awarded for a day
	AwardedKeysForDay(ctx context.Context, day time.Time) (map[string]*entities.RewardAward, error)

	// ListUnresolvedDays returns day buckets before the given day still
	// owing awards
	ListUnresolvedDays(ctx context.Context, before time.Time) ([]time.Time, error)

	// ComputeShares splits the pool across contributors proportionally,
	// rounding half up and capping each share at the pool size
	ComputeShares(totals []*entities.AccountContribution, poolSize int64) map[string]int64
}

// SettlementService defines the interface for the settlement bridge's
// transactional phases. The two-phase orchestration (debit, external
// call, outcome) lives in the application layer.
type SettlementService interface {
	// BeginCashOut validates the request, debits tokens and inserts the
	// pending settlement record
	BeginCashOut(ctx context.Context, accountKey string, requestID uuid.UUID, amount int64) (*entities.SettlementRecord, error)

	// ConfirmCashOut marks a pending record confirmed with the external
	// transaction id
	ConfirmCashOut(ctx context.Context, requestID uuid.UUID, externalTxID string) (*entities.SettlementRecord, error)

	// FailCashOut credits the debited tokens back and marks the record
	// failed
	FailCashOut(ctx context.Context, requestID uuid.UUID, reason string) (*entities.SettlementRecord, error)

	// GetByRequestID retrieves a settlement record, nil if absent
	GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error)

	// ListReconciliationRequired returns pending records older than the
	// reconciliation threshold
	ListReconciliationRequired(ctx context.Context) ([]*entities.SettlementRecord, error)
}

// SettlementGateway is the boundary to the external settlement service.
// The service performs the actual transfer; it is at-most-once on
// success and fails closed on error or timeout.
type SettlementGateway interface {
	// Transfer asks the settlement service to move the amount to the
	// account's external destination. Returns the external transaction
	// id on success.
	Transfer(ctx context.Context, requestID uuid.UUID, accountKey string, amount int64) (string, error)
}

// AccrualRateSource is the boundary to the external holdings lookup
// that grants accrual rate bonuses.
type AccrualRateSource interface {
	// RateBonus returns the account's bonus gold-per-second on top of
	// the base rate and upgrades
	RateBonus(ctx context.Context, accountKey string) (int64, error)
}

package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prospector/config"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/domain/interfaces"
	"prospector/domain/services"
	"prospector/infrastructure/metrics"
)

// Core is the operation surface of the economy. Every operation runs
// inside a unit of work so ledger mutations, history rows and queued
// events commit or roll back together. The settlement bridge is the one
// exception: its external call happens between two transactions.
type Core struct {
	uowFactory     UnitOfWorkFactory
	gateway        interfaces.SettlementGateway
	rateSource     interfaces.AccrualRateSource
	eventPublisher interfaces.EventPublisher
}

// NewCore creates the economy core
func NewCore(uowFactory UnitOfWorkFactory, gateway interfaces.SettlementGateway, rateSource interfaces.AccrualRateSource, eventPublisher interfaces.EventPublisher) *Core {
	return &Core{
		uowFactory:     uowFactory,
		gateway:        gateway,
		rateSource:     rateSource,
		eventPublisher: eventPublisher,
	}
}

// withUnitOfWork runs fn inside a committed unit of work
func (c *Core) withUnitOfWork(ctx context.Context, fn func(uow UnitOfWork) error) error {
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := fn(uow); err != nil {
		return err
	}
	return uow.Commit()
}

func (c *Core) accountService(uow UnitOfWork) interfaces.AccountService {
	return services.NewAccountService(uow.AccountRepository(), uow.BalanceHistoryRepository(), c.rateSource, uow.EventBus())
}

func (c *Core) accrualService(uow UnitOfWork) interfaces.AccrualService {
	return services.NewAccrualService(uow.AccountRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
}

func (c *Core) minesService(uow UnitOfWork) interfaces.MinesService {
	return services.NewMinesService(uow.AccountRepository(), uow.MinesSessionRepository(), uow.ContributionRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
}

func (c *Core) poolService(uow UnitOfWork) interfaces.PoolService {
	return services.NewPoolService(uow.AccountRepository(), uow.ContributionRepository(), uow.RewardAwardRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
}

func (c *Core) settlementService(uow UnitOfWork) interfaces.SettlementService {
	return services.NewSettlementService(uow.AccountRepository(), uow.SettlementRecordRepository(), uow.BalanceHistoryRepository(), uow.EventBus())
}

// GetOrCreateAccount retrieves or creates the ledger entry for a key
func (c *Core) GetOrCreateAccount(ctx context.Context, accountKey string) (*entities.Account, error) {
	var account *entities.Account
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = c.accountService(uow).GetOrCreateAccount(ctx, accountKey)
		return err
	})
	return account, err
}

// TickAccrual credits gold for whole seconds elapsed since the last tick
func (c *Core) TickAccrual(ctx context.Context, accountKey string) (*entities.TickResult, error) {
	var result *entities.TickResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.accrualService(uow).Tick(ctx, accountKey)
		return err
	})
	if err == nil && result.Credited > 0 {
		metrics.AccruedGold.Add(float64(result.Credited))
	}
	return result, err
}

// StartDigging activates the account's accrual session
func (c *Core) StartDigging(ctx context.Context, accountKey string) (*entities.Account, error) {
	var account *entities.Account
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = c.accrualService(uow).StartDigging(ctx, accountKey)
		return err
	})
	return account, err
}

// StopDigging performs a final tick and deactivates the session
func (c *Core) StopDigging(ctx context.Context, accountKey string) (*entities.TickResult, error) {
	var result *entities.TickResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.accrualService(uow).StopDigging(ctx, accountKey)
		return err
	})
	if err == nil && result.Credited > 0 {
		metrics.AccruedGold.Add(float64(result.Credited))
	}
	return result, err
}

// RefreshAccrualRate re-derives the account's rate from the rate source
func (c *Core) RefreshAccrualRate(ctx context.Context, accountKey string) (*entities.Account, error) {
	var account *entities.Account
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		account, err = c.accountService(uow).RefreshAccrualRate(ctx, accountKey)
		return err
	})
	return account, err
}

// PurchaseUpgrade spends gold to raise the accrual rate
func (c *Core) PurchaseUpgrade(ctx context.Context, accountKey string) (*entities.UpgradeResult, error) {
	var result *entities.UpgradeResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.accountService(uow).PurchaseUpgrade(ctx, accountKey)
		return err
	})
	return result, err
}

// ConvertGems exchanges gems for tokens at the configured rate
func (c *Core) ConvertGems(ctx context.Context, accountKey string, amount int64) (*entities.ConvertResult, error) {
	var result *entities.ConvertResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.accountService(uow).ConvertGems(ctx, accountKey, amount)
		return err
	})
	return result, err
}

// GetBalanceHistory returns recent balance changes for an account
func (c *Core) GetBalanceHistory(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error) {
	var histories []*entities.BalanceHistory
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		histories, err = c.accountService(uow).GetBalanceHistory(ctx, accountKey, limit)
		return err
	})
	return histories, err
}

// GetBalanceHistoryRange returns balance changes within [from, to)
func (c *Core) GetBalanceHistoryRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error) {
	var histories []*entities.BalanceHistory
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		histories, err = c.accountService(uow).GetBalanceHistoryRange(ctx, accountKey, from, to)
		return err
	})
	return histories, err
}

// StartSession debits the stake and opens a mines session
func (c *Core) StartSession(ctx context.Context, accountKey string, stake int64, hazardCount int32) (*entities.MinesSession, error) {
	var session *entities.MinesSession
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		session, err = c.minesService(uow).StartSession(ctx, accountKey, stake, hazardCount)
		return err
	})
	return session, err
}

// RevealCell uncovers one cell of an active mines session
func (c *Core) RevealCell(ctx context.Context, sessionID uuid.UUID, cell int32) (*entities.RevealResult, error) {
	var result *entities.RevealResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.minesService(uow).Reveal(ctx, sessionID, cell)
		return err
	})
	if err == nil && result.Hit {
		metrics.MinesSessions.WithLabelValues("lost").Inc()
	}
	return result, err
}

// CashOutSession locks in the multiplier and credits the payout
func (c *Core) CashOutSession(ctx context.Context, sessionID uuid.UUID) (*entities.CashOutResult, error) {
	var result *entities.CashOutResult
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		result, err = c.minesService(uow).CashOut(ctx, sessionID)
		return err
	})
	if err == nil {
		metrics.MinesSessions.WithLabelValues("cashed_out").Inc()
	}
	return result, err
}

// GetSession retrieves a mines session; hazards stay hidden while active
func (c *Core) GetSession(ctx context.Context, sessionID uuid.UUID) (*entities.MinesSession, error) {
	var session *entities.MinesSession
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		session, err = c.minesService(uow).GetSession(ctx, sessionID)
		return err
	})
	return session, err
}

// RecordContribution debits gold and adds it to today's reward pool
func (c *Core) RecordContribution(ctx context.Context, accountKey string, amount int64) (*entities.Contribution, error) {
	var contribution *entities.Contribution
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		contribution, err = c.poolService(uow).RecordContribution(ctx, accountKey, amount)
		return err
	})
	return contribution, err
}

// QueryPoolStatus summarizes a day's pool for a caller. Outstanding
// past days are settled first, so a status read never shows a stale
// undistributed day.
func (c *Core) QueryPoolStatus(ctx context.Context, accountKey string, day time.Time) (*entities.PoolStatus, error) {
	if err := c.DistributeOutstanding(ctx); err != nil {
		// The read itself is still valid; the sweep worker will retry
		log.WithError(err).Warn("Failed to settle outstanding pool days before status read")
	}

	var status *entities.PoolStatus
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		status, err = c.poolService(uow).GetStatus(ctx, accountKey, day)
		return err
	})
	return status, err
}

// DistributePool splits one day's reward pool among its contributors,
// proportional to contribution. Each award runs in its own transaction
// with the award-row insert as commit point, so reruns and concurrent
// sweeps award each account at most once and partial failures resume
// where they stopped.
func (c *Core) DistributePool(ctx context.Context, day time.Time) (*entities.DistributionResult, error) {
	day = entities.UTCDay(day)
	cfg := config.Get()

	// Read phase: totals and already-awarded accounts
	uow := c.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	pool := c.poolService(uow)
	totals, err := pool.TotalsForDay(ctx, day)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	awarded, err := pool.AwardedKeysForDay(ctx, day)
	if err != nil {
		uow.Rollback()
		return nil, err
	}
	uow.Rollback() // read-only

	result := &entities.DistributionResult{
		Day:      day,
		PoolSize: cfg.PoolDailyReward,
	}
	for _, t := range totals {
		result.TotalContributed += t.Total
	}
	if len(totals) == 0 || result.TotalContributed == 0 {
		return result, nil
	}

	shares := pool.ComputeShares(totals, cfg.PoolDailyReward)

	// Award phase: one transaction per contributor
	for _, t := range totals {
		if _, ok := awarded[t.AccountKey]; ok {
			result.Skipped++
			continue
		}

		share := shares[t.AccountKey]
		err := c.withUnitOfWork(ctx, func(auow UnitOfWork) error {
			_, err := c.poolService(auow).Award(ctx, t.AccountKey, day, share)
			return err
		})
		switch {
		case errors.Is(err, domain.ErrAlreadyAwarded):
			// Another sweep got there first
			result.Skipped++
		case err != nil:
			log.WithError(err).WithFields(log.Fields{
				"accountKey": t.AccountKey,
				"day":        day.Format("2006-01-02"),
			}).Error("Failed to award pool share")
			result.Failed++
		default:
			result.Awarded++
			result.AwardedTotal += share
			metrics.PoolAwards.Inc()
			metrics.PoolAwardedGems.Add(float64(share))
		}
	}

	if result.Awarded > 0 {
		event := events.PoolDistributedEvent{
			Day:              day.Format("2006-01-02"),
			PoolSize:         result.PoolSize,
			TotalContributed: result.TotalContributed,
			Awarded:          result.Awarded,
			AwardedTotal:     result.AwardedTotal,
		}
		if err := c.eventPublisher.Publish(event); err != nil {
			log.WithError(err).Error("Failed to publish pool distributed event")
		}
	}

	log.WithFields(log.Fields{
		"day":          day.Format("2006-01-02"),
		"contributors": len(totals),
		"awarded":      result.Awarded,
		"skipped":      result.Skipped,
		"failed":       result.Failed,
	}).Info("Pool distribution completed")

	return result, nil
}

// DistributeOutstanding settles every past day bucket that has
// contributions but is still missing at least one award row
func (c *Core) DistributeOutstanding(ctx context.Context) error {
	var days []time.Time
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		days, err = c.poolService(uow).ListUnresolvedDays(ctx, time.Now().UTC())
		return err
	})
	if err != nil {
		return err
	}

	for _, day := range days {
		if _, err := c.DistributePool(ctx, day); err != nil {
			return fmt.Errorf("failed to distribute pool for %s: %w", day.Format("2006-01-02"), err)
		}
	}
	return nil
}

// CashOutExternal moves tokens to the external settlement service with
// an optimistic debit. The debit and the pending record commit before
// the external call; the outcome is written in a second transaction,
// with a compensating credit on every failure that did not yield a
// transaction id.
func (c *Core) CashOutExternal(ctx context.Context, accountKey string, requestID uuid.UUID, amount int64) (*entities.SettlementRecord, error) {
	cfg := config.Get()

	// Idempotency: a known request id resolves from the record alone
	existing, err := c.getSettlementRecord(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.resolveExistingSettlement(existing)
	}

	// Phase 1: durable debit plus pending record
	var record *entities.SettlementRecord
	err = c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		record, err = c.settlementService(uow).BeginCashOut(ctx, accountKey, requestID, amount)
		return err
	})
	if errors.Is(err, domain.ErrDuplicateRequest) {
		// Lost a race against a concurrent retry of the same request
		existing, rerr := c.getSettlementRecord(ctx, requestID)
		if rerr != nil {
			return nil, rerr
		}
		if existing == nil {
			return nil, err
		}
		return c.resolveExistingSettlement(existing)
	}
	if err != nil {
		return nil, err
	}

	// Phase 2: the external transfer, bounded by its own deadline
	callCtx, cancel := context.WithTimeout(ctx, cfg.SettlementTimeout)
	txID, transferErr := c.gateway.Transfer(callCtx, requestID, accountKey, amount)
	cancel()

	// Phase 3: record the outcome. The caller may be gone by now; the
	// compensation must still run, so the outcome write is detached
	// from the caller's cancellation.
	outcomeCtx := context.WithoutCancel(ctx)

	if transferErr != nil {
		failErr := c.withUnitOfWork(outcomeCtx, func(uow UnitOfWork) error {
			_, err := c.settlementService(uow).FailCashOut(outcomeCtx, requestID, transferErr.Error())
			return err
		})
		if failErr != nil {
			// Debited, outcome unknown: the reconciliation gap
			log.WithError(failErr).WithField("requestID", requestID.String()).
				Error("Failed to record settlement failure; record left pending for reconciliation")
			return nil, fmt.Errorf("settlement outcome unknown for request %s: %w", requestID, domain.ErrReconciliationRequired)
		}
		metrics.Settlements.WithLabelValues("failed").Inc()
		if errors.Is(transferErr, domain.ErrSettlementFailed) || errors.Is(transferErr, domain.ErrSettlementUnavailable) {
			return nil, transferErr
		}
		return nil, fmt.Errorf("settlement transfer failed: %v: %w", transferErr, domain.ErrSettlementUnavailable)
	}

	err = c.withUnitOfWork(outcomeCtx, func(uow UnitOfWork) error {
		var err error
		record, err = c.settlementService(uow).ConfirmCashOut(outcomeCtx, requestID, txID)
		return err
	})
	if err != nil {
		// The transfer happened; only the confirmation write is missing
		log.WithError(err).WithFields(log.Fields{
			"requestID":    requestID.String(),
			"externalTxID": txID,
		}).Error("Failed to record settlement confirmation; record left pending for reconciliation")
		return nil, fmt.Errorf("settlement outcome unknown for request %s: %w", requestID, domain.ErrReconciliationRequired)
	}

	metrics.Settlements.WithLabelValues("confirmed").Inc()
	return record, nil
}

// ListReconciliationRequired returns settlements whose external outcome
// was never recorded and that need operator review
func (c *Core) ListReconciliationRequired(ctx context.Context) ([]*entities.SettlementRecord, error) {
	var records []*entities.SettlementRecord
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		records, err = c.settlementService(uow).ListReconciliationRequired(ctx)
		return err
	})
	return records, err
}

func (c *Core) getSettlementRecord(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	var record *entities.SettlementRecord
	err := c.withUnitOfWork(ctx, func(uow UnitOfWork) error {
		var err error
		record, err = c.settlementService(uow).GetByRequestID(ctx, requestID)
		return err
	})
	return record, err
}

// resolveExistingSettlement maps a stored settlement record onto the
// caller-visible outcome of a retried request
func (c *Core) resolveExistingSettlement(record *entities.SettlementRecord) (*entities.SettlementRecord, error) {
	switch {
	case record.IsConfirmed():
		return record, nil
	case record.IsFailed():
		reason := "settlement failed"
		if record.FailureReason != nil {
			reason = *record.FailureReason
		}
		return nil, fmt.Errorf("request %s: %s: %w", record.RequestID, reason, domain.ErrSettlementFailed)
	default:
		// Pending: the prior attempt's outcome is unknown
		return nil, fmt.Errorf("request %s outcome unknown: %w", record.RequestID, domain.ErrReconciliationRequired)
	}
}

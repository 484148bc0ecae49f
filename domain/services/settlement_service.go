package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prospector/config"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/domain/interfaces"
	"prospector/domain/utils"
)

type settlementService struct {
	accountRepo        interfaces.AccountRepository
	settlementRepo     interfaces.SettlementRecordRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewSettlementService creates a new settlement service
func NewSettlementService(accountRepo interfaces.AccountRepository, settlementRepo interfaces.SettlementRecordRepository, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher) interfaces.SettlementService {
	return &settlementService{
		accountRepo:        accountRepo,
		settlementRepo:     settlementRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *settlementService) BeginCashOut(ctx context.Context, accountKey string, requestID uuid.UUID, amount int64) (*entities.SettlementRecord, error) {
	cfg := config.Get()

	if requestID == uuid.Nil {
		return nil, fmt.Errorf("request id is required: %w", domain.ErrInvalidInput)
	}
	if amount < cfg.SettlementMinAmount {
		return nil, fmt.Errorf("minimum settlement is %d tokens: %w", cfg.SettlementMinAmount, domain.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	// Check the rolling per-day settlement window
	settled, err := s.settlementRepo.GetTotalSettledSince(ctx, accountKey, entities.UTCDay(time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to check settlement window: %w", err)
	}
	if settled+amount > cfg.SettlementDailyMax {
		remaining := cfg.SettlementDailyMax - settled
		if remaining < 0 {
			remaining = 0
		}
		return nil, fmt.Errorf("settlement would exceed daily window, %d tokens remaining today: %w", remaining, domain.ErrRateLimited)
	}

	if !account.CanAffordTokens(amount) {
		return nil, fmt.Errorf("have %d tokens, need %d: %w", account.TokenBalance, amount, domain.ErrInsufficientFunds)
	}

	// Optimistic debit: tokens leave the ledger before the external
	// call. The pending record in the same transaction is what makes
	// the debit traceable if the process dies mid-flight.
	balanceBefore := account.TokenBalance
	account.TokenBalance -= amount
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to debit tokens: %w", err)
	}

	record := &entities.SettlementRecord{
		RequestID:  requestID,
		AccountKey: accountKey,
		Amount:     amount,
		Status:     entities.SettlementStatusPending,
	}
	if err := s.settlementRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	requestKey := requestID.String()
	relatedType := entities.RelatedTypeSettlement
	history := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyTokens,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.TokenBalance,
		ChangeAmount:    -amount,
		TransactionType: entities.TransactionTypeSettlementDebit,
		TransactionMetadata: map[string]any{
			"request_id": requestKey,
		},
		RelatedID:   &requestKey,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	log.WithFields(log.Fields{
		"accountKey": accountKey,
		"requestID":  requestKey,
		"amount":     amount,
	}).Info("Settlement debit recorded")

	return record, nil
}

func (s *settlementService) ConfirmCashOut(ctx context.Context, requestID uuid.UUID, externalTxID string) (*entities.SettlementRecord, error) {
	record, err := s.settlementRepo.GetByRequestIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("settlement record %s not found", requestID)
	}
	if !record.IsPending() {
		return nil, fmt.Errorf("settlement is %s: %w", record.Status, domain.ErrInvalidTransition)
	}

	record.Confirm(externalTxID, time.Now().UTC())
	if err := s.settlementRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update settlement record: %w", err)
	}

	s.publishResolved(record)
	log.WithFields(log.Fields{
		"accountKey":   record.AccountKey,
		"requestID":    requestID.String(),
		"externalTxID": externalTxID,
	}).Info("Settlement confirmed")

	return record, nil
}

func (s *settlementService) FailCashOut(ctx context.Context, requestID uuid.UUID, reason string) (*entities.SettlementRecord, error) {
	record, err := s.settlementRepo.GetByRequestIDForUpdate(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	if record == nil {
		return nil, fmt.Errorf("settlement record %s not found", requestID)
	}
	if !record.IsPending() {
		return nil, fmt.Errorf("settlement is %s: %w", record.Status, domain.ErrInvalidTransition)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, record.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", record.AccountKey, domain.ErrAccountNotFound)
	}

	// Compensating credit; the daily window is not re-checked on refunds
	balanceBefore := account.TokenBalance
	account.TokenBalance += record.Amount
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to refund tokens: %w", err)
	}

	record.Fail(reason, time.Now().UTC())
	if err := s.settlementRepo.Update(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to update settlement record: %w", err)
	}

	requestKey := requestID.String()
	relatedType := entities.RelatedTypeSettlement
	history := &entities.BalanceHistory{
		AccountKey:      record.AccountKey,
		Currency:        entities.CurrencyTokens,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.TokenBalance,
		ChangeAmount:    record.Amount,
		TransactionType: entities.TransactionTypeSettlementRefund,
		TransactionMetadata: map[string]any{
			"request_id": requestKey,
			"reason":     reason,
		},
		RelatedID:   &requestKey,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	s.publishResolved(record)
	log.WithFields(log.Fields{
		"accountKey": record.AccountKey,
		"requestID":  requestKey,
		"reason":     reason,
	}).Warn("Settlement failed, debit refunded")

	return record, nil
}

func (s *settlementService) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	record, err := s.settlementRepo.GetByRequestID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record: %w", err)
	}
	return record, nil
}

func (s *settlementService) ListReconciliationRequired(ctx context.Context) ([]*entities.SettlementRecord, error) {
	cfg := config.Get()
	cutoff := time.Now().UTC().Add(-cfg.ReconciliationAge)
	records, err := s.settlementRepo.ListPendingOlderThan(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending settlements: %w", err)
	}
	return records, nil
}

func (s *settlementService) publishResolved(record *entities.SettlementRecord) {
	event := events.SettlementResolvedEvent{
		RequestID:  record.RequestID.String(),
		AccountKey: record.AccountKey,
		Amount:     record.Amount,
		Status:     string(record.Status),
	}
	if record.ExternalTxID != nil {
		event.ExternalTxID = *record.ExternalTxID
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish settlement resolved event")
	}
}

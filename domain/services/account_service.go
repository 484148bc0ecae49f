package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"prospector/config"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/domain/interfaces"
	"prospector/domain/utils"
)

type accountService struct {
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	rateSource         interfaces.AccrualRateSource
	eventPublisher     interfaces.EventPublisher
}

// NewAccountService creates a new account service
func NewAccountService(accountRepo interfaces.AccountRepository, balanceHistoryRepo interfaces.BalanceHistoryRepository, rateSource interfaces.AccrualRateSource, eventPublisher interfaces.EventPublisher) interfaces.AccountService {
	return &accountService{
		accountRepo:        accountRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		rateSource:         rateSource,
		eventPublisher:     eventPublisher,
	}
}

func (s *accountService) GetOrCreateAccount(ctx context.Context, accountKey string) (*entities.Account, error) {
	if accountKey == "" {
		return nil, fmt.Errorf("account key is required: %w", domain.ErrInvalidInput)
	}

	account, created, err := s.accountRepo.UpsertDefault(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert account: %w", err)
	}

	if created {
		log.WithField("accountKey", accountKey).Info("Created new account")
		if err := s.eventPublisher.Publish(events.AccountCreatedEvent{AccountKey: accountKey}); err != nil {
			log.WithError(err).Error("Failed to publish account created event")
		}
	}

	return account, nil
}

func (s *accountService) RefreshAccrualRate(ctx context.Context, accountKey string) (*entities.Account, error) {
	// Query the external source before taking the row lock
	bonus, err := s.rateSource.RateBonus(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query accrual rate source: %w", err)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	// Settle elapsed time at the old rate before switching
	credited := account.ApplyAccrual(time.Now().UTC())
	if err := recordAccrualCredit(ctx, s.balanceHistoryRepo, s.eventPublisher, account, credited); err != nil {
		return nil, err
	}

	oldRate := account.AccrualRate
	account.RecalculateAccrualRate(bonus)
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	if account.AccrualRate != oldRate {
		log.WithFields(log.Fields{
			"accountKey": accountKey,
			"oldRate":    oldRate,
			"newRate":    account.AccrualRate,
		}).Info("Accrual rate refreshed")
	}

	return account, nil
}

func (s *accountService) PurchaseUpgrade(ctx context.Context, accountKey string) (*entities.UpgradeResult, error) {
	cfg := config.Get()

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	// Settle elapsed time at the old rate before the upgrade changes it
	credited := account.ApplyAccrual(time.Now().UTC())
	if err := recordAccrualCredit(ctx, s.balanceHistoryRepo, s.eventPublisher, account, credited); err != nil {
		return nil, err
	}

	cost := account.NextUpgradeCost(cfg.UpgradeBaseCost)
	if !account.CanAffordGold(cost) {
		return nil, fmt.Errorf("upgrade costs %d gold: %w", cost, domain.ErrInsufficientFunds)
	}

	boost := account.AccrualBoost()
	balanceBefore := account.GoldBalance
	account.GoldBalance -= cost
	account.UpgradeLevel++
	account.RecalculateAccrualRate(boost)

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	history := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyGold,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.GoldBalance,
		ChangeAmount:    -cost,
		TransactionType: entities.TransactionTypeUpgradeCost,
		TransactionMetadata: map[string]any{
			"upgrade_level": account.UpgradeLevel,
			"accrual_rate":  account.AccrualRate,
		},
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	log.WithFields(log.Fields{
		"accountKey": accountKey,
		"level":      account.UpgradeLevel,
		"cost":       cost,
	}).Info("Upgrade purchased")

	return &entities.UpgradeResult{
		Account:  account,
		Cost:     cost,
		NewLevel: account.UpgradeLevel,
	}, nil
}

func (s *accountService) ConvertGems(ctx context.Context, accountKey string, amount int64) (*entities.ConvertResult, error) {
	cfg := config.Get()

	if amount < 1 {
		return nil, fmt.Errorf("conversion amount must be at least 1: %w", domain.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}
	if !account.CanAffordGems(amount) {
		return nil, fmt.Errorf("have %d gems, need %d: %w", account.GemBalance, amount, domain.ErrInsufficientFunds)
	}

	tokens := amount * cfg.GemTokenRate
	gemsBefore := account.GemBalance
	tokensBefore := account.TokenBalance
	account.GemBalance -= amount
	account.TokenBalance += tokens

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	outHistory := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyGems,
		BalanceBefore:   gemsBefore,
		BalanceAfter:    account.GemBalance,
		ChangeAmount:    -amount,
		TransactionType: entities.TransactionTypeConvertOut,
		TransactionMetadata: map[string]any{
			"tokens_granted": tokens,
			"rate":           cfg.GemTokenRate,
		},
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, outHistory); err != nil {
		return nil, fmt.Errorf("failed to record gem debit: %w", err)
	}

	inHistory := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyTokens,
		BalanceBefore:   tokensBefore,
		BalanceAfter:    account.TokenBalance,
		ChangeAmount:    tokens,
		TransactionType: entities.TransactionTypeConvertIn,
		TransactionMetadata: map[string]any{
			"gems_spent": amount,
			"rate":       cfg.GemTokenRate,
		},
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, inHistory); err != nil {
		return nil, fmt.Errorf("failed to record token credit: %w", err)
	}

	return &entities.ConvertResult{
		Account:       account,
		GemsSpent:     amount,
		TokensGranted: tokens,
	}, nil
}

func (s *accountService) GetBalanceHistory(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	histories, err := s.balanceHistoryRepo.GetByAccount(ctx, accountKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	return histories, nil
}

func (s *accountService) GetBalanceHistoryRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("range start must precede range end: %w", domain.ErrInvalidInput)
	}
	histories, err := s.balanceHistoryRepo.GetByDateRange(ctx, accountKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history range: %w", err)
	}
	return histories, nil
}

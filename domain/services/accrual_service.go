package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
	"prospector/domain/utils"
)

type accrualService struct {
	accountRepo        interfaces.AccountRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewAccrualService creates a new accrual service
func NewAccrualService(accountRepo interfaces.AccountRepository, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher) interfaces.AccrualService {
	return &accrualService{
		accountRepo:        accountRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *accrualService) Tick(ctx context.Context, accountKey string) (*entities.TickResult, error) {
	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	credited := account.ApplyAccrual(time.Now().UTC())
	if err := recordAccrualCredit(ctx, s.balanceHistoryRepo, s.eventPublisher, account, credited); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	return &entities.TickResult{Account: account, Credited: credited}, nil
}

func (s *accrualService) StartDigging(ctx context.Context, accountKey string) (*entities.Account, error) {
	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	now := time.Now().UTC()
	if account.Digging {
		// Already digging; settle elapsed time instead of resetting the window
		credited := account.ApplyAccrual(now)
		if err := recordAccrualCredit(ctx, s.balanceHistoryRepo, s.eventPublisher, account, credited); err != nil {
			return nil, err
		}
	} else {
		account.StartDigging(now)
		log.WithField("accountKey", accountKey).Info("Digging session started")
	}

	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return account, nil
}

func (s *accrualService) StopDigging(ctx context.Context, accountKey string) (*entities.TickResult, error) {
	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	if !account.Digging {
		return &entities.TickResult{Account: account, Credited: 0}, nil
	}

	credited := account.StopDigging(time.Now().UTC())
	if err := recordAccrualCredit(ctx, s.balanceHistoryRepo, s.eventPublisher, account, credited); err != nil {
		return nil, err
	}
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}

	log.WithFields(log.Fields{
		"accountKey": accountKey,
		"credited":   credited,
	}).Info("Digging session stopped")

	return &entities.TickResult{Account: account, Credited: credited}, nil
}

// recordAccrualCredit writes the balance history entry for an accrual
// credit already applied to the account. A zero credit records nothing.
func recordAccrualCredit(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, account *entities.Account, credited int64) error {
	if credited <= 0 {
		return nil
	}

	history := &entities.BalanceHistory{
		AccountKey:      account.AccountKey,
		Currency:        entities.CurrencyGold,
		BalanceBefore:   account.GoldBalance - credited,
		BalanceAfter:    account.GoldBalance,
		ChangeAmount:    credited,
		TransactionType: entities.TransactionTypeAccrual,
		TransactionMetadata: map[string]any{
			"accrual_rate": account.AccrualRate,
		},
	}
	if err := utils.RecordBalanceChange(ctx, balanceHistoryRepo, eventPublisher, history); err != nil {
		return fmt.Errorf("failed to record accrual credit: %w", err)
	}
	return nil
}

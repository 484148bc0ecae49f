package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"prospector/config"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
	"prospector/domain/utils"
)

type poolService struct {
	accountRepo        interfaces.AccountRepository
	contributionRepo   interfaces.ContributionRepository
	rewardAwardRepo    interfaces.RewardAwardRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewPoolService creates a new reward pool service
func NewPoolService(accountRepo interfaces.AccountRepository, contributionRepo interfaces.ContributionRepository, rewardAwardRepo interfaces.RewardAwardRepository, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher) interfaces.PoolService {
	return &poolService{
		accountRepo:        accountRepo,
		contributionRepo:   contributionRepo,
		rewardAwardRepo:    rewardAwardRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *poolService) RecordContribution(ctx context.Context, accountKey string, amount int64) (*entities.Contribution, error) {
	if amount < 1 {
		return nil, fmt.Errorf("contribution must be at least 1: %w", domain.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}
	if !account.CanAffordGold(amount) {
		return nil, fmt.Errorf("have %d gold, need %d: %w", account.GoldBalance, amount, domain.ErrInsufficientFunds)
	}

	balanceBefore := account.GoldBalance
	account.GoldBalance -= amount
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to debit contribution: %w", err)
	}

	contribution := &entities.Contribution{
		AccountKey: accountKey,
		Amount:     amount,
		Source:     entities.ContributionSourceSubmit,
		Day:        entities.UTCDay(time.Now()),
	}
	if err := s.contributionRepo.Create(ctx, contribution); err != nil {
		return nil, fmt.Errorf("failed to create contribution: %w", err)
	}

	contributionID := strconv.FormatInt(contribution.ID, 10)
	relatedType := entities.RelatedTypeContribution
	history := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyGold,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.GoldBalance,
		ChangeAmount:    -amount,
		TransactionType: entities.TransactionTypePoolContribution,
		TransactionMetadata: map[string]any{
			"contribution_day": contribution.Day.Format("2006-01-02"),
		},
		RelatedID:   &contributionID,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	return contribution, nil
}

func (s *poolService) Award(ctx context.Context, accountKey string, day time.Time, amount int64) (*entities.RewardAward, error) {
	if amount < 0 {
		return nil, fmt.Errorf("award amount cannot be negative: %w", domain.ErrInvalidInput)
	}
	day = entities.UTCDay(day)

	award := &entities.RewardAward{
		AccountKey: accountKey,
		Day:        day,
		Amount:     amount,
	}

	// Zero shares only pin the award row so the day can never be recomputed
	if amount == 0 {
		if err := s.rewardAwardRepo.Create(ctx, award); err != nil {
			return nil, err
		}
		return award, nil
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	// Credit first, then insert the award row. The row is the commit
	// point: a duplicate insert aborts the surrounding transaction and
	// the credit rolls back with it.
	balanceBefore := account.GemBalance
	account.GemBalance += amount
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to credit reward: %w", err)
	}
	if err := s.rewardAwardRepo.Create(ctx, award); err != nil {
		return nil, err
	}

	awardID := strconv.FormatInt(award.ID, 10)
	relatedType := entities.RelatedTypeRewardAward
	history := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyGems,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.GemBalance,
		ChangeAmount:    amount,
		TransactionType: entities.TransactionTypePoolReward,
		TransactionMetadata: map[string]any{
			"award_day": day.Format("2006-01-02"),
		},
		RelatedID:   &awardID,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	log.WithFields(log.Fields{
		"accountKey": accountKey,
		"day":        day.Format("2006-01-02"),
		"amount":     amount,
	}).Debug("Pool share awarded")

	return award, nil
}

func (s *poolService) GetStatus(ctx context.Context, accountKey string, day time.Time) (*entities.PoolStatus, error) {
	day = entities.UTCDay(day)

	totals, err := s.contributionRepo.TotalsByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution totals: %w", err)
	}

	callerTotal, err := s.contributionRepo.GetAccountTotalByDay(ctx, accountKey, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get caller contribution: %w", err)
	}

	awards, err := s.rewardAwardRepo.ListByDay(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get awards: %w", err)
	}

	cfg := config.Get()
	return &entities.PoolStatus{
		Day:              day,
		PoolSize:         cfg.PoolDailyReward,
		TotalContributed: lo.SumBy(totals, func(c *entities.AccountContribution) int64 { return c.Total }),
		Contributors:     len(totals),
		CallerTotal:      callerTotal,
		Distributed:      len(totals) > 0 && len(awards) >= len(totals),
		AwardCount:       len(awards),
		AwardTotal:       lo.SumBy(awards, func(a *entities.RewardAward) int64 { return a.Amount }),
	}, nil
}

func (s *poolService) TotalsForDay(ctx context.Context, day time.Time) ([]*entities.AccountContribution, error) {
	totals, err := s.contributionRepo.TotalsByDay(ctx, entities.UTCDay(day))
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution totals: %w", err)
	}
	return totals, nil
}

func (s *poolService) AwardedKeysForDay(ctx context.Context, day time.Time) (map[string]*entities.RewardAward, error) {
	awards, err := s.rewardAwardRepo.ListByDay(ctx, entities.UTCDay(day))
	if err != nil {
		return nil, fmt.Errorf("failed to get awards: %w", err)
	}
	return lo.KeyBy(awards, func(a *entities.RewardAward) string { return a.AccountKey }), nil
}

func (s *poolService) ListUnresolvedDays(ctx context.Context, before time.Time) ([]time.Time, error) {
	days, err := s.contributionRepo.ListUnresolvedDays(ctx, entities.UTCDay(before))
	if err != nil {
		return nil, fmt.Errorf("failed to list unresolved days: %w", err)
	}
	return days, nil
}

func (s *poolService) ComputeShares(totals []*entities.AccountContribution, poolSize int64) map[string]int64 {
	shares := make(map[string]int64, len(totals))
	dayTotal := lo.SumBy(totals, func(c *entities.AccountContribution) int64 { return c.Total })
	if dayTotal <= 0 || poolSize <= 0 {
		return shares
	}

	poolDec := decimal.NewFromInt(poolSize)
	totalDec := decimal.NewFromInt(dayTotal)
	for _, c := range totals {
		// Round half up; an individual share never exceeds the pool
		share := decimal.NewFromInt(c.Total).Mul(poolDec).Div(totalDec).Round(0).IntPart()
		if share > poolSize {
			share = poolSize
		}
		shares[c.AccountKey] = share
	}
	return shares
}

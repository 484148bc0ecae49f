package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"prospector/config"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/domain/interfaces"
	"prospector/domain/utils"
)

type minesService struct {
	accountRepo        interfaces.AccountRepository
	sessionRepo        interfaces.MinesSessionRepository
	contributionRepo   interfaces.ContributionRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewMinesService creates a new mines service
func NewMinesService(accountRepo interfaces.AccountRepository, sessionRepo interfaces.MinesSessionRepository, contributionRepo interfaces.ContributionRepository, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher) interfaces.MinesService {
	return &minesService{
		accountRepo:        accountRepo,
		sessionRepo:        sessionRepo,
		contributionRepo:   contributionRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *minesService) StartSession(ctx context.Context, accountKey string, stake int64, hazardCount int32) (*entities.MinesSession, error) {
	cfg := config.Get()
	boardSize := cfg.MinesBoardSize

	// Validate inputs
	if stake < 1 {
		return nil, fmt.Errorf("stake must be at least 1: %w", domain.ErrInvalidInput)
	}
	if hazardCount < 1 || hazardCount > boardSize-1 {
		return nil, fmt.Errorf("hazard count must be between 1 and %d: %w", boardSize-1, domain.ErrInvalidInput)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", accountKey, domain.ErrAccountNotFound)
	}

	existing, err := s.sessionRepo.GetActiveByAccount(ctx, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to check for active session: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("session %s is still active: %w", existing.ID, domain.ErrSessionConflict)
	}

	// Check daily stake limit
	now := time.Now().UTC()
	staked, err := s.sessionRepo.GetTotalStakedSince(ctx, accountKey, entities.UTCDay(now))
	if err != nil {
		return nil, fmt.Errorf("failed to check daily stake amount: %w", err)
	}
	if staked+stake > cfg.DailyStakeLimit {
		remaining := cfg.DailyStakeLimit - staked
		if remaining < 0 {
			remaining = 0
		}
		return nil, fmt.Errorf("stake would exceed daily limit, %d gold remaining today: %w", remaining, domain.ErrRateLimited)
	}

	if !account.CanAffordGold(stake) {
		return nil, fmt.Errorf("have %d gold, need %d: %w", account.GoldBalance, stake, domain.ErrInsufficientFunds)
	}

	hazards, err := entities.GenerateHazardCells(boardSize, hazardCount)
	if err != nil {
		return nil, err
	}

	// Debit the stake and create the session atomically within the
	// caller's transaction
	balanceBefore := account.GoldBalance
	account.GoldBalance -= stake
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to debit stake: %w", err)
	}

	session := &entities.MinesSession{
		ID:            uuid.New(),
		AccountKey:    accountKey,
		Stake:         stake,
		BoardSize:     boardSize,
		HazardCount:   hazardCount,
		HazardCells:   hazards,
		RevealedCells: []int32{},
		Multiplier:    decimal.NewFromInt(1),
		Status:        entities.MinesSessionStatusActive,
	}
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	sessionID := session.ID.String()
	relatedType := entities.RelatedTypeMinesSession
	history := &entities.BalanceHistory{
		AccountKey:      accountKey,
		Currency:        entities.CurrencyGold,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.GoldBalance,
		ChangeAmount:    -stake,
		TransactionType: entities.TransactionTypeMinesStake,
		TransactionMetadata: map[string]any{
			"hazard_count": hazardCount,
			"board_size":   boardSize,
		},
		RelatedID:   &sessionID,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	log.WithFields(log.Fields{
		"accountKey":  accountKey,
		"sessionID":   sessionID,
		"stake":       stake,
		"hazardCount": hazardCount,
	}).Info("Mines session started")

	return session, nil
}

func (s *minesService) Reveal(ctx context.Context, sessionID uuid.UUID, cell int32) (*entities.RevealResult, error) {
	cfg := config.Get()

	session, err := s.sessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if !session.IsActive() {
		return nil, fmt.Errorf("session is %s: %w", session.Status, domain.ErrInvalidTransition)
	}
	if !session.InBounds(cell) {
		return nil, fmt.Errorf("cell %d is outside the board: %w", cell, domain.ErrInvalidInput)
	}
	if session.HasRevealed(cell) {
		return nil, fmt.Errorf("cell %d: %w", cell, domain.ErrAlreadyRevealed)
	}

	now := time.Now().UTC()

	if session.IsHazard(cell) {
		session.MarkLost(now)
		if err := s.sessionRepo.Update(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to resolve session: %w", err)
		}

		// The burned stake feeds today's reward pool
		contribution := &entities.Contribution{
			AccountKey: session.AccountKey,
			Amount:     session.Stake,
			Source:     entities.ContributionSourceWagerBurn,
			Day:        entities.UTCDay(now),
		}
		if err := s.contributionRepo.Create(ctx, contribution); err != nil {
			return nil, fmt.Errorf("failed to record burn contribution: %w", err)
		}

		s.publishResolved(session, false, 0)
		log.WithFields(log.Fields{
			"accountKey": session.AccountKey,
			"sessionID":  session.ID.String(),
			"cell":       cell,
			"stake":      session.Stake,
		}).Info("Mines session lost")

		return &entities.RevealResult{
			Session:       session,
			Cell:          cell,
			Hit:           true,
			Multiplier:    session.Multiplier,
			SafeRemaining: session.SafeRemaining(),
			HazardCells:   session.DisclosedHazards(),
		}, nil
	}

	session.RevealedCells = append(session.RevealedCells, cell)
	session.Multiplier = session.ComputeMultiplier(
		decimal.New(cfg.MinesHouseEdgeBps, -4),
		decimal.New(cfg.MinesMinMultiplierBps, -4),
		decimal.NewFromInt(cfg.MinesMaxMultiplier),
	)
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}

	return &entities.RevealResult{
		Session:       session,
		Cell:          cell,
		Hit:           false,
		Multiplier:    session.Multiplier,
		SafeRemaining: session.SafeRemaining(),
	}, nil
}

func (s *minesService) CashOut(ctx context.Context, sessionID uuid.UUID) (*entities.CashOutResult, error) {
	session, err := s.sessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}
	if !session.IsActive() {
		return nil, fmt.Errorf("session is %s: %w", session.Status, domain.ErrInvalidTransition)
	}

	account, err := s.accountRepo.GetByKeyForUpdate(ctx, session.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, fmt.Errorf("account %s: %w", session.AccountKey, domain.ErrAccountNotFound)
	}

	payout := session.Payout()
	session.MarkCashedOut(time.Now().UTC())

	// The conditional write claims the terminal transition; a concurrent
	// resolution surfaces here as ErrInvalidTransition
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}

	balanceBefore := account.GoldBalance
	account.GoldBalance += payout
	if err := s.accountRepo.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to credit payout: %w", err)
	}

	sessionKey := session.ID.String()
	relatedType := entities.RelatedTypeMinesSession
	history := &entities.BalanceHistory{
		AccountKey:      session.AccountKey,
		Currency:        entities.CurrencyGold,
		BalanceBefore:   balanceBefore,
		BalanceAfter:    account.GoldBalance,
		ChangeAmount:    payout,
		TransactionType: entities.TransactionTypeMinesPayout,
		TransactionMetadata: map[string]any{
			"multiplier": session.Multiplier.String(),
			"reveals":    len(session.RevealedCells),
			"stake":      session.Stake,
		},
		RelatedID:   &sessionKey,
		RelatedType: &relatedType,
	}
	if err := utils.RecordBalanceChange(ctx, s.balanceHistoryRepo, s.eventPublisher, history); err != nil {
		return nil, fmt.Errorf("failed to record balance change: %w", err)
	}

	s.publishResolved(session, true, payout)
	log.WithFields(log.Fields{
		"accountKey": session.AccountKey,
		"sessionID":  sessionKey,
		"multiplier": session.Multiplier.String(),
		"payout":     payout,
	}).Info("Mines session cashed out")

	return &entities.CashOutResult{
		Session:        session,
		Payout:         payout,
		NewGoldBalance: account.GoldBalance,
	}, nil
}

func (s *minesService) GetSession(ctx context.Context, sessionID uuid.UUID) (*entities.MinesSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
	}

	// Never leak the layout of a live board
	if session.IsActive() {
		redacted := *session
		redacted.HazardCells = nil
		return &redacted, nil
	}
	return session, nil
}

func (s *minesService) publishResolved(session *entities.MinesSession, won bool, payout int64) {
	event := events.MinesResolvedEvent{
		SessionID:  session.ID.String(),
		AccountKey: session.AccountKey,
		Stake:      session.Stake,
		Won:        won,
		Multiplier: session.Multiplier.String(),
		Payout:     payout,
	}
	if err := s.eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish mines resolved event")
	}
}

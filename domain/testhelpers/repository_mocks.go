package testhelpers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"prospector/domain/entities"
	"prospector/domain/events"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByKey(ctx context.Context, accountKey string) (*entities.Account, error) {
	args := m.Called(ctx, accountKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByKeyForUpdate(ctx context.Context, accountKey string) (*entities.Account, error) {
	args := m.Called(ctx, accountKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) UpsertDefault(ctx context.Context, accountKey string) (*entities.Account, bool, error) {
	args := m.Called(ctx, accountKey)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*entities.Account), args.Bool(1), args.Error(2)
}

func (m *MockAccountRepository) Update(ctx context.Context, account *entities.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, accountKey, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockBalanceHistoryRepository) GetByDateRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, accountKey, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockMinesSessionRepository is a mock implementation of MinesSessionRepository
type MockMinesSessionRepository struct {
	mock.Mock
}

func (m *MockMinesSessionRepository) Create(ctx context.Context, session *entities.MinesSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockMinesSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesSession), args.Error(1)
}

func (m *MockMinesSessionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesSession), args.Error(1)
}

func (m *MockMinesSessionRepository) GetActiveByAccount(ctx context.Context, accountKey string) (*entities.MinesSession, error) {
	args := m.Called(ctx, accountKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.MinesSession), args.Error(1)
}

func (m *MockMinesSessionRepository) Update(ctx context.Context, session *entities.MinesSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockMinesSessionRepository) GetTotalStakedSince(ctx context.Context, accountKey string, since time.Time) (int64, error) {
	args := m.Called(ctx, accountKey, since)
	return args.Get(0).(int64), args.Error(1)
}

// MockContributionRepository is a mock implementation of ContributionRepository
type MockContributionRepository struct {
	mock.Mock
}

func (m *MockContributionRepository) Create(ctx context.Context, contribution *entities.Contribution) error {
	args := m.Called(ctx, contribution)
	return args.Error(0)
}

func (m *MockContributionRepository) TotalsByDay(ctx context.Context, day time.Time) ([]*entities.AccountContribution, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.AccountContribution), args.Error(1)
}

func (m *MockContributionRepository) GetAccountTotalByDay(ctx context.Context, accountKey string, day time.Time) (int64, error) {
	args := m.Called(ctx, accountKey, day)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContributionRepository) ListUnresolvedDays(ctx context.Context, before time.Time) ([]time.Time, error) {
	args := m.Called(ctx, before)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}

// MockRewardAwardRepository is a mock implementation of RewardAwardRepository
type MockRewardAwardRepository struct {
	mock.Mock
}

func (m *MockRewardAwardRepository) Create(ctx context.Context, award *entities.RewardAward) error {
	args := m.Called(ctx, award)
	return args.Error(0)
}

func (m *MockRewardAwardRepository) GetByAccountAndDay(ctx context.Context, accountKey string, day time.Time) (*entities.RewardAward, error) {
	args := m.Called(ctx, accountKey, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.RewardAward), args.Error(1)
}

func (m *MockRewardAwardRepository) ListByDay(ctx context.Context, day time.Time) ([]*entities.RewardAward, error) {
	args := m.Called(ctx, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RewardAward), args.Error(1)
}

// MockSettlementRecordRepository is a mock implementation of SettlementRecordRepository
type MockSettlementRecordRepository struct {
	mock.Mock
}

func (m *MockSettlementRecordRepository) Create(ctx context.Context, record *entities.SettlementRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementRecordRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRecordRepository) GetByRequestIDForUpdate(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.SettlementRecord), args.Error(1)
}

func (m *MockSettlementRecordRepository) Update(ctx context.Context, record *entities.SettlementRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSettlementRecordRepository) GetTotalSettledSince(ctx context.Context, accountKey string, since time.Time) (int64, error) {
	args := m.Called(ctx, accountKey, since)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSettlementRecordRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entities.SettlementRecord, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.SettlementRecord), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockSettlementGateway is a mock implementation of SettlementGateway
type MockSettlementGateway struct {
	mock.Mock
}

func (m *MockSettlementGateway) Transfer(ctx context.Context, requestID uuid.UUID, accountKey string, amount int64) (string, error) {
	args := m.Called(ctx, requestID, accountKey, amount)
	return args.String(0), args.Error(1)
}

// MockAccrualRateSource is a mock implementation of AccrualRateSource
type MockAccrualRateSource struct {
	mock.Mock
}

func (m *MockAccrualRateSource) RateBonus(ctx context.Context, accountKey string) (int64, error) {
	args := m.Called(ctx, accountKey)
	return args.Get(0).(int64), args.Error(1)
}

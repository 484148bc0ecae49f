package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"prospector/database"
	"prospector/domain/entities"
)

// SeedAccount inserts an account row with the given balances directly,
// bypassing the repository layer, and returns its key
func SeedAccount(t *testing.T, db *database.DB, accountKey string, gold, gems, tokens int64) {
	t.Helper()
	_, err := db.Exec(context.Background(), `
		INSERT INTO accounts (account_key, gold_balance, gem_balance, token_balance)
		VALUES ($1, $2, $3, $4)`,
		accountKey, gold, gems, tokens)
	require.NoError(t, err)
}

// CreateTestSession builds an active mines session with sensible defaults
func CreateTestSession(accountKey string, stake int64) *entities.MinesSession {
	return &entities.MinesSession{
		ID:            uuid.New(),
		AccountKey:    accountKey,
		Stake:         stake,
		BoardSize:     25,
		HazardCount:   5,
		HazardCells:   []int32{0, 5, 10, 15, 20},
		RevealedCells: []int32{},
		Multiplier:    decimal.NewFromInt(1),
		Status:        entities.MinesSessionStatusActive,
	}
}

// CreateTestContribution builds a pool-submit contribution for the given day
func CreateTestContribution(accountKey string, amount int64, day time.Time) *entities.Contribution {
	return &entities.Contribution{
		AccountKey: accountKey,
		Amount:     amount,
		Source:     entities.ContributionSourceSubmit,
		Day:        entities.UTCDay(day),
	}
}

// CreateTestSettlementRecord builds a pending settlement record
func CreateTestSettlementRecord(accountKey string, amount int64) *entities.SettlementRecord {
	return &entities.SettlementRecord{
		RequestID:  uuid.New(),
		AccountKey: accountKey,
		Amount:     amount,
		Status:     entities.SettlementStatusPending,
	}
}

package entities

import (
	"errors"
	"math"
	"time"
)

// BaseAccrualRate is the gold-per-second rate every account starts with
const BaseAccrualRate int64 = 1

// Account represents a player's ledger entry across all three currencies
type Account struct {
	AccountKey   string     `db:"account_key"`
	GoldBalance  int64      `db:"gold_balance"`
	GemBalance   int64      `db:"gem_balance"`
	TokenBalance int64      `db:"token_balance"`
	AccrualRate  int64      `db:"accrual_rate"` // gold per second while digging
	UpgradeLevel int32      `db:"upgrade_level"`
	Digging      bool       `db:"digging"`
	LastTickAt   *time.Time `db:"last_tick_at"` // NULL until the first tick observation
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
}

// NewAccount returns a zero-balance account for the given key
func NewAccount(accountKey string) *Account {
	return &Account{
		AccountKey:  accountKey,
		AccrualRate: BaseAccrualRate,
	}
}

// Validate checks every numeric field for the ledger's invariants.
// A mutation that fails validation must not be persisted.
func (a *Account) Validate() error {
	if a.GoldBalance < 0 {
		return errors.New("gold balance cannot be negative")
	}
	if a.GemBalance < 0 {
		return errors.New("gem balance cannot be negative")
	}
	if a.TokenBalance < 0 {
		return errors.New("token balance cannot be negative")
	}
	if a.AccrualRate < BaseAccrualRate {
		return errors.New("accrual rate cannot drop below the base rate")
	}
	if a.UpgradeLevel < 0 {
		return errors.New("upgrade level cannot be negative")
	}
	return nil
}

// CanAffordGold checks if the account has sufficient gold for an amount
func (a *Account) CanAffordGold(amount int64) bool {
	return a.GoldBalance >= amount
}

// CanAffordGems checks if the account has sufficient gems for an amount
func (a *Account) CanAffordGems(amount int64) bool {
	return a.GemBalance >= amount
}

// CanAffordTokens checks if the account has sufficient tokens for an amount
func (a *Account) CanAffordTokens(amount int64) bool {
	return a.TokenBalance >= amount
}

// ApplyAccrual credits gold for the whole seconds elapsed since the last
// tick and returns the credited amount.
//
// Only whole seconds are credited; last_tick_at advances by exactly the
// credited seconds so the sub-second remainder carries into the next
// tick. The first tick of a digging session only records the
// observation time. Accounts that are not digging accrue nothing.
func (a *Account) ApplyAccrual(now time.Time) int64 {
	if !a.Digging {
		return 0
	}
	if a.LastTickAt == nil {
		t := now
		a.LastTickAt = &t
		return 0
	}
	elapsed := int64(now.Sub(*a.LastTickAt) / time.Second)
	if elapsed < 1 {
		return 0
	}
	credit := elapsed * a.AccrualRate
	a.GoldBalance += credit
	advanced := a.LastTickAt.Add(time.Duration(elapsed) * time.Second)
	a.LastTickAt = &advanced
	return credit
}

// StartDigging activates the accrual session. The observation window
// starts now; downtime before this call earns nothing.
func (a *Account) StartDigging(now time.Time) {
	a.Digging = true
	t := now
	a.LastTickAt = &t
}

// StopDigging deactivates the accrual session after a final tick so
// earned whole seconds are not lost. Returns the final credit.
func (a *Account) StopDigging(now time.Time) int64 {
	credit := a.ApplyAccrual(now)
	a.Digging = false
	return credit
}

// AccrualBoost returns the portion of the accrual rate that comes from
// the external rate source rather than base rate and upgrades.
func (a *Account) AccrualBoost() int64 {
	boost := a.AccrualRate - BaseAccrualRate - int64(a.UpgradeLevel)
	if boost < 0 {
		return 0
	}
	return boost
}

// RecalculateAccrualRate derives the accrual rate from the base rate,
// the upgrade level and the given boost.
func (a *Account) RecalculateAccrualRate(boost int64) {
	if boost < 0 {
		boost = 0
	}
	a.AccrualRate = BaseAccrualRate + int64(a.UpgradeLevel) + boost
}

// NextUpgradeCost returns the gold cost of the next upgrade level.
// The cost doubles per level.
func (a *Account) NextUpgradeCost(baseCost int64) int64 {
	if a.UpgradeLevel >= 50 {
		return math.MaxInt64
	}
	return baseCost << uint(a.UpgradeLevel)
}

// TickResult represents the outcome of an accrual tick (returned to the caller)
type TickResult struct {
	Account  *Account
	Credited int64
}

// UpgradeResult represents the outcome of an upgrade purchase
type UpgradeResult struct {
	Account  *Account
	Cost     int64
	NewLevel int32
}

// ConvertResult represents the outcome of a gems-to-tokens conversion
type ConvertResult struct {
	Account       *Account
	GemsSpent     int64
	TokensGranted int64
}

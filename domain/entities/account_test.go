package entities

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyAccrual_NotDigging(t *testing.T) {
	account := NewAccount("alice")

	credited := account.ApplyAccrual(time.Now().UTC())

	assert.Equal(t, int64(0), credited)
	assert.Equal(t, int64(0), account.GoldBalance)
	assert.Nil(t, account.LastTickAt)
}

func TestApplyAccrual_FirstTickOnlyObserves(t *testing.T) {
	account := NewAccount("alice")
	account.Digging = true

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	credited := account.ApplyAccrual(now)

	assert.Equal(t, int64(0), credited)
	require.NotNil(t, account.LastTickAt)
	assert.Equal(t, now, *account.LastTickAt)
}

func TestApplyAccrual_WholeSecondsOnly(t *testing.T) {
	account := NewAccount("alice")
	account.Digging = true
	account.AccrualRate = 3

	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account.LastTickAt = &last

	// 2.7 seconds elapsed: only 2 whole seconds credit
	now := last.Add(2700 * time.Millisecond)
	credited := account.ApplyAccrual(now)

	assert.Equal(t, int64(6), credited)
	assert.Equal(t, int64(6), account.GoldBalance)

	// last_tick_at advances by exactly the credited seconds, carrying
	// the 0.7s remainder into the next tick
	assert.Equal(t, last.Add(2*time.Second), *account.LastTickAt)

	// Another 0.4s brings the remainder to 1.1s: one more second credits
	credited = account.ApplyAccrual(now.Add(400 * time.Millisecond))
	assert.Equal(t, int64(3), credited)
	assert.Equal(t, int64(9), account.GoldBalance)
}

func TestApplyAccrual_SubSecondElapsed(t *testing.T) {
	account := NewAccount("alice")
	account.Digging = true

	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account.LastTickAt = &last

	credited := account.ApplyAccrual(last.Add(999 * time.Millisecond))

	assert.Equal(t, int64(0), credited)
	assert.Equal(t, last, *account.LastTickAt)
}

func TestStopDigging_PerformsFinalTick(t *testing.T) {
	account := NewAccount("alice")
	account.Digging = true
	account.AccrualRate = 2

	last := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account.LastTickAt = &last

	credited := account.StopDigging(last.Add(5 * time.Second))

	assert.Equal(t, int64(10), credited)
	assert.Equal(t, int64(10), account.GoldBalance)
	assert.False(t, account.Digging)
}

func TestStartDigging_ResetsObservationWindow(t *testing.T) {
	account := NewAccount("alice")

	old := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	account.LastTickAt = &old

	now := old.Add(time.Hour)
	account.StartDigging(now)

	assert.True(t, account.Digging)
	// Downtime before the session earns nothing
	assert.Equal(t, now, *account.LastTickAt)
	assert.Equal(t, int64(0), account.GoldBalance)
}

func TestNextUpgradeCost_DoublesPerLevel(t *testing.T) {
	account := NewAccount("alice")

	assert.Equal(t, int64(500), account.NextUpgradeCost(500))

	account.UpgradeLevel = 1
	assert.Equal(t, int64(1000), account.NextUpgradeCost(500))

	account.UpgradeLevel = 4
	assert.Equal(t, int64(8000), account.NextUpgradeCost(500))

	account.UpgradeLevel = 50
	assert.Equal(t, int64(math.MaxInt64), account.NextUpgradeCost(500))
}

func TestRecalculateAccrualRate(t *testing.T) {
	account := NewAccount("alice")
	account.UpgradeLevel = 3

	account.RecalculateAccrualRate(5)
	assert.Equal(t, int64(9), account.AccrualRate) // 1 base + 3 upgrades + 5 boost
	assert.Equal(t, int64(5), account.AccrualBoost())

	account.RecalculateAccrualRate(-2)
	assert.Equal(t, int64(4), account.AccrualRate)
	assert.Equal(t, int64(0), account.AccrualBoost())
}

func TestValidate_RejectsNegativeBalances(t *testing.T) {
	account := NewAccount("alice")
	assert.NoError(t, account.Validate())

	account.GoldBalance = -1
	assert.Error(t, account.Validate())
	account.GoldBalance = 0

	account.GemBalance = -1
	assert.Error(t, account.Validate())
	account.GemBalance = 0

	account.TokenBalance = -1
	assert.Error(t, account.Validate())
	account.TokenBalance = 0

	account.AccrualRate = 0
	assert.Error(t, account.Validate())
}

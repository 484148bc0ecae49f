package assets

import (
	"context"

	"prospector/domain/interfaces"
)

// StaticRateSource is an AccrualRateSource with fixed per-account
// bonuses. It stands in for the external holdings lookup when no
// provider is configured; accounts without an entry get no bonus.
type StaticRateSource struct {
	bonuses map[string]int64
}

// NewStaticRateSource creates a rate source from a fixed bonus table
func NewStaticRateSource(bonuses map[string]int64) *StaticRateSource {
	if bonuses == nil {
		bonuses = make(map[string]int64)
	}
	return &StaticRateSource{bonuses: bonuses}
}

// RateBonus returns the account's configured bonus gold-per-second
func (s *StaticRateSource) RateBonus(ctx context.Context, accountKey string) (int64, error) {
	return s.bonuses[accountKey], nil
}

var _ interfaces.AccrualRateSource = (*StaticRateSource)(nil)

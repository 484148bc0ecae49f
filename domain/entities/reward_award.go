package entities

import "time"

// RewardAward records that an account's share of one day's reward pool
// has been credited. The (account_key, award_day) pair is unique in the
// store; inserting the row is the commit point of a distribution, so an
// account can never be paid twice for the same day.
type RewardAward struct {
	ID         int64     `db:"id"`
	AccountKey string    `db:"account_key"`
	Day        time.Time `db:"award_day"` // UTC day bucket
	Amount     int64     `db:"amount"`    // gems credited; zero shares still get a row
	CreatedAt  time.Time `db:"created_at"`
}

// IsZeroShare returns true if the award credited nothing
func (a *RewardAward) IsZeroShare() bool {
	return a.Amount == 0
}

// PoolStatus summarizes one day's reward pool for a caller
type PoolStatus struct {
	Day              time.Time
	PoolSize         int64
	TotalContributed int64
	Contributors     int
	CallerTotal      int64
	Distributed      bool
	AwardCount       int
	AwardTotal       int64
}

// DistributionResult summarizes one distribute run over a day bucket
type DistributionResult struct {
	Day              time.Time
	PoolSize         int64
	TotalContributed int64
	Awarded          int
	AwardedTotal     int64
	Skipped          int // accounts that already had an award row
	Failed           int
}

// NothingToDistribute returns true if the day had no contributions
func (r *DistributionResult) NothingToDistribute() bool {
	return r.TotalContributed == 0
}

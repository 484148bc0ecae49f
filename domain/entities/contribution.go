package entities

import (
	"errors"
	"time"
)

// ContributionSource identifies how gold entered the reward pool
type ContributionSource string

const (
	// ContributionSourceSubmit is an explicit player submission
	ContributionSourceSubmit ContributionSource = "pool_submit"
	// ContributionSourceWagerBurn is a lost mines stake
	ContributionSourceWagerBurn ContributionSource = "wager_burn"
)

// Contribution represents gold paid into a day's reward pool
type Contribution struct {
	ID         int64              `db:"id"`
	AccountKey string             `db:"account_key"`
	Amount     int64              `db:"amount"`
	Source     ContributionSource `db:"source"`
	Day        time.Time          `db:"contribution_day"` // UTC day bucket
	CreatedAt  time.Time          `db:"created_at"`
}

// Validate performs basic validation on the contribution
func (c *Contribution) Validate() error {
	if c.Amount < 1 {
		return errors.New("contribution amount must be at least 1")
	}
	if c.Source != ContributionSourceSubmit && c.Source != ContributionSourceWagerBurn {
		return errors.New("unknown contribution source")
	}
	return nil
}

// AccountContribution is a per-account contribution total for one day
type AccountContribution struct {
	AccountKey string `db:"account_key"`
	Total      int64  `db:"total"`
}

// UTCDay truncates a time to its UTC day bucket
func UTCDay(t time.Time) time.Time {
	return t.UTC().Truncate(24 * time.Hour)
}

package repository

import (
	"context"
	"fmt"
	"time"

	"prospector/database"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
)

// contributionRepository implements interfaces.ContributionRepository
type contributionRepository struct {
	q Queryable
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *database.DB) interfaces.ContributionRepository {
	return &contributionRepository{q: db.Pool}
}

// newContributionRepository creates a repository bound to a transaction
func newContributionRepository(tx Queryable) interfaces.ContributionRepository {
	return &contributionRepository{q: tx}
}

// Create creates a new contribution record
func (r *contributionRepository) Create(ctx context.Context, contribution *entities.Contribution) error {
	if err := contribution.Validate(); err != nil {
		return fmt.Errorf("invalid contribution: %w", err)
	}

	query := `
		INSERT INTO contributions (account_key, amount, source, contribution_day)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		contribution.AccountKey,
		contribution.Amount,
		contribution.Source,
		contribution.Day,
	).Scan(&contribution.ID, &contribution.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

// TotalsByDay returns per-account contribution totals for a day bucket,
// largest contributors first
func (r *contributionRepository) TotalsByDay(ctx context.Context, day time.Time) ([]*entities.AccountContribution, error) {
	query := `
		SELECT account_key, SUM(amount) AS total
		FROM contributions
		WHERE contribution_day = $1
		GROUP BY account_key
		ORDER BY total DESC, account_key`

	rows, err := r.q.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query contribution totals: %w", err)
	}
	defer rows.Close()

	var totals []*entities.AccountContribution
	for rows.Next() {
		var total entities.AccountContribution
		if err := rows.Scan(&total.AccountKey, &total.Total); err != nil {
			return nil, fmt.Errorf("failed to scan contribution total: %w", err)
		}
		totals = append(totals, &total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contribution totals: %w", err)
	}
	return totals, nil
}

// GetAccountTotalByDay returns one account's contribution total for a day bucket
func (r *contributionRepository) GetAccountTotalByDay(ctx context.Context, accountKey string, day time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM contributions
		WHERE account_key = $1 AND contribution_day = $2`

	var total int64
	if err := r.q.QueryRow(ctx, query, accountKey, day).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum contributions for %s: %w", accountKey, err)
	}
	return total, nil
}

// ListUnresolvedDays returns day buckets before the given day where at
// least one contributor still has no award row, oldest first
func (r *contributionRepository) ListUnresolvedDays(ctx context.Context, before time.Time) ([]time.Time, error) {
	query := `
		SELECT DISTINCT c.contribution_day
		FROM contributions c
		WHERE c.contribution_day < $1
		  AND EXISTS (
			SELECT 1 FROM contributions c2
			WHERE c2.contribution_day = c.contribution_day
			  AND NOT EXISTS (
				SELECT 1 FROM reward_awards ra
				WHERE ra.account_key = c2.account_key
				  AND ra.award_day = c2.contribution_day
			  )
		  )
		ORDER BY c.contribution_day ASC`

	rows, err := r.q.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to query unresolved days: %w", err)
	}
	defer rows.Close()

	var days []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved day: %w", err)
		}
		days = append(days, day.UTC())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unresolved days: %w", err)
	}
	return days, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"prospector/database"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
)

// rewardAwardRepository implements interfaces.RewardAwardRepository
type rewardAwardRepository struct {
	q Queryable
}

// NewRewardAwardRepository creates a new reward award repository
func NewRewardAwardRepository(db *database.DB) interfaces.RewardAwardRepository {
	return &rewardAwardRepository{q: db.Pool}
}

// newRewardAwardRepository creates a repository bound to a transaction
func newRewardAwardRepository(tx Queryable) interfaces.RewardAwardRepository {
	return &rewardAwardRepository{q: tx}
}

// Create inserts an award row. The (account_key, award_day) uniqueness
// constraint is the at-most-once primitive for pool distribution; a
// duplicate insert surfaces as ErrAlreadyAwarded and aborts the
// surrounding transaction, rolling the paired credit back with it.
func (r *rewardAwardRepository) Create(ctx context.Context, award *entities.RewardAward) error {
	query := `
		INSERT INTO reward_awards (account_key, award_day, amount)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		award.AccountKey,
		award.Day,
		award.Amount,
	).Scan(&award.ID, &award.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "reward_awards_account_day_unique") {
			return fmt.Errorf("account %s, day %s: %w",
				award.AccountKey, award.Day.Format("2006-01-02"), domain.ErrAlreadyAwarded)
		}
		return fmt.Errorf("failed to create reward award: %w", err)
	}
	return nil
}

// GetByAccountAndDay retrieves an account's award for a day bucket, nil if absent
func (r *rewardAwardRepository) GetByAccountAndDay(ctx context.Context, accountKey string, day time.Time) (*entities.RewardAward, error) {
	query := `
		SELECT id, account_key, award_day, amount, created_at
		FROM reward_awards
		WHERE account_key = $1 AND award_day = $2`

	var award entities.RewardAward
	err := r.q.QueryRow(ctx, query, accountKey, day).Scan(
		&award.ID,
		&award.AccountKey,
		&award.Day,
		&award.Amount,
		&award.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward award for %s: %w", accountKey, err)
	}
	award.Day = award.Day.UTC()
	return &award, nil
}

// ListByDay returns all awards for a day bucket
func (r *rewardAwardRepository) ListByDay(ctx context.Context, day time.Time) ([]*entities.RewardAward, error) {
	query := `
		SELECT id, account_key, award_day, amount, created_at
		FROM reward_awards
		WHERE award_day = $1
		ORDER BY amount DESC, account_key`

	rows, err := r.q.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward awards: %w", err)
	}
	defer rows.Close()

	var awards []*entities.RewardAward
	for rows.Next() {
		var award entities.RewardAward
		err := rows.Scan(&award.ID, &award.AccountKey, &award.Day, &award.Amount, &award.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward award: %w", err)
		}
		award.Day = award.Day.UTC()
		awards = append(awards, &award)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reward awards: %w", err)
	}
	return awards, nil
}

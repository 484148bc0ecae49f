package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"prospector/database"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
)

// balanceHistoryRepository implements interfaces.BalanceHistoryRepository
type balanceHistoryRepository struct {
	q Queryable
}

// NewBalanceHistoryRepository creates a new balance history repository
func NewBalanceHistoryRepository(db *database.DB) interfaces.BalanceHistoryRepository {
	return &balanceHistoryRepository{q: db.Pool}
}

// newBalanceHistoryRepository creates a repository bound to a transaction
func newBalanceHistoryRepository(tx Queryable) interfaces.BalanceHistoryRepository {
	return &balanceHistoryRepository{q: tx}
}

// Record creates a new balance history entry
func (r *balanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	var metadata []byte
	if history.TransactionMetadata != nil {
		var err error
		metadata, err = json.Marshal(history.TransactionMetadata)
		if err != nil {
			return fmt.Errorf("failed to marshal transaction metadata: %w", err)
		}
	}

	query := `
		INSERT INTO balance_history (account_key, currency, balance_before, balance_after,
			change_amount, transaction_type, transaction_metadata, related_id, related_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		history.AccountKey,
		history.Currency,
		history.BalanceBefore,
		history.BalanceAfter,
		history.ChangeAmount,
		history.TransactionType,
		metadata,
		history.RelatedID,
		history.RelatedType,
	).Scan(&history.ID, &history.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}
	return nil
}

// GetByAccount returns recent balance history for an account, newest first
func (r *balanceHistoryRepository) GetByAccount(ctx context.Context, accountKey string, limit int) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, account_key, currency, balance_before, balance_after,
			change_amount, transaction_type, transaction_metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE account_key = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, accountKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history for %s: %w", accountKey, err)
	}
	defer rows.Close()

	return scanBalanceHistories(rows)
}

// GetByDateRange returns balance history within a date range, oldest first
func (r *balanceHistoryRepository) GetByDateRange(ctx context.Context, accountKey string, from, to time.Time) ([]*entities.BalanceHistory, error) {
	query := `
		SELECT id, account_key, currency, balance_before, balance_after,
			change_amount, transaction_type, transaction_metadata, related_id, related_type, created_at
		FROM balance_history
		WHERE account_key = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC, id ASC`

	rows, err := r.q.Query(ctx, query, accountKey, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance history for %s: %w", accountKey, err)
	}
	defer rows.Close()

	return scanBalanceHistories(rows)
}

func scanBalanceHistories(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]*entities.BalanceHistory, error) {
	var histories []*entities.BalanceHistory
	for rows.Next() {
		var history entities.BalanceHistory
		var metadata []byte
		err := rows.Scan(
			&history.ID,
			&history.AccountKey,
			&history.Currency,
			&history.BalanceBefore,
			&history.BalanceAfter,
			&history.ChangeAmount,
			&history.TransactionType,
			&metadata,
			&history.RelatedID,
			&history.RelatedType,
			&history.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance history: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &history.TransactionMetadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal transaction metadata: %w", err)
			}
		}
		histories = append(histories, &history)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate balance history: %w", err)
	}
	return histories, nil
}

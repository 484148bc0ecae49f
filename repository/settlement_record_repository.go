package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"prospector/database"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
)

const settlementColumns = `id, request_id, account_key, amount, status,
			external_tx_id, failure_reason, created_at, completed_at`

// settlementRecordRepository implements interfaces.SettlementRecordRepository
type settlementRecordRepository struct {
	q Queryable
}

// NewSettlementRecordRepository creates a new settlement record repository
func NewSettlementRecordRepository(db *database.DB) interfaces.SettlementRecordRepository {
	return &settlementRecordRepository{q: db.Pool}
}

// newSettlementRecordRepository creates a repository bound to a transaction
func newSettlementRecordRepository(tx Queryable) interfaces.SettlementRecordRepository {
	return &settlementRecordRepository{q: tx}
}

func scanSettlementRecord(row pgx.Row) (*entities.SettlementRecord, error) {
	var record entities.SettlementRecord
	err := row.Scan(
		&record.ID,
		&record.RequestID,
		&record.AccountKey,
		&record.Amount,
		&record.Status,
		&record.ExternalTxID,
		&record.FailureReason,
		&record.CreatedAt,
		&record.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Create inserts a settlement record. The request id uniqueness
// constraint de-duplicates client retries.
func (r *settlementRecordRepository) Create(ctx context.Context, record *entities.SettlementRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("invalid settlement record: %w", err)
	}

	query := `
		INSERT INTO settlement_records (request_id, account_key, amount, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := r.q.QueryRow(ctx, query,
		record.RequestID,
		record.AccountKey,
		record.Amount,
		record.Status,
	).Scan(&record.ID, &record.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "settlement_records_request_id_unique") {
			return fmt.Errorf("request %s: %w", record.RequestID, domain.ErrDuplicateRequest)
		}
		return fmt.Errorf("failed to create settlement record: %w", err)
	}
	return nil
}

// GetByRequestID retrieves a record by its request id, nil if absent
func (r *settlementRecordRepository) GetByRequestID(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM settlement_records WHERE request_id = $1`, settlementColumns)

	record, err := scanSettlementRecord(r.q.QueryRow(ctx, query, requestID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement record %s: %w", requestID, err)
	}
	return record, nil
}

// GetByRequestIDForUpdate retrieves a record and locks its row
func (r *settlementRecordRepository) GetByRequestIDForUpdate(ctx context.Context, requestID uuid.UUID) (*entities.SettlementRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM settlement_records WHERE request_id = $1 FOR UPDATE`, settlementColumns)

	record, err := scanSettlementRecord(r.q.QueryRow(ctx, query, requestID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock settlement record %s: %w", requestID, err)
	}
	return record, nil
}

// Update persists the record's status fields
func (r *settlementRecordRepository) Update(ctx context.Context, record *entities.SettlementRecord) error {
	query := `
		UPDATE settlement_records
		SET status = $1, external_tx_id = $2, failure_reason = $3, completed_at = $4
		WHERE request_id = $5`

	tag, err := r.q.Exec(ctx, query,
		record.Status,
		record.ExternalTxID,
		record.FailureReason,
		record.CompletedAt,
		record.RequestID,
	)
	if err != nil {
		return fmt.Errorf("failed to update settlement record %s: %w", record.RequestID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("settlement record %s not found", record.RequestID)
	}
	return nil
}

// GetTotalSettledSince returns the sum of non-failed settlement amounts
// for an account since the given time. Pending records count against
// the window; failed ones were refunded and do not.
func (r *settlementRecordRepository) GetTotalSettledSince(ctx context.Context, accountKey string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM settlement_records
		WHERE account_key = $1 AND created_at >= $2 AND status != 'failed'`

	var total int64
	if err := r.q.QueryRow(ctx, query, accountKey, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum settlements for %s: %w", accountKey, err)
	}
	return total, nil
}

// ListPendingOlderThan returns pending records created before the given
// cutoff, oldest first
func (r *settlementRecordRepository) ListPendingOlderThan(ctx context.Context, cutoff time.Time) ([]*entities.SettlementRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM settlement_records
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC`, settlementColumns)

	rows, err := r.q.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending settlements: %w", err)
	}
	defer rows.Close()

	var records []*entities.SettlementRecord
	for rows.Next() {
		var record entities.SettlementRecord
		err := rows.Scan(
			&record.ID,
			&record.RequestID,
			&record.AccountKey,
			&record.Amount,
			&record.Status,
			&record.ExternalTxID,
			&record.FailureReason,
			&record.CreatedAt,
			&record.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settlement record: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlement records: %w", err)
	}
	return records, nil
}

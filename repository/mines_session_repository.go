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

const minesSessionColumns = `id, account_key, stake, board_size, hazard_count,
			hazard_cells, revealed_cells, multiplier, status, created_at, resolved_at`

// minesSessionRepository implements interfaces.MinesSessionRepository
type minesSessionRepository struct {
	q Queryable
}

// NewMinesSessionRepository creates a new mines session repository
func NewMinesSessionRepository(db *database.DB) interfaces.MinesSessionRepository {
	return &minesSessionRepository{q: db.Pool}
}

// newMinesSessionRepository creates a repository bound to a transaction
func newMinesSessionRepository(tx Queryable) interfaces.MinesSessionRepository {
	return &minesSessionRepository{q: tx}
}

func scanMinesSession(row pgx.Row) (*entities.MinesSession, error) {
	var session entities.MinesSession
	err := row.Scan(
		&session.ID,
		&session.AccountKey,
		&session.Stake,
		&session.BoardSize,
		&session.HazardCount,
		&session.HazardCells,
		&session.RevealedCells,
		&session.Multiplier,
		&session.Status,
		&session.CreatedAt,
		&session.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Create creates a new mines session
func (r *minesSessionRepository) Create(ctx context.Context, session *entities.MinesSession) error {
	query := `
		INSERT INTO mines_sessions (id, account_key, stake, board_size, hazard_count,
			hazard_cells, revealed_cells, multiplier, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := r.q.QueryRow(ctx, query,
		session.ID,
		session.AccountKey,
		session.Stake,
		session.BoardSize,
		session.HazardCount,
		session.HazardCells,
		session.RevealedCells,
		session.Multiplier,
		session.Status,
	).Scan(&session.CreatedAt)

	if err != nil {
		if isUniqueViolation(err, "idx_mines_sessions_one_active") {
			return fmt.Errorf("account %s: %w", session.AccountKey, domain.ErrSessionConflict)
		}
		return fmt.Errorf("failed to create mines session: %w", err)
	}
	return nil
}

// GetByID retrieves a session by its token, nil if absent
func (r *minesSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM mines_sessions WHERE id = $1`, minesSessionColumns)

	session, err := scanMinesSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mines session %s: %w", id, err)
	}
	return session, nil
}

// GetByIDForUpdate retrieves a session and locks its row
func (r *minesSessionRepository) GetByIDForUpdate(ctx context.Context, id uuid.UUID) (*entities.MinesSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM mines_sessions WHERE id = $1 FOR UPDATE`, minesSessionColumns)

	session, err := scanMinesSession(r.q.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock mines session %s: %w", id, err)
	}
	return session, nil
}

// GetActiveByAccount returns the account's active session, nil if none
func (r *minesSessionRepository) GetActiveByAccount(ctx context.Context, accountKey string) (*entities.MinesSession, error) {
	query := fmt.Sprintf(`SELECT %s FROM mines_sessions WHERE account_key = $1 AND status = 'active'`, minesSessionColumns)

	session, err := scanMinesSession(r.q.QueryRow(ctx, query, accountKey))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active session for %s: %w", accountKey, err)
	}
	return session, nil
}

// Update persists the session's mutable fields. The write is
// conditional on the stored row still being active, so the first
// terminal transition wins and any concurrent second attempt fails.
func (r *minesSessionRepository) Update(ctx context.Context, session *entities.MinesSession) error {
	query := `
		UPDATE mines_sessions
		SET revealed_cells = $1, multiplier = $2, status = $3, resolved_at = $4
		WHERE id = $5 AND status = 'active'`

	tag, err := r.q.Exec(ctx, query,
		session.RevealedCells,
		session.Multiplier,
		session.Status,
		session.ResolvedAt,
		session.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update mines session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s already resolved: %w", session.ID, domain.ErrInvalidTransition)
	}
	return nil
}

// GetTotalStakedSince returns the sum of stakes the account has placed
// since the given time, regardless of session outcome
func (r *minesSessionRepository) GetTotalStakedSince(ctx context.Context, accountKey string, since time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(stake), 0)
		FROM mines_sessions
		WHERE account_key = $1 AND created_at >= $2`

	var total int64
	if err := r.q.QueryRow(ctx, query, accountKey, since).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum stakes for %s: %w", accountKey, err)
	}
	return total, nil
}

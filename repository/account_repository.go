package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"prospector/database"
	"prospector/domain"
	"prospector/domain/entities"
	"prospector/domain/interfaces"
)

const accountColumns = `account_key, gold_balance, gem_balance, token_balance,
			accrual_rate, upgrade_level, digging, last_tick_at, created_at, updated_at`

// accountRepository implements interfaces.AccountRepository
type accountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) interfaces.AccountRepository {
	return &accountRepository{q: db.Pool}
}

// newAccountRepository creates a repository bound to a transaction
func newAccountRepository(tx Queryable) interfaces.AccountRepository {
	return &accountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
		&account.AccountKey,
		&account.GoldBalance,
		&account.GemBalance,
		&account.TokenBalance,
		&account.AccrualRate,
		&account.UpgradeLevel,
		&account.Digging,
		&account.LastTickAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByKey retrieves an account by its key, nil if absent
func (r *accountRepository) GetByKey(ctx context.Context, accountKey string) (*entities.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE account_key = $1`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, accountKey))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %s: %w", accountKey, err)
	}
	return account, nil
}

// GetByKeyForUpdate retrieves an account and locks its row. Concurrent
// callers on the same key serialize here; this is what linearizes all
// mutations of a single account.
func (r *accountRepository) GetByKeyForUpdate(ctx context.Context, accountKey string) (*entities.Account, error) {
	query := fmt.Sprintf(`SELECT %s FROM accounts WHERE account_key = $1 FOR UPDATE`, accountColumns)

	account, err := scanAccount(r.q.QueryRow(ctx, query, accountKey))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %s: %w", accountKey, err)
	}
	return account, nil
}

// UpsertDefault atomically creates a zero-balance account if the key is
// absent and returns the stored row either way
func (r *accountRepository) UpsertDefault(ctx context.Context, accountKey string) (*entities.Account, bool, error) {
	insert := `
		INSERT INTO accounts (account_key)
		VALUES ($1)
		ON CONFLICT (account_key) DO NOTHING`

	tag, err := r.q.Exec(ctx, insert, accountKey)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert account %s: %w", accountKey, err)
	}
	created := tag.RowsAffected() > 0

	account, err := r.GetByKey(ctx, accountKey)
	if err != nil {
		return nil, false, err
	}
	if account == nil {
		return nil, false, fmt.Errorf("account %s missing after upsert", accountKey)
	}
	return account, created, nil
}

// Update persists the account's mutable fields. The entity is validated
// first; an invalid mutation never reaches the store, and the schema's
// CHECK constraints back the same invariants up.
func (r *accountRepository) Update(ctx context.Context, account *entities.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrInvalidBalance)
	}

	query := `
		UPDATE accounts
		SET gold_balance = $1, gem_balance = $2, token_balance = $3,
			accrual_rate = $4, upgrade_level = $5, digging = $6,
			last_tick_at = $7, updated_at = NOW()
		WHERE account_key = $8`

	tag, err := r.q.Exec(ctx, query,
		account.GoldBalance,
		account.GemBalance,
		account.TokenBalance,
		account.AccrualRate,
		account.UpgradeLevel,
		account.Digging,
		account.LastTickAt,
		account.AccountKey,
	)
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", account.AccountKey, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", account.AccountKey, domain.ErrAccountNotFound)
	}
	return nil
}

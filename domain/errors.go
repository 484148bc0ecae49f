package domain

import "errors"

// Sentinel errors returned by the economy core. Callers classify
// failures with errors.Is; lower layers wrap these with context.
var (
	// ErrAccountNotFound indicates the account key has no ledger entry.
	ErrAccountNotFound = errors.New("account not found")

	// ErrSessionNotFound indicates the mines session token is unknown.
	ErrSessionNotFound = errors.New("mines session not found")

	// ErrInsufficientFunds indicates a debit exceeds the relevant balance.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrInvalidInput indicates a caller-supplied value is out of range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates an operation on a session or record
	// whose current status does not permit it.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrAlreadyRevealed indicates the cell was revealed earlier in the session.
	ErrAlreadyRevealed = errors.New("cell already revealed")

	// ErrSessionConflict indicates the account already has an active mines session.
	ErrSessionConflict = errors.New("account already has an active session")

	// ErrInvalidBalance indicates a mutation would leave a numeric field
	// negative; the store is left unchanged.
	ErrInvalidBalance = errors.New("mutation would produce an invalid balance")

	// ErrRateLimited indicates a per-day cap (stakes or settlements) is exhausted.
	ErrRateLimited = errors.New("daily limit exceeded")

	// ErrAlreadyAwarded indicates the account already holds an award row
	// for the day bucket.
	ErrAlreadyAwarded = errors.New("account already awarded for this day")

	// ErrDuplicateRequest indicates the settlement request id was already used.
	ErrDuplicateRequest = errors.New("duplicate settlement request")

	// ErrSettlementFailed indicates the settlement service rejected the
	// transfer; the debit has been compensated.
	ErrSettlementFailed = errors.New("settlement failed")

	// ErrReconciliationRequired indicates a settlement outcome is unknown
	// (pending record, no external transaction id) and needs operator review.
	ErrReconciliationRequired = errors.New("settlement requires reconciliation")

	// ErrSettlementUnavailable indicates the settlement service could not
	// be reached at all.
	ErrSettlementUnavailable = errors.New("settlement service unavailable")
)

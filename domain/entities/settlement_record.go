package entities

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// SettlementStatus represents the lifecycle state of a settlement request
type SettlementStatus string

const (
	// SettlementStatusPending means tokens are debited and the external
	// transfer is in flight (or its outcome was never recorded).
	SettlementStatusPending SettlementStatus = "pending"
	// SettlementStatusConfirmed means the external service accepted the
	// transfer and returned a transaction id.
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	// SettlementStatusFailed means the transfer failed and the debit was
	// credited back.
	SettlementStatusFailed SettlementStatus = "failed"
)

// SettlementRecord tracks one token cash-out through the optimistic
// debit protocol. The client-supplied request id is unique in the
// store and de-duplicates retries.
type SettlementRecord struct {
	ID            int64            `db:"id"`
	RequestID     uuid.UUID        `db:"request_id"`
	AccountKey    string           `db:"account_key"`
	Amount        int64            `db:"amount"`
	Status        SettlementStatus `db:"status"`
	ExternalTxID  *string          `db:"external_tx_id"` // NULL until confirmed
	FailureReason *string          `db:"failure_reason"` // NULL unless failed
	CreatedAt     time.Time        `db:"created_at"`
	CompletedAt   *time.Time       `db:"completed_at"` // NULL while pending
}

// Validate performs basic validation on the settlement record
func (r *SettlementRecord) Validate() error {
	if r.RequestID == uuid.Nil {
		return errors.New("request id is required")
	}
	if r.AccountKey == "" {
		return errors.New("account key is required")
	}
	if r.Amount < 1 {
		return errors.New("settlement amount must be at least 1")
	}
	return nil
}

// IsPending returns true if the record's outcome has not been written
func (r *SettlementRecord) IsPending() bool {
	return r.Status == SettlementStatusPending
}

// IsConfirmed returns true if the external transfer succeeded
func (r *SettlementRecord) IsConfirmed() bool {
	return r.Status == SettlementStatusConfirmed
}

// IsFailed returns true if the transfer failed and the debit was refunded
func (r *SettlementRecord) IsFailed() bool {
	return r.Status == SettlementStatusFailed
}

// Confirm marks the record confirmed with the external transaction id
func (r *SettlementRecord) Confirm(externalTxID string, now time.Time) {
	r.Status = SettlementStatusConfirmed
	r.ExternalTxID = &externalTxID
	t := now
	r.CompletedAt = &t
}

// Fail marks the record failed with the given reason
func (r *SettlementRecord) Fail(reason string, now time.Time) {
	r.Status = SettlementStatusFailed
	r.FailureReason = &reason
	t := now
	r.CompletedAt = &t
}

// RequiresReconciliation returns true if the record has been pending
// longer than the given threshold. Such records were debited but their
// external outcome was never recorded.
func (r *SettlementRecord) RequiresReconciliation(threshold time.Duration, now time.Time) bool {
	return r.IsPending() && now.Sub(r.CreatedAt) > threshold
}

package entities

import (
	"errors"
	"time"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeMinesSession RelatedType = "mines_session"
	RelatedTypeContribution RelatedType = "contribution"
	RelatedTypeRewardAward  RelatedType = "reward_award"
	RelatedTypeSettlement   RelatedType = "settlement"
)

// BalanceHistory represents a historical balance change on one currency
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	AccountKey          string          `db:"account_key"`
	Currency            Currency        `db:"currency"`
	BalanceBefore       int64           `db:"balance_before"`
	BalanceAfter        int64           `db:"balance_after"`
	ChangeAmount        int64           `db:"change_amount"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           *string         `db:"related_id"`
	RelatedType         *RelatedType    `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}

// IsPositiveChange returns true if the change amount is positive
func (bh *BalanceHistory) IsPositiveChange() bool {
	return bh.ChangeAmount > 0
}

// IsNegativeChange returns true if the change amount is negative
func (bh *BalanceHistory) IsNegativeChange() bool {
	return bh.ChangeAmount < 0
}

// ValidateTransaction performs basic validation on the transaction
func (bh *BalanceHistory) ValidateTransaction() error {
	if bh.ChangeAmount == 0 {
		return errors.New("change amount cannot be zero")
	}
	if bh.BalanceAfter != bh.BalanceBefore+bh.ChangeAmount {
		return errors.New("balance calculation is inconsistent")
	}
	return nil
}

// GetTransactionDescription returns a human-readable description of the transaction
func (bh *BalanceHistory) GetTransactionDescription() string {
	switch bh.TransactionType {
	case TransactionTypeAccrual:
		return "Idle accrual"
	case TransactionTypeUpgradeCost:
		return "Upgrade purchase"
	case TransactionTypeMinesStake:
		return "Mines stake"
	case TransactionTypeMinesPayout:
		return "Mines payout"
	case TransactionTypePoolContribution:
		return "Pool contribution"
	case TransactionTypePoolReward:
		return "Pool reward"
	case TransactionTypeConvertOut:
		return "Gems converted"
	case TransactionTypeConvertIn:
		return "Tokens received"
	case TransactionTypeSettlementDebit:
		return "Settlement debit"
	case TransactionTypeSettlementRefund:
		return "Settlement refund"
	case TransactionTypeInitial:
		return "Account created"
	default:
		return string(bh.TransactionType)
	}
}

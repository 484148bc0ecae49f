package entities

// Currency identifies which balance a transaction touched
type Currency string

const (
	CurrencyGold   Currency = "gold"
	CurrencyGems   Currency = "gems"
	CurrencyTokens Currency = "tokens"
)

// String returns the string representation of the currency
func (c Currency) String() string {
	return string(c)
}

// TransactionType represents the type of balance change
type TransactionType string

// All transaction types supported by the system
const (
	// Accrual and progression transactions
	TransactionTypeAccrual     TransactionType = "accrual"
	TransactionTypeUpgradeCost TransactionType = "upgrade_cost"

	// Mines game transactions
	TransactionTypeMinesStake  TransactionType = "mines_stake"
	TransactionTypeMinesPayout TransactionType = "mines_payout"

	// Reward pool transactions
	TransactionTypePoolContribution TransactionType = "pool_contribution"
	TransactionTypePoolReward       TransactionType = "pool_reward"

	// Conversion transactions
	TransactionTypeConvertOut TransactionType = "convert_out"
	TransactionTypeConvertIn  TransactionType = "convert_in"

	// Settlement transactions
	TransactionTypeSettlementDebit  TransactionType = "settlement_debit"
	TransactionTypeSettlementRefund TransactionType = "settlement_refund"

	// System transactions
	TransactionTypeInitial TransactionType = "initial"
)

// IsCreditType returns true if the transaction type normally increases a balance
func (tt TransactionType) IsCreditType() bool {
	return tt == TransactionTypeAccrual ||
		tt == TransactionTypeMinesPayout ||
		tt == TransactionTypePoolReward ||
		tt == TransactionTypeConvertIn ||
		tt == TransactionTypeSettlementRefund
}

// IsDebitType returns true if the transaction type normally decreases a balance
func (tt TransactionType) IsDebitType() bool {
	return tt == TransactionTypeUpgradeCost ||
		tt == TransactionTypeMinesStake ||
		tt == TransactionTypePoolContribution ||
		tt == TransactionTypeConvertOut ||
		tt == TransactionTypeSettlementDebit
}

// IsMinesRelated returns true if the transaction type belongs to the mines game
func (tt TransactionType) IsMinesRelated() bool {
	return tt == TransactionTypeMinesStake || tt == TransactionTypeMinesPayout
}

// IsSettlementRelated returns true if the transaction type belongs to the settlement bridge
func (tt TransactionType) IsSettlementRelated() bool {
	return tt == TransactionTypeSettlementDebit || tt == TransactionTypeSettlementRefund
}

// String returns the string representation of the transaction type
func (tt TransactionType) String() string {
	return string(tt)
}

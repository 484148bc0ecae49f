package events

import "prospector/domain/entities"

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange      EventType = "balance_change"
	EventTypeAccountCreated     EventType = "account_created"
	EventTypeMinesResolved      EventType = "mines_resolved"
	EventTypePoolDistributed    EventType = "pool_distributed"
	EventTypeSettlementResolved EventType = "settlement_resolved"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	AccountKey      string
	Currency        entities.Currency
	OldBalance      int64
	NewBalance      int64
	ChangeAmount    int64
	TransactionType entities.TransactionType
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// AccountCreatedEvent represents a new account creation
type AccountCreatedEvent struct {
	AccountKey string
}

func (e AccountCreatedEvent) Type() EventType {
	return EventTypeAccountCreated
}

// MinesResolvedEvent represents a mines session reaching a terminal state
type MinesResolvedEvent struct {
	SessionID  string
	AccountKey string
	Stake      int64
	Won        bool
	Multiplier string // decimal string of the final multiplier
	Payout     int64  // zero on loss
}

func (e MinesResolvedEvent) Type() EventType {
	return EventTypeMinesResolved
}

// PoolDistributedEvent represents one day's reward pool being settled
type PoolDistributedEvent struct {
	Day              string // UTC day, RFC 3339 date
	PoolSize         int64
	TotalContributed int64
	Awarded          int
	AwardedTotal     int64
}

func (e PoolDistributedEvent) Type() EventType {
	return EventTypePoolDistributed
}

// SettlementResolvedEvent represents a settlement reaching a terminal state
type SettlementResolvedEvent struct {
	RequestID    string
	AccountKey   string
	Amount       int64
	Status       string
	ExternalTxID string // empty unless confirmed
}

func (e SettlementResolvedEvent) Type() EventType {
	return EventTypeSettlementResolved
}

package infrastructure

import (
	"fmt"

	"prospector/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	switch event.Type() {
	case events.EventTypeBalanceChange:
		return "prospector.accounts.balance_changed"
	case events.EventTypeAccountCreated:
		return "prospector.accounts.created"
	case events.EventTypeMinesResolved:
		return "prospector.mines.resolved"
	case events.EventTypePoolDistributed:
		return "prospector.pool.distributed"
	case events.EventTypeSettlementResolved:
		return "prospector.settlements.resolved"
	default:
		// Fallback for unknown event types
		return fmt.Sprintf("prospector.unknown.%s", event.Type())
	}
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	switch subject {
	case "prospector.accounts.balance_changed":
		return events.EventTypeBalanceChange
	case "prospector.accounts.created":
		return events.EventTypeAccountCreated
	case "prospector.mines.resolved":
		return events.EventTypeMinesResolved
	case "prospector.pool.distributed":
		return events.EventTypePoolDistributed
	case "prospector.settlements.resolved":
		return events.EventTypeSettlementResolved
	default:
		return events.EventType(subject)
	}
}

// GetAllSubjects returns every subject the mapper can produce
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{
		"prospector.accounts.balance_changed",
		"prospector.accounts.created",
		"prospector.mines.resolved",
		"prospector.pool.distributed",
		"prospector.settlements.resolved",
	}
}

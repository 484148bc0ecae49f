package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"prospector/domain/events"
)

func TestMapEventToSubject(t *testing.T) {
	mapper := NewEventSubjectMapper()

	tests := []struct {
		event   events.Event
		subject string
	}{
		{events.BalanceChangeEvent{}, "prospector.accounts.balance_changed"},
		{events.AccountCreatedEvent{}, "prospector.accounts.created"},
		{events.MinesResolvedEvent{}, "prospector.mines.resolved"},
		{events.PoolDistributedEvent{}, "prospector.pool.distributed"},
		{events.SettlementResolvedEvent{}, "prospector.settlements.resolved"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.subject, mapper.MapEventToSubject(tt.event))
	}
}

func TestMapSubjectToEventType_RoundTrip(t *testing.T) {
	mapper := NewEventSubjectMapper()

	event := events.MinesResolvedEvent{}
	subject := mapper.MapEventToSubject(event)

	assert.Equal(t, event.Type(), mapper.MapSubjectToEventType(subject))
}

func TestGetAllSubjects_CoversEveryMapping(t *testing.T) {
	mapper := NewEventSubjectMapper()

	subjects := mapper.GetAllSubjects()
	assert.Len(t, subjects, 5)

	seen := make(map[string]bool)
	for _, s := range subjects {
		assert.False(t, seen[s], "duplicate subject %s", s)
		seen[s] = true
	}

	for _, e := range []events.Event{
		events.BalanceChangeEvent{},
		events.AccountCreatedEvent{},
		events.MinesResolvedEvent{},
		events.PoolDistributedEvent{},
		events.SettlementResolvedEvent{},
	} {
		assert.True(t, seen[mapper.MapEventToSubject(e)])
	}
}

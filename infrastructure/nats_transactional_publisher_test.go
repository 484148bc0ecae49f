package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prospector/domain/events"
	"prospector/domain/interfaces"
)

type capturingPublisher struct {
	published []events.Event
	failOn    events.EventType
}

func (c *capturingPublisher) Publish(event events.Event) error {
	if c.failOn != "" && event.Type() == c.failOn {
		return errors.New("publish failed")
	}
	c.published = append(c.published, event)
	return nil
}

var _ interfaces.EventPublisher = (*capturingPublisher)(nil)

func TestTransactionalPublisher_FlushPublishesInOrder(t *testing.T) {
	real := &capturingPublisher{}
	publisher := NewNATSTransactionalPublisher(real)

	require.NoError(t, publisher.Publish(events.AccountCreatedEvent{AccountKey: "alice"}))
	require.NoError(t, publisher.Publish(events.BalanceChangeEvent{AccountKey: "alice"}))

	// Nothing reaches the real publisher until flush
	assert.Empty(t, real.published)

	require.NoError(t, publisher.Flush(context.Background()))
	require.Len(t, real.published, 2)
	assert.Equal(t, events.EventTypeAccountCreated, real.published[0].Type())
	assert.Equal(t, events.EventTypeBalanceChange, real.published[1].Type())

	// Flush drains the queue
	require.NoError(t, publisher.Flush(context.Background()))
	assert.Len(t, real.published, 2)
}

func TestTransactionalPublisher_DiscardDropsPending(t *testing.T) {
	real := &capturingPublisher{}
	publisher := NewNATSTransactionalPublisher(real)

	require.NoError(t, publisher.Publish(events.AccountCreatedEvent{AccountKey: "alice"}))
	publisher.Discard()

	require.NoError(t, publisher.Flush(context.Background()))
	assert.Empty(t, real.published)
}

func TestTransactionalPublisher_FlushContinuesPastFailures(t *testing.T) {
	real := &capturingPublisher{failOn: events.EventTypeAccountCreated}
	publisher := NewNATSTransactionalPublisher(real)

	require.NoError(t, publisher.Publish(events.AccountCreatedEvent{AccountKey: "alice"}))
	require.NoError(t, publisher.Publish(events.BalanceChangeEvent{AccountKey: "alice"}))

	require.NoError(t, publisher.Flush(context.Background()))

	// The failed event is dropped, the rest still go out
	require.Len(t, real.published, 1)
	assert.Equal(t, events.EventTypeBalanceChange, real.published[0].Type())
}

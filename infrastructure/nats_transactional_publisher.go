package infrastructure

import (
	"context"

	log "github.com/sirupsen/logrus"

	"prospector/application"
	"prospector/domain/events"
	"prospector/domain/interfaces"
)

// NATSTransactionalPublisher holds events until flush, then publishes
// them through the real publisher. Pending events track a unit of work:
// commit flushes them, rollback discards them.
type NATSTransactionalPublisher struct {
	realPublisher interfaces.EventPublisher
	pending       []events.Event
}

// NewNATSTransactionalPublisher creates a new transactional publisher
func NewNATSTransactionalPublisher(realPublisher interfaces.EventPublisher) application.TransactionalEventPublisher {
	return &NATSTransactionalPublisher{
		realPublisher: realPublisher,
		pending:       make([]events.Event, 0),
	}
}

// Publish stores an event in the pending queue without immediately publishing
func (p *NATSTransactionalPublisher) Publish(event events.Event) error {
	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"pendingCount": len(p.pending),
	}).Debug("Queued event in transactional publisher")

	p.pending = append(p.pending, event)
	return nil
}

// Flush publishes all pending events; called after a successful commit
func (p *NATSTransactionalPublisher) Flush(ctx context.Context) error {
	for _, event := range p.pending {
		if err := p.realPublisher.Publish(event); err != nil {
			// Partial failure must not block the remaining events
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to publish event during flush")
		}
	}

	p.pending = p.pending[:0]
	return nil
}

// Discard clears all pending events without publishing them; called on rollback
func (p *NATSTransactionalPublisher) Discard() {
	if len(p.pending) > 0 {
		log.WithField("discardedEventCount", len(p.pending)).Debug("Discarded pending events")
	}
	p.pending = p.pending[:0]
}

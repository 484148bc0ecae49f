package infrastructure

import (
	"prospector/application"
	"prospector/database"
	"prospector/domain/interfaces"
	"prospector/repository"
)

// NewUnitOfWorkFactory creates a unit of work factory whose units queue
// events transactionally against the given publisher. Each unit of work
// gets a fresh transactional publisher so concurrent transactions never
// share a pending queue.
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) application.UnitOfWorkFactory {
	return repository.NewUnitOfWorkFactory(db, func() application.TransactionalEventPublisher {
		return NewNATSTransactionalPublisher(eventPublisher)
	})
}

package utils

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"prospector/domain/entities"
	"prospector/domain/events"
	"prospector/domain/interfaces"
)

// RecordBalanceChange records a balance history entry and emits appropriate events.
// This is the single entry point for all balance changes in the system.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) error {
	// Record the balance history
	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	// Emit balance change event
	event := events.BalanceChangeEvent{
		AccountKey:      history.AccountKey,
		Currency:        history.Currency,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	}
	log.WithFields(log.Fields{
		"accountKey":      event.AccountKey,
		"currency":        event.Currency,
		"oldBalance":      event.OldBalance,
		"newBalance":      event.NewBalance,
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount,
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	// Also emit account created event for initial entries
	if history.TransactionType == entities.TransactionTypeInitial {
		accountCreatedEvent := events.AccountCreatedEvent{
			AccountKey: history.AccountKey,
		}
		if err := eventPublisher.Publish(accountCreatedEvent); err != nil {
			log.WithError(err).Error("Failed to publish account created event")
		}
	}

	return nil
}

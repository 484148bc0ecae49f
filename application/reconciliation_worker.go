package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"prospector/infrastructure/metrics"
)

// ReconciliationWorker periodically surfaces settlements whose external
// outcome was never recorded. It does not resolve them: a pending record
// past the reconciliation age means the external service's state is
// unknown, and resolving it takes an operator checking the provider side.
type ReconciliationWorker struct {
	core *Core
}

// NewReconciliationWorker creates a new reconciliation worker
func NewReconciliationWorker(core *Core) *ReconciliationWorker {
	return &ReconciliationWorker{core: core}
}

// Start begins the reconciliation worker
func (w *ReconciliationWorker) Start(ctx context.Context, interval time.Duration) func() {
	stopChan := make(chan struct{})

	check := func() {
		records, err := w.core.ListReconciliationRequired(ctx)
		if err != nil {
			log.Errorf("Error listing settlements needing reconciliation: %v", err)
			return
		}

		metrics.PendingSettlements.Set(float64(len(records)))

		for _, record := range records {
			log.WithFields(log.Fields{
				"requestID":  record.RequestID.String(),
				"accountKey": record.AccountKey,
				"amount":     record.Amount,
				"age":        time.Since(record.CreatedAt).Round(time.Second).String(),
			}).Warn("Settlement outcome unknown, operator reconciliation required")
		}
	}

	go func() {
		log.Infof("Reconciliation worker started, checking every %v", interval)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Info("Reconciliation worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Reconciliation worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				check()
			}
		}
	}()

	// Return cleanup function
	return func() {
		close(stopChan)
	}
}

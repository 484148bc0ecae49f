package application

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// PoolSweepWorker settles outstanding pool days on a daily schedule.
// Distribution is idempotent per account and day, so a sweep that
// overlaps a lazy distribution triggered by a status read is harmless.
type PoolSweepWorker struct {
	core *Core
}

// NewPoolSweepWorker creates a new pool sweep worker
func NewPoolSweepWorker(core *Core) *PoolSweepWorker {
	return &PoolSweepWorker{core: core}
}

// Start begins the pool sweep worker
func (w *PoolSweepWorker) Start(ctx context.Context, sweepHour int) func() {
	stopChan := make(chan struct{})

	// Calculate time until the next sweep
	calculateNextRun := func() time.Duration {
		now := time.Now().UTC()
		next := time.Date(now.Year(), now.Month(), now.Day(), sweepHour, 0, 0, 0, time.UTC)

		// If the sweep time has already passed today, schedule for tomorrow
		if now.After(next) || now.Equal(next) {
			next = next.Add(24 * time.Hour)
		}

		return next.Sub(now)
	}

	sweep := func() {
		log.Info("Sweeping outstanding pool days")

		if err := w.core.DistributeOutstanding(ctx); err != nil {
			log.Errorf("Error sweeping outstanding pool days: %v", err)
		}
	}

	go func() {
		log.Infof("Pool sweep worker started, next run at %02d:00 UTC", sweepHour)

		for {
			waitDuration := calculateNextRun()
			log.Infof("Pool sweep worker waiting %v until next run", waitDuration)

			select {
			case <-ctx.Done():
				log.Info("Pool sweep worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Pool sweep worker shutting down (stop requested)...")
				return
			case <-time.After(waitDuration):
				sweep()
			}
		}
	}()

	// Return cleanup function
	return func() {
		close(stopChan)
	}
}

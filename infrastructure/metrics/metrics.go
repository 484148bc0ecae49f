// Package metrics exposes prometheus collectors for the economy core.
// Collectors are package-level and registered with the default
// registry; cmd serves them over promhttp on the ops address.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AccruedGold counts gold credited by the idle accrual engine
	AccruedGold = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_accrued_gold_total",
		Help: "Total gold credited by idle accrual ticks.",
	})

	// MinesSessions counts resolved mines sessions by outcome
	MinesSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prospector_mines_sessions_total",
		Help: "Mines sessions resolved, by outcome.",
	}, []string{"outcome"})

	// PoolAwards counts reward pool awards written
	PoolAwards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_pool_awards_total",
		Help: "Reward pool award rows written.",
	})

	// PoolAwardedGems counts gems credited by pool distribution
	PoolAwardedGems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prospector_pool_awarded_gems_total",
		Help: "Total gems credited by pool distribution.",
	})

	// Settlements counts settlement attempts by terminal status
	Settlements = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "prospector_settlements_total",
		Help: "Settlement cash-outs, by terminal status.",
	}, []string{"status"})

	// PendingSettlements tracks settlements older than the
	// reconciliation threshold awaiting operator review
	PendingSettlements = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prospector_settlements_pending_reconciliation",
		Help: "Pending settlement records older than the reconciliation threshold.",
	})
)

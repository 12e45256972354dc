package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	XPAwarded        prometheus.Counter
	LevelUps         prometheus.Counter
	RankUps          prometheus.Counter
	Materialized     prometheus.Counter
	ProfileConflicts prometheus.Counter
}

// NewMetrics builds the engine counters and registers them on reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		XPAwarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "arise",
			Name:      "xp_awarded_total",
			Help:      "XP awarded for completed tasks.",
		}),
		LevelUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "arise",
			Name:      "level_ups_total",
			Help:      "Levels gained.",
		}),
		RankUps: f.NewCounter(prometheus.CounterOpts{
			Namespace: "arise",
			Name:      "rank_ups_total",
			Help:      "Rank steps gained.",
		}),
		Materialized: f.NewCounter(prometheus.CounterOpts{
			Namespace: "arise",
			Name:      "tasks_materialized_total",
			Help:      "Recurring task instances spawned.",
		}),
		ProfileConflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "arise",
			Name:      "profile_conflicts_total",
			Help:      "Profile compare-and-swap writes that lost a race and were retried.",
		}),
	}
}

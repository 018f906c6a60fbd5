package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RefreshCycles counts refresh cycle outcomes per asset class.
	RefreshCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_refresh_cycles_total",
			Help: "Price refresh cycles by asset class and outcome",
		},
		[]string{"asset", "outcome"},
	)

	// AlertsTriggered counts alerts flipped to triggered.
	AlertsTriggered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pricetracker_alerts_triggered_total",
			Help: "Alerts that transitioned to triggered",
		},
	)

	// Notifications counts dispatch attempts by channel and outcome.
	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_notifications_total",
			Help: "Notification deliveries by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)

	// CacheHits and CacheMisses count read-through cache lookups.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_cache_hits_total",
			Help: "Cache hits by key prefix",
		},
		[]string{"prefix"},
	)
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricetracker_cache_misses_total",
			Help: "Cache misses by key prefix",
		},
		[]string{"prefix"},
	)
)

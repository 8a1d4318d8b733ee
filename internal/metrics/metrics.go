package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rostercal",
		Subsystem: "feed",
		Name:      "requests_total",
	}, []string{"route", "code"})
	FeedDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rostercal",
		Subsystem: "feed",
		Name:      "request_duration_seconds",
	}, []string{"route"})
	FeedLoadErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rostercal",
		Subsystem: "feed",
		Name:      "load_errors_total",
	})
	RosterEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "rostercal",
		Subsystem: "roster",
		Name:      "events",
		Help:      "Events in the most recently loaded roster, before filtering.",
	})
)

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Total monitoring cycles, by outcome.",
	}, []string{"status"})

	SamplesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "monitor",
		Name:      "samples_total",
		Help:      "Price sampling attempts per chain, by outcome.",
	}, []string{"chain", "status"})

	IncreaseAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "monitor",
		Name:      "increase_alerts_total",
		Help:      "Operations notifications for hourly price increases.",
	}, []string{"chain"})

	TargetAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "monitor",
		Name:      "target_alerts_total",
		Help:      "User price-target alerts that matched and were consumed.",
	}, []string{"chain"})

	NotificationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "notify",
		Name:      "failures_total",
		Help:      "Email dispatch failures, by notification kind.",
	}, []string{"kind"})

	FeedRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pricewatcher",
		Subsystem: "feed",
		Name:      "request_duration_seconds",
		Help:      "Duration of price feed requests per provider.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"provider"})
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pricewatcher",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pricewatcher",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})
)

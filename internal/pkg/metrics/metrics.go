package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "namma_kumta"

var (
	// Transitions 生命周期事件，按事件和结果标签
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ad_transitions_total",
		Help:      "Advertisement lifecycle events by event and outcome.",
	}, []string{"event", "outcome"})

	PaymentCallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_callbacks_total",
		Help:      "Payment gateway callbacks by result.",
	}, []string{"result"})

	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_runs_total",
		Help:      "Expiry sweep runs by outcome.",
	}, []string{"outcome"})

	ExpiredAds = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ads_expired_total",
		Help:      "Advertisements moved to expired by the sweeper.",
	})

	MediaCleanup = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "media_cleanup_total",
		Help:      "Media objects removed after advertisement deletion, by outcome.",
	}, []string{"outcome"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections",
		Help:      "Open advertiser WebSocket connections.",
	})

	HTTPRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// 结果标签
const (
	OutcomeOK       = "ok"
	OutcomeNoop     = "noop"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
)

// Handler Prometheus 抓取端点
func Handler() http.Handler {
	return promhttp.Handler()
}

// Package metrics exposes prometheus collectors for forwarded calls and
// streaming sessions. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "hearth"

// Recorder groups the gateway's collectors.
type Recorder struct {
	forwardRequests *prometheus.CounterVec
	forwardDuration prometheus.Histogram
	streamSessions  *prometheus.CounterVec
	activeSessions  prometheus.Gauge
	streamDeltas    prometheus.Counter
	parseErrors     prometheus.Counter
}

// NewRecorder registers the collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		forwardRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forward_requests_total",
			Help:      "Upstream calls by kind (buffered or stream) and status class.",
		}, []string{"kind", "status_class"}),
		forwardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forward_duration_seconds",
			Help:      "Latency of buffered upstream calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		streamSessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_sessions_total",
			Help:      "Streaming sessions by terminal state.",
		}, []string{"outcome"}),
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_sessions_active",
			Help:      "Streaming sessions currently reading from an upstream.",
		}),
		streamDeltas: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_deltas_total",
			Help:      "Chat deltas delivered to callers.",
		}),
		parseErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_parse_errors_total",
			Help:      "Stream events skipped because they could not be parsed.",
		}),
	}
}

// Handler serves the registry in the prometheus text format.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Call kinds for forward_requests_total.
const (
	KindBuffered = "buffered"
	KindStream   = "stream"
)

// ObserveForward records one buffered upstream call.
func (r *Recorder) ObserveForward(status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.forwardRequests.WithLabelValues(KindBuffered, statusClass(status)).Inc()
	r.forwardDuration.Observe(elapsed.Seconds())
}

// ObserveOpen records one streaming upstream call once its status is known.
// Network failures count as 500.
func (r *Recorder) ObserveOpen(status int) {
	if r == nil {
		return
	}
	r.forwardRequests.WithLabelValues(KindStream, statusClass(status)).Inc()
}

// SessionStarted marks a session as reading.
func (r *Recorder) SessionStarted() {
	if r == nil {
		return
	}
	r.activeSessions.Inc()
}

// SessionEnded records a session's terminal state.
func (r *Recorder) SessionEnded(outcome string) {
	if r == nil {
		return
	}
	r.activeSessions.Dec()
	r.streamSessions.WithLabelValues(outcome).Inc()
}

// DeltaDelivered counts one delta handed to a caller.
func (r *Recorder) DeltaDelivered() {
	if r == nil {
		return
	}
	r.streamDeltas.Inc()
}

// ParseErrorSkipped counts one skipped malformed event.
func (r *Recorder) ParseErrorSkipped() {
	if r == nil {
		return
	}
	r.parseErrors.Inc()
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

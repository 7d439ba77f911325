package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/davidbz/hearth/internal/metrics"
)

func TestRecorder(t *testing.T) {
	t.Run("should count upstream calls by kind and status class", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		recorder := metrics.NewRecorder(reg)

		recorder.ObserveForward(http.StatusOK, 10*time.Millisecond)
		recorder.ObserveForward(http.StatusTooManyRequests, 5*time.Millisecond)
		recorder.ObserveForward(http.StatusCreated, time.Millisecond)
		recorder.ObserveOpen(http.StatusOK)
		recorder.ObserveOpen(http.StatusBadGateway)

		expected := `
# HELP hearth_forward_requests_total Upstream calls by kind (buffered or stream) and status class.
# TYPE hearth_forward_requests_total counter
hearth_forward_requests_total{kind="buffered",status_class="2xx"} 2
hearth_forward_requests_total{kind="buffered",status_class="4xx"} 1
hearth_forward_requests_total{kind="stream",status_class="2xx"} 1
hearth_forward_requests_total{kind="stream",status_class="5xx"} 1
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "hearth_forward_requests_total"))

		count, err := testutil.GatherAndCount(reg, "hearth_forward_duration_seconds")
		require.NoError(t, err)
		require.Equal(t, 1, count)
	})

	t.Run("should track session lifecycle", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		recorder := metrics.NewRecorder(reg)

		recorder.SessionStarted()
		recorder.SessionStarted()
		recorder.DeltaDelivered()
		recorder.DeltaDelivered()
		recorder.ParseErrorSkipped()
		recorder.SessionEnded("finished")

		expected := `
# HELP hearth_stream_deltas_total Chat deltas delivered to callers.
# TYPE hearth_stream_deltas_total counter
hearth_stream_deltas_total 2
# HELP hearth_stream_parse_errors_total Stream events skipped because they could not be parsed.
# TYPE hearth_stream_parse_errors_total counter
hearth_stream_parse_errors_total 1
# HELP hearth_stream_sessions_active Streaming sessions currently reading from an upstream.
# TYPE hearth_stream_sessions_active gauge
hearth_stream_sessions_active 1
# HELP hearth_stream_sessions_total Streaming sessions by terminal state.
# TYPE hearth_stream_sessions_total counter
hearth_stream_sessions_total{outcome="finished"} 1
`
		require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
			"hearth_stream_deltas_total",
			"hearth_stream_parse_errors_total",
			"hearth_stream_sessions_active",
			"hearth_stream_sessions_total",
		))
	})

	t.Run("should tolerate a nil recorder", func(t *testing.T) {
		var recorder *metrics.Recorder

		require.NotPanics(t, func() {
			recorder.ObserveForward(http.StatusOK, time.Second)
			recorder.ObserveOpen(http.StatusOK)
			recorder.SessionStarted()
			recorder.SessionEnded("cancelled")
			recorder.DeltaDelivered()
			recorder.ParseErrorSkipped()
		})
	})
}

func TestHandler(t *testing.T) {
	t.Run("should expose metrics in text format", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		metrics.NewRecorder(reg).DeltaDelivered()

		rec := httptest.NewRecorder()
		metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		body, err := io.ReadAll(rec.Body)
		require.NoError(t, err)
		require.Contains(t, string(body), "hearth_stream_deltas_total 1")
	})
}

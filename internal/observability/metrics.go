package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Synthesis relay metrics
	synthRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "speechpipe_synth_requests_total",
		Help: "Total number of speech synthesis requests",
	}, []string{"status"}) // success, validation_error, config_error, upstream_error, aborted

	synthLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "speechpipe_synth_first_byte_seconds",
		Help:    "Latency from synthesis request to first upstream byte",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	streamedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechpipe_streamed_bytes_total",
		Help: "Total PCM bytes relayed to callers",
	})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speechpipe_active_streams",
		Help: "Number of active speech WebSocket sessions",
	})

	// Playback metrics
	segmentsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechpipe_playback_segments_total",
		Help: "Total audio segments scheduled for playback",
	})

	bargeIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speechpipe_playback_barge_ins_total",
		Help: "Total barge-in interruptions",
	})

	pendingChunks = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "speechpipe_playback_pending_chunks",
		Help: "Audio chunks buffered while playback is locked",
	})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "speechpipe_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})
)

// RecordSynthRequest records the outcome of a synthesis request
func RecordSynthRequest(status string) {
	synthRequests.WithLabelValues(status).Inc()
}

// RecordSynthFirstByte records the time to first upstream byte
func RecordSynthFirstByte(seconds float64) {
	synthLatency.Observe(seconds)
}

// RecordStreamedBytes records PCM bytes relayed to a caller
func RecordStreamedBytes(n int64) {
	streamedBytes.Add(float64(n))
}

// StreamOpened records a new speech WebSocket session
func StreamOpened() {
	activeStreams.Inc()
}

// StreamClosed records the end of a speech WebSocket session
func StreamClosed() {
	activeStreams.Dec()
}

// RecordSegmentScheduled records one scheduled playback segment
func RecordSegmentScheduled() {
	segmentsScheduled.Inc()
}

// RecordBargeIn records a playback interruption
func RecordBargeIn() {
	bargeIns.Inc()
}

// SetPendingChunks updates the locked-playback buffer depth
func SetPendingChunks(n int) {
	pendingChunks.Set(float64(n))
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

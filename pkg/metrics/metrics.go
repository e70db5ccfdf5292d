// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuestionsTotal tracks inbound questions by outcome.
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_questions_total",
			Help: "Total questions handled by the bot",
		},
		[]string{"outcome"},
	)

	// AskDuration tracks end-to-end ask latency (send through terminal status).
	AskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genie_ask_duration_seconds",
			Help:    "End-to-end Genie ask duration in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"outcome"},
	)

	// GenieRequestsTotal tracks Genie API requests.
	GenieRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "genie_requests_total",
			Help: "Total Genie API requests",
		},
		[]string{"operation", "status"},
	)

	// GenieRequestDuration tracks Genie API request duration.
	GenieRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "genie_request_duration_seconds",
			Help:    "Genie API request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"operation"},
	)

	// PollIterations tracks status polls issued per ask.
	PollIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "genie_poll_iterations",
			Help:    "Status polls issued per ask",
			Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 45},
		},
	)

	// FeedbackTotal tracks feedback submissions.
	FeedbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_feedback_total",
			Help: "Total feedback submissions",
		},
		[]string{"rating", "status"},
	)

	// TrackedThreads tracks thread-to-conversation bindings held in memory.
	TrackedThreads = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bot_tracked_threads",
			Help: "Thread-to-conversation bindings held in memory",
		},
	)
)

// RecordGenieRequest records metrics for one Genie API request.
func RecordGenieRequest(operation, status string, duration float64) {
	GenieRequestsTotal.WithLabelValues(operation, status).Inc()
	GenieRequestDuration.WithLabelValues(operation).Observe(duration)
}

// RecordAsk records metrics for one completed ask.
func RecordAsk(outcome string, duration float64, polls int) {
	AskDuration.WithLabelValues(outcome).Observe(duration)
	PollIterations.Observe(float64(polls))
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for verification attempts.
const (
	OutcomeVerified        = "verified"
	OutcomeAlreadyVerified = "already_verified"
	OutcomeUnmatched       = "unmatched"
	OutcomeError           = "error"
)

// Metrics provides observability for the verification engine.
type Metrics struct {
	Attempts        *prometheus.CounterVec
	Matches         *prometheus.CounterVec
	ClaimConflicts  *prometheus.CounterVec
	AttemptDuration prometheus.Histogram
	BatchWorkers    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Attempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_verification_attempts_total",
			Help: "Auto-verification attempts by outcome",
		}, []string{"outcome"}),
		Matches: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_verification_matches_total",
			Help: "Successful matches by strategy tier and candidate source",
		}, []string{"tier", "source"}),
		ClaimConflicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_verification_claim_conflicts_total",
			Help: "Candidate claims lost to a concurrent verification",
		}, []string{"source"}),
		AttemptDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthnet_verification_attempt_duration_seconds",
			Help:    "Duration of AttemptAutoVerify",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		BatchWorkers: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_verification_batch_workers_total",
			Help: "Workers processed by the batch runner by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) IncrementAttempt(outcome string) {
	m.Attempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementMatch(tier, source string) {
	m.Matches.WithLabelValues(tier, source).Inc()
}

func (m *Metrics) IncrementClaimConflict(source string) {
	m.ClaimConflicts.WithLabelValues(source).Inc()
}

// ObserveAttempt records the duration of an attempt started at start.
func (m *Metrics) ObserveAttempt(start time.Time) {
	m.AttemptDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementBatchWorker(result string) {
	m.BatchWorkers.WithLabelValues(result).Inc()
}

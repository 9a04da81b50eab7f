package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records webhook processing outcomes.
type PayoutMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	failure   *prometheus.CounterVec
	replayed  prometheus.Counter
}

// NewPayoutMetrics registers the payout webhook metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payout_event_duration_seconds",
		Help:    "Duration of payout webhook processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"status"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_events_processed",
		Help: "Payout notifications applied, by partner status.",
	}, []string{"status"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_events_failed",
		Help: "Payout notifications rejected, by error code.",
	}, []string{"code"})
	replayed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payout_events_replayed",
		Help: "Duplicate payout notifications short-circuited by the idempotency guard.",
	})
	reg.MustRegister(duration, processed, failure, replayed)
	return &PayoutMetrics{
		duration:  duration,
		processed: processed,
		failure:   failure,
		replayed:  replayed,
	}
}

// ObserveDuration records processing time for the given partner status.
func (m *PayoutMetrics) ObserveDuration(status string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(status)).Observe(duration.Seconds())
}

// IncProcessed increments the processed counter for the given partner status.
func (m *PayoutMetrics) IncProcessed(status string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncFailure increments the failure counter for the given error code.
func (m *PayoutMetrics) IncFailure(code string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(code)).Inc()
}

// IncReplayed counts a duplicate delivery that was absorbed.
func (m *PayoutMetrics) IncReplayed() {
	if m == nil || m.replayed == nil {
		return
	}
	m.replayed.Inc()
}

// ReconciliationMetrics records batch matching outcomes.
type ReconciliationMetrics struct {
	processed *prometheus.CounterVec
	items     *prometheus.CounterVec
}

// NewReconciliationMetrics registers the reconciliation metrics on the provided registerer.
func NewReconciliationMetrics(reg prometheus.Registerer) *ReconciliationMetrics {
	if reg == nil {
		return &ReconciliationMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliations_processed",
		Help: "Reconciliation batches processed, by source and resulting status.",
	}, []string{"source", "status"})
	items := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "reconciliation_items",
		Help: "Reconciliation items inspected, by disposition.",
	}, []string{"disposition"})
	reg.MustRegister(processed, items)
	return &ReconciliationMetrics{processed: processed, items: items}
}

// IncProcessed increments the batch counter for the source/status pair.
func (m *ReconciliationMetrics) IncProcessed(source, status string) {
	if m == nil || m.processed == nil {
		return
	}
	m.processed.WithLabelValues(normalizeLabel(source), normalizeLabel(status)).Inc()
}

// AddItems adds to the item counter for the given disposition (matched/unmatched).
func (m *ReconciliationMetrics) AddItems(disposition string, n int) {
	if m == nil || m.items == nil || n <= 0 {
		return
	}
	m.items.WithLabelValues(normalizeLabel(disposition)).Add(float64(n))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}

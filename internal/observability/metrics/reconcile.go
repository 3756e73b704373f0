package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// ReconcileMetrics contains Prometheus metrics for the alias registry,
// duplicate detection and the resolution ledger.
type ReconcileMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	errorsTotal       *prometheus.CounterVec
	errorsBuilt       *prometheus.CounterVec

	transitionsTotal *prometheus.CounterVec
	candidatesGauge  *prometheus.GaugeVec
	policyResolved   *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewReconcileMetrics creates and registers reconciliation metrics.
func NewReconcileMetrics(registry *prometheus.Registry) (*ReconcileMetrics, error) {
	m := &ReconcileMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *ReconcileMetrics) initMetrics() {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasuite_operations_total",
			Help: "Total number of reconciliation operations",
		},
		[]string{"operation", "status"},
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ultrasuite_operation_duration_seconds",
			Help:    "Time taken by reconciliation operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount12),
		},
		[]string{"operation"},
	)

	m.errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasuite_operation_errors_total",
			Help: "Total number of failed operations by error category",
		},
		[]string{"operation", "error_type"},
	)

	m.errorsBuilt = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasuite_errors_total",
			Help: "Errors raised anywhere in the process, by component and category",
		},
		[]string{"component", "category"},
	)

	m.transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasuite_ledger_transitions_total",
			Help: "Ledger entries appended, by action and ignored flag",
		},
		[]string{"action", "ignored"},
	)

	m.candidatesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ultrasuite_duplicate_candidates",
			Help: "Candidates returned by the most recent detection run per view",
		},
		[]string{"view"},
	)

	m.policyResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ultrasuite_policy_resolved_total",
			Help: "Candidates resolved automatically, by policy",
		},
		[]string{"policy"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.errorsTotal,
		m.errorsBuilt,
		m.transitionsTotal,
		m.candidatesGauge,
		m.policyResolved,
	}
}

// Describe implements the Collector interface
func (m *ReconcileMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *ReconcileMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records an operation with its status. Safe on a nil receiver.
func (m *ReconcileMetrics) RecordOperation(operation, status string) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration records the duration of an operation in seconds.
func (m *ReconcileMetrics) RecordDuration(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError records a failed operation by error category.
func (m *ReconcileMetrics) RecordError(operation, errorType string) {
	if m == nil {
		return
	}
	m.errorsTotal.WithLabelValues(operation, errorType).Inc()
}

// RecordBuiltError counts an error as it is built. It has the errors.ErrorHook
// signature so a server can register it with errors.AddErrorHook.
func (m *ReconcileMetrics) RecordBuiltError(ee *errors.EnhancedError) {
	if m == nil || ee == nil {
		return
	}
	m.errorsBuilt.WithLabelValues(ee.GetComponent(), ee.GetCategory()).Inc()
}

// RecordTransition counts one appended ledger entry.
func (m *ReconcileMetrics) RecordTransition(action string, ignored bool) {
	if m == nil {
		return
	}
	label := "false"
	if ignored {
		label = "true"
	}
	m.transitionsTotal.WithLabelValues(action, label).Inc()
}

// SetCandidates records the size of a detection result.
func (m *ReconcileMetrics) SetCandidates(view string, count int) {
	if m == nil {
		return
	}
	m.candidatesGauge.WithLabelValues(view).Set(float64(count))
}

// RecordPolicyResolved counts candidates resolved by an automatic policy.
func (m *ReconcileMetrics) RecordPolicyResolved(policy string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.policyResolved.WithLabelValues(policy).Add(float64(count))
}

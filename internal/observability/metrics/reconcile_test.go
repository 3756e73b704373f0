package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/alexknuckles/ultrasuite/internal/errors"
)

func TestReconcileMetricsRecording(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewReconcileMetrics(registry)
	require.NoError(t, err)

	m.RecordOperation(OpMerge, StatusSuccess)
	m.RecordOperation(OpMerge, StatusSuccess)
	m.RecordOperation(OpMerge, StatusError)
	m.RecordError(OpMerge, "conflict")
	m.RecordTransition("keep_a", false)
	m.RecordTransition("none", true)
	m.SetCandidates("default", 3)
	m.RecordPolicyResolved("keep_a_source", 2)
	m.RecordPolicyResolved("keep_a_source", 0)
	m.RecordBuiltError(apperrors.NotFound("no group").Component("skumap").Build())
	m.RecordBuiltError(apperrors.Newf("no component").Build())

	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpMerge, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpMerge, StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpMerge, "conflict")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.transitionsTotal.WithLabelValues("none", "true")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(m.candidatesGauge.WithLabelValues("default")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.policyResolved.WithLabelValues("keep_a_source")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsBuilt.WithLabelValues("skumap", "not-found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsBuilt.WithLabelValues(apperrors.ComponentUnknown, "generic")), 0)

	expected := `
# HELP ultrasuite_ledger_transitions_total Ledger entries appended, by action and ignored flag
# TYPE ultrasuite_ledger_transitions_total counter
ultrasuite_ledger_transitions_total{action="keep_a",ignored="false"} 1
ultrasuite_ledger_transitions_total{action="none",ignored="true"} 1
`
	require.NoError(t, testutil.GatherAndCompare(registry, strings.NewReader(expected), "ultrasuite_ledger_transitions_total"))
}

func TestReconcileMetricsDuplicateRegistration(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	_, err := NewReconcileMetrics(registry)
	require.NoError(t, err)

	_, err = NewReconcileMetrics(registry)
	assert.Error(t, err)
}

func TestNilReconcileMetricsIsSafe(t *testing.T) {
	t.Parallel()

	var m *ReconcileMetrics
	assert.NotPanics(t, func() {
		m.RecordOperation(OpResolve, StatusSuccess)
		m.RecordDuration(OpResolve, 0.1)
		m.RecordError(OpResolve, "database")
		m.RecordTransition("keep_b", false)
		m.SetCandidates("all", 1)
		m.RecordPolicyResolved("keep_both", 1)
		m.RecordBuiltError(nil)
	})
}

func TestStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StatusSuccess, Status(nil))
	assert.Equal(t, StatusError, Status(errors.New("boom")))
}

func TestObserve(t *testing.T) {
	t.Parallel()

	registry := prometheus.NewRegistry()
	m, err := NewReconcileMetrics(registry)
	require.NoError(t, err)

	start := time.Now()
	Observe(m, OpResolve, start, nil)
	Observe(m, OpResolve, start, apperrors.Conflict("pair is ignored").Build())
	Observe(m, OpResolve, start, errors.New("plain"))
	Observe(nil, OpResolve, start, nil)

	assert.InDelta(t, 1, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpResolve, StatusSuccess)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.operationsTotal.WithLabelValues(OpResolve, StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpResolve, "conflict")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(OpResolve, "generic")), 0)
}

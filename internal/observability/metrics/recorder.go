// Package metrics provides custom Prometheus metrics for the reconciliation engine.
package metrics

import (
	"time"

	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// Recorder defines a minimal interface for recording metrics so components
// depend on an abstraction rather than concrete collectors.
type Recorder interface {
	// RecordOperation records an operation with its status (success or error).
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, errorType string)
}

// NoopRecorder discards everything. Used when metrics are disabled.
type NoopRecorder struct{}

func (NoopRecorder) RecordOperation(string, string) {}
func (NoopRecorder) RecordDuration(string, float64) {}
func (NoopRecorder) RecordError(string, string)     {}

var _ Recorder = NoopRecorder{}
var _ Recorder = (*ReconcileMetrics)(nil)

// Observe records the outcome and duration of an operation that started at
// start. Failed operations are also counted by error category.
func Observe(rec Recorder, operation string, start time.Time, err error) {
	if rec == nil {
		return
	}
	rec.RecordOperation(operation, Status(err))
	rec.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		category := string(errors.CategoryGeneric)
		var enhanced *errors.EnhancedError
		if errors.As(err, &enhanced) {
			category = enhanced.GetCategory()
		}
		rec.RecordError(operation, category)
	}
}

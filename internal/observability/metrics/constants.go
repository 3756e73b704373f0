// Package metrics provides constants used across metric definitions.
package metrics

// Operation names recorded by the registry, detector and ledger.
const (
	OpRegisterUnseen = "register_unseen"
	OpSetCategory    = "set_category"
	OpMerge          = "merge"
	OpRebind         = "rebind"
	OpReplace        = "replace"
	OpClear          = "clear"
	OpLookupFill     = "lookup_fill"
	OpDetect         = "detect"
	OpResolve        = "resolve"
	OpUnmatch        = "unmatch"
	OpIgnore         = "ignore"
	OpUnignore       = "unignore"
	OpApplyPolicy    = "apply_policy"
	OpIngest         = "ingest"
	OpTransaction    = "transaction"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Histogram bucket parameters.
const (
	// BucketStart1ms is the 1ms starting bucket for exponential buckets.
	BucketStart1ms = 0.001
	// BucketFactor2 doubles each bucket.
	BucketFactor2 = 2
	// BucketCount12 covers 1ms to ~2s.
	BucketCount12 = 12
)

// Status returns the status label for an operation outcome.
func Status(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

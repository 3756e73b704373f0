package resolution

import (
	"context"
	"slices"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
)

// ApplyResult summarizes an ApplyPolicy run.
type ApplyResult struct {
	Policy Policy          `json:"policy"`
	Action entities.Action `json:"action,omitempty"`
	// Considered is the number of unresolved, non-ignored candidates.
	Considered int `json:"considered"`
	Resolved   int `json:"resolved"`
	// Skipped candidates stopped matching or were decided while the run
	// was in progress, usually because an earlier pair deleted a shared row.
	Skipped int `json:"skipped"`
	Batches int `json:"batches"`
}

// ApplyPolicy resolves every unresolved, non-ignored candidate with the
// policy's action, including pairs reopened by an unmatch. Candidates are processed in batches, one transaction per
// batch, and each is re-checked inside its transaction. PolicyReview does
// nothing.
func (s *Service) ApplyPolicy(ctx context.Context, policy Policy) (result ApplyResult, err error) {
	start := time.Now()
	defer func() { metrics.Observe(s.metrics, metrics.OpApplyPolicy, start, err) }()

	if _, err := ParsePolicy(string(policy)); err != nil {
		return ApplyResult{}, err
	}
	result.Policy = policy

	action, ok := policy.Action()
	if !ok {
		return result, nil
	}
	result.Action = action

	found, err := s.detector.FindDuplicates(ctx, duplicates.Query{View: duplicates.ViewDefault})
	if err != nil {
		return result, err
	}
	candidates := slices.DeleteFunc(found, func(c duplicates.Candidate) bool { return c.Resolved() })
	result.Considered = len(candidates)

	for lo := 0; lo < len(candidates); lo += s.batchSize {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		hi := min(lo+s.batchSize, len(candidates))

		resolved, skipped := 0, 0
		err := s.transition(ctx, metrics.OpResolve, func(tx *repository.Store) error {
			for i := lo; i < hi; i++ {
				_, err := s.resolve(ctx, tx, candidates[i].PairKey, action)
				switch {
				case err == nil:
					resolved++
				case errors.IsNotFound(err), errors.IsConflict(err):
					skipped++
				default:
					return err
				}
			}
			return nil
		})
		if err != nil {
			return result, err
		}

		result.Resolved += resolved
		result.Skipped += skipped
		result.Batches++
	}

	s.metrics.RecordPolicyResolved(string(policy), result.Resolved)
	s.log.Info("applied duplicate policy",
		logger.String("policy", string(policy)),
		logger.Int("considered", result.Considered),
		logger.Int("resolved", result.Resolved),
		logger.Int("skipped", result.Skipped),
		logger.Int("batches", result.Batches),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

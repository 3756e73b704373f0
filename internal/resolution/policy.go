package resolution

import (
	"context"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
)

// Policy is the automatic resolution applied after each ingestion.
type Policy string

const (
	// PolicyReview leaves every candidate for manual review.
	PolicyReview   Policy = "review"
	PolicyKeepA    Policy = "keep_a_source"
	PolicyKeepB    Policy = "keep_b_source"
	PolicyKeepBoth Policy = "keep_both"
)

// Policies returns every valid policy.
func Policies() []Policy {
	return []Policy{PolicyReview, PolicyKeepA, PolicyKeepB, PolicyKeepBoth}
}

// Action returns the ledger action the policy applies, and false for review.
func (p Policy) Action() (entities.Action, bool) {
	switch p {
	case PolicyKeepA:
		return entities.ActionKeepA, true
	case PolicyKeepB:
		return entities.ActionKeepB, true
	case PolicyKeepBoth:
		return entities.ActionKeepBoth, true
	}
	return "", false
}

// ParsePolicy validates a policy name.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(s)
	switch p {
	case PolicyReview, PolicyKeepA, PolicyKeepB, PolicyKeepBoth:
		return p, nil
	}
	return "", errors.InvalidInput("unknown duplicate resolution policy %q", s).
		Component("resolution").
		Context("policy", s).
		Build()
}

// PolicyStore reads and writes the policy in the settings store.
type PolicyStore struct {
	settings repository.SettingsRepository
	fallback Policy
}

// NewPolicyStore creates a PolicyStore. fallback is returned while no policy
// has been stored.
func NewPolicyStore(settings repository.SettingsRepository, fallback Policy) *PolicyStore {
	if fallback == "" {
		fallback = PolicyReview
	}
	return &PolicyStore{settings: settings, fallback: fallback}
}

// Get returns the stored policy, or the fallback when none is stored.
func (s *PolicyStore) Get(ctx context.Context) (Policy, error) {
	value, err := s.settings.Get(ctx, entities.SettingKeyDuplicatePolicy)
	if errors.Is(err, repository.ErrSettingNotFound) {
		return s.fallback, nil
	}
	if err != nil {
		return "", err
	}
	return ParsePolicy(value)
}

// Set validates and stores a policy.
func (s *PolicyStore) Set(ctx context.Context, policy Policy) error {
	if _, err := ParsePolicy(string(policy)); err != nil {
		return err
	}
	return s.settings.Set(ctx, entities.SettingKeyDuplicatePolicy, string(policy))
}

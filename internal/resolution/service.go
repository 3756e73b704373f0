// Package resolution records how duplicate candidates were resolved and
// applies those decisions to the transaction rows.
//
// Every decision is appended to the resolution ledger; entries are never
// changed. The latest entry of a pair, by time and then id, decides both its
// action and whether it is ignored. A pair is in one of three states:
//
//	unresolved  no entry, or the latest action is none or unmatched
//	resolved    the latest action is keep_a, keep_b or keep_both
//	ignored     the latest entry is ignored, whatever its action
//
// An unmatch that re-inserts a deleted row moves the pair to a new key. The
// old key gets a closing unmatched entry pointing at the new one and accepts
// no further transitions.
//
// Each transition runs in one database transaction together with the row
// deletion or re-insertion it implies.
package resolution

import (
	"context"
	"sync"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/duplicates"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
)

// DefaultBatchSize is the number of candidates ApplyPolicy resolves per transaction.
const DefaultBatchSize = 100

// State is the current state of a pair.
type State string

const (
	StateUnresolved State = "unresolved"
	StateResolved   State = "resolved"
	StateIgnored    State = "ignored"
)

// PairState is the state of one pair together with its latest entry.
type PairState struct {
	Key    entities.PairKey      `json:"key"`
	State  State                 `json:"state"`
	Action entities.Action       `json:"action,omitempty"`
	Latest *entities.LedgerEntry `json:"latest,omitempty"`
}

// Options configures a Service.
type Options struct {
	// BatchSize bounds each ApplyPolicy transaction. Defaults to DefaultBatchSize.
	BatchSize int
	Logger    logger.Logger
	Metrics   *metrics.ReconcileMetrics
	// Clock stamps ledger entries. Defaults to time.Now.
	Clock func() time.Time
}

// Service runs the resolution state machine.
type Service struct {
	store     *repository.Store
	detector  *duplicates.Detector
	log       logger.Logger
	metrics   *metrics.ReconcileMetrics
	batchSize int
	now       func() time.Time

	// mu serializes transitions within the process.
	mu sync.Mutex
}

// NewService creates a Service. detector must read the same database as store.
func NewService(store *repository.Store, detector *duplicates.Detector, opts Options) *Service {
	s := &Service{
		store:     store,
		detector:  detector,
		log:       opts.Logger,
		metrics:   opts.Metrics,
		batchSize: opts.BatchSize,
		now:       opts.Clock,
	}
	if s.log == nil {
		s.log = logger.Global().Module("resolution")
	}
	if s.batchSize <= 0 {
		s.batchSize = DefaultBatchSize
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// transition runs fn in a transaction under the service lock and records the outcome.
func (s *Service) transition(ctx context.Context, op string, fn func(tx *repository.Store) error) error {
	start := time.Now()

	s.mu.Lock()
	err := s.store.WithTx(ctx, fn)
	s.mu.Unlock()

	metrics.Observe(s.metrics, op, start, err)
	return err
}

// appendEntry stamps and stores an entry and counts it.
func (s *Service) appendEntry(ctx context.Context, tx *repository.Store, entry *entities.LedgerEntry) error {
	entry.ResolvedAt = s.now()
	if err := tx.Ledger.Append(ctx, entry); err != nil {
		return err
	}
	s.metrics.RecordTransition(string(entry.Action), entry.Ignored)
	return nil
}

// Resolve records a keep_a, keep_b or keep_both decision for a pair that
// currently matches and deletes the row the decision drops.
func (s *Service) Resolve(ctx context.Context, key entities.PairKey, action entities.Action) (*entities.LedgerEntry, error) {
	if !action.IsResolution() {
		return nil, errors.InvalidInput("%q is not a resolution action", action).
			Component("resolution").
			Context("action", string(action)).
			Build()
	}

	var entry *entities.LedgerEntry
	err := s.transition(ctx, metrics.OpResolve, func(tx *repository.Store) error {
		var err error
		entry, err = s.resolve(ctx, tx, key, action)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logEntry("resolved duplicate", entry)
	return entry, nil
}

func (s *Service) resolve(ctx context.Context, tx *repository.Store, key entities.PairKey, action entities.Action) (*entities.LedgerEntry, error) {
	c, err := s.detector.WithStore(tx).FindPair(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.Ignored {
		return nil, pairConflict(key, "pair is ignored")
	}
	if c.Resolved() {
		return nil, pairConflict(key, "pair is already resolved as "+string(c.Action))
	}

	entry := snapshot(c)
	entry.Action = action
	if err := s.appendEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	switch action {
	case entities.ActionKeepA:
		_, err = tx.Transactions.Delete(ctx, entities.SourceB, key.SourceBRowID)
	case entities.ActionKeepB:
		_, err = tx.Transactions.Delete(ctx, entities.SourceA, key.SourceARowID)
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Unmatch reopens a resolved pair. A row the resolution deleted is
// re-inserted from the ledger snapshot under a new id; the unmatched entry is
// addressed by the resulting pair key and records the key it replaced.
func (s *Service) Unmatch(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := s.transition(ctx, metrics.OpUnmatch, func(tx *repository.Store) error {
		latest, err := s.latest(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := retired(latest); err != nil {
			return err
		}
		if latest.Ignored {
			return pairConflict(key, "pair is ignored")
		}
		if !latest.Action.IsResolution() {
			return pairConflict(key, "pair is not resolved")
		}

		entry = carry(latest)
		entry.Action = entities.ActionUnmatched
		entry.Ignored = false

		switch latest.Action {
		case entities.ActionKeepA:
			id, err := s.restore(ctx, tx, entities.SourceB, latest)
			if err != nil {
				return err
			}
			entry.SourceBRowID = id
		case entities.ActionKeepB:
			id, err := s.restore(ctx, tx, entities.SourceA, latest)
			if err != nil {
				return err
			}
			entry.SourceARowID = id
		}
		if entry.Key() != key {
			entry.PriorARowID = key.SourceARowID
			entry.PriorBRowID = key.SourceBRowID

			closing := carry(latest)
			closing.Action = entities.ActionUnmatched
			closing.Ignored = false
			closing.NextARowID = entry.SourceARowID
			closing.NextBRowID = entry.SourceBRowID
			if err := s.appendEntry(ctx, tx, closing); err != nil {
				return err
			}
		}
		return s.appendEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logEntry("unmatched duplicate", entry)
	return entry, nil
}

// restore re-inserts the deleted side of a pair from the snapshot and returns
// its row id. A row that still exists is kept as is.
func (s *Service) restore(ctx context.Context, tx *repository.Store, source entities.Source, e *entities.LedgerEntry) (uint, error) {
	id, code, description, at := e.SourceARowID, e.CodeA, e.DescriptionA, e.TimestampA
	if source == entities.SourceB {
		id, code, description, at = e.SourceBRowID, e.CodeB, e.DescriptionB, e.TimestampB
	}

	_, err := tx.Transactions.Get(ctx, source, id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, repository.ErrTransactionNotFound) {
		return 0, err
	}

	price := e.Total
	if !e.Quantity.IsZero() {
		price = e.Total.Div(e.Quantity)
	}
	rows := []entities.TransactionRow{{
		OccurredAt:  at,
		Code:        code,
		Description: description,
		Quantity:    e.Quantity,
		Price:       price,
		Total:       e.Total,
	}}
	if err := tx.Transactions.Insert(ctx, source, rows); err != nil {
		return 0, err
	}
	return rows[0].ID, nil
}

// Ignore suppresses a pair from the default views. A pair with no entry must
// be a current candidate and is seeded with action none.
func (s *Service) Ignore(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := s.transition(ctx, metrics.OpIgnore, func(tx *repository.Store) error {
		latest, err := tx.Ledger.Latest(ctx, key)
		switch {
		case errors.Is(err, repository.ErrLedgerEntryNotFound):
			c, err := s.detector.WithStore(tx).FindPair(ctx, key)
			if err != nil {
				return err
			}
			entry = snapshot(c)
			entry.Action = entities.ActionNone
		case err != nil:
			return err
		default:
			if err := retired(latest); err != nil {
				return err
			}
			if latest.Ignored {
				return pairConflict(key, "pair is already ignored")
			}
			entry = carry(latest)
		}
		entry.Ignored = true
		return s.appendEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logEntry("ignored duplicate", entry)
	return entry, nil
}

// Unignore lifts an ignore, returning the pair to its last action.
func (s *Service) Unignore(ctx context.Context, key entities.PairKey) (*entities.LedgerEntry, error) {
	var entry *entities.LedgerEntry
	err := s.transition(ctx, metrics.OpUnignore, func(tx *repository.Store) error {
		latest, err := s.latest(ctx, tx, key)
		if err != nil {
			return err
		}
		if err := retired(latest); err != nil {
			return err
		}
		if !latest.Ignored {
			return pairConflict(key, "pair is not ignored")
		}
		entry = carry(latest)
		entry.Ignored = false
		return s.appendEntry(ctx, tx, entry)
	})
	if err != nil {
		return nil, err
	}

	s.logEntry("unignored duplicate", entry)
	return entry, nil
}

// latest returns the authoritative entry of a pair or a not-found error
// owned by this component.
func (s *Service) latest(ctx context.Context, tx *repository.Store, key entities.PairKey) (*entities.LedgerEntry, error) {
	entry, err := tx.Ledger.Latest(ctx, key)
	if errors.Is(err, repository.ErrLedgerEntryNotFound) {
		return nil, errors.NotFound("no ledger entry for rows %d and %d", key.SourceARowID, key.SourceBRowID).
			Component("resolution").
			Context("source_a_row_id", key.SourceARowID).
			Context("source_b_row_id", key.SourceBRowID).
			Build()
	}
	return entry, err
}

func (s *Service) logEntry(msg string, e *entities.LedgerEntry) {
	fields := []logger.Field{
		logger.String("ref", e.Ref),
		logger.Uint("source_a_row_id", e.SourceARowID),
		logger.Uint("source_b_row_id", e.SourceBRowID),
		logger.String("action", string(e.Action)),
		logger.Bool("ignored", e.Ignored),
		logger.String("canonical_id", e.CanonicalID),
		logger.String("total", e.Total.String()),
	}
	if prior, ok := e.PriorKey(); ok {
		fields = append(fields,
			logger.Uint("prior_a_row_id", prior.SourceARowID),
			logger.Uint("prior_b_row_id", prior.SourceBRowID))
	}
	if next, ok := e.NextKey(); ok {
		fields = append(fields,
			logger.Uint("next_a_row_id", next.SourceARowID),
			logger.Uint("next_b_row_id", next.SourceBRowID))
	}
	s.log.Info(msg, fields...)
}

// snapshot captures a candidate into a new entry with no action set.
func snapshot(c *duplicates.Candidate) *entities.LedgerEntry {
	return &entities.LedgerEntry{
		SourceARowID: c.SourceARowID,
		SourceBRowID: c.SourceBRowID,
		CanonicalID:  c.CanonicalID,
		CodeA:        c.A.Code,
		CodeB:        c.B.Code,
		DescriptionA: c.A.Description,
		DescriptionB: c.B.Description,
		Quantity:     c.Quantity,
		Total:        c.Total,
		TimestampA:   c.A.Timestamp,
		TimestampB:   c.B.Timestamp,
	}
}

// carry copies an entry's pair and snapshot into a new unsaved entry.
func carry(e *entities.LedgerEntry) *entities.LedgerEntry {
	next := *e
	next.ID = 0
	next.Ref = ""
	next.ResolvedAt = time.Time{}
	next.PriorARowID = 0
	next.PriorBRowID = 0
	next.NextARowID = 0
	next.NextBRowID = 0
	return &next
}

// retired returns a conflict when latest closed its pair after an unmatch
// moved it to a new key.
func retired(latest *entities.LedgerEntry) error {
	next, ok := latest.NextKey()
	if !ok {
		return nil
	}
	return errors.Conflict("rows %d and %d were reopened as rows %d and %d",
		latest.SourceARowID, latest.SourceBRowID, next.SourceARowID, next.SourceBRowID).
		Component("resolution").
		Context("next_a_row_id", next.SourceARowID).
		Context("next_b_row_id", next.SourceBRowID).
		Build()
}

func pairConflict(key entities.PairKey, reason string) error {
	return errors.Conflict("rows %d and %d: %s", key.SourceARowID, key.SourceBRowID, reason).
		Component("resolution").
		Context("source_a_row_id", key.SourceARowID).
		Context("source_b_row_id", key.SourceBRowID).
		Build()
}

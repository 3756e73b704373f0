package duplicates

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
	"github.com/alexknuckles/ultrasuite/internal/skumap"
)

// dateLayout is the calendar date component of the join key.
const dateLayout = "2006-01-02"

// MappingSource provides the alias snapshot used to resolve codes.
type MappingSource interface {
	Mapping(ctx context.Context) (*skumap.Mapping, error)
}

// Query narrows a detection run.
type Query struct {
	// Canonical keeps only rows resolving to this canonical id.
	Canonical string
	// Start and End bound the row timestamps, inclusive. Nil is unbounded.
	Start *time.Time
	End   *time.Time
	View  View
}

// Options configures a Detector.
type Options struct {
	// Location is the time zone calendar dates are taken in. Defaults to UTC.
	Location *time.Location
	Logger   logger.Logger
	Metrics  *metrics.ReconcileMetrics
}

// Detector finds duplicate candidates.
type Detector struct {
	store    *repository.Store
	mappings MappingSource
	loc      *time.Location
	log      logger.Logger
	metrics  *metrics.ReconcileMetrics
}

// NewDetector creates a Detector reading rows and ledger state from store.
func NewDetector(store *repository.Store, mappings MappingSource, opts Options) *Detector {
	d := &Detector{
		store:    store,
		mappings: mappings,
		loc:      opts.Location,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if d.loc == nil {
		d.loc = time.UTC
	}
	if d.log == nil {
		d.log = logger.Global().Module("duplicates")
	}
	return d
}

// WithStore returns a copy of the detector reading from store, typically a
// transaction-bound store.
func (d *Detector) WithStore(store *repository.Store) *Detector {
	cp := *d
	cp.store = store
	return &cp
}

type joinKey struct {
	date      string
	canonical string
	quantity  string
	total     string
}

type resolvedRow struct {
	row       *entities.TransactionRow
	canonical string
}

func (d *Detector) key(row *entities.TransactionRow, canonical string) joinKey {
	// decimal String drops trailing zeros, so equal values give equal keys
	return joinKey{
		date:      row.OccurredAt.In(d.loc).Format(dateLayout),
		canonical: canonical,
		quantity:  row.Quantity.String(),
		total:     row.Total.String(),
	}
}

// FindDuplicates returns the candidates selected by q, ordered by nominal
// time and then row ids. Unknown codes resolve to themselves.
func (d *Detector) FindDuplicates(ctx context.Context, q Query) (result []Candidate, err error) {
	start := time.Now()
	defer func() { metrics.Observe(d.metrics, metrics.OpDetect, start, err) }()

	if !q.View.Valid() {
		return nil, errors.InvalidInput("unknown duplicate view %q", q.View).
			Component("duplicates").
			Build()
	}
	if q.View == "" {
		q.View = ViewDefault
	}
	if q.Start != nil && q.End != nil && q.End.Before(*q.Start) {
		return nil, errors.InvalidInput("time range ends before it starts").
			Component("duplicates").
			Context("start", q.Start.Format(time.RFC3339)).
			Context("end", q.End.Format(time.RFC3339)).
			Build()
	}

	mapping, err := d.mappings.Mapping(ctx)
	if err != nil {
		return nil, err
	}

	filter := repository.TransactionFilter{Start: q.Start, End: q.End}
	rowsA, err := d.store.Transactions.List(ctx, entities.SourceA, filter)
	if err != nil {
		return nil, err
	}
	rowsB, err := d.store.Transactions.List(ctx, entities.SourceB, filter)
	if err != nil {
		return nil, err
	}

	canonical := skumap.Normalize(q.Canonical)
	index := make(map[joinKey][]resolvedRow)
	for i := range rowsA {
		id := mapping.Resolve(rowsA[i].Code).CanonicalID
		if canonical != "" && id != canonical {
			continue
		}
		k := d.key(&rowsA[i], id)
		index[k] = append(index[k], resolvedRow{row: &rowsA[i], canonical: id})
	}

	var candidates []Candidate
	for i := range rowsB {
		id := mapping.Resolve(rowsB[i].Code).CanonicalID
		if canonical != "" && id != canonical {
			continue
		}
		for _, a := range index[d.key(&rowsB[i], id)] {
			candidates = append(candidates, newCandidate(a.row, &rowsB[i], id))
		}
	}

	if err := d.attachLedger(ctx, candidates); err != nil {
		return nil, err
	}

	result = make([]Candidate, 0, len(candidates))
	for i := range candidates {
		if candidates[i].matches(q.View) {
			result = append(result, candidates[i])
		}
	}
	sortCandidates(result)

	d.metrics.SetCandidates(string(q.View), len(result))
	d.log.Debug("duplicate detection finished",
		logger.String("view", string(q.View)),
		logger.String("canonical", canonical),
		logger.Int("rows_a", len(rowsA)),
		logger.Int("rows_b", len(rowsB)),
		logger.Int("candidates", len(result)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// FindPair returns the candidate for one pair key, or a not-found error when
// either row is gone or the rows no longer match.
func (d *Detector) FindPair(ctx context.Context, key entities.PairKey) (*Candidate, error) {
	a, err := d.store.Transactions.Get(ctx, entities.SourceA, key.SourceARowID)
	if err != nil {
		return nil, pairNotFound(key, err)
	}
	b, err := d.store.Transactions.Get(ctx, entities.SourceB, key.SourceBRowID)
	if err != nil {
		return nil, pairNotFound(key, err)
	}

	mapping, err := d.mappings.Mapping(ctx)
	if err != nil {
		return nil, err
	}
	idA := mapping.Resolve(a.Code).CanonicalID
	idB := mapping.Resolve(b.Code).CanonicalID
	if d.key(a, idA) != d.key(b, idB) {
		return nil, pairNotFound(key, nil)
	}

	c := newCandidate(a, b, idA)
	entry, err := d.store.Ledger.Latest(ctx, key)
	switch {
	case errors.Is(err, repository.ErrLedgerEntryNotFound):
	case err != nil:
		return nil, err
	default:
		c.attach(entry)
	}
	return &c, nil
}

func (d *Detector) attachLedger(ctx context.Context, candidates []Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	keys := make([]entities.PairKey, len(candidates))
	for i := range candidates {
		keys[i] = candidates[i].PairKey
	}
	latest, err := d.store.Ledger.LatestForPairs(ctx, keys)
	if err != nil {
		return err
	}
	for i := range candidates {
		candidates[i].attach(latest[candidates[i].PairKey])
	}
	return nil
}

func newCandidate(a, b *entities.TransactionRow, canonical string) Candidate {
	nominal := a.OccurredAt
	if b.OccurredAt.Before(nominal) {
		nominal = b.OccurredAt
	}
	return Candidate{
		PairKey:     entities.PairKey{SourceARowID: a.ID, SourceBRowID: b.ID},
		CanonicalID: canonical,
		Quantity:    a.Quantity,
		Total:       a.Total,
		A:           side(a),
		B:           side(b),
		NominalTime: nominal,
	}
}

func side(row *entities.TransactionRow) Side {
	return Side{
		RowID:       row.ID,
		Code:        row.Code,
		Description: row.Description,
		Price:       row.Price,
		Timestamp:   row.OccurredAt,
	}
}

func sortCandidates(candidates []Candidate) {
	slices.SortStableFunc(candidates, func(x, y Candidate) int {
		if c := x.NominalTime.Compare(y.NominalTime); c != 0 {
			return c
		}
		if c := cmp.Compare(x.SourceARowID, y.SourceARowID); c != 0 {
			return c
		}
		return cmp.Compare(x.SourceBRowID, y.SourceBRowID)
	})
}

// pairNotFound reports a pair that is not a current candidate. Storage
// failures are passed through.
func pairNotFound(key entities.PairKey, cause error) error {
	if cause != nil && !errors.IsNotFound(cause) {
		return cause
	}
	return errors.NotFound("rows %d and %d are not a current duplicate candidate", key.SourceARowID, key.SourceBRowID).
		Component("duplicates").
		Context("source_a_row_id", key.SourceARowID).
		Context("source_b_row_id", key.SourceBRowID).
		Build()
}

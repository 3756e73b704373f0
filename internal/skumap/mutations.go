package skumap

import (
	"context"

	"github.com/alexknuckles/ultrasuite/internal/datastore/entities"
	"github.com/alexknuckles/ultrasuite/internal/datastore/repository"
	"github.com/alexknuckles/ultrasuite/internal/errors"
	"github.com/alexknuckles/ultrasuite/internal/logger"
	"github.com/alexknuckles/ultrasuite/internal/observability/metrics"
	"github.com/alexknuckles/ultrasuite/internal/suggest"
)

// RegisterUnseen adds a self-mapped unmapped group for every code that is not
// yet a known alias and returns how many were added. Blank codes are skipped
// and known codes are left untouched.
func (r *Registry) RegisterUnseen(ctx context.Context, codes []string, provenance string) (int, error) {
	aliases := normalizeSet(codes)
	if len(aliases) == 0 {
		return 0, nil
	}

	now := r.now().UTC()
	rows := make([]entities.AliasEntry, len(aliases))
	for i, alias := range aliases {
		rows[i] = entities.AliasEntry{
			Alias:       alias,
			CanonicalID: alias,
			Category:    entities.CategoryUnmapped,
			Provenance:  provenance,
			LastChanged: now,
		}
	}

	var inserted int64
	err := r.mutate(ctx, metrics.OpRegisterUnseen, func(tx *repository.Store) error {
		var err error
		inserted, err = tx.Aliases.InsertIfAbsent(ctx, rows)
		return err
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		r.log.Info("registered new aliases",
			logger.Int64("count", inserted),
			logger.String("provenance", provenance))
	}
	return int(inserted), nil
}

// SetCategory sets the category of every row of a group. An empty id is a
// no-op and an unknown group is not an error.
func (r *Registry) SetCategory(ctx context.Context, canonicalID string, category entities.Category) error {
	id := Normalize(canonicalID)
	if id == "" {
		return nil
	}
	if !category.Valid() {
		return invalidCategory(category)
	}

	var updated int64
	err := r.mutate(ctx, metrics.OpSetCategory, func(tx *repository.Store) error {
		var err error
		updated, err = tx.Aliases.SetGroupCategory(ctx, id, category, r.now())
		return err
	})
	if err != nil {
		return err
	}

	r.log.Debug("set group category",
		logger.String("canonical_id", id),
		logger.String("category", string(category)),
		logger.Int64("rows", updated))
	return nil
}

// Merge moves every alias of source under target. The merged rows adopt the
// category target had before the merge, or unmapped when target did not
// exist, in which case its self-record is created.
func (r *Registry) Merge(ctx context.Context, source, target string) error {
	src, dst := Normalize(source), Normalize(target)
	if src == "" || dst == "" {
		return errors.InvalidInput("merge requires both a source and a target id").
			Component("skumap").
			Context("source", source).
			Context("target", target).
			Build()
	}
	if src == dst {
		return errors.Conflict("cannot merge group %q into itself", src).
			Component("skumap").
			Context("canonical_id", src).
			Build()
	}

	var moved int64
	err := r.mutate(ctx, metrics.OpMerge, func(tx *repository.Store) error {
		category, err := r.targetCategory(ctx, tx, dst)
		if err != nil {
			return err
		}
		moved, err = r.mergeInto(ctx, tx, src, dst, category)
		return err
	})
	if err != nil {
		return err
	}

	r.log.Info("merged groups",
		logger.String("source", src),
		logger.String("target", dst),
		logger.Int64("aliases", moved))
	return nil
}

// MergeMany merges every source group into target in one transaction and
// returns how many groups were merged. An empty target defaults to the first
// source. Sources equal to the target are skipped.
func (r *Registry) MergeMany(ctx context.Context, target string, sources []string) (int, error) {
	srcs := normalizeSet(sources)
	dst := Normalize(target)
	if dst == "" && len(srcs) > 0 {
		dst = srcs[0]
	}
	if dst == "" || len(srcs) == 0 {
		return 0, errors.InvalidInput("merge requires a target and at least one source").
			Component("skumap").
			Build()
	}

	merged := 0
	err := r.mutate(ctx, metrics.OpMerge, func(tx *repository.Store) error {
		category, err := r.targetCategory(ctx, tx, dst)
		if err != nil {
			return err
		}
		for _, src := range srcs {
			if src == dst {
				continue
			}
			if _, err := r.mergeInto(ctx, tx, src, dst, category); err != nil {
				return err
			}
			merged++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	r.log.Info("merged groups",
		logger.String("target", dst),
		logger.Int("groups", merged))
	return merged, nil
}

// AcceptSuggestion merges the second id of a suggestion into the first.
func (r *Registry) AcceptSuggestion(ctx context.Context, s suggest.Suggestion) error {
	return r.Merge(ctx, s.B, s.A)
}

// targetCategory returns the category a merge into dst adopts. A dst that is
// an alias of some other group cannot be a merge target.
func (r *Registry) targetCategory(ctx context.Context, tx *repository.Store, dst string) (entities.Category, error) {
	self, err := tx.Aliases.Get(ctx, dst)
	switch {
	case errors.Is(err, repository.ErrAliasNotFound):
		return entities.CategoryUnmapped, nil
	case err != nil:
		return "", err
	case !self.IsCanonical():
		return "", errors.Conflict("%q is an alias of group %q, not a canonical id", dst, self.CanonicalID).
			Component("skumap").
			Context("target", dst).
			Context("owner", self.CanonicalID).
			Build()
	}
	return self.Category, nil
}

// mergeInto moves the rows of src under dst with category and makes sure dst
// has a self-record.
func (r *Registry) mergeInto(ctx context.Context, tx *repository.Store, src, dst string, category entities.Category) (int64, error) {
	now := r.now()

	moved, err := tx.Aliases.Reassign(ctx, src, dst, category, now)
	if err != nil {
		return 0, err
	}
	if moved == 0 {
		return 0, groupNotFound(src)
	}

	if _, err := tx.Aliases.InsertIfAbsent(ctx, []entities.AliasEntry{{
		Alias:       dst,
		CanonicalID: dst,
		Category:    category,
		LastChanged: now.UTC(),
	}}); err != nil {
		return 0, err
	}
	return moved, nil
}

// Rebind renames a group. The old canonical id stays in the group as an
// alias and newID gets a self-record carrying the group's category. newID
// may already be an alias of the same group but not of any other group; such
// an alias keeps its own provenance, a new one takes the old self-record's.
func (r *Registry) Rebind(ctx context.Context, oldID, newID string) error {
	from, to := Normalize(oldID), Normalize(newID)
	if from == "" || to == "" {
		return errors.InvalidInput("rebind requires both the old and the new id").
			Component("skumap").
			Context("old", oldID).
			Context("new", newID).
			Build()
	}
	if from == to {
		return errors.Conflict("group %q is already named %q", from, to).
			Component("skumap").
			Build()
	}

	err := r.mutate(ctx, metrics.OpRebind, func(tx *repository.Store) error {
		rows, err := tx.Aliases.GetGroup(ctx, from)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return groupNotFound(from)
		}

		existing, err := tx.Aliases.Get(ctx, to)
		switch {
		case errors.Is(err, repository.ErrAliasNotFound):
		case err != nil:
			return err
		case existing.CanonicalID != from:
			return errors.Conflict("%q already belongs to group %q", to, existing.CanonicalID).
				Component("skumap").
				Context("new", to).
				Context("owner", existing.CanonicalID).
				Build()
		}

		self := selfRecord(rows, from)
		provenance := self.Provenance
		if existing != nil && existing.Provenance != "" {
			provenance = existing.Provenance
		}
		now := r.now()
		if _, err := tx.Aliases.Reassign(ctx, from, to, self.Category, now); err != nil {
			return err
		}
		return tx.Aliases.Upsert(ctx, []entities.AliasEntry{{
			Alias:       to,
			CanonicalID: to,
			Category:    self.Category,
			Provenance:  provenance,
			LastChanged: now.UTC(),
		}})
	})
	if err != nil {
		return err
	}

	r.log.Info("rebound group", logger.String("old", from), logger.String("new", to))
	return nil
}

// Replace redefines a group as exactly aliases plus its canonical id, all
// with category. Aliases taken from other groups keep their provenance. The
// self-record of another group can only be taken when that group has no
// other members.
func (r *Registry) Replace(ctx context.Context, canonicalID string, category entities.Category, aliases []string) error {
	id := Normalize(canonicalID)
	if id == "" {
		return errors.InvalidInput("replace requires a canonical id").
			Component("skumap").
			Build()
	}
	if !category.Valid() {
		return invalidCategory(category)
	}

	members := normalizeSet(append([]string{id}, aliases...))

	err := r.mutate(ctx, metrics.OpReplace, func(tx *repository.Store) error {
		existing, err := tx.Aliases.GetMany(ctx, members)
		if err != nil {
			return err
		}

		for _, alias := range members {
			row, ok := existing[alias]
			if !ok || row.CanonicalID == id || !row.IsCanonical() {
				continue
			}
			others, err := tx.Aliases.GetGroup(ctx, row.CanonicalID)
			if err != nil {
				return err
			}
			if len(others) > 1 {
				return errors.Conflict("%q is the canonical id of another group with %d aliases", alias, len(others)-1).
					Component("skumap").
					Context("alias", alias).
					Build()
			}
		}

		if _, err := tx.Aliases.DeleteGroup(ctx, id); err != nil {
			return err
		}

		now := r.now().UTC()
		rows := make([]entities.AliasEntry, len(members))
		for i, alias := range members {
			rows[i] = entities.AliasEntry{
				Alias:       alias,
				CanonicalID: id,
				Category:    category,
				Provenance:  existing[alias].Provenance,
				LastChanged: now,
			}
		}
		return tx.Aliases.Upsert(ctx, rows)
	})
	if err != nil {
		return err
	}

	r.log.Info("replaced group",
		logger.String("canonical_id", id),
		logger.String("category", string(category)),
		logger.Int("aliases", len(members)-1))
	return nil
}

// Clear deletes every row of a group.
func (r *Registry) Clear(ctx context.Context, canonicalID string) error {
	id := Normalize(canonicalID)
	if id == "" {
		return errors.InvalidInput("clear requires a canonical id").
			Component("skumap").
			Build()
	}

	var deleted int64
	err := r.mutate(ctx, metrics.OpClear, func(tx *repository.Store) error {
		var err error
		deleted, err = tx.Aliases.DeleteGroup(ctx, id)
		if err == nil && deleted == 0 {
			return groupNotFound(id)
		}
		return err
	})
	if err != nil {
		return err
	}

	r.log.Info("cleared group", logger.String("canonical_id", id), logger.Int64("rows", deleted))
	return nil
}

// selfRecord returns the group's self-record, falling back to the first row.
func selfRecord(rows []entities.AliasEntry, canonicalID string) entities.AliasEntry {
	for _, row := range rows {
		if row.Alias == canonicalID {
			return row
		}
	}
	return rows[0]
}

func groupNotFound(canonicalID string) error {
	return errors.NotFound("group %q does not exist", canonicalID).
		Component("skumap").
		Context("canonical_id", canonicalID).
		Build()
}

func invalidCategory(category entities.Category) error {
	return errors.InvalidInput("unknown category %q", category).
		Component("skumap").
		Context("category", string(category)).
		Build()
}

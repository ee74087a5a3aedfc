package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/vql"
)

// idOnly is the field list of sub-queries that only need variant ids.
var idOnly = []ir.FieldRef{ir.Field(querysql.IDColumn)}

func (e *Engine) selectCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Select) (iter.Seq2[store.Record, error], error) {
	c, err := e.compiler(ctx, db)
	if err != nil {
		return nil, err
	}

	limit := e.pageSize
	if s.Limit != nil {
		limit = *s.Limit
	}
	q, err := c.Compile(querysql.Request{
		Fields:    s.Fields,
		Source:    s.Source,
		Filters:   s.Filters,
		OrderBy:   s.OrderBy,
		OrderDesc: s.OrderDesc,
		Limit:     &limit,
		Offset:    s.Offset,
		GroupBy:   s.GroupBy,
		Having:    s.Having,
	})
	if err != nil {
		return nil, err
	}

	log.Debug("select", "sql", q.SQL, "args", q.Args)
	return db.Stream(ctx, q), nil
}

func (e *Engine) countCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Count) (store.Record, error) {
	key, err := countKey(db.InstanceID().String(), e.missingSample, s)
	if err != nil {
		return nil, err
	}
	if n, ok := e.counts.get(key); ok {
		log.Debug("count cache hit", "count", n)
		return store.Record{"count": n}, nil
	}

	c, err := e.compiler(ctx, db)
	if err != nil {
		return nil, err
	}
	q, err := c.Compile(querysql.Request{Fields: idOnly, Source: s.Source, Filters: s.Filters})
	if err != nil {
		return nil, err
	}

	log.Debug("count", "sql", q.SQL, "args", q.Args)
	n, err := db.CountQuery(ctx, querysql.DistinctIDs(q))
	if err != nil {
		return nil, err
	}
	e.counts.add(key, n)
	return store.Record{"count": n}, nil
}

func (e *Engine) createCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Create) (store.Record, error) {
	if err := checkTarget(vql.KindCreate, s.Target); err != nil {
		return nil, err
	}

	c, err := e.compiler(ctx, db)
	if err != nil {
		return nil, err
	}
	q, err := c.Compile(querysql.Request{Fields: idOnly, Source: s.Source, Filters: s.Filters})
	if err != nil {
		return nil, err
	}

	sel, err := e.materialize(ctx, db, log, s.Target, q)
	if err != nil {
		return nil, err
	}
	return store.Record{"id": sel.ID, "count": sel.Count}, nil
}

func (e *Engine) setCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Set) (store.Record, error) {
	if err := checkTarget(vql.KindSet, s.Target); err != nil {
		return nil, err
	}
	if s.First == "" || s.Second == "" {
		return nil, &FeatureError{Command: string(vql.KindSet), Feature: "operands", Message: "two selection names are required"}
	}

	c, err := e.compiler(ctx, db)
	if err != nil {
		return nil, err
	}
	first, err := c.Compile(querysql.Request{Fields: idOnly, Source: s.First})
	if err != nil {
		return nil, err
	}
	second, err := c.Compile(querysql.Request{Fields: idOnly, Source: s.Second})
	if err != nil {
		return nil, err
	}

	var q querysql.Query
	switch s.Operator {
	case vql.Union:
		q = db.UnionVariants(first, second)
	case vql.Subtract:
		q = db.SubtractVariants(first, second)
	case vql.Intersect:
		q = db.IntersectVariants(first, second)
	default:
		return nil, &FeatureError{Command: string(vql.KindSet), Feature: string(s.Operator), Message: "unknown set operator (expected +, - or &)"}
	}

	sel, err := e.materialize(ctx, db, log, s.Target, q)
	if err != nil {
		return nil, err
	}
	return store.Record{"id": sel.ID, "count": sel.Count}, nil
}

// materialize stores the ids returned by q as the selection target.
// Everything after the count runs in one transaction: insert the row,
// drop the membership index, bulk-insert members, rebuild the index,
// name the row, commit. Any failure rolls back.
func (e *Engine) materialize(ctx context.Context, db Storage, log *slog.Logger, target string, q querysql.Query) (store.Selection, error) {
	count, err := db.CountQuery(ctx, querysql.DistinctIDs(q))
	if err != nil {
		return store.Selection{}, err
	}

	tx, err := db.Begin(ctx)
	if err != nil {
		return store.Selection{}, err
	}
	defer tx.Rollback() // No-op if committed

	id, err := tx.InsertSelection(ctx, count, q.Inline())
	if err != nil {
		return store.Selection{}, err
	}
	if err := tx.DropSelectionIndex(ctx); err != nil {
		return store.Selection{}, err
	}
	n, err := tx.InsertSelectionVariants(ctx, id, q)
	if err != nil {
		return store.Selection{}, err
	}
	if err := tx.CreateSelectionIndexes(ctx); err != nil {
		return store.Selection{}, err
	}
	if n != count {
		if err := tx.UpdateSelectionCount(ctx, id, n); err != nil {
			return store.Selection{}, err
		}
	}
	if err := tx.FinalizeSelection(ctx, id, target); err != nil {
		return store.Selection{}, err
	}
	if err := tx.Commit(); err != nil {
		return store.Selection{}, err
	}

	e.counts.purge()
	log.Info("selection created", "name", target, "id", id, "count", n)
	return store.Selection{ID: id, Name: target, Count: n, Query: q.Inline()}, nil
}

func (e *Engine) bedCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.BedImport) (store.Record, error) {
	if err := checkPath(vql.KindBed, s.Path); err != nil {
		return nil, err
	}
	if err := checkTarget(vql.KindBed, s.Target); err != nil {
		return nil, err
	}

	c, err := e.compiler(ctx, db)
	if err != nil {
		return nil, err
	}
	source, err := c.Compile(querysql.Request{Fields: idOnly, Source: s.Source})
	if err != nil {
		return nil, err
	}

	sel, err := db.CreateSelectionFromBed(ctx, source, s.Target, ReadBed(s.Path))
	if err != nil {
		return nil, err
	}

	e.counts.purge()
	log.Info("selection created", "name", sel.Name, "id", sel.ID, "count", sel.Count, "bed", s.Path)
	return store.Record{"id": sel.ID, "count": sel.Count}, nil
}

func (e *Engine) showCmd(ctx context.Context, db Storage, s vql.Show) (iter.Seq2[store.Record, error], error) {
	switch s.Feature {
	case vql.FeatureFields:
		return records(ctx, db.Fields, func(f store.Field) store.Record {
			return store.Record{"id": f.ID, "name": f.Name, "category": f.Category, "type": f.Type, "description": f.Description}
		}), nil
	case vql.FeatureSamples:
		return records(ctx, db.Samples, func(smp store.Sample) store.Record {
			return store.Record{"id": smp.ID, "name": smp.Name, "phenotype": smp.Phenotype}
		}), nil
	case vql.FeatureSelections:
		return records(ctx, db.Selections, func(sel store.Selection) store.Record {
			return store.Record{"id": sel.ID, "name": sel.Name, "count": sel.Count, "query": sel.Query}
		}), nil
	case vql.FeatureSets:
		return records(ctx, db.Sets, func(set store.SetSummary) store.Record {
			return store.Record{"name": set.Name, "count": set.Count}
		}), nil
	default:
		return nil, unknownFeature(vql.KindShow, s.Feature, vql.ShowFeatures())
	}
}

// records adapts a catalog read to a lazy record sequence. The read runs
// on every iteration.
func records[T any](ctx context.Context, read func(context.Context) ([]T, error), conv func(T) store.Record) iter.Seq2[store.Record, error] {
	return func(yield func(store.Record, error) bool) {
		items, err := read(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, item := range items {
			if !yield(conv(item), nil) {
				return
			}
		}
	}
}

func (e *Engine) importCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Import) (store.Record, error) {
	if s.Feature != vql.FeatureSets {
		return nil, unknownFeature(vql.KindImport, s.Feature, vql.ImportFeatures())
	}
	if err := checkPath(vql.KindImport, s.Path); err != nil {
		return nil, err
	}

	n, err := db.InsertSetFromFile(ctx, s.Name, s.Path)
	if err != nil {
		return nil, err
	}

	e.counts.purge()
	log.Info("set imported", "name", s.Name, "values", n, "path", s.Path)
	return store.Record{"success": true, "count": n}, nil
}

func (e *Engine) dropCmd(ctx context.Context, db Storage, log *slog.Logger, s vql.Drop) (store.Record, error) {
	var (
		n   int64
		err error
	)
	switch s.Feature {
	case vql.FeatureSelections:
		if s.Name == vql.DefaultSource {
			return nil, &FeatureError{Command: string(vql.KindDrop), Feature: s.Name, Message: "the variants table cannot be dropped"}
		}
		n, err = db.DeleteSelection(ctx, s.Name)
	case vql.FeatureSets:
		n, err = db.DeleteSet(ctx, s.Name)
	default:
		return nil, unknownFeature(vql.KindDrop, s.Feature, vql.DropFeatures())
	}
	if err != nil {
		return nil, err
	}

	e.counts.purge()
	log.Info(s.Feature+" dropped", "name", s.Name, "rows", n)
	return store.Record{"success": true}, nil
}

// checkTarget rejects a missing target and the reserved source name.
func checkTarget(kind vql.Kind, target string) error {
	switch target {
	case "":
		return &FeatureError{Command: string(kind), Feature: "target", Message: "a target selection name is required"}
	case vql.DefaultSource:
		return &FeatureError{Command: string(kind), Feature: target, Message: "reserved name"}
	}
	return nil
}

// checkPath fails with a PathError when path does not exist.
func checkPath(kind vql.Kind, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &PathError{Command: string(kind), Path: path, Err: err}
		}
		return fmt.Errorf("%s: %w", kind, err)
	}
	return nil
}

func unknownFeature(kind vql.Kind, feature string, allowed []string) error {
	return &FeatureError{Command: string(kind), Feature: feature, Message: fmt.Sprintf("unknown feature (expected one of %v)", allowed)}
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/roach88/vql/internal/querysql"
)

// Field is one row of the field catalog.
type Field struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Sample is one sample of the cohort.
type Sample struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Phenotype int64  `json:"phenotype"`
}

// Selection is a named, materialized set of variant ids.
type Selection struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Query string `json:"query"`
}

// SetSummary is a named set of values with its size.
type SetSummary struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Record is one result row keyed by column name.
type Record map[string]any

// Fields returns the field catalog ordered by id.
// Returns an empty slice (not nil) if the catalog is empty.
func (s *Store) Fields(ctx context.Context) ([]Field, error) {
	return queryAll(ctx, s.db, `
		SELECT id, name, category, type, description
		FROM fields
		ORDER BY id ASC
	`, func(rows *sql.Rows) (Field, error) {
		var f Field
		err := rows.Scan(&f.ID, &f.Name, &f.Category, &f.Type, &f.Description)
		return f, err
	})
}

// Samples returns all samples ordered by id.
func (s *Store) Samples(ctx context.Context) ([]Sample, error) {
	return queryAll(ctx, s.db, `
		SELECT id, name, phenotype
		FROM samples
		ORDER BY id ASC
	`, func(rows *sql.Rows) (Sample, error) {
		var smp Sample
		err := rows.Scan(&smp.ID, &smp.Name, &smp.Phenotype)
		return smp, err
	})
}

// Selections returns all selections ordered by id.
func (s *Store) Selections(ctx context.Context) ([]Selection, error) {
	return queryAll(ctx, s.db, `
		SELECT id, name, count, query
		FROM selections
		ORDER BY id ASC
	`, scanSelection)
}

// Selection returns the selection named name.
// Returns sql.ErrNoRows (wrapped) if it does not exist.
func (s *Store) Selection(ctx context.Context, name string) (Selection, error) {
	var sel Selection
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, count, query FROM selections WHERE name = ?
	`, name).Scan(&sel.ID, &sel.Name, &sel.Count, &sel.Query)
	if err != nil {
		return Selection{}, fmt.Errorf("read selection %q: %w", name, err)
	}
	return sel, nil
}

// SelectionIDs returns the variant ids of a selection in ascending order.
func (s *Store) SelectionIDs(ctx context.Context, name string) ([]int64, error) {
	return queryAll(ctx, s.db, `
		SELECT sv.variant_id
		FROM selection_has_variant sv
		INNER JOIN selections s ON s.id = sv.selection_id
		WHERE s.name = ?
		ORDER BY sv.variant_id ASC
	`, func(rows *sql.Rows) (int64, error) {
		var id int64
		err := rows.Scan(&id)
		return id, err
	}, name)
}

// Sets returns every set name with its number of values, ordered by name.
func (s *Store) Sets(ctx context.Context) ([]SetSummary, error) {
	return queryAll(ctx, s.db, `
		SELECT name, COUNT(*)
		FROM sets
		GROUP BY name
		ORDER BY name COLLATE BINARY ASC
	`, func(rows *sql.Rows) (SetSummary, error) {
		var set SetSummary
		err := rows.Scan(&set.Name, &set.Count)
		return set, err
	})
}

// SetValues returns the values stored under a set name, ordered by id.
func (s *Store) SetValues(ctx context.Context, name string) ([]string, error) {
	return queryAll(ctx, s.db, `
		SELECT value FROM sets WHERE name = ? ORDER BY id ASC
	`, func(rows *sql.Rows) (string, error) {
		var v string
		err := rows.Scan(&v)
		return v, err
	}, name)
}

// CountQuery returns the number of rows q produces.
func (s *Store) CountQuery(ctx context.Context, q querysql.Query) (int64, error) {
	counted := querysql.Count(q)
	var n int64
	if err := s.db.QueryRowContext(ctx, counted.SQL, counted.Args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query: %w", err)
	}
	return n, nil
}

// Stream runs q lazily. Each iteration of the returned sequence executes
// the query again, so the sequence is restartable but not resumable.
// Rows are keyed by q.Columns when set, by the driver's names otherwise.
func (s *Store) Stream(ctx context.Context, q querysql.Query) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		rows, err := s.db.QueryContext(ctx, q.SQL, q.Args...)
		if err != nil {
			yield(nil, fmt.Errorf("query: %w", err))
			return
		}
		defer rows.Close()

		names, err := rows.Columns()
		if err != nil {
			yield(nil, fmt.Errorf("query columns: %w", err))
			return
		}
		if len(q.Columns) == len(names) {
			names = q.Columns
		}

		for rows.Next() {
			values := make([]any, len(names))
			ptrs := make([]any, len(names))
			for i := range values {
				ptrs[i] = &values[i]
			}
			if err := rows.Scan(ptrs...); err != nil {
				yield(nil, fmt.Errorf("scan row: %w", err))
				return
			}

			rec := make(Record, len(names))
			for i, name := range names {
				if b, ok := values[i].([]byte); ok {
					values[i] = string(b)
				}
				rec[name] = values[i]
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, fmt.Errorf("iterate rows: %w", err))
		}
	}
}

func scanSelection(rows *sql.Rows) (Selection, error) {
	var sel Selection
	err := rows.Scan(&sel.ID, &sel.Name, &sel.Count, &sel.Query)
	return sel, err
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// queryAll runs query and scans every row with scan.
// Returns an empty slice (not nil) when there are no rows.
func queryAll[T any](ctx context.Context, q queryer, query string, scan func(*sql.Rows) (T, error), args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate: %w", err)
	}
	return out, nil
}

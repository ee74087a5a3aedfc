package store

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/vql/internal/querysql"
)

// Tx is one write transaction over selections. Obtain it with Begin and
// always end it with Commit or Rollback; Rollback after Commit is a no-op.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Rollback aborts the transaction. It is safe to call after Commit.
func (t *Tx) Rollback() error {
	err := t.tx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// InsertSelection adds a selection row under a private staging name and
// returns its id. The row takes its real name in FinalizeSelection, so a
// query that reads an existing selection of the same name keeps working
// until then.
func (t *Tx) InsertSelection(ctx context.Context, count int64, query string) (int64, error) {
	staging, err := uuid.NewV7()
	if err != nil {
		return 0, fmt.Errorf("insert selection: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO selections (name, count, query) VALUES (?, ?, ?)
	`, stagingPrefix+staging.String(), count, query)
	if err != nil {
		return 0, fmt.Errorf("insert selection: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert selection: %w", err)
	}
	return id, nil
}

// stagingPrefix marks selection rows that are still being built.
const stagingPrefix = "~staging:"

// InsertSelectionVariants materializes the distinct ids returned by q as
// members of the selection. q must select the variant id first.
// Returns the number of rows inserted.
func (t *Tx) InsertSelectionVariants(ctx context.Context, selectionID int64, q querysql.Query) (int64, error) {
	ids := querysql.DistinctIDs(q)
	args := make([]any, 0, len(ids.Args)+1)
	args = append(args, selectionID)
	args = append(args, ids.Args...)

	res, err := t.tx.ExecContext(ctx,
		"INSERT INTO selection_has_variant (variant_id, selection_id) SELECT "+querysql.IDColumn+", ? FROM ("+ids.SQL+")",
		args...)
	if err != nil {
		return 0, fmt.Errorf("insert selection variants: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("insert selection variants: %w", err)
	}
	return n, nil
}

// DropSelectionIndex drops the membership index before a bulk insert.
func (t *Tx) DropSelectionIndex(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `DROP INDEX IF EXISTS idx_selection_has_variant`); err != nil {
		return fmt.Errorf("drop selection index: %w", err)
	}
	return nil
}

// CreateSelectionIndexes rebuilds the membership index after a bulk insert.
func (t *Tx) CreateSelectionIndexes(ctx context.Context) error {
	if _, err := t.tx.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_selection_has_variant
		ON selection_has_variant(selection_id, variant_id)
	`); err != nil {
		return fmt.Errorf("create selection index: %w", err)
	}
	return nil
}

// FinalizeSelection gives a staged selection its name, replacing any
// selection that already had it. Members of the replaced selection are
// removed by cascade.
func (t *Tx) FinalizeSelection(ctx context.Context, selectionID int64, name string) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM selections WHERE name = ?`, name); err != nil {
		return fmt.Errorf("finalize selection %q: %w", name, err)
	}
	if _, err := t.tx.ExecContext(ctx, `UPDATE selections SET name = ? WHERE id = ?`, name, selectionID); err != nil {
		return fmt.Errorf("finalize selection %q: %w", name, err)
	}
	return nil
}

// UpdateSelectionCount overwrites the stored count of a selection.
func (t *Tx) UpdateSelectionCount(ctx context.Context, selectionID, count int64) error {
	if _, err := t.tx.ExecContext(ctx, `UPDATE selections SET count = ? WHERE id = ?`, count, selectionID); err != nil {
		return fmt.Errorf("update selection count: %w", err)
	}
	return nil
}

// UnionVariants returns a query for the ids in a or b.
func (s *Store) UnionVariants(a, b querysql.Query) querysql.Query {
	return querysql.Union(a, b)
}

// SubtractVariants returns a query for the ids in a and not in b.
func (s *Store) SubtractVariants(a, b querysql.Query) querysql.Query {
	return querysql.Subtract(a, b)
}

// IntersectVariants returns a query for the ids in both a and b.
func (s *Store) IntersectVariants(a, b querysql.Query) querysql.Query {
	return querysql.Intersect(a, b)
}

// DeleteSelection removes the selection named name and its members.
// Deleting a selection that does not exist is not an error.
// Returns the number of selections removed (0 or 1).
func (s *Store) DeleteSelection(ctx context.Context, name string) (int64, error) {
	return s.deleteByName(ctx, "selections", name)
}

// DeleteSet removes every value of the set named name.
// Deleting a set that does not exist is not an error.
// Returns the number of values removed.
func (s *Store) DeleteSet(ctx context.Context, name string) (int64, error) {
	return s.deleteByName(ctx, "sets", name)
}

func (s *Store) deleteByName(ctx context.Context, table, name string) (int64, error) {
	var n int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE name = ?", name)
		if err != nil {
			return err
		}
		n, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("delete from %s %q: %w", table, name, err)
	}
	return n, nil
}

// InsertSetFromFile replaces the set named name with the lines of the file
// at path. Lines are trimmed; blank lines are skipped.
// Returns the number of values stored.
func (s *Store) InsertSetFromFile(ctx context.Context, name, path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("import set %q: %w", name, err)
	}
	defer f.Close()

	var values []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			values = append(values, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("import set %q: read %s: %w", name, path, err)
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM sets WHERE name = ?`, name); err != nil {
			return err
		}
		return insertSetValues(ctx, tx, name, values)
	})
	if err != nil {
		return 0, fmt.Errorf("import set %q: %w", name, err)
	}
	return int64(len(values)), nil
}

func insertSetValues(ctx context.Context, tx *sql.Tx, name string, values []string) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO sets (name, value) VALUES (?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range values {
		if _, err := stmt.ExecContext(ctx, name, v); err != nil {
			return err
		}
	}
	return nil
}

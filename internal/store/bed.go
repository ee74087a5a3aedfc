package store

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"github.com/roach88/vql/internal/querysql"
)

// Region is one BED interval: 0-based start, exclusive end.
type Region struct {
	Chr   string
	Start int64
	End   int64
	Name  string
}

// Contains reports whether the 1-based position pos on chr lies in r.
func (r Region) Contains(chr string, pos int64) bool {
	return r.Chr == chr && r.Start < pos && pos <= r.End
}

// CreateSelectionFromBed materializes a selection named target holding the
// variants of source that fall in at least one region.
//
// The regions are consumed once, in order. The first error yielded by the
// sequence aborts the import and nothing is written.
func (s *Store) CreateSelectionFromBed(ctx context.Context, source querysql.Query, target string, regions iter.Seq2[Region, error]) (Selection, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return Selection{}, fmt.Errorf("bed selection %q: %w", target, err)
	}
	defer tx.Rollback() // No-op if committed

	if err := loadRegions(ctx, tx.tx, regions); err != nil {
		return Selection{}, fmt.Errorf("bed selection %q: %w", target, err)
	}

	ids := querysql.DistinctIDs(source)
	overlap := querysql.Query{
		SQL: "SELECT DISTINCT variants.id AS id FROM variants" +
			" INNER JOIN temp.bed_regions r ON r.chr = variants.chr AND r.start_pos < variants.pos AND variants.pos <= r.end_pos" +
			" WHERE variants.id IN (" + ids.SQL + ")",
		Args:    ids.Args,
		Columns: []string{querysql.IDColumn},
	}

	id, err := tx.InsertSelection(ctx, 0, overlap.Inline())
	if err != nil {
		return Selection{}, fmt.Errorf("bed selection %q: %w", target, err)
	}
	if err := tx.DropSelectionIndex(ctx); err != nil {
		return Selection{}, err
	}
	count, err := tx.InsertSelectionVariants(ctx, id, overlap)
	if err != nil {
		return Selection{}, fmt.Errorf("bed selection %q: %w", target, err)
	}
	if err := tx.CreateSelectionIndexes(ctx); err != nil {
		return Selection{}, err
	}
	if err := tx.UpdateSelectionCount(ctx, id, count); err != nil {
		return Selection{}, err
	}
	if err := tx.FinalizeSelection(ctx, id, target); err != nil {
		return Selection{}, err
	}
	if _, err := tx.tx.ExecContext(ctx, `DROP TABLE IF EXISTS temp.bed_regions`); err != nil {
		return Selection{}, fmt.Errorf("bed selection %q: drop regions: %w", target, err)
	}
	if err := tx.Commit(); err != nil {
		return Selection{}, err
	}

	return Selection{ID: id, Name: target, Count: count, Query: overlap.Inline()}, nil
}

// loadRegions fills a fresh temporary region table.
func loadRegions(ctx context.Context, tx *sql.Tx, regions iter.Seq2[Region, error]) error {
	if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS temp.bed_regions`); err != nil {
		return fmt.Errorf("reset regions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		CREATE TEMP TABLE bed_regions (
			chr       TEXT NOT NULL,
			start_pos INTEGER NOT NULL,
			end_pos   INTEGER NOT NULL,
			name      TEXT
		)
	`); err != nil {
		return fmt.Errorf("create regions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO temp.bed_regions (chr, start_pos, end_pos, name) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare regions: %w", err)
	}
	defer stmt.Close()

	for r, err := range regions {
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.Chr, r.Start, r.End, r.Name); err != nil {
			return fmt.Errorf("insert region %s:%d-%d: %w", r.Chr, r.Start, r.End, err)
		}
	}
	return nil
}

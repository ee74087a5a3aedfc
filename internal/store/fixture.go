package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Variant is one row of the variants table.
type Variant struct {
	ID   int64
	Chr  string
	Pos  int64
	Ref  string
	Alt  string
	Qual float64
	RSID string
}

// Annotation is one row of the annotations table.
type Annotation struct {
	VariantID   int64
	Gene        string
	Transcript  string
	Consequence string
	Impact      string
}

// Genotype is one sample's call for one variant.
type Genotype struct {
	SampleID  int64
	VariantID int64
	GT        int64
	DP        int64
}

// The writers below load data directly. Importers and test fixtures use
// them; the engine never does.

// InsertVariant adds a variant. A zero ID lets SQLite assign one.
// Returns the variant id.
func (s *Store) InsertVariant(ctx context.Context, v Variant) (int64, error) {
	var id any
	if v.ID != 0 {
		id = v.ID
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO variants (id, chr, pos, ref, alt, qual, rsid)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, v.Chr, v.Pos, v.Ref, v.Alt, v.Qual, nullString(v.RSID))
	if err != nil {
		return 0, fmt.Errorf("insert variant %s:%d: %w", v.Chr, v.Pos, err)
	}
	return res.LastInsertId()
}

// InsertAnnotation adds an annotation row for an existing variant.
func (s *Store) InsertAnnotation(ctx context.Context, a Annotation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO annotations (variant_id, gene, transcript, consequence, impact)
		VALUES (?, ?, ?, ?, ?)
	`, a.VariantID, nullString(a.Gene), nullString(a.Transcript), nullString(a.Consequence), nullString(a.Impact))
	if err != nil {
		return fmt.Errorf("insert annotation for variant %d: %w", a.VariantID, err)
	}
	return nil
}

// InsertSample adds a sample and returns its id.
func (s *Store) InsertSample(ctx context.Context, name string, phenotype int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO samples (name, phenotype) VALUES (?, ?)
	`, name, phenotype)
	if err != nil {
		return 0, fmt.Errorf("insert sample %q: %w", name, err)
	}
	return res.LastInsertId()
}

// InsertGenotype records a sample's call for a variant.
func (s *Store) InsertGenotype(ctx context.Context, g Genotype) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sample_has_variant (sample_id, variant_id, gt, dp)
		VALUES (?, ?, ?, ?)
	`, g.SampleID, g.VariantID, g.GT, g.DP)
	if err != nil {
		return fmt.Errorf("insert genotype sample=%d variant=%d: %w", g.SampleID, g.VariantID, err)
	}
	return nil
}

// InsertField adds or replaces a catalog entry.
func (s *Store) InsertField(ctx context.Context, f Field) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fields (name, category, type, description)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(name, category) DO UPDATE SET
			type = excluded.type,
			description = excluded.description
	`, f.Name, f.Category, f.Type, f.Description)
	if err != nil {
		return fmt.Errorf("insert field %q: %w", f.Name, err)
	}
	return nil
}

// InsertSetValues appends values to the set named name.
func (s *Store) InsertSetValues(ctx context.Context, name string, values ...string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return insertSetValues(ctx, tx, name, values)
	})
	if err != nil {
		return fmt.Errorf("insert set %q: %w", name, err)
	}
	return nil
}

// InsertSelectionIDs creates the selection named name holding exactly ids,
// replacing any selection of that name. Returns the selection.
func (s *Store) InsertSelectionIDs(ctx context.Context, name string, ids ...int64) (Selection, error) {
	tx, err := s.Begin(ctx)
	if err != nil {
		return Selection{}, err
	}
	defer tx.Rollback() // No-op if committed

	id, err := tx.InsertSelection(ctx, int64(len(ids)), "")
	if err != nil {
		return Selection{}, err
	}
	stmt, err := tx.tx.PrepareContext(ctx, `
		INSERT INTO selection_has_variant (variant_id, selection_id) VALUES (?, ?)
	`)
	if err != nil {
		return Selection{}, fmt.Errorf("insert selection %q: %w", name, err)
	}
	defer stmt.Close()
	for _, vid := range ids {
		if _, err := stmt.ExecContext(ctx, vid, id); err != nil {
			return Selection{}, fmt.Errorf("insert selection %q variant %d: %w", name, vid, err)
		}
	}
	if err := tx.FinalizeSelection(ctx, id, name); err != nil {
		return Selection{}, err
	}
	if err := tx.Commit(); err != nil {
		return Selection{}, err
	}
	return Selection{ID: id, Name: name, Count: int64(len(ids))}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

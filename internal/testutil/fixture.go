package testutil

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/roach88/vql/internal/store"
)

// Fixture describes the content of a small variant database. It is the
// fixture block of harness scenarios and the seed of package tests.
type Fixture struct {
	Variants    []FixtureVariant    `yaml:"variants"`
	Annotations []FixtureAnnotation `yaml:"annotations"`
	Samples     []FixtureSample     `yaml:"samples"`
	Genotypes   []FixtureGenotype   `yaml:"genotypes"`
	Fields      []FixtureField      `yaml:"fields"`
	Selections  map[string][]int64  `yaml:"selections"`
	Sets        map[string][]string `yaml:"sets"`
}

// FixtureVariant is one variant row.
type FixtureVariant struct {
	ID   int64   `yaml:"id"`
	Chr  string  `yaml:"chr"`
	Pos  int64   `yaml:"pos"`
	Ref  string  `yaml:"ref"`
	Alt  string  `yaml:"alt"`
	Qual float64 `yaml:"qual"`
	RSID string  `yaml:"rsid"`
}

// FixtureAnnotation annotates the variant with id Variant.
type FixtureAnnotation struct {
	Variant     int64  `yaml:"variant"`
	Gene        string `yaml:"gene"`
	Transcript  string `yaml:"transcript"`
	Consequence string `yaml:"consequence"`
	Impact      string `yaml:"impact"`
}

// FixtureSample is one sample.
type FixtureSample struct {
	Name      string `yaml:"name"`
	Phenotype int64  `yaml:"phenotype"`
}

// FixtureGenotype is a sample's call, referencing the sample by name.
type FixtureGenotype struct {
	Sample  string `yaml:"sample"`
	Variant int64  `yaml:"variant"`
	GT      int64  `yaml:"gt"`
	DP      int64  `yaml:"dp"`
}

// FixtureField is an extra catalog entry.
type FixtureField struct {
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
}

// Load writes the fixture into s. Selections and sets are written in name
// order so that ids are stable.
func (f Fixture) Load(ctx context.Context, s *store.Store) error {
	for _, v := range f.Variants {
		if _, err := s.InsertVariant(ctx, store.Variant{
			ID: v.ID, Chr: v.Chr, Pos: v.Pos, Ref: v.Ref, Alt: v.Alt, Qual: v.Qual, RSID: v.RSID,
		}); err != nil {
			return err
		}
	}

	for _, a := range f.Annotations {
		if err := s.InsertAnnotation(ctx, store.Annotation{
			VariantID: a.Variant, Gene: a.Gene, Transcript: a.Transcript, Consequence: a.Consequence, Impact: a.Impact,
		}); err != nil {
			return err
		}
	}

	sampleIDs := make(map[string]int64, len(f.Samples))
	for _, smp := range f.Samples {
		id, err := s.InsertSample(ctx, smp.Name, smp.Phenotype)
		if err != nil {
			return err
		}
		sampleIDs[smp.Name] = id
	}

	for _, g := range f.Genotypes {
		id, ok := sampleIDs[g.Sample]
		if !ok {
			return fmt.Errorf("genotype for unknown sample %q", g.Sample)
		}
		if err := s.InsertGenotype(ctx, store.Genotype{SampleID: id, VariantID: g.Variant, GT: g.GT, DP: g.DP}); err != nil {
			return err
		}
	}

	for _, fld := range f.Fields {
		if err := s.InsertField(ctx, store.Field{
			Name: fld.Name, Category: fld.Category, Type: fld.Type, Description: fld.Description,
		}); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(f.Selections) {
		if _, err := s.InsertSelectionIDs(ctx, name, f.Selections[name]...); err != nil {
			return err
		}
	}

	for _, name := range sortedKeys(f.Sets) {
		if err := s.InsertSetValues(ctx, name, f.Sets[name]...); err != nil {
			return err
		}
	}

	return nil
}

// NewStore opens a private in-memory store loaded with f. The store is
// closed when the test ends.
func NewStore(t testing.TB, f Fixture) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := f.Load(context.Background(), s); err != nil {
		t.Fatalf("load fixture: %v", err)
	}
	return s
}

// Cohort is a four-variant database with two samples, two annotated
// genes, selections A={1,2,3} and B={3,4}, and a gene set.
//
//	id  chr   pos  ref alt  gene   alice.gt  bob.gt
//	1   chr1  100  A   G    BRCA1  1         0
//	2   chr1  200  C   T    BRCA1  2         -
//	3   chr2  300  G   A    TP53   1         1
//	4   chr2  400  T   C    -      -         2
func Cohort() Fixture {
	return Fixture{
		Variants: []FixtureVariant{
			{ID: 1, Chr: "chr1", Pos: 100, Ref: "A", Alt: "G", Qual: 30, RSID: "rs100"},
			{ID: 2, Chr: "chr1", Pos: 200, Ref: "C", Alt: "T", Qual: 12.5},
			{ID: 3, Chr: "chr2", Pos: 300, Ref: "G", Alt: "A", Qual: 50, RSID: "rs300"},
			{ID: 4, Chr: "chr2", Pos: 400, Ref: "T", Alt: "C", Qual: 8},
		},
		Annotations: []FixtureAnnotation{
			{Variant: 1, Gene: "BRCA1", Transcript: "NM_007294", Consequence: "missense_variant", Impact: "MODERATE"},
			{Variant: 2, Gene: "BRCA1", Transcript: "NM_007294", Consequence: "stop_gained", Impact: "HIGH"},
			{Variant: 3, Gene: "TP53", Transcript: "NM_000546", Consequence: "synonymous_variant", Impact: "LOW"},
		},
		Samples: []FixtureSample{
			{Name: "alice", Phenotype: 2},
			{Name: "bob", Phenotype: 1},
		},
		Genotypes: []FixtureGenotype{
			{Sample: "alice", Variant: 1, GT: 1, DP: 30},
			{Sample: "alice", Variant: 2, GT: 2, DP: 25},
			{Sample: "alice", Variant: 3, GT: 1, DP: 40},
			{Sample: "bob", Variant: 1, GT: 0, DP: 22},
			{Sample: "bob", Variant: 3, GT: 1, DP: 35},
			{Sample: "bob", Variant: 4, GT: 2, DP: 18},
		},
		Selections: map[string][]int64{
			"A": {1, 2, 3},
			"B": {3, 4},
		},
		Sets: map[string][]string{
			"genes": {"BRCA1", "BRCA2"},
		},
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

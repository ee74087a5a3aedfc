package querysql

import (
	"fmt"
	"strings"
)

// Field categories of the catalog. A category names the table that owns
// the field; sample fields live in the per-sample genotype table.
const (
	CategoryVariants    = "variants"
	CategoryAnnotations = "annotations"
	CategorySamples     = "samples"
)

// FieldInfo describes one known field.
type FieldInfo struct {
	Name        string
	Category    string
	Type        string
	Description string
}

// Catalog maps a bare field name to its description.
type Catalog map[string]FieldInfo

// NewCatalog indexes fields by name. When two categories define the same
// name, the later entry wins, except that a samples entry never shadows a
// table field.
func NewCatalog(fields []FieldInfo) Catalog {
	c := make(Catalog, len(fields))
	for _, f := range fields {
		if prev, ok := c[f.Name]; ok && f.Category == CategorySamples && prev.Category != CategorySamples {
			continue
		}
		c[f.Name] = f
	}
	return c
}

// SampleIndex maps a sample name to its database id.
type SampleIndex map[string]int64

// MissingSample selects what the compiler does when a genotype field names
// a sample absent from the SampleIndex.
type MissingSample int

const (
	// MissingSampleSkip emits no join for the sample. The query then fails
	// in the database if the sample's columns are referenced.
	MissingSampleSkip MissingSample = iota
	// MissingSampleFail rejects the request with a CompileError.
	MissingSampleFail
)

func (m MissingSample) String() string {
	switch m {
	case MissingSampleSkip:
		return "skip"
	case MissingSampleFail:
		return "fail"
	default:
		return fmt.Sprintf("MissingSample(%d)", int(m))
	}
}

// ParseMissingSample parses "skip" or "fail".
func ParseMissingSample(s string) (MissingSample, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return MissingSampleSkip, nil
	case "fail":
		return MissingSampleFail, nil
	default:
		return 0, fmt.Errorf("unknown missing-sample policy %q (expected skip or fail)", s)
	}
}

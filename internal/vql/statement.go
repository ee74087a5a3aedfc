package vql

import (
	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

// Kind is the command tag of a statement.
type Kind string

const (
	KindSelect Kind = "select_cmd"
	KindCount  Kind = "count_cmd"
	KindCreate Kind = "create_cmd"
	KindSet    Kind = "set_cmd"
	KindBed    Kind = "bed_cmd"
	KindShow   Kind = "show_cmd"
	KindImport Kind = "import_cmd"
	KindDrop   Kind = "drop_cmd"
)

func (k Kind) String() string { return string(k) }

// Features accepted by SHOW, DROP and IMPORT.
const (
	FeatureSelections = "selections"
	FeatureFields     = "fields"
	FeatureSamples    = "samples"
	FeatureSets       = "sets"
)

// DefaultSource is the unfiltered variants table.
const DefaultSource = "variants"

// Statement is one parsed VQL command.
//
// This is a sealed interface - only the statement types of this package
// implement it.
type Statement interface {
	Kind() Kind
	statement()
}

// SetOp is the operator of a set-algebra CREATE.
type SetOp string

const (
	Union     SetOp = "+"
	Subtract  SetOp = "-"
	Intersect SetOp = "&"
)

// Select is SELECT <fields> FROM <source> [WHERE] [GROUP BY] [HAVING]
// [ORDER BY] [LIMIT [OFFSET]].
type Select struct {
	Fields    []ir.FieldRef
	Source    string
	Filters   queryir.Node // nil when there is no WHERE
	GroupBy   []ir.FieldRef
	Having    queryir.Node
	OrderBy   *ir.FieldRef
	OrderDesc bool
	Limit     *int // nil means no pagination was requested
	Offset    int
}

// Count is COUNT FROM <source> [WHERE].
type Count struct {
	Source  string
	Filters queryir.Node
}

// Create is CREATE <target> FROM <source> [WHERE].
type Create struct {
	Target  string
	Source  string
	Filters queryir.Node
}

// Set is CREATE <target> = <first> <op> <second>.
type Set struct {
	Target   string
	First    string
	Second   string
	Operator SetOp
}

// BedImport is CREATE <target> FROM <source> INTERSECT "<path>".
type BedImport struct {
	Target string
	Source string
	Path   string
}

// Show is SHOW <feature>.
type Show struct {
	Feature string
}

// Import is IMPORT <feature> <name> "<path>".
type Import struct {
	Feature string
	Name    string
	Path    string
}

// Drop is DROP <feature> <name>.
type Drop struct {
	Feature string
	Name    string
}

func (Select) Kind() Kind    { return KindSelect }
func (Count) Kind() Kind     { return KindCount }
func (Create) Kind() Kind    { return KindCreate }
func (Set) Kind() Kind       { return KindSet }
func (BedImport) Kind() Kind { return KindBed }
func (Show) Kind() Kind      { return KindShow }
func (Import) Kind() Kind    { return KindImport }
func (Drop) Kind() Kind      { return KindDrop }

func (Select) statement()    {}
func (Count) statement()     {}
func (Create) statement()    {}
func (Set) statement()       {}
func (BedImport) statement() {}
func (Show) statement()      {}
func (Import) statement()    {}
func (Drop) statement()      {}

// showFeatures, dropFeatures and importFeatures list the features each
// command accepts.
var (
	showFeatures   = []string{FeatureSelections, FeatureFields, FeatureSamples, FeatureSets}
	dropFeatures   = []string{FeatureSelections, FeatureSets}
	importFeatures = []string{FeatureSets}
)

// ShowFeatures returns the features accepted by SHOW.
func ShowFeatures() []string { return append([]string(nil), showFeatures...) }

// DropFeatures returns the features accepted by DROP.
func DropFeatures() []string { return append([]string(nil), dropFeatures...) }

// ImportFeatures returns the features accepted by IMPORT.
func ImportFeatures() []string { return append([]string(nil), importFeatures...) }

package ir

import (
	"fmt"
	"strings"
)

// Function names recognized in field references.
const (
	// GenotypeFunc selects per-sample genotype columns: sample("alice").gt
	GenotypeFunc = "sample"

	// SetFunc references a named set of values: set("wordsetA")
	SetFunc = "set"

	// DefaultGenotypeField is used when sample["name"] omits the field.
	DefaultGenotypeField = "gt"
)

// FieldKind distinguishes the three shapes of a field reference.
type FieldKind int

const (
	// FieldPlain is a bare identifier: chr
	FieldPlain FieldKind = iota
	// FieldQualified is a table.field pair: annotations.gene
	FieldQualified
	// FieldFunc is a function-call reference: sample("alice").gt, set("x")
	FieldFunc
)

func (k FieldKind) String() string {
	switch k {
	case FieldPlain:
		return "plain"
	case FieldQualified:
		return "qualified"
	case FieldFunc:
		return "func"
	default:
		return fmt.Sprintf("FieldKind(%d)", int(k))
	}
}

// FieldRef names a column, either directly or through a function call.
//
//	Field("chr")                    → chr
//	Qualified("annotations","gene") → annotations.gene
//	Call("sample","alice","gt")     → sample("alice").gt
//	Call("set","wordsetA","")       → set("wordsetA")
//
// FieldRef is comparable and can be used as a map key.
type FieldRef struct {
	Table string // owning table (FieldQualified only)
	Name  string // column name; the trailing field for FieldFunc (may be empty)
	Func  string // function name (FieldFunc only)
	Arg   string // function argument (FieldFunc only)
}

// Field creates a bare field reference.
func Field(name string) FieldRef {
	return FieldRef{Name: name}
}

// Qualified creates a table.field reference.
func Qualified(table, name string) FieldRef {
	return FieldRef{Table: table, Name: name}
}

// Call creates a function-call field reference.
// The genotype function is normalized so that "samples" and "sample" are
// the same reference.
func Call(fn, arg, field string) FieldRef {
	fn = strings.ToLower(fn)
	if fn == GenotypeFunc+"s" {
		fn = GenotypeFunc
	}
	return FieldRef{Func: fn, Arg: arg, Name: field}
}

// Kind reports the shape of the reference.
func (f FieldRef) Kind() FieldKind {
	switch {
	case f.Func != "":
		return FieldFunc
	case f.Table != "":
		return FieldQualified
	default:
		return FieldPlain
	}
}

// IsGenotype reports whether f is a sample("name").field reference.
func (f FieldRef) IsGenotype() bool {
	return f.Func == GenotypeFunc
}

// IsZero reports whether f is the empty reference.
func (f FieldRef) IsZero() bool {
	return f == FieldRef{}
}

// String returns the dotted display form used for column aliases:
// chr, annotations.gene, sample.alice.gt, set.wordsetA.
func (f FieldRef) String() string {
	switch f.Kind() {
	case FieldQualified:
		return f.Table + "." + f.Name
	case FieldFunc:
		if f.Name == "" {
			return f.Func + "." + f.Arg
		}
		return f.Func + "." + f.Arg + "." + f.Name
	default:
		return f.Name
	}
}

// Tuple returns the (function, argument, field) triple of a function
// reference, the wire form used by ToDict.
func (f FieldRef) Tuple() []any {
	return []any{f.Func, f.Arg, f.Name}
}

// FieldFromGo decodes the wire form of a field reference: a string
// ("chr" or "annotations.gene") or a 2/3-element array (function, argument[, field]).
func FieldFromGo(v any) (FieldRef, error) {
	switch val := v.(type) {
	case string:
		if val == "" {
			return FieldRef{}, fmt.Errorf("empty field name")
		}
		if table, name, ok := strings.Cut(val, "."); ok {
			if table == "" || name == "" || strings.Contains(name, ".") {
				return FieldRef{}, fmt.Errorf("malformed field %q", val)
			}
			return Qualified(table, name), nil
		}
		return Field(val), nil
	case []any:
		if len(val) != 2 && len(val) != 3 {
			return FieldRef{}, fmt.Errorf("function field must have 2 or 3 elements, got %d", len(val))
		}
		parts := make([]string, 3)
		for i, elem := range val {
			s, ok := elem.(string)
			if !ok {
				return FieldRef{}, fmt.Errorf("function field element %d: expected string, got %T", i, elem)
			}
			parts[i] = s
		}
		if parts[0] == "" || parts[1] == "" {
			return FieldRef{}, fmt.Errorf("function field requires name and argument")
		}
		return Call(parts[0], parts[1], parts[2]), nil
	default:
		return FieldRef{}, fmt.Errorf("unsupported field type %T", v)
	}
}

// FieldToGo is the inverse of FieldFromGo.
func FieldToGo(f FieldRef) any {
	if f.Kind() == FieldFunc {
		return f.Tuple()
	}
	return f.String()
}

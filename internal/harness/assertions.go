package harness

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/roach88/vql/internal/engine"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/vql"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext provides access to the final database.
type AssertionContext struct {
	Store *store.Store
	Ctx   context.Context
}

// EvaluateAssertions runs every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertSelection:
			err = assertSelection(actx, a)
		case AssertNoSelection:
			err = assertNoSelection(actx, a)
		case AssertSet:
			err = assertSet(actx, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return errs
}

func assertSelection(actx *AssertionContext, a Assertion) error {
	sel, err := actx.Store.Selection(actx.Ctx, a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return &AssertionError{
			Type:     AssertSelection,
			Expected: fmt.Sprintf("selection %q exists", a.Name),
			Actual:   "not found",
		}
	}
	if err != nil {
		return err
	}

	if a.Count != nil && sel.Count != *a.Count {
		return &AssertionError{
			Type:     AssertSelection,
			Expected: fmt.Sprintf("selection %q count %d", a.Name, *a.Count),
			Actual:   fmt.Sprintf("count %d", sel.Count),
		}
	}

	if a.IDs != nil {
		ids, err := actx.Store.SelectionIDs(actx.Ctx, a.Name)
		if err != nil {
			return err
		}
		want := slices.Clone(a.IDs)
		slices.Sort(want)
		if !slices.Equal(want, ids) {
			return &AssertionError{
				Type:     AssertSelection,
				Expected: fmt.Sprintf("selection %q ids %v", a.Name, want),
				Actual:   fmt.Sprintf("ids %v", ids),
			}
		}
	}
	return nil
}

func assertNoSelection(actx *AssertionContext, a Assertion) error {
	_, err := actx.Store.Selection(actx.Ctx, a.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	return &AssertionError{
		Type:     AssertNoSelection,
		Expected: fmt.Sprintf("no selection %q", a.Name),
		Actual:   "selection exists",
	}
}

func assertSet(actx *AssertionContext, a Assertion) error {
	values, err := actx.Store.SetValues(actx.Ctx, a.Name)
	if err != nil {
		return err
	}
	got := slices.Sorted(slices.Values(values))
	want := slices.Sorted(slices.Values(a.Values))
	if !slices.Equal(want, got) {
		return &AssertionError{
			Type:     AssertSet,
			Expected: fmt.Sprintf("set %q values %v", a.Name, want),
			Actual:   fmt.Sprintf("values %v", got),
		}
	}
	return nil
}

// checkExpect compares an executed step against its expectation.
func checkExpect(index int, exp *Expect, event TraceEvent, err error) []string {
	prefix := fmt.Sprintf("steps[%d] %q", index, event.VQL)

	if exp == nil || exp.Error == "" {
		if err != nil {
			return []string{fmt.Sprintf("%s: unexpected error: %v", prefix, err)}
		}
	}
	if exp == nil {
		return nil
	}

	if exp.Error != "" {
		if err == nil {
			return []string{fmt.Sprintf("%s: expected %s error, got success", prefix, exp.Error)}
		}
		if kind := errorKind(err); exp.Error != ErrorAny && kind != exp.Error {
			return []string{fmt.Sprintf("%s: expected %s error, got %s error: %v", prefix, exp.Error, kind, err)}
		}
		return nil
	}

	var errs []string
	for _, key := range sortedKeys(exp.Record) {
		got, ok := event.Record[key]
		if !ok {
			errs = append(errs, fmt.Sprintf("%s: record has no %q", prefix, key))
			continue
		}
		if !matchValue(exp.Record[key], got) {
			errs = append(errs, fmt.Sprintf("%s: record[%q] = %v, want %v", prefix, key, got, exp.Record[key]))
		}
	}

	if exp.Rows != nil && len(event.Rows) != *exp.Rows {
		errs = append(errs, fmt.Sprintf("%s: got %d rows, want %d", prefix, len(event.Rows), *exp.Rows))
	}

	if len(exp.Records) > len(event.Rows) {
		return append(errs, fmt.Sprintf("%s: got %d rows, want at least %d", prefix, len(event.Rows), len(exp.Records)))
	}
	for i, want := range exp.Records {
		if !matchArgs(event.Rows[i], want) {
			errs = append(errs, fmt.Sprintf("%s: row %d = %v, want subset %v", prefix, i, event.Rows[i], want))
		}
	}
	return errs
}

// errorKind classifies err by the typed error it wraps.
func errorKind(err error) string {
	switch {
	case vql.IsParseError(err):
		return ErrorParse
	case querysql.IsCompileError(err):
		return ErrorCompile
	case engine.IsFeatureError(err):
		return ErrorFeature
	case engine.IsPathError(err):
		return ErrorPath
	default:
		return "storage"
	}
}

// matchArgs reports whether every key of expected is in actual with a
// matching value.
func matchArgs(actual, expected map[string]any) bool {
	for key, want := range expected {
		got, ok := actual[key]
		if !ok || !matchValue(want, got) {
			return false
		}
	}
	return true
}

// matchValue compares a YAML value with a database value. Numbers compare
// by value regardless of their Go type.
func matchValue(want, got any) bool {
	if wf, ok := toFloat(want); ok {
		gf, ok := toFloat(got)
		return ok && wf == gf
	}
	return reflect.DeepEqual(want, got)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

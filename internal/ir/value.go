package ir

import (
	"encoding/json"
	"fmt"
	"math"
)

// Value is a sealed interface representing the literal operand of a
// filter condition.
// Only Int, Float, String, Bool, List and SetRef implement it.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Int is an integer literal.
type Int int64

func (Int) irValue() {}

// Float is a floating point literal.
type Float float64

func (Float) irValue() {}

// String is a text literal.
type String string

func (String) irValue() {}

// Bool is a boolean literal.
type Bool bool

func (Bool) irValue() {}

// List is an ordered sequence of scalar values, used by IN and NOT IN.
type List []Value

func (List) irValue() {}

// SetRef references the values stored under a named set: set("name").
// It compiles to a sub-query over the sets table.
type SetRef struct {
	Name string
}

func (SetRef) irValue() {}

// NewList creates a List from scalar values.
func NewList(vals ...Value) List {
	return List(vals)
}

// IsScalar reports whether v is an Int, Float, String or Bool.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Int, Float, String, Bool:
		return true
	default:
		return false
	}
}

// ValidateValue checks the structural rules of a value:
// lists hold scalars only and floats must be finite.
func ValidateValue(v Value) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("value is nil")
	case Float:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return fmt.Errorf("non-finite float %v", float64(val))
		}
	case List:
		for i, elem := range val {
			if !IsScalar(elem) {
				return fmt.Errorf("list[%d]: %T is not a scalar", i, elem)
			}
			if err := ValidateValue(elem); err != nil {
				return fmt.Errorf("list[%d]: %w", i, err)
			}
		}
	case SetRef:
		if val.Name == "" {
			return fmt.Errorf("set reference has empty name")
		}
	case Int, String, Bool:
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}

// FromGo converts a decoded JSON/YAML value into a Value.
//
// Accepted inputs: string, bool, int, int64, float64, json.Number,
// []any of scalars, and map[string]any{"set": name}.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, fmt.Errorf("null is not a valid value")
	case Value:
		return val, ValidateValue(val)
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		return Float(val), ValidateValue(Float(val))
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return Float(f), ValidateValue(Float(f))
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			ev, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			list[i] = ev
		}
		return list, ValidateValue(list)
	case map[string]any:
		name, ok := val[SetFunc].(string)
		if !ok || len(val) != 1 {
			return nil, fmt.Errorf("object value must be {%q: name}", SetFunc)
		}
		return SetRef{Name: name}, ValidateValue(SetRef{Name: name})
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToGo converts a Value into plain Go data, the inverse of FromGo.
func ToGo(v Value) any {
	switch val := v.(type) {
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case SetRef:
		return map[string]any{SetFunc: val.Name}
	default:
		return nil
	}
}

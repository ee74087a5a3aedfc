package queryir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/vql/internal/ir"
)

// Dict keys of a condition in the wire form.
const (
	KeyField    = "field"
	KeyOperator = "operator"
	KeyValue    = "value"
)

// ToDict converts the tree to its nested-map wire form:
//
//	{"AND": [{"field": "a", "operator": "=", "value": 3}, {"OR": [...]}]}
//
// Function fields become ["sample", "alice", "gt"]; set references become
// {"set": "name"}. The empty tree is an empty map.
func ToDict(n Node) map[string]any {
	switch node := deref(n).(type) {
	case Condition:
		return map[string]any{
			KeyField:    ir.FieldToGo(node.Field),
			KeyOperator: string(node.Op),
			KeyValue:    ir.ToGo(node.Value),
		}
	case Logic:
		children := make([]any, len(node.Children))
		for i, child := range node.Children {
			children[i] = ToDict(child)
		}
		return map[string]any{string(node.Op): children}
	default:
		return map[string]any{}
	}
}

// FromDict is the inverse of ToDict. The result is validated.
func FromDict(d map[string]any) (Node, error) {
	n, err := fromDict(d, "")
	if err != nil {
		return nil, err
	}
	if err := Validate(n); err != nil {
		return nil, err
	}
	return n, nil
}

func fromDict(d map[string]any, path string) (Node, error) {
	if len(d) == 0 {
		return nil, nil
	}

	if _, isCondition := d[KeyField]; isCondition {
		return conditionFromDict(d, path)
	}

	if len(d) != 1 {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("logic node must have exactly one key, got %d", len(d))}
	}

	for key, raw := range d {
		op := LogicOp(strings.ToUpper(key))
		if !op.Valid() {
			return nil, &ValidationError{Path: path, Message: fmt.Sprintf("unknown logic operator %q", key)}
		}
		items, ok := raw.([]any)
		if !ok {
			return nil, &ValidationError{Path: path, Message: fmt.Sprintf("%s expects a list of children, got %T", op, raw)}
		}

		logic := Logic{Op: op, Children: make([]Node, 0, len(items))}
		for i, item := range items {
			childPath := fmt.Sprintf("%s[%d]", op, i)
			if path != "" {
				childPath = path + "." + childPath
			}
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &ValidationError{Path: childPath, Message: fmt.Sprintf("child must be an object, got %T", item)}
			}
			child, err := fromDict(m, childPath)
			if err != nil {
				return nil, err
			}
			if child != nil {
				logic.Children = append(logic.Children, child)
			}
		}
		return logic, nil
	}
	return nil, nil // unreachable: len(d) == 1
}

func conditionFromDict(d map[string]any, path string) (Node, error) {
	for key := range d {
		if key != KeyField && key != KeyOperator && key != KeyValue {
			return nil, &ValidationError{Path: path, Message: fmt.Sprintf("unexpected condition key %q", key)}
		}
	}

	field, err := ir.FieldFromGo(d[KeyField])
	if err != nil {
		return nil, &ValidationError{Path: path, Message: err.Error()}
	}

	opText, ok := d[KeyOperator].(string)
	if !ok {
		return nil, &ValidationError{Path: path, Message: "operator must be a string"}
	}
	op, err := ParseOperator(opText)
	if err != nil {
		return nil, &ValidationError{Path: path, Message: err.Error()}
	}

	value, err := ir.FromGo(d[KeyValue])
	if err != nil {
		return nil, &ValidationError{Path: path, Message: fmt.Sprintf("value: %v", err)}
	}

	return Condition{Field: field, Op: op, Value: value}, nil
}

// MarshalJSON encodes the tree in its wire form.
func MarshalJSON(n Node) ([]byte, error) {
	return json.Marshal(ToDict(n))
}

// UnmarshalJSON decodes the wire form. Numbers keep their integer/float
// distinction.
func UnmarshalJSON(data []byte) (Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var d map[string]any
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode filter: %w", err)
	}
	return FromDict(d)
}

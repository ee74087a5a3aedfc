package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/vql/internal/ir"
)

// ValidationError describes one structural fault of a filter tree.
type ValidationError struct {
	// Path locates the node, e.g. "AND[1].OR[0]". Empty for the root.
	Path    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Validate checks the structural rules of a filter tree:
//  1. Logic nodes use AND or OR and have no nil children
//  2. Conditions have a field, a known operator and a well-formed value
//  3. IN / NOT IN take a non-empty list or a set reference
//  4. Other operators take a scalar; ~ and HAS take a string
//
// All faults are collected; the result is nil or an errors.Join of
// *ValidationError values. Validate is a pure function.
func Validate(n Node) error {
	v := &validator{}
	v.validateNode(n, "")
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) addError(path, format string, args ...any) {
	v.errs = append(v.errs, &ValidationError{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (v *validator) validateNode(n Node, path string) {
	switch node := deref(n).(type) {
	case nil:
		// nil is the empty tree
	case Logic:
		v.validateLogic(node, path)
	case Condition:
		v.validateCondition(node, path)
	default:
		v.addError(path, "unknown node type %T", n)
	}
}

func (v *validator) validateLogic(l Logic, path string) {
	if !l.Op.Valid() {
		v.addError(path, "unknown logic operator %q", l.Op)
	}
	for i, child := range l.Children {
		childPath := fmt.Sprintf("%s[%d]", l.Op, i)
		if path != "" {
			childPath = path + "." + childPath
		}
		if child == nil || deref(child) == nil {
			v.addError(childPath, "nil child")
			continue
		}
		v.validateNode(child, childPath)
	}
}

func (v *validator) validateCondition(c Condition, path string) {
	switch c.Field.Kind() {
	case ir.FieldFunc:
		if c.Field.Arg == "" {
			v.addError(path, "function field %q has no argument", c.Field.Func)
		}
		if c.Field.Func == ir.SetFunc {
			v.addError(path, "set(%q) cannot be used as a condition field", c.Field.Arg)
		}
	default:
		if c.Field.Name == "" {
			v.addError(path, "condition has no field")
		}
	}

	if !c.Op.Valid() {
		v.addError(path, "unknown operator %q", c.Op)
		return
	}

	if err := ir.ValidateValue(c.Value); err != nil {
		v.addError(path, "field %s: %v", c.Field, err)
		return
	}

	switch val := c.Value.(type) {
	case ir.List:
		if !c.Op.IsMembership() {
			v.addError(path, "operator %s does not accept a list", c.Op)
		} else if len(val) == 0 {
			v.addError(path, "operator %s requires a non-empty list", c.Op)
		}
	case ir.SetRef:
		if !c.Op.IsMembership() {
			v.addError(path, "operator %s does not accept set(%q)", c.Op, val.Name)
		}
	default:
		if c.Op.IsMembership() {
			v.addError(path, "operator %s requires a list or a set reference", c.Op)
		}
		if _, isString := val.(ir.String); (c.Op == Regex || c.Op == Has) && !isString {
			v.addError(path, "operator %s requires a string value", c.Op)
		}
	}
}

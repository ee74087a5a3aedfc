package queryir

import (
	"fmt"
	"strings"

	"github.com/roach88/vql/internal/ir"
)

// Node is a filter tree node.
//
// This is a sealed interface - only Logic and Condition implement it.
type Node interface {
	filterNode() // Marker method - seals interface to this package
}

// LogicOp is the boolean connective of a Logic node.
type LogicOp string

const (
	And LogicOp = "AND"
	Or  LogicOp = "OR"
)

// Valid reports whether op is AND or OR.
func (op LogicOp) Valid() bool {
	return op == And || op == Or
}

// Operator is a comparison operator of a Condition.
type Operator string

const (
	Eq    Operator = "="
	Ne    Operator = "!="
	Lt    Operator = "<"
	Le    Operator = "<="
	Gt    Operator = ">"
	Ge    Operator = ">="
	In    Operator = "IN"
	NotIn Operator = "NOT IN"
	Regex Operator = "~"
	Has   Operator = "HAS"
)

// Operators lists every supported comparison operator.
var Operators = []Operator{Eq, Ne, Lt, Le, Gt, Ge, In, NotIn, Regex, Has}

// ParseOperator normalizes s (case, inner whitespace) and returns the
// matching operator.
func ParseOperator(s string) (Operator, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), " "))
	for _, op := range Operators {
		if string(op) == norm {
			return op, nil
		}
	}
	return "", fmt.Errorf("unknown operator %q", s)
}

// Valid reports whether op is one of Operators.
func (op Operator) Valid() bool {
	for _, known := range Operators {
		if op == known {
			return true
		}
	}
	return false
}

// IsMembership reports whether op is IN or NOT IN.
func (op Operator) IsMembership() bool {
	return op == In || op == NotIn
}

// Logic combines ordered children with one connective.
//
// Semantics:
//
//	(<child1> <op> <child2> <op> ... <childN>)
//
// Empty Children means "no predicate" (not "always true"/"always false"):
// the compiler omits the clause entirely.
type Logic struct {
	Op       LogicOp
	Children []Node
}

func (Logic) filterNode() {}

// Condition compares one field with one value.
//
// Example:
//
//	Condition{Field: ir.Field("ref"), Op: Eq, Value: ir.String("A")}
//
// Translates to SQL:
//
//	`variants`.`ref` = ?   -- args: ["A"]
type Condition struct {
	Field ir.FieldRef
	Op    Operator
	Value ir.Value
}

func (Condition) filterNode() {}

// NewAnd builds an AND node.
func NewAnd(children ...Node) Logic {
	return Logic{Op: And, Children: children}
}

// NewOr builds an OR node.
func NewOr(children ...Node) Logic {
	return Logic{Op: Or, Children: children}
}

// Cond builds a Condition.
func Cond(field ir.FieldRef, op Operator, value ir.Value) Condition {
	return Condition{Field: field, Op: op, Value: value}
}

// deref maps pointer forms to value forms so callers switch on two cases.
// A nil pointer is the empty tree.
func deref(n Node) Node {
	switch v := n.(type) {
	case *Logic:
		if v == nil {
			return nil
		}
		return *v
	case *Condition:
		if v == nil {
			return nil
		}
		return *v
	default:
		return n
	}
}

// IsEmpty reports whether n contains no condition at all.
func IsEmpty(n Node) bool {
	return len(Flatten(n)) == 0
}

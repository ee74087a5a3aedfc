package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

// FieldResolver maps a field reference to its SQL expression.
type FieldResolver func(f ir.FieldRef) (string, error)

// Fragment renders a filter tree as a SQL boolean expression with ?
// placeholders, returning the arguments in placeholder order.
//
// Rendering rules:
//   - ~ becomes REGEXP and HAS becomes LIKE '%value%'
//   - IN / NOT IN take a placeholder list or a sub-query over the sets table
//   - a Logic node with several rendered children is parenthesized; a node
//     with one child renders as that child; an empty node renders as ""
//
// The tree must already be valid (queryir.Validate).
func Fragment(n queryir.Node, resolve FieldResolver) (string, []any, error) {
	r := &fragmentRenderer{resolve: resolve}
	sql, err := r.node(n)
	if err != nil {
		return "", nil, err
	}
	return sql, r.args, nil
}

type fragmentRenderer struct {
	resolve FieldResolver
	args    []any
}

func (r *fragmentRenderer) node(n queryir.Node) (string, error) {
	switch node := n.(type) {
	case nil:
		return "", nil
	case queryir.Logic:
		return r.logic(node)
	case *queryir.Logic:
		if node == nil {
			return "", nil
		}
		return r.logic(*node)
	case queryir.Condition:
		return r.condition(node)
	case *queryir.Condition:
		if node == nil {
			return "", nil
		}
		return r.condition(*node)
	default:
		return "", compileErrorf("", "unsupported filter node %T", n)
	}
}

func (r *fragmentRenderer) logic(l queryir.Logic) (string, error) {
	if !l.Op.Valid() {
		return "", compileErrorf("", "unknown logic operator %q", l.Op)
	}
	parts := make([]string, 0, len(l.Children))
	for _, child := range l.Children {
		sql, err := r.node(child)
		if err != nil {
			return "", err
		}
		if sql != "" {
			parts = append(parts, sql)
		}
	}
	switch len(parts) {
	case 0:
		return "", nil
	case 1:
		return parts[0], nil
	default:
		return "(" + strings.Join(parts, " "+string(l.Op)+" ") + ")", nil
	}
}

func (r *fragmentRenderer) condition(c queryir.Condition) (string, error) {
	col, err := r.resolve(c.Field)
	if err != nil {
		return "", err
	}

	switch c.Op {
	case queryir.Eq, queryir.Ne, queryir.Lt, queryir.Le, queryir.Gt, queryir.Ge:
		return r.scalar(col, string(c.Op), c)
	case queryir.Regex:
		return r.scalar(col, "REGEXP", c)
	case queryir.Has:
		s, ok := c.Value.(ir.String)
		if !ok {
			return "", compileErrorf(c.Field.String(), "HAS requires a string, got %T", c.Value)
		}
		r.args = append(r.args, hasPattern(string(s)))
		return col + " LIKE ?", nil
	case queryir.In, queryir.NotIn:
		return r.membership(col, c)
	default:
		return "", compileErrorf(c.Field.String(), "unknown operator %q", c.Op)
	}
}

func (r *fragmentRenderer) scalar(col, op string, c queryir.Condition) (string, error) {
	arg, err := param(c.Value)
	if err != nil {
		return "", compileErrorf(c.Field.String(), "operator %s: %v", c.Op, err)
	}
	r.args = append(r.args, arg)
	return fmt.Sprintf("%s %s ?", col, op), nil
}

func (r *fragmentRenderer) membership(col string, c queryir.Condition) (string, error) {
	switch val := c.Value.(type) {
	case ir.SetRef:
		r.args = append(r.args, val.Name)
		return fmt.Sprintf("%s %s (SELECT value FROM sets WHERE name = ?)", col, c.Op), nil
	case ir.List:
		if len(val) == 0 {
			return "", compileErrorf(c.Field.String(), "%s requires a non-empty list", c.Op)
		}
		marks := make([]string, len(val))
		for i, elem := range val {
			arg, err := param(elem)
			if err != nil {
				return "", compileErrorf(c.Field.String(), "list[%d]: %v", i, err)
			}
			r.args = append(r.args, arg)
			marks[i] = "?"
		}
		return fmt.Sprintf("%s %s (%s)", col, c.Op, strings.Join(marks, ", ")), nil
	default:
		return "", compileErrorf(c.Field.String(), "%s requires a list or a set reference, got %T", c.Op, c.Value)
	}
}

// hasPattern builds the LIKE pattern of HAS: the value wrapped in % with
// both quote characters replaced by %.
func hasPattern(s string) string {
	s = strings.NewReplacer(`'`, "%", `"`, "%").Replace(s)
	return "%" + s + "%"
}

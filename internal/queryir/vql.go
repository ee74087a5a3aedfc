package queryir

import (
	"strconv"
	"strings"

	"github.com/roach88/vql/internal/ir"
)

// ToVQL renders the tree back to VQL syntax for history and presets.
//
// Unlike the SQL rendering there is no REGEXP/LIKE translation: the
// operators are written as the user typed them. Every Logic node with at
// least one rendered child is parenthesized, so the output re-parses to an
// equivalent tree. The empty tree renders to "".
func ToVQL(n Node) string {
	switch node := deref(n).(type) {
	case Condition:
		return FieldVQL(node.Field) + " " + string(node.Op) + " " + ValueVQL(node.Value)
	case Logic:
		parts := make([]string, 0, len(node.Children))
		for _, child := range node.Children {
			if s := ToVQL(child); s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return ""
		}
		return "(" + strings.Join(parts, " "+string(node.Op)+" ") + ")"
	default:
		return ""
	}
}

// FieldVQL renders a field reference in VQL syntax.
func FieldVQL(f ir.FieldRef) string {
	switch f.Kind() {
	case ir.FieldQualified:
		return f.Table + "." + f.Name
	case ir.FieldFunc:
		call := f.Func + "(" + QuoteVQLString(f.Arg) + ")"
		if f.Name == "" {
			return call
		}
		return call + "." + f.Name
	default:
		return f.Name
	}
}

// ValueVQL renders a literal in VQL syntax.
func ValueVQL(v ir.Value) string {
	switch val := v.(type) {
	case ir.Int:
		return strconv.FormatInt(int64(val), 10)
	case ir.Float:
		s := strconv.FormatFloat(float64(val), 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	case ir.String:
		return QuoteVQLString(string(val))
	case ir.Bool:
		return strconv.FormatBool(bool(val))
	case ir.List:
		items := make([]string, len(val))
		for i, elem := range val {
			items[i] = ValueVQL(elem)
		}
		return "(" + strings.Join(items, ", ") + ")"
	case ir.SetRef:
		return ir.SetFunc + "(" + QuoteVQLString(val.Name) + ")"
	default:
		return ""
	}
}

// QuoteVQLString single-quotes s, escaping backslash and single quote
// with a backslash.
func QuoteVQLString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\\' || r == '\'' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('\'')
	return b.String()
}

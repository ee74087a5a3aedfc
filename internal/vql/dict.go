package vql

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

// ToDict returns the dictionary form of a statement, keyed by "cmd":
//
//	{"cmd": "select_cmd", "fields": ["chr", ["sample", "sacha", "gt"]],
//	 "filters": {}, "group_by": [], "source": "variants"}
//
// Optional SELECT clauses (having, order_by, order_desc, limit, offset)
// appear only when set.
func ToDict(stmt Statement) map[string]any {
	switch s := stmt.(type) {
	case Select:
		d := map[string]any{
			"cmd":      s.Kind().String(),
			"fields":   fieldsToGo(s.Fields),
			"filters":  queryir.ToDict(s.Filters),
			"group_by": fieldsToGo(s.GroupBy),
			"source":   s.Source,
		}
		if s.Having != nil {
			d["having"] = queryir.ToDict(s.Having)
		}
		if s.OrderBy != nil {
			d["order_by"] = ir.FieldToGo(*s.OrderBy)
			d["order_desc"] = s.OrderDesc
		}
		if s.Limit != nil {
			d["limit"] = *s.Limit
			d["offset"] = s.Offset
		}
		return d
	case Count:
		return map[string]any{
			"cmd":     s.Kind().String(),
			"source":  s.Source,
			"filters": queryir.ToDict(s.Filters),
		}
	case Create:
		return map[string]any{
			"cmd":     s.Kind().String(),
			"source":  s.Source,
			"filters": queryir.ToDict(s.Filters),
			"target":  s.Target,
		}
	case Set:
		return map[string]any{
			"cmd":      s.Kind().String(),
			"first":    s.First,
			"second":   s.Second,
			"operator": string(s.Operator),
			"target":   s.Target,
		}
	case BedImport:
		return map[string]any{
			"cmd":    s.Kind().String(),
			"target": s.Target,
			"source": s.Source,
			"path":   s.Path,
		}
	case Show:
		return map[string]any{"cmd": s.Kind().String(), "feature": s.Feature}
	case Import:
		return map[string]any{
			"cmd":     s.Kind().String(),
			"feature": s.Feature,
			"name":    s.Name,
			"path":    s.Path,
		}
	case Drop:
		return map[string]any{"cmd": s.Kind().String(), "feature": s.Feature, "name": s.Name}
	default:
		panic(fmt.Sprintf("vql: unknown statement type %T", stmt))
	}
}

func fieldsToGo(fields []ir.FieldRef) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = ir.FieldToGo(f)
	}
	return out
}

// String renders a statement back to VQL.
func String(stmt Statement) string {
	switch s := stmt.(type) {
	case Select:
		out := "SELECT " + fieldsVQL(s.Fields) + " FROM " + nameVQL(s.Source)
		if w := queryir.ToVQL(s.Filters); w != "" {
			out += " WHERE " + w
		}
		if len(s.GroupBy) > 0 {
			out += " GROUP BY " + fieldsVQL(s.GroupBy)
		}
		if h := queryir.ToVQL(s.Having); h != "" {
			out += " HAVING " + h
		}
		if s.OrderBy != nil {
			dir := "ASC"
			if s.OrderDesc {
				dir = "DESC"
			}
			out += " ORDER BY " + queryir.FieldVQL(*s.OrderBy) + " " + dir
		}
		if s.Limit != nil {
			out += fmt.Sprintf(" LIMIT %d OFFSET %d", *s.Limit, s.Offset)
		}
		return out
	case Count:
		out := "COUNT FROM " + nameVQL(s.Source)
		if w := queryir.ToVQL(s.Filters); w != "" {
			out += " WHERE " + w
		}
		return out
	case Create:
		out := "CREATE " + nameVQL(s.Target) + " FROM " + nameVQL(s.Source)
		if w := queryir.ToVQL(s.Filters); w != "" {
			out += " WHERE " + w
		}
		return out
	case Set:
		return fmt.Sprintf("CREATE %s = %s %s %s", nameVQL(s.Target), nameVQL(s.First), s.Operator, nameVQL(s.Second))
	case BedImport:
		return fmt.Sprintf("CREATE %s FROM %s INTERSECT %s", nameVQL(s.Target), nameVQL(s.Source), queryir.QuoteVQLString(s.Path))
	case Show:
		return "SHOW " + s.Feature
	case Import:
		return fmt.Sprintf("IMPORT %s %s %s", s.Feature, nameVQL(s.Name), queryir.QuoteVQLString(s.Path))
	case Drop:
		return "DROP " + s.Feature + " " + nameVQL(s.Name)
	default:
		panic(fmt.Sprintf("vql: unknown statement type %T", stmt))
	}
}

func fieldsVQL(fields []ir.FieldRef) string {
	out := ""
	for i, f := range fields {
		if i > 0 {
			out += ", "
		}
		out += queryir.FieldVQL(f)
	}
	return out
}

// nameVQL writes a name bare when it lexes as one identifier that is not
// a command keyword, quoted otherwise.
func nameVQL(name string) string {
	toks, err := Lex(name)
	if err == nil && len(toks) == 2 && toks[0].Kind == TokIdent && toks[0].Text == name &&
		!slices.Contains(statementKeywords, strings.ToUpper(name)) {
		return name
	}
	return queryir.QuoteVQLString(name)
}

package querysql

import "strings"

// Inline renders the query with its arguments written as literals.
// The result is for display and history only; execute SQL with Args.
func (q Query) Inline() string {
	var b strings.Builder
	b.Grow(len(q.SQL))

	next := 0
	var quote byte // current quote character, 0 outside quotes
	for i := 0; i < len(q.SQL); i++ {
		ch := q.SQL[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
			b.WriteByte(ch)
		case ch == '`' || ch == '\'' || ch == '"':
			quote = ch
			b.WriteByte(ch)
		case ch == '?' && next < len(q.Args):
			b.WriteString(Literal(q.Args[next]))
			next++
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

// Union returns the ids present in a or b.
func Union(a, b Query) Query {
	return compound(a, b, "UNION")
}

// Subtract returns the ids of a that are not in b.
func Subtract(a, b Query) Query {
	return compound(a, b, "EXCEPT")
}

// Intersect returns the ids present in both a and b.
func Intersect(a, b Query) Query {
	return compound(a, b, "INTERSECT")
}

// compound combines the id columns of two queries with a set operator.
// Both queries must select the variant id first, as Compile does.
func compound(a, b Query, op string) Query {
	args := make([]any, 0, len(a.Args)+len(b.Args))
	args = append(args, a.Args...)
	args = append(args, b.Args...)
	return Query{
		SQL:     "SELECT " + IDColumn + " FROM (" + a.SQL + ") " + op + " SELECT " + IDColumn + " FROM (" + b.SQL + ")",
		Args:    args,
		Columns: []string{IDColumn},
	}
}

// Count wraps q so that it returns its row count.
func Count(q Query) Query {
	return Query{
		SQL:     "SELECT COUNT(*) FROM (" + q.SQL + ")",
		Args:    append([]any(nil), q.Args...),
		Columns: []string{CountColumn},
	}
}

// DistinctIDs wraps q so that it returns each variant id once.
func DistinctIDs(q Query) Query {
	return Query{
		SQL:     "SELECT DISTINCT " + IDColumn + " FROM (" + q.SQL + ")",
		Args:    append([]any(nil), q.Args...),
		Columns: []string{IDColumn},
	}
}

package queryir

// Flatten returns every Condition of the tree in pre-order, regardless of
// nesting depth or AND/OR mix.
//
// The compiler uses it to discover which tables and joins a predicate
// needs without walking the full tree shape.
func Flatten(n Node) []Condition {
	var out []Condition
	walk(n, func(c Condition) {
		out = append(out, c)
	})
	return out
}

func walk(n Node, visit func(Condition)) {
	switch node := deref(n).(type) {
	case Condition:
		visit(node)
	case Logic:
		for _, child := range node.Children {
			walk(child, visit)
		}
	}
}

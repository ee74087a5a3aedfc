// Package queryir provides the filter tree: the intermediate representation
// of VQL WHERE and HAVING predicates.
//
// The tree sits between the VQL parser (and any tree-editing UI) and the
// SQL compiler:
//
//	[VQL text] → [parser] → [Node] → [querysql] → SQL
//	[JSON dict] → FromDict ↗      ↘ ToVQL → VQL text
//
// SEALED INTERFACE:
//
// Node is a sealed interface using the marker method pattern. Only Logic
// and Condition implement it, so backends can switch exhaustively:
//
//	switch n := node.(type) {
//	case Logic:
//	    // AND / OR over ordered children
//	case Condition:
//	    // field operator value
//	}
//
// Pointer forms (*Logic, *Condition) are accepted wherever a Node is
// consumed and behave exactly like the value forms.
//
// SHAPE RULES:
//
//   - A Logic node may have zero children; an empty tree renders to nothing.
//   - The root may be a Logic node or a single Condition.
//   - AND and OR are never merged under one Logic node: a run of one
//     operator is one node, a parenthesized group is a child node.
//   - A nil Node is the empty tree.
//
// Trees are immutable after construction. Editing happens in a separate
// structure owned by the caller, which converts back with FromDict.
package queryir

package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/ir"
)

func TestValidate_ValidTrees(t *testing.T) {
	trees := []Node{
		nil,
		NewAnd(),
		Cond(ir.Field("ref"), Eq, ir.String("A")),
		NewAnd(
			Cond(ir.Field("pos"), Ge, ir.Int(10)),
			NewOr(
				Cond(ir.Field("ref"), In, ir.NewList(ir.String("A"), ir.String("T"))),
				Cond(ir.Qualified("annotations", "gene"), In, ir.SetRef{Name: "genes"}),
			),
		),
		Cond(ir.Field("gene"), Regex, ir.String("^BRCA")),
		Cond(ir.Field("gene"), Has, ir.String("BRC")),
		Cond(ir.Call("sample", "alice", "gt"), Gt, ir.Int(0)),
		Cond(ir.Field("qual"), Lt, ir.Float(12.5)),
	}
	for i, tree := range trees {
		assert.NoError(t, Validate(tree), "tree %d", i)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		tree    Node
		message string
	}{
		{"bad logic op", Logic{Op: "XOR"}, "unknown logic operator"},
		{"nil child", NewAnd(nil), "nil child"},
		{"no field", Cond(ir.FieldRef{}, Eq, ir.Int(1)), "no field"},
		{"bad operator", Cond(ir.Field("a"), "LIKE", ir.Int(1)), "unknown operator"},
		{"nil value", Cond(ir.Field("a"), Eq, nil), "value is nil"},
		{"list with eq", Cond(ir.Field("a"), Eq, ir.NewList(ir.Int(1))), "does not accept a list"},
		{"empty list", Cond(ir.Field("a"), In, ir.List{}), "non-empty list"},
		{"scalar with in", Cond(ir.Field("a"), In, ir.Int(1)), "requires a list"},
		{"set with eq", Cond(ir.Field("a"), Eq, ir.SetRef{Name: "s"}), "does not accept set"},
		{"regex int", Cond(ir.Field("a"), Regex, ir.Int(1)), "requires a string"},
		{"set as field", Cond(ir.Call("set", "x", ""), Eq, ir.Int(1)), "cannot be used as a condition field"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.tree)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)

			var ve *ValidationError
			assert.True(t, errors.As(err, &ve))
		})
	}
}

func TestValidate_CollectsAllWithPaths(t *testing.T) {
	tree := NewAnd(
		Cond(ir.Field("a"), Eq, ir.Int(1)),
		NewOr(
			Cond(ir.Field("b"), "??", ir.Int(1)),
			Cond(ir.Field("c"), In, ir.Int(2)),
		),
	)

	err := Validate(tree)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AND[1].OR[0]: unknown operator")
	assert.Contains(t, err.Error(), "AND[1].OR[1]: operator IN requires a list")
}

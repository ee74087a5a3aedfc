package queryir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/ir"
)

func TestParseOperator(t *testing.T) {
	tests := []struct {
		input    string
		expected Operator
	}{
		{"=", Eq},
		{"!=", Ne},
		{"<=", Le},
		{"in", In},
		{"not   in", NotIn},
		{"Not In", NotIn},
		{"~", Regex},
		{"has", Has},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			op, err := ParseOperator(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, op)
		})
	}

	_, err := ParseOperator("LIKE")
	assert.Error(t, err)
}

func TestOperatorValid(t *testing.T) {
	for _, op := range Operators {
		assert.True(t, op.Valid(), "%s", op)
	}
	assert.False(t, Operator("in").Valid(), "lowercase is not canonical")
	assert.False(t, Operator("==").Valid())
	assert.True(t, NotIn.IsMembership())
	assert.False(t, Eq.IsMembership())
}

func TestNode_SealedSwitch(t *testing.T) {
	var n Node = NewAnd(Cond(ir.Field("a"), Eq, ir.Int(3)))

	switch n.(type) {
	case Logic:
		// Expected
	case Condition:
		t.Fatal("unexpected type")
	}
}

func TestFlatten(t *testing.T) {
	a := Cond(ir.Field("a"), Eq, ir.Int(3))
	b := Cond(ir.Field("b"), Eq, ir.Int(5))
	c := Cond(ir.Field("c"), Lt, ir.Int(3))
	d := Cond(ir.Call("sample", "alice", "gt"), Eq, ir.Int(1))

	tests := []struct {
		name     string
		tree     Node
		expected []Condition
	}{
		{"nil", nil, nil},
		{"empty logic", NewAnd(), nil},
		{"single condition", a, []Condition{a}},
		{"flat", NewAnd(a, b, c), []Condition{a, b, c}},
		{"nested", NewAnd(a, NewOr(b, NewAnd(c, d))), []Condition{a, b, c, d}},
		{"pointers", &Logic{Op: Or, Children: []Node{&a, NewAnd(&b)}}, []Condition{a, b}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Flatten(tt.tree))
		})
	}
}

func TestFlatten_DeepNesting(t *testing.T) {
	var tree Node = Cond(ir.Field("leaf"), Eq, ir.Int(0))
	for i := 0; i < 50; i++ {
		op := And
		if i%2 == 1 {
			op = Or
		}
		tree = Logic{Op: op, Children: []Node{tree, Cond(ir.Field("x"), Gt, ir.Int(int64(i)))}}
	}
	assert.Len(t, Flatten(tree), 51)
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, IsEmpty(nil))
	assert.True(t, IsEmpty(NewAnd()))
	assert.True(t, IsEmpty(NewAnd(NewOr())))
	assert.True(t, IsEmpty((*Logic)(nil)))
	assert.False(t, IsEmpty(Cond(ir.Field("a"), Eq, ir.Int(1))))
}

package querysql

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
)

func testCatalog() Catalog {
	return NewCatalog([]FieldInfo{
		{Name: "chr", Category: CategoryVariants, Type: "str"},
		{Name: "pos", Category: CategoryVariants, Type: "int"},
		{Name: "ref", Category: CategoryVariants, Type: "str"},
		{Name: "alt", Category: CategoryVariants, Type: "str"},
		{Name: "qual", Category: CategoryVariants, Type: "float"},
		{Name: "rsid", Category: CategoryVariants, Type: "str"},
		{Name: "gene", Category: CategoryAnnotations, Type: "str"},
		{Name: "impact", Category: CategoryAnnotations, Type: "str"},
		{Name: "gt", Category: CategorySamples, Type: "int"},
		{Name: "dp", Category: CategorySamples, Type: "int"},
	})
}

func testCompiler() *Compiler {
	return NewCompiler(testCatalog(), SampleIndex{"alice": 1, "bob": 2})
}

func intPtr(n int) *int { return &n }

func fields(names ...string) []ir.FieldRef {
	out := make([]ir.FieldRef, len(names))
	for i, n := range names {
		out[i] = ir.Field(n)
	}
	return out
}

func assertGolden(t *testing.T, name string, q Query) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(q.SQL+"\n-- args: "+fmt.Sprint(q.Args)+"\n"))
}

func TestCompile_Golden(t *testing.T) {
	gene := ir.Field("gene")
	pos := ir.Field("pos")

	tests := []struct {
		name string
		req  Request
	}{
		{
			name: "select_basic",
			req:  Request{Fields: fields("chr", "pos", "ref", "alt"), Source: "variants", Limit: intPtr(50)},
		},
		{
			name: "select_group_by",
			req: Request{
				Fields:  fields("chr", "pos", "ref", "alt"),
				Source:  "variants",
				GroupBy: fields("chr", "pos"),
			},
		},
		{
			name: "select_selection_source",
			req: Request{
				Fields: fields("chr", "gene"),
				Source: "denovo",
				Filters: queryir.NewAnd(
					queryir.Cond(pos, queryir.Gt, ir.Int(10)),
					queryir.Cond(gene, queryir.In, ir.NewList(ir.String("BRCA1"), ir.String("BRCA2"))),
				),
				OrderBy:   &pos,
				OrderDesc: true,
				Limit:     intPtr(20),
				Offset:    40,
			},
		},
		{
			name: "select_samples",
			req: Request{
				Fields: []ir.FieldRef{
					ir.Field("chr"),
					ir.Call("sample", "alice", "gt"),
					ir.Call("sample", "bob", "dp"),
				},
				Filters: queryir.NewOr(
					queryir.Cond(ir.Call("sample", "bob", "gt"), queryir.Gt, ir.Int(0)),
					queryir.Cond(ir.Call("samples", "alice", "gt"), queryir.Eq, ir.Int(1)),
				),
			},
		},
		{
			name: "ids_set_regex_has",
			req: Request{
				Filters: queryir.NewAnd(
					queryir.Cond(gene, queryir.NotIn, ir.SetRef{Name: "genes"}),
					queryir.Cond(ir.Field("rsid"), queryir.Regex, ir.String("^rs")),
					queryir.Cond(gene, queryir.Has, ir.String(`test"x'y`)),
				),
			},
		},
		{
			name: "select_having",
			req: Request{
				Fields:  fields("chr"),
				GroupBy: fields("chr"),
				Having:  queryir.NewAnd(queryir.Cond(ir.Field("count"), queryir.Gt, ir.Int(2))),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := testCompiler().Compile(tt.req)
			require.NoError(t, err)
			assertGolden(t, tt.name, q)
		})
	}
}

func TestCompile_Columns(t *testing.T) {
	q, err := testCompiler().Compile(Request{
		Fields:  []ir.FieldRef{ir.Field("chr"), ir.Call("sample", "alice", "gt")},
		GroupBy: fields("chr"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "count", "chr", "sample.alice.gt"}, q.Columns)
}

func TestCompile_IDDeduplication(t *testing.T) {
	q, err := testCompiler().Compile(Request{
		Fields: []ir.FieldRef{ir.Field("id"), ir.Field("rsid"), ir.Qualified("variants", "id"), ir.Field("chr")},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "rsid", "chr"}, q.Columns)
	assert.Equal(t, "SELECT `variants`.`id`, `variants`.`rsid` AS `rsid`, `variants`.`chr` AS `chr` FROM variants", q.SQL)
}

func TestCompile_EmptyFiltersNeverEmitWhere(t *testing.T) {
	trees := []queryir.Node{nil, queryir.NewAnd(), queryir.NewOr(queryir.NewAnd())}
	for _, tree := range trees {
		q, err := testCompiler().Compile(Request{Fields: fields("chr"), Filters: tree, Having: tree})
		require.NoError(t, err)
		assert.NotContains(t, q.SQL, "WHERE")
		assert.NotContains(t, q.SQL, "HAVING")
		assert.Empty(t, q.Args)
	}
}

func TestCompile_NilLimitNeverPaginates(t *testing.T) {
	q, err := testCompiler().Compile(Request{Fields: fields("chr"), Offset: 30})
	require.NoError(t, err)
	assert.NotContains(t, q.SQL, "LIMIT")
	assert.NotContains(t, q.SQL, "OFFSET")

	q, err = testCompiler().Compile(Request{Fields: fields("chr"), Limit: intPtr(0)})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, " LIMIT 0 OFFSET 0")
}

func TestCompile_HasReplacesQuotes(t *testing.T) {
	q, err := testCompiler().Compile(Request{
		Filters: queryir.NewAnd(queryir.Cond(ir.Field("ref"), queryir.Has, ir.String(`test"x'y`))),
	})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "`variants`.`ref` LIKE ?")
	assert.Equal(t, []any{"%test%x%y%"}, q.Args)
}

func TestCompile_AnnotationsJoinOnlyWhenReferenced(t *testing.T) {
	q, err := testCompiler().Compile(Request{Fields: fields("chr", "pos")})
	require.NoError(t, err)
	assert.NotContains(t, q.SQL, "annotations")

	q, err = testCompiler().Compile(Request{
		Fields:  fields("chr"),
		Filters: queryir.NewAnd(queryir.Cond(ir.Qualified("annotations", "impact"), queryir.Eq, ir.String("HIGH"))),
	})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "LEFT JOIN annotations ON annotations.variant_id = variants.id")

	q, err = testCompiler().Compile(Request{Fields: fields("chr"), GroupBy: fields("gene")})
	require.NoError(t, err)
	assert.Contains(t, q.SQL, "LEFT JOIN annotations")
}

func TestCompile_UnknownFieldPassesThrough(t *testing.T) {
	q, err := testCompiler().Compile(Request{
		Fields:  fields("mystery"),
		Filters: queryir.NewAnd(queryir.Cond(ir.Field("other"), queryir.Eq, ir.Int(1))),
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT `variants`.`id`, `mystery` AS `mystery` FROM variants WHERE `other` = ?", q.SQL)
}

func TestCompile_SampleJoinOncePerSample(t *testing.T) {
	q, err := testCompiler().Compile(Request{
		Fields: []ir.FieldRef{ir.Call("sample", "alice", "gt"), ir.Call("sample", "alice", "dp")},
		Filters: queryir.NewAnd(
			queryir.Cond(ir.Call("sample", "alice", "dp"), queryir.Gt, ir.Int(10)),
		),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(q.SQL, "INNER JOIN sample_has_variant"))
	assert.Equal(t, []any{int64(1), int64(10)}, q.Args)
}

func TestCompile_MissingSample(t *testing.T) {
	req := Request{
		Fields:  fields("chr"),
		Filters: queryir.NewAnd(queryir.Cond(ir.Call("samples", "alice", "gt"), queryir.Eq, ir.Int(1))),
	}

	t.Run("present", func(t *testing.T) {
		q, err := testCompiler().Compile(req)
		require.NoError(t, err)
		assert.Contains(t, q.SQL, "INNER JOIN sample_has_variant `sample_alice` ON `sample_alice`.variant_id = variants.id AND `sample_alice`.sample_id = ?")
		assert.Equal(t, []any{int64(1), int64(1)}, q.Args)
	})

	t.Run("skip", func(t *testing.T) {
		c := NewCompiler(testCatalog(), SampleIndex{"bob": 2})
		q, err := c.Compile(req)
		require.NoError(t, err)
		assert.NotContains(t, q.SQL, "JOIN")
		assert.Equal(t, []any{int64(1)}, q.Args)
	})

	t.Run("fail", func(t *testing.T) {
		c := NewCompiler(testCatalog(), SampleIndex{"bob": 2})
		c.MissingSample = MissingSampleFail
		_, err := c.Compile(req)
		require.Error(t, err)
		assert.True(t, IsCompileError(err))
		assert.Contains(t, err.Error(), `unknown sample "alice"`)
	})
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		message string
	}{
		{
			name:    "bare sample field",
			req:     Request{Fields: fields("gt")},
			message: "sample field needs a sample",
		},
		{
			name:    "having without group by",
			req:     Request{Having: queryir.NewAnd(queryir.Cond(ir.Field("count"), queryir.Gt, ir.Int(1)))},
			message: "HAVING requires GROUP BY",
		},
		{
			name:    "unknown operator",
			req:     Request{Filters: queryir.NewAnd(queryir.Cond(ir.Field("chr"), "LIKE", ir.String("x")))},
			message: "unknown operator",
		},
		{
			name:    "malformed tree",
			req:     Request{Filters: queryir.NewAnd(queryir.Cond(ir.Field("chr"), queryir.In, ir.String("x")))},
			message: "invalid filters",
		},
		{
			name:    "injection in field name",
			req:     Request{Fields: fields("chr; DROP TABLE variants")},
			message: "invalid identifier",
		},
		{
			name:    "injection in group by",
			req:     Request{GroupBy: []ir.FieldRef{ir.Qualified("variants", "chr--")}},
			message: "invalid identifier",
		},
		{
			name:    "set as column",
			req:     Request{Fields: []ir.FieldRef{ir.Call("set", "genes", "")}},
			message: "set() cannot be used as a column",
		},
		{
			name:    "negative limit",
			req:     Request{Limit: intPtr(-1)},
			message: "negative LIMIT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := testCompiler().Compile(tt.req)
			require.Error(t, err)
			assert.True(t, IsCompileError(err), "got %T", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	req := Request{
		Fields: []ir.FieldRef{ir.Call("sample", "bob", "gt"), ir.Call("sample", "alice", "gt"), ir.Field("gene")},
		Filters: queryir.NewAnd(
			queryir.Cond(ir.Field("qual"), queryir.Ge, ir.Float(30)),
		),
	}
	first, err := testCompiler().Compile(req)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := testCompiler().Compile(req)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNewCatalog_SamplesDoNotShadowTables(t *testing.T) {
	c := NewCatalog([]FieldInfo{
		{Name: "dp", Category: CategoryVariants},
		{Name: "dp", Category: CategorySamples},
		{Name: "gene", Category: CategoryVariants},
		{Name: "gene", Category: CategoryAnnotations},
	})
	assert.Equal(t, CategoryVariants, c["dp"].Category)
	assert.Equal(t, CategoryAnnotations, c["gene"].Category)
}

func TestParseMissingSample(t *testing.T) {
	m, err := ParseMissingSample("FAIL")
	require.NoError(t, err)
	assert.Equal(t, MissingSampleFail, m)
	assert.Equal(t, "fail", m.String())

	m, err = ParseMissingSample("")
	require.NoError(t, err)
	assert.Equal(t, MissingSampleSkip, m)

	_, err = ParseMissingSample("ignore")
	assert.Error(t, err)
}

func countOccurrences(s, sub string) int {
	n := 0
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			n++
		}
	}
	return n
}

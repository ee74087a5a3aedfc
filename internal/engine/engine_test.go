package engine

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/queryir"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/testutil"
	"github.com/roach88/vql/internal/vql"
)

func newTestEngine(t *testing.T, opts ...EngineOption) *Engine {
	t.Helper()
	e, err := New(opts...)
	require.NoError(t, err)
	return e
}

func execRecord(t *testing.T, e *Engine, db Storage, src string) store.Record {
	t.Helper()
	res, err := e.Execute(context.Background(), db, src)
	require.NoError(t, err, src)
	require.False(t, res.IsStream(), src)
	return res.Record
}

func execRows(t *testing.T, e *Engine, db Storage, src string) []store.Record {
	t.Helper()
	res, err := e.Execute(context.Background(), db, src)
	require.NoError(t, err, src)
	require.True(t, res.IsStream(), src)
	rows, err := res.Collect()
	require.NoError(t, err, src)
	return rows
}

func ids(rows []store.Record) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = r["id"].(int64)
	}
	return out
}

func TestCount(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	tests := []struct {
		src  string
		want int64
	}{
		{"COUNT FROM variants", 4},
		{"COUNT FROM variants WHERE chr = 'chr1'", 2},
		{"COUNT FROM variants WHERE pos > 150 AND qual >= 10", 2},
		{"COUNT FROM variants WHERE gene = 'BRCA1'", 2},
		{"COUNT FROM variants WHERE gene IN set('genes')", 2},
		{"COUNT FROM variants WHERE consequence HAS 'variant'", 2},
		{"COUNT FROM variants WHERE rsid ~ '^rs[0-9]+$'", 2},
		{"COUNT FROM A", 3},
		{"COUNT FROM B WHERE chr = 'chr2'", 2},
		{"COUNT FROM variants WHERE sample('alice').gt >= 1", 3},
		{"COUNT FROM missing", 0},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			rec := execRecord(t, e, db, tt.src)
			assert.Equal(t, store.Record{"count": tt.want}, rec)
		})
	}
}

func TestCount_CacheHitsAndInvalidation(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	reg := prometheus.NewRegistry()
	e := newTestEngine(t, WithRegisterer(reg))
	m := e.Metrics()

	assert.Equal(t, store.Record{"count": int64(3)}, execRecord(t, e, db, "COUNT FROM A"))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CountCacheMisses))

	// Same tuple, different spelling.
	assert.Equal(t, store.Record{"count": int64(3)}, execRecord(t, e, db, "count from A"))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CountCacheHits))
	assert.Equal(t, 1, e.counts.len())

	// A mutation purges the cache and the next count sees the new data.
	execRecord(t, e, db, "CREATE A FROM variants WHERE chr = 'chr1'")
	assert.Equal(t, 1.0, promtest.ToFloat64(m.CountInvalidations))
	assert.Zero(t, e.counts.len())

	assert.Equal(t, store.Record{"count": int64(2)}, execRecord(t, e, db, "COUNT FROM A"))
	assert.Equal(t, 2.0, promtest.ToFloat64(m.CountCacheMisses))

	assert.Equal(t, 1.0, promtest.ToFloat64(m.Commands.WithLabelValues("create_cmd", "ok")))
	assert.Equal(t, 3.0, promtest.ToFloat64(m.Commands.WithLabelValues("count_cmd", "ok")))
}

func TestCount_CacheDisabled(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t, WithCountCacheSize(0))

	execRecord(t, e, db, "COUNT FROM variants")
	execRecord(t, e, db, "COUNT FROM variants")
	assert.Zero(t, promtest.ToFloat64(e.Metrics().CountCacheHits))
	assert.Equal(t, 2.0, promtest.ToFloat64(e.Metrics().CountCacheMisses))
}

func TestCountKey(t *testing.T) {
	a, err := countKey("db1", querysql.MissingSampleSkip, vql.Count{Source: ""})
	require.NoError(t, err)
	b, err := countKey("db1", querysql.MissingSampleSkip, vql.Count{Source: "variants"})
	require.NoError(t, err)
	assert.Equal(t, a, b, "default source is normalized")

	c, err := countKey("db2", querysql.MissingSampleSkip, vql.Count{Source: "variants"})
	require.NoError(t, err)
	assert.NotEqual(t, a, c, "keys are per database")

	d, err := countKey("db1", querysql.MissingSampleFail, vql.Count{Source: "variants"})
	require.NoError(t, err)
	assert.NotEqual(t, a, d, "keys depend on the sample policy")
}

func TestSelect(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	rows := execRows(t, e, db, "SELECT chr, pos, ref FROM variants WHERE pos > 150 ORDER BY pos DESC")
	require.Len(t, rows, 3)
	assert.Equal(t, store.Record{"id": int64(4), "chr": "chr2", "pos": int64(400), "ref": "T"}, rows[0])
	assert.Equal(t, []int64{4, 3, 2}, ids(rows))

	rows = execRows(t, e, db, "SELECT chr, gene FROM A WHERE gene = 'BRCA1'")
	assert.ElementsMatch(t, []int64{1, 2}, ids(rows))

	rows = execRows(t, e, db, "SELECT pos FROM variants ORDER BY pos LIMIT 2 OFFSET 1")
	assert.Equal(t, []int64{2, 3}, ids(rows))

	rows = execRows(t, e, db, "SELECT chr FROM variants GROUP BY chr")
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, int64(2), r["count"])
	}

	rows = execRows(t, e, db, "SELECT chr FROM variants GROUP BY chr HAVING count > 5")
	assert.Empty(t, rows)
}

func TestSelect_DefaultPageSize(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t, WithPageSize(3))

	rows := execRows(t, e, db, "SELECT chr FROM variants")
	assert.Len(t, rows, 3)

	rows = execRows(t, e, db, "SELECT chr FROM variants LIMIT 10")
	assert.Len(t, rows, 4)
}

func TestSelect_StreamIsRestartable(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	res, err := e.Execute(context.Background(), db, "SELECT chr FROM variants")
	require.NoError(t, err)

	first, err := res.Collect()
	require.NoError(t, err)
	second, err := res.Collect()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestSelect_SampleJoin(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	rows := execRows(t, e, db, "SELECT chr, sample('bob').gt FROM variants WHERE samples.alice.gt = 1 ORDER BY pos")
	assert.Equal(t, []int64{1, 3}, ids(rows))
	assert.Equal(t, int64(0), rows[0]["sample.bob.gt"])
	assert.Equal(t, int64(1), rows[1]["sample.bob.gt"])
}

func TestSelect_MissingSample(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	ctx := context.Background()

	// Skip: no join is emitted, so the database rejects the column.
	var logs bytes.Buffer
	skip := newTestEngine(t, WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	q, err := skip.Compile(ctx, db, querysql.Request{
		Source:  "variants",
		Filters: mustFilter(t, "samples.carol.gt = 1"),
	})
	require.NoError(t, err)
	assert.NotContains(t, q.SQL, "JOIN sample_has_variant")
	assert.Contains(t, logs.String(), "sample not found")

	res, err := skip.Execute(ctx, db, "SELECT chr FROM variants WHERE samples.carol.gt = 1")
	require.NoError(t, err)
	_, err = res.Collect()
	require.Error(t, err)

	// Fail: the compiler refuses.
	fail := newTestEngine(t, WithMissingSample(querysql.MissingSampleFail))
	_, err = fail.Execute(ctx, db, "SELECT chr FROM variants WHERE samples.carol.gt = 1")
	require.Error(t, err)
	assert.True(t, querysql.IsCompileError(err))
}

func mustFilter(t *testing.T, expr string) queryir.Node {
	t.Helper()
	n, err := vql.ParseFilter(expr)
	require.NoError(t, err)
	return n
}

func TestCreate(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	rec := execRecord(t, e, db, "CREATE brca FROM variants WHERE gene = 'BRCA1'")
	assert.Equal(t, int64(2), rec["count"])
	assert.NotZero(t, rec["id"])

	members, err := db.SelectionIDs(ctx, "brca")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, members)

	// Nested: a selection of a selection.
	rec = execRecord(t, e, db, "CREATE hom FROM brca WHERE sample('alice').gt = 2")
	assert.Equal(t, int64(1), rec["count"])
	members, err = db.SelectionIDs(ctx, "hom")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, members)

	// Replacing a selection from itself.
	rec = execRecord(t, e, db, "CREATE brca FROM brca WHERE pos > 150")
	assert.Equal(t, int64(1), rec["count"])
	members, err = db.SelectionIDs(ctx, "brca")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, members)

	sel, err := db.Selection(ctx, "brca")
	require.NoError(t, err)
	assert.Equal(t, int64(1), sel.Count)
	assert.Contains(t, sel.Query, "'brca'")
}

func TestCreate_FailureLeavesNoSelection(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, db, "CREATE bad FROM variants WHERE nope = 1")
	require.Error(t, err)

	sels, err := db.Selections(ctx)
	require.NoError(t, err)
	for _, s := range sels {
		assert.NotEqual(t, "bad", s.Name)
	}
	assert.Len(t, sels, 2)
}

func TestCreate_TargetErrors(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	_, err := e.Run(ctx, db, vql.Create{Source: "variants"})
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))

	_, err = e.Execute(ctx, db, "CREATE variants FROM A")
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))

	_, err = e.Run(ctx, db, vql.Set{Target: "x", First: "A", Second: "B", Operator: "*"})
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))
}

func TestSetAlgebra(t *testing.T) {
	tests := []struct {
		src       string
		wantCount int64
		wantIDs   []int64
	}{
		{"CREATE denovo = A + B", 4, []int64{1, 2, 3, 4}},
		{"CREATE denovo = A - B", 2, []int64{1, 2}},
		{"CREATE denovo = A & B", 1, []int64{3}},
		{"CREATE denovo = B - A", 1, []int64{4}},
		{"CREATE denovo = A + missing", 3, []int64{1, 2, 3}},
		{"CREATE denovo = A & variants", 3, []int64{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			db := testutil.NewStore(t, testutil.Cohort())
			e := newTestEngine(t)

			rec := execRecord(t, e, db, tt.src)
			assert.Equal(t, tt.wantCount, rec["count"])

			members, err := db.SelectionIDs(context.Background(), "denovo")
			require.NoError(t, err)
			assert.Equal(t, tt.wantIDs, members)

			sel, err := db.Selection(context.Background(), "denovo")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCount, sel.Count)
		})
	}
}

func TestSetAlgebra_TargetIsOperand(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	rec := execRecord(t, e, db, "CREATE A = A + B")
	assert.Equal(t, int64(4), rec["count"])

	members, err := db.SelectionIDs(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3, 4}, members)
}

func TestDrop(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	assert.Equal(t, store.Record{"success": true}, execRecord(t, e, db, "DROP selections subset"))
	assert.Equal(t, store.Record{"success": true}, execRecord(t, e, db, "DROP selections A"))
	assert.Equal(t, store.Record{"success": true}, execRecord(t, e, db, "DROP sets genes"))
	assert.Equal(t, store.Record{"success": true}, execRecord(t, e, db, "DROP sets genes"))

	sels, err := db.Selections(ctx)
	require.NoError(t, err)
	require.Len(t, sels, 1)
	assert.Equal(t, "B", sels[0].Name)

	_, err = e.Run(ctx, db, vql.Drop{Feature: "fields", Name: "chr"})
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))
}

func TestShow(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	samples := execRows(t, e, db, "SHOW samples")
	require.Len(t, samples, 2)
	assert.Equal(t, "alice", samples[0]["name"])
	assert.Equal(t, int64(2), samples[0]["phenotype"])

	sels := execRows(t, e, db, "SHOW selections")
	require.Len(t, sels, 2)
	assert.Equal(t, "A", sels[0]["name"])
	assert.Equal(t, int64(3), sels[0]["count"])

	sets := execRows(t, e, db, "SHOW sets")
	assert.Equal(t, []store.Record{{"name": "genes", "count": int64(2)}}, sets)

	fields := execRows(t, e, db, "SHOW fields")
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f["name"].(string)
	}
	assert.Contains(t, names, "chr")
	assert.Contains(t, names, "gene")

	_, err := e.Run(context.Background(), db, vql.Show{Feature: "tables"})
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))
}

func TestImport(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "panel.txt")
	require.NoError(t, os.WriteFile(path, []byte("TP53\nKRAS\n"), 0o644))

	rec := execRecord(t, e, db, `IMPORT sets panel "`+path+`"`)
	assert.Equal(t, store.Record{"success": true, "count": int64(2)}, rec)

	assert.Equal(t, store.Record{"count": int64(1)}, execRecord(t, e, db, "COUNT FROM variants WHERE gene IN set('panel')"))

	_, err := e.Execute(ctx, db, `IMPORT sets panel "/nonexistent/panel.txt"`)
	require.Error(t, err)
	assert.True(t, IsPathError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = e.Run(ctx, db, vql.Import{Feature: "selections", Name: "x", Path: path})
	require.Error(t, err)
	assert.True(t, IsFeatureError(err))
}

func TestBed(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "regions.bed")
	bed := "track name=test\n" +
		"# comment\n" +
		"chr1\t50\t150\tfirst\n" +
		"chr2\t300\t400\n" +
		"chr3\t1\n"
	require.NoError(t, os.WriteFile(path, []byte(bed), 0o644))

	rec := execRecord(t, e, db, `CREATE subset FROM variants INTERSECT "`+path+`"`)
	assert.Equal(t, int64(2), rec["count"])

	members, err := db.SelectionIDs(ctx, "subset")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 4}, members)

	// The source restricts candidates.
	rec = execRecord(t, e, db, `CREATE subset FROM A INTERSECT "`+path+`"`)
	assert.Equal(t, int64(1), rec["count"])

	_, err = e.Execute(ctx, db, `CREATE subset FROM variants INTERSECT "/nonexistent.bed"`)
	require.Error(t, err)
	assert.True(t, IsPathError(err))
}

func TestBed_InvalidCoordinatesRollBack(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "bad.bed")
	require.NoError(t, os.WriteFile(path, []byte("chr1\t50\t150\nchr1\tten\t20\n"), 0o644))

	_, err := e.Execute(ctx, db, `CREATE subset FROM variants INTERSECT "`+path+`"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")

	_, err = db.Selection(ctx, "subset")
	require.Error(t, err)
}

func TestExecute_ParseError(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	_, err := e.Execute(context.Background(), db, "SELECT chr FROM")
	require.Error(t, err)
	assert.True(t, vql.IsParseError(err))

	_, err = e.Execute(context.Background(), db, "COUNT FROM A; COUNT FROM B")
	require.Error(t, err)
	assert.True(t, vql.IsParseError(err))
}

func TestExecuteAll_ContinuesAfterError(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t, WithExecIDGenerator(NewSequenceGenerator("e1", "e2", "e3", "e4")))

	script := `
		CREATE denovo = A + B;
		DROP tables x;
		CREATE broken FROM variants WHERE nope = 1
		COUNT FROM denovo
	`
	// DROP tables is a syntax error, so nothing runs.
	var results []Result
	var errs []error
	for res, err := range e.ExecuteAll(context.Background(), db, script) {
		results = append(results, res)
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.True(t, vql.IsParseError(errs[0]))

	script = `
		CREATE denovo = A + B;
		CREATE broken FROM variants WHERE nope = 1
		COUNT FROM denovo
	`
	results, errs = nil, nil
	for res, err := range e.ExecuteAll(context.Background(), db, script) {
		results = append(results, res)
		errs = append(errs, err)
	}
	require.Len(t, results, 3)
	assert.NoError(t, errs[0])
	assert.Error(t, errs[1])
	assert.NoError(t, errs[2])

	assert.Equal(t, store.Record{"count": int64(4)}, results[2].Record)
	assert.Equal(t, vql.KindCount, results[2].Kind)
	assert.Equal(t, []string{"e1", "e2", "e3"}, []string{results[0].ExecID, results[1].ExecID, results[2].ExecID})
	assert.Less(t, results[0].Seq, results[1].Seq)
	assert.Less(t, results[1].Seq, results[2].Seq)
}

func TestExecuteAll_StopsWhenConsumerStops(t *testing.T) {
	db := testutil.NewStore(t, testutil.Cohort())
	e := newTestEngine(t)

	for range e.ExecuteAll(context.Background(), db, "CREATE x FROM A; CREATE y FROM B") {
		break
	}

	_, err := db.Selection(context.Background(), "x")
	require.NoError(t, err)
	_, err = db.Selection(context.Background(), "y")
	require.Error(t, err, "second statement never ran")
}

func TestNew_InvalidPageSize(t *testing.T) {
	_, err := New(WithPageSize(0))
	require.Error(t, err)
}

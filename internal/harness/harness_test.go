package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/vql/internal/testutil"
)

func cohortScenario(steps ...Step) *Scenario {
	return &Scenario{
		Name:        "cohort",
		Description: "runs against the shared cohort fixture",
		Fixture:     testutil.Cohort(),
		Steps:       steps,
	}
}

func intPtr(n int) *int       { return &n }
func int64Ptr(n int64) *int64 { return &n }

func TestRun_Pass(t *testing.T) {
	s := cohortScenario(
		Step{VQL: "COUNT FROM variants", Expect: &Expect{Record: map[string]any{"count": 4}}},
		Step{VQL: "SELECT chr, pos FROM A ORDER BY pos", Expect: &Expect{
			Rows:    intPtr(3),
			Records: []map[string]any{{"id": 1, "pos": 100}, {"id": 2}, {"id": 3, "chr": "chr2"}},
		}},
		Step{VQL: "CREATE C = A & B", Expect: &Expect{Record: map[string]any{"count": 1}}},
	)
	s.Assertions = []Assertion{
		{Type: AssertSelection, Name: "C", Count: int64Ptr(1), IDs: []int64{3}},
		{Type: AssertSet, Name: "genes", Values: []string{"BRCA2", "BRCA1"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)

	require.Len(t, result.Trace, 3)
	for i, event := range result.Trace {
		assert.Equal(t, int64(i+1), event.Seq)
		assert.Equal(t, "test-exec", event.ExecID)
	}
	assert.Equal(t, "count_cmd", result.Trace[0].Cmd)
	assert.Len(t, result.Trace[1].Rows, 3)
}

func TestRun_ExecID(t *testing.T) {
	s := cohortScenario(Step{VQL: "SHOW samples"})
	s.ExecID = "fixed-id"

	result, err := Run(s)
	require.NoError(t, err)
	require.Len(t, result.Trace, 1)
	assert.Equal(t, "fixed-id", result.Trace[0].ExecID)
}

func TestRun_ExpectationFailures(t *testing.T) {
	s := cohortScenario(
		Step{VQL: "COUNT FROM variants", Expect: &Expect{Record: map[string]any{"count": 5}}},
		Step{VQL: "COUNT FROM variants", Expect: &Expect{Record: map[string]any{"total": 4}}},
		Step{VQL: "SHOW samples", Expect: &Expect{Rows: intPtr(1)}},
		Step{VQL: "SHOW samples", Expect: &Expect{Records: []map[string]any{{"name": "alice"}, {"name": "bob"}, {"name": "carol"}}}},
		Step{VQL: "SHOW samples", Expect: &Expect{Records: []map[string]any{{"name": "bob"}}}},
		Step{VQL: "SHOW samples", Expect: &Expect{Error: ErrorAny}},
		Step{VQL: "SELEC chr"},
		Step{VQL: "SELEC chr", Expect: &Expect{Error: ErrorFeature}},
	)
	s.Assertions = []Assertion{
		{Type: AssertSelection, Name: "missing"},
		{Type: AssertSelection, Name: "A", Count: int64Ptr(9)},
		{Type: AssertSelection, Name: "B", IDs: []int64{4}},
		{Type: AssertNoSelection, Name: "A"},
		{Type: AssertSet, Name: "genes", Values: []string{"TP53"}},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)

	expected := []string{
		`record["count"] = 4, want 5`,
		`record has no "total"`,
		"got 2 rows, want 1",
		"got 2 rows, want at least 3",
		"row 0 = ",
		"expected any error, got success",
		"unexpected error",
		"expected feature error, got parse error",
		`assertions[0]: Assertion failed: selection`,
		"count 9",
		"ids [4]",
		`no selection "A"`,
		"values [TP53]",
	}
	require.Len(t, result.Errors, len(expected))
	for i, want := range expected {
		assert.Contains(t, result.Errors[i], want)
	}
}

func TestRun_ErrorKinds(t *testing.T) {
	s := cohortScenario(
		Step{VQL: "SELEC chr", Expect: &Expect{Error: ErrorParse}},
		Step{VQL: "CREATE variants FROM A", Expect: &Expect{Error: ErrorFeature}},
		Step{VQL: "IMPORT sets g '/nonexistent/genes.txt'", Expect: &Expect{Error: ErrorPath}},
		Step{VQL: "COUNT FROM A", Expect: &Expect{Record: map[string]any{"count": 3}}},
	)

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)

	require.Len(t, result.Trace, 4)
	assert.NotEmpty(t, result.Trace[0].Error)
	assert.Empty(t, result.Trace[0].Cmd, "a statement that does not parse has no command")
	assert.Equal(t, "create_cmd", result.Trace[1].Cmd)
}

func TestRun_Config(t *testing.T) {
	s := cohortScenario(
		Step{VQL: "SELECT chr FROM variants", Expect: &Expect{Rows: intPtr(1)}},
		Step{VQL: "SELECT chr, sample('carol').gt FROM variants", Expect: &Expect{Error: ErrorCompile}},
	)
	s.Config = "page_size: 1\nmissing_sample: \"fail\"\n"

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_InvalidConfig(t *testing.T) {
	s := cohortScenario(Step{VQL: "SHOW sets"})
	s.Config = "page_size: 0"

	_, err := Run(s)
	assert.ErrorContains(t, err, "invalid scenario config")
}

func TestRun_FixtureError(t *testing.T) {
	s := cohortScenario(Step{VQL: "SHOW sets"})
	s.Fixture.Genotypes = append(s.Fixture.Genotypes, testutil.FixtureGenotype{Sample: "nobody", Variant: 1})

	_, err := Run(s)
	assert.ErrorContains(t, err, "failed to load fixture")
}

func TestRun_FilesArePrivate(t *testing.T) {
	s := cohortScenario(
		Step{VQL: "IMPORT sets words '$FILES/words.txt'", Expect: &Expect{Record: map[string]any{"count": 2}}},
		Step{VQL: "IMPORT sets other '$FILES/other.txt'", Expect: &Expect{Error: ErrorPath}},
	)
	s.Files = map[string]string{"words.txt": "alpha\n\nbeta\n"}
	s.Assertions = []Assertion{{Type: AssertSet, Name: "words", Values: []string{"alpha", "beta"}}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "import_cmd: $FILES/other.txt doesn't exist", result.Trace[1].Error)
}

// TestScenarios runs every scenario under testdata/scenarios.
func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			result, err := Run(s)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

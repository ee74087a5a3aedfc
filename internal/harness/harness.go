package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/vql/internal/config"
	"github.com/roach88/vql/internal/engine"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/testutil"
)

// filesVar is the placeholder steps use for the scenario file directory.
const filesVar = "$FILES"

// Harness is the test execution engine.
// It runs the steps of one scenario against one database with a fixed
// execution id.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	dir    string
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Create fresh in-memory database and load the fixture
// 2. Write scenario files to a temporary directory
// 3. Execute steps with expect validation
// 4. Evaluate assertions on the final database
//
// The returned error covers harness failures only. Failed expectations
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := scenario.Fixture.Load(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to load fixture: %w", err)
	}

	dir, err := os.MkdirTemp("", "vql-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create file directory: %w", err)
	}
	defer os.RemoveAll(dir)

	for name, content := range scenario.Files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", name, err)
		}
	}

	opts, err := engineOptions(scenario)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := &Harness{store: st, engine: eng, dir: dir}

	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx}
	for _, errMsg := range EvaluateAssertions(scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// engineOptions builds the engine configuration of a scenario.
func engineOptions(scenario *Scenario) ([]engine.EngineOption, error) {
	cfg := config.Default()
	if scenario.Config != "" {
		var err error
		cfg, err = config.LoadBytes(scenario.Name+".cue", []byte(scenario.Config))
		if err != nil {
			return nil, fmt.Errorf("invalid scenario config: %w", err)
		}
	}

	opts, err := cfg.EngineOptions()
	if err != nil {
		return nil, err
	}
	return append(opts,
		engine.WithExecIDGenerator(testutil.NewFixedExecIDGenerator(scenario.ExecID)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))), // Suppress logs in tests
	), nil
}

// executeStep runs one statement, records it in the trace and checks its
// expectation.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	src := strings.ReplaceAll(step.VQL, filesVar, h.dir)

	res, err := h.engine.Execute(ctx, h.store, src)
	event := TraceEvent{
		Seq:    res.Seq,
		ExecID: res.ExecID,
		Cmd:    string(res.Kind),
		VQL:    step.VQL,
	}

	if err == nil {
		if res.IsStream() {
			var rows []store.Record
			rows, err = res.Collect()
			for _, row := range rows {
				event.Rows = append(event.Rows, row)
			}
		} else {
			event.Record = res.Record
		}
	}
	if err != nil {
		// Temporary paths would make golden output differ between runs.
		event.Error = strings.ReplaceAll(err.Error(), h.dir, filesVar)
	}

	result.AddTrace(event)
	for _, errMsg := range checkExpect(index, step.Expect, event, err) {
		result.AddError(errMsg)
	}
}

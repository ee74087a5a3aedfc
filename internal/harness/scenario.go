package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/roach88/vql/internal/testutil"
)

// Scenario defines a VQL conformance scenario: a fixture database, a
// sequence of statements with expected results, and assertions on the
// database after the last statement.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the golden file
	// name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config is optional CUE configuration source, validated like a
	// configuration file. It sets the page size, count cache and missing
	// sample policy of the engine.
	Config string `yaml:"config,omitempty"`

	// Fixture is loaded into a fresh in-memory database.
	Fixture testutil.Fixture `yaml:"fixture"`

	// Files are written to a temporary directory before the steps run.
	// Steps refer to that directory as $FILES.
	Files map[string]string `yaml:"files,omitempty"`

	// Steps are executed in order against the same database.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final database state.
	Assertions []Assertion `yaml:"assertions,omitempty"`

	// ExecID is the execution id of every step. If empty, defaults to
	// "test-exec" for deterministic golden output.
	ExecID string `yaml:"exec_id,omitempty"`
}

// Step is one VQL statement.
type Step struct {
	VQL string `yaml:"vql"`

	// Expect specifies the expected result. If nil, the step must merely
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect specifies the expected outcome of a step.
type Expect struct {
	// Error is the expected error kind: parse, compile, feature, path or
	// any. Empty means the step must succeed.
	Error string `yaml:"error,omitempty"`

	// Record is a subset match on the record of a non-streaming command.
	Record map[string]any `yaml:"record,omitempty"`

	// Rows is the exact number of rows of a streaming command.
	Rows *int `yaml:"rows,omitempty"`

	// Records is a subset match on the rows, in order. Extra rows are
	// allowed unless Rows is also set.
	Records []map[string]any `yaml:"records,omitempty"`
}

// Assertion validates final database state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "selection": the selection exists, with Count and IDs if given
	// - "no_selection": the selection does not exist
	// - "set": the set holds exactly Values
	Type string `yaml:"type"`

	Name string `yaml:"name"`

	// Count is the expected stored count (used by selection).
	Count *int64 `yaml:"count,omitempty"`

	// IDs are the expected member variant ids, in any order (used by
	// selection).
	IDs []int64 `yaml:"ids,omitempty"`

	// Values are the expected set values, in any order (used by set).
	Values []string `yaml:"values,omitempty"`
}

// Assertion type constants.
const (
	AssertSelection   = "selection"
	AssertNoSelection = "no_selection"
	AssertSet         = "set"
)

// Error kinds of Expect.Error.
const (
	ErrorParse   = "parse"
	ErrorCompile = "compile"
	ErrorFeature = "feature"
	ErrorPath    = "path"
	ErrorAny     = "any"
)

var errorKinds = []string{ErrorParse, ErrorCompile, ErrorFeature, ErrorPath, ErrorAny}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file of dir, sorted by file
// name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no scenario files found in %s", dir)
	}
	slices.Sort(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for name := range s.Files {
		if name == "" || filepath.Base(name) != name {
			return fmt.Errorf("files: %q must be a plain file name", name)
		}
	}

	for i, step := range s.Steps {
		if step.VQL == "" {
			return fmt.Errorf("steps[%d]: vql is required", i)
		}
		if step.Expect == nil {
			continue
		}
		if step.Expect.Error != "" && !slices.Contains(errorKinds, step.Expect.Error) {
			return fmt.Errorf("steps[%d].expect: unknown error kind %q (expected one of %v)", i, step.Expect.Error, errorKinds)
		}
		if step.Expect.Error != "" && (step.Expect.Record != nil || step.Expect.Rows != nil || step.Expect.Records != nil) {
			return fmt.Errorf("steps[%d].expect: error cannot be combined with record, rows or records", i)
		}
		if step.Expect.Record != nil && (step.Expect.Rows != nil || step.Expect.Records != nil) {
			return fmt.Errorf("steps[%d].expect: record cannot be combined with rows or records", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Name == "" {
		return fmt.Errorf("assertions[%d]: name is required", index)
	}

	switch a.Type {
	case AssertSelection:
		if a.Values != nil {
			return fmt.Errorf("assertions[%d]: values is only valid for %s", index, AssertSet)
		}
	case AssertNoSelection:
		if a.Count != nil || a.IDs != nil || a.Values != nil {
			return fmt.Errorf("assertions[%d]: %s takes only a name", index, AssertNoSelection)
		}
	case AssertSet:
		if a.Count != nil || a.IDs != nil {
			return fmt.Errorf("assertions[%d]: count and ids are only valid for %s", index, AssertSelection)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q (expected %s, %s or %s)",
			index, a.Type, AssertSelection, AssertNoSelection, AssertSet)
	}

	return nil
}

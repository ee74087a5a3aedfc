package testutil

// FixedExecIDGenerator returns the same execution id every time.
//
// Results and logs of a scenario then carry no random ids, so golden
// output is byte-identical across runs.
//
// Thread-safety: FixedExecIDGenerator is stateless and safe for concurrent use.
type FixedExecIDGenerator struct {
	id string
}

// NewFixedExecIDGenerator creates a generator that always returns id.
// If id is empty, Generate returns "test-exec".
func NewFixedExecIDGenerator(id string) *FixedExecIDGenerator {
	if id == "" {
		id = "test-exec"
	}
	return &FixedExecIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.ExecIDGenerator.
func (g *FixedExecIDGenerator) Generate() string {
	return g.id
}

package engine

import (
	"iter"

	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/vql"
)

// Result is the outcome of one statement. Exactly one of Record and Rows
// is set: SELECT and SHOW produce Rows, every other command a Record. An
// empty Record means the command had nothing to do.
type Result struct {
	// ExecID identifies this execution in logs.
	ExecID string

	// Seq orders results of one Engine.
	Seq int64

	Kind vql.Kind

	Record store.Record

	// Rows is lazy: the query runs when iteration starts and again on
	// every new iteration. Consume it before executing the next statement
	// against the same single-connection database.
	Rows iter.Seq2[store.Record, error]
}

// IsStream reports whether the result is a row sequence.
func (r Result) IsStream() bool {
	return r.Rows != nil
}

// Collect drains the result into a slice. A record result yields one
// element.
func (r Result) Collect() ([]store.Record, error) {
	if !r.IsStream() {
		return []store.Record{r.Record}, nil
	}
	out := []store.Record{}
	for rec, err := range r.Rows {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

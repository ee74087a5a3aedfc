package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/engine"
	"github.com/roach88/vql/internal/store"
)

// ExecOptions holds flags for the exec command.
type ExecOptions struct {
	*RootOptions
	Database string
	File     string
	PageSize int
}

// StatementOutput is the outcome of one executed statement.
type StatementOutput struct {
	Seq    int64          `json:"seq,omitempty"`
	Cmd    string         `json:"cmd,omitempty"`
	Record store.Record   `json:"record,omitempty"`
	Rows   []store.Record `json:"rows,omitempty"`
	Error  *CLIError      `json:"error,omitempty"`
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExecOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "exec [statements]",
		Short: "Execute VQL statements against a database",
		Long: `Execute one or more VQL statements against a variant database.

Statements come from the argument, from --file, or from stdin. A failing
statement is reported and execution continues with the next one.

Exit codes:
  0 - All statements succeeded
  1 - One or more statements failed
  2 - Command error (database not found, bad config, etc.)

Examples:
  vql exec --db cohort.db "COUNT FROM variants WHERE qual > 30"
  vql exec --db cohort.db -f workflow.vql --format json
  echo "SHOW selections" | vql exec --db cohort.db`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite variant database")
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read statements from a file")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, "LIMIT of a SELECT without one (overrides the config)")

	return cmd
}

func runExec(opts *ExecOptions, args []string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	src, err := readSource(cmd, args, opts.File)
	if err != nil {
		return err
	}

	db, err := openDatabase(opts.Database, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	engOpts, err := cfg.EngineOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if opts.PageSize != 0 {
		engOpts = append(engOpts, engine.WithPageSize(opts.PageSize))
	}
	engOpts = append(engOpts, engine.WithLogger(opts.logger(cfg, cmd.ErrOrStderr())))

	eng, err := engine.New(engOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create engine", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := opts.formatter(cmd)
	outputs, failed := executeAll(ctx, eng, db, src)

	if opts.Format == "json" {
		if err := formatter.Success(outputs); err != nil {
			return err
		}
	} else {
		for _, out := range outputs {
			if err := writeStatementText(cmd.OutOrStdout(), formatter, out); err != nil {
				return err
			}
		}
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d statement(s) failed", failed))
	}
	return nil
}

// executeAll runs every statement of src and collects its output. Row
// sequences are drained before the next statement runs.
func executeAll(ctx context.Context, eng *engine.Engine, db engine.Storage, src string) ([]StatementOutput, int) {
	var (
		outputs []StatementOutput
		failed  int
	)
	for res, err := range eng.ExecuteAll(ctx, db, src) {
		out := StatementOutput{Seq: res.Seq, Cmd: string(res.Kind)}
		if err == nil {
			if res.IsStream() {
				out.Rows, err = res.Collect()
			} else {
				out.Record = res.Record
			}
		}
		if err != nil {
			failed++
			out.Record, out.Rows = nil, nil
			out.Error = &CLIError{Code: ErrorCode(err), Message: err.Error(), Details: ErrorDetails(err)}
		}
		outputs = append(outputs, out)
	}
	return outputs, failed
}

func writeStatementText(w io.Writer, formatter *OutputFormatter, out StatementOutput) error {
	if out.Cmd != "" {
		fmt.Fprintf(w, "-- %s #%d\n", out.Cmd, out.Seq)
	}
	switch {
	case out.Error != nil:
		return formatter.Error(out.Error.Code, out.Error.Message, out.Error.Details)
	case out.Rows != nil:
		return writeTable(w, out.Rows)
	default:
		writeRecord(w, out.Record)
		return nil
	}
}

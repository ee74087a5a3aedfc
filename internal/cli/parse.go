package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/vql"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	File string
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse [statements]",
		Short: "Parse VQL and print the statement structure",
		Long: `Parse VQL statements without touching a database.

Text output prints each statement in canonical VQL form, one per line.
JSON output prints the command dictionaries (cmd, fields, source,
filters, ...).

Examples:
  vql parse "SELECT chr, pos FROM variants WHERE qual > 30"
  vql parse -f workflow.vql --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "read statements from a file")

	return cmd
}

func runParse(opts *ParseOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	src, err := readSource(cmd, args, opts.File)
	if err != nil {
		return err
	}

	stmts, err := vql.Parse(src)
	if err != nil {
		if outErr := formatter.Fail(err); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "parse failed", err)
	}

	formatter.VerboseLog("Parsed %d statement(s)", len(stmts))

	if opts.Format == "json" {
		dicts := make([]map[string]any, len(stmts))
		for i, stmt := range stmts {
			dicts[i] = vql.ToDict(stmt)
		}
		return formatter.Success(dicts)
	}

	w := cmd.OutOrStdout()
	for _, stmt := range stmts {
		fmt.Fprintln(w, vql.String(stmt))
	}
	return nil
}

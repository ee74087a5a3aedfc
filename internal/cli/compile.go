package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/config"
	"github.com/roach88/vql/internal/engine"
	"github.com/roach88/vql/internal/ir"
	"github.com/roach88/vql/internal/queryir"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
	"github.com/roach88/vql/internal/vql"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Database string
	Fields   []string
	Source   string
	Where    string
	Presets  []string
	Inline   bool
}

// CompiledQuery is the output of the compile command.
type CompiledQuery struct {
	SQL     string   `json:"sql"`
	Args    []any    `json:"args"`
	Columns []string `json:"columns"`
	Inline  string   `json:"inline"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [statement]",
		Short: "Compile a SELECT or COUNT to SQL",
		Long: `Compile a SELECT or COUNT statement to parameterized SQL.

Without a statement, the query is built from --field, --source, --where
and --preset. Presets come from the config file; several filters are
joined with AND.

Field categories and sample ids come from --db (or the configured
database). Without one, an empty database with the built-in field
catalog is used.

Examples:
  vql compile "SELECT chr, pos FROM variants WHERE qual > 30"
  vql compile --where "gene = 'BRCA1'" --preset rare --field chr --field pos
  vql compile --db cohort.db "COUNT FROM A WHERE sample('alice').gt = 1"`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite variant database")
	cmd.Flags().StringSliceVar(&opts.Fields, "field", []string{"chr", "pos", "ref", "alt"}, "selected field (repeatable)")
	cmd.Flags().StringVar(&opts.Source, "source", vql.DefaultSource, "source selection")
	cmd.Flags().StringVar(&opts.Where, "where", "", "WHERE expression")
	cmd.Flags().StringSliceVar(&opts.Presets, "preset", nil, "named filter from the config file (repeatable)")
	cmd.Flags().BoolVar(&opts.Inline, "inline", false, "also print the SQL with arguments substituted")

	return cmd
}

func runCompile(opts *CompileOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	req, count, err := compileRequest(opts, cfg, args)
	if err != nil {
		if outErr := formatter.Fail(err); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "compile failed", err)
	}

	var db *store.Store
	if opts.Database != "" || cfg.Database != "" {
		db, err = openDatabase(opts.Database, cfg)
	} else {
		db, err = store.Open(":memory:")
	}
	if err != nil {
		return err
	}
	defer db.Close()

	engOpts, err := cfg.EngineOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
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

	q, err := eng.Compile(ctx, db, req)
	if err != nil {
		if outErr := formatter.Fail(err); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "compile failed", err)
	}
	if count {
		q = querysql.Count(querysql.DistinctIDs(q))
	}

	out := CompiledQuery{SQL: q.SQL, Args: q.Args, Columns: q.Columns, Inline: q.Inline()}
	if out.Args == nil {
		out.Args = []any{}
	}

	if opts.Format == "json" {
		return formatter.Success(out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, out.SQL)
	fmt.Fprintf(w, "-- args: %v\n", out.Args)
	if opts.Inline {
		fmt.Fprintf(w, "-- inline: %s\n", out.Inline)
	}
	return nil
}

// compileRequest builds the request from the statement argument or the
// flags. count reports a COUNT statement.
func compileRequest(opts *CompileOptions, cfg *config.Config, args []string) (req querysql.Request, count bool, err error) {
	if len(args) > 0 {
		stmt, err := vql.ParseOne(args[0])
		if err != nil {
			return req, false, err
		}
		switch s := stmt.(type) {
		case vql.Select:
			return querysql.Request{
				Fields:    s.Fields,
				Source:    s.Source,
				Filters:   s.Filters,
				OrderBy:   s.OrderBy,
				OrderDesc: s.OrderDesc,
				Limit:     s.Limit,
				Offset:    s.Offset,
				GroupBy:   s.GroupBy,
				Having:    s.Having,
			}, false, nil
		case vql.Count:
			return querysql.Request{
				Fields:  []ir.FieldRef{ir.Field(querysql.IDColumn)},
				Source:  s.Source,
				Filters: s.Filters,
			}, true, nil
		default:
			return req, false, &engine.FeatureError{
				Command: string(stmt.Kind()),
				Message: "only SELECT and COUNT compile to a query",
			}
		}
	}

	// Parse the field list through the grammar so sample fields work.
	head, err := vql.ParseOne(fmt.Sprintf("SELECT %s FROM variants", strings.Join(opts.Fields, ", ")))
	if err != nil {
		return req, false, err
	}

	var filters []queryir.Node
	if opts.Where != "" {
		n, err := vql.ParseFilter(opts.Where)
		if err != nil {
			return req, false, err
		}
		filters = append(filters, n)
	}
	for _, name := range opts.Presets {
		n, ok := cfg.Preset(name)
		if !ok {
			return req, false, &engine.FeatureError{
				Command: "compile",
				Feature: name,
				Message: fmt.Sprintf("unknown preset (have %v)", cfg.PresetNames()),
			}
		}
		filters = append(filters, n)
	}

	req = querysql.Request{Fields: head.(vql.Select).Fields, Source: opts.Source}
	switch len(filters) {
	case 0:
	case 1:
		req.Filters = filters[0]
	default:
		req.Filters = queryir.NewAnd(filters...)
	}
	return req, false, nil
}

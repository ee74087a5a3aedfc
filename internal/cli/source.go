package cli

import (
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/config"
	"github.com/roach88/vql/internal/querysql"
	"github.com/roach88/vql/internal/store"
)

// readSource returns the VQL text of a command: the positional argument,
// the --file contents, or stdin when neither is given or the argument is
// "-".
func readSource(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) > 0:
		return "", NewExitError(ExitCommandError, "give either a statement or --file, not both")
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", WrapExitError(ExitCommandError, "failed to read VQL file", err)
		}
		return string(data), nil
	case len(args) > 0 && args[0] != "-":
		return args[0], nil
	}

	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", WrapExitError(ExitCommandError, "failed to read stdin", err)
	}
	return string(data), nil
}

// openDatabase opens the --db path, falling back to the configured
// database. An unset path is a command error.
func openDatabase(path string, cfg *config.Config) (*store.Store, error) {
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return nil, NewExitError(ExitCommandError, "no database: use --db or set database in the config file")
	}
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
		}
	}

	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// recordColumns orders the keys of rec for display: the variant id
// first, then the rest by name.
func recordColumns(rec store.Record) []string {
	cols := make([]string, 0, len(rec))
	for k := range rec {
		if k != querysql.IDColumn {
			cols = append(cols, k)
		}
	}
	slices.Sort(cols)
	if _, ok := rec[querysql.IDColumn]; ok {
		cols = append([]string{querysql.IDColumn}, cols...)
	}
	return cols
}

// writeRecord prints one "key: value" line per field.
func writeRecord(w io.Writer, rec store.Record) {
	for _, k := range recordColumns(rec) {
		fmt.Fprintf(w, "%s: %s\n", k, formatValue(rec[k]))
	}
}

// writeTable prints rows as a tab-aligned table. The columns are those of
// the first row.
func writeTable(w io.Writer, rows []store.Record) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return nil
	}

	cols := recordColumns(rows[0])
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for i, c := range cols {
		if i > 0 {
			fmt.Fprint(tw, "\t")
		}
		fmt.Fprint(tw, c)
	}
	fmt.Fprintln(tw)
	for _, row := range rows {
		for i, c := range cols {
			if i > 0 {
				fmt.Fprint(tw, "\t")
			}
			fmt.Fprint(tw, formatValue(row[c]))
		}
		fmt.Fprintln(tw)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "(%d rows)\n", len(rows))
	return nil
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

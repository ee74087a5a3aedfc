package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/queryir"
)

// NewPresetsCommand creates the presets command.
func NewPresetsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List the named filters of the config file",
		Long: `List the named filters declared under presets in the config file.

Text output prints "name: expression" with the expression in canonical
VQL. JSON output maps each name to its filter tree.

Examples:
  vql presets -c vql.cue
  vql presets -c vql.cue --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.loadConfig()
			if err != nil {
				return err
			}
			formatter := rootOpts.formatter(cmd)
			names := cfg.PresetNames()

			if rootOpts.Format == "json" {
				out := make(map[string]any, len(names))
				for _, name := range names {
					n, _ := cfg.Preset(name)
					out[name] = queryir.ToDict(n)
				}
				return formatter.Success(out)
			}

			w := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(w, "No presets defined.")
				return nil
			}
			for _, name := range names {
				n, _ := cfg.Preset(name)
				fmt.Fprintf(w, "%s: %s\n", name, queryir.ToVQL(n))
			}
			return nil
		},
	}
}

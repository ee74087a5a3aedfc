// Command vql parses, compiles and executes VQL statements against a
// variant database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/vql/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}

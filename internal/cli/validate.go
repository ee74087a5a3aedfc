package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/vql/internal/vql"
)

// ValidationIssue is a syntax error found in a script.
type ValidationIssue struct {
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
	Message string `json:"message"`
}

// FileValidation is the validation result of one script.
type FileValidation struct {
	File       string            `json:"file"`
	Valid      bool              `json:"valid"`
	Statements int               `json:"statements"`
	Errors     []ValidationIssue `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <script.vql>...",
		Short: "Check VQL scripts for syntax errors",
		Long: `Check VQL scripts for syntax errors without executing them.

Each error is reported with its line and column.

Exit codes:
  0 - All scripts are valid
  1 - One or more scripts have errors
  2 - Command error (file not found, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, files []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			if outErr := formatter.Error(ErrCodeNotFound, fmt.Sprintf("cannot read %s: %v", file, err), nil); outErr != nil {
				return outErr
			}
			return WrapExitError(ExitCommandError, "failed to read script", err)
		}

		fv := validateScript(file, string(data))
		formatter.VerboseLog("%s: %d statement(s)", file, fv.Statements)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		w := cmd.OutOrStdout()
		for _, fv := range result.Files {
			if fv.Valid {
				fmt.Fprintf(w, "✓ %s (%d statements)\n", fv.File, fv.Statements)
				continue
			}
			fmt.Fprintf(w, "✗ %s\n", fv.File)
			for _, issue := range fv.Errors {
				fmt.Fprintf(w, "  %s:%d:%d: %s\n", fv.File, issue.Line, issue.Column, issue.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

// validateScript parses src. Parsing stops at the first error, so an
// invalid script reports exactly one issue.
func validateScript(file, src string) FileValidation {
	fv := FileValidation{File: file, Valid: true}

	stmts, err := vql.Parse(src)
	if err == nil {
		fv.Statements = len(stmts)
		return fv
	}

	fv.Valid = false
	issue := ValidationIssue{Message: err.Error()}
	var pe *vql.ParseError
	if errors.As(err, &pe) {
		issue = ValidationIssue{Line: pe.Line, Column: pe.Column, Message: pe.Message}
	}
	fv.Errors = append(fv.Errors, issue)
	return fv
}

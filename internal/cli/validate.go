package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/pulfile"
)

// FileValidation is the outcome for one validated file.
type FileValidation struct {
	File   string   `json:"file"`
	Valid  bool     `json:"valid"`
	Code   string   `json:"code,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var state bool

	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check PUL files without applying them",
		Long: `Check PUL files against the schema, decode them, and normalize them,
reporting every problem with its file position.

With --state the files are checked as document states (as accepted by
load) instead.

Exit codes:
  0 - All files valid
  1 - One or more files invalid
  2 - Command error`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, state, cmd)
		},
	}

	cmd.Flags().BoolVar(&state, "state", false, "validate document state files instead of PULs")

	return cmd
}

func runValidate(opts *RootOptions, files []string, state bool, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	dec, err := pulfile.NewDecoder()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := ValidationResult{Valid: true}
	for _, file := range files {
		f.VerboseLog("Validating %s", file)
		var err error
		if state {
			_, err = dec.ReadState(file, cmd.InOrStdin())
		} else {
			_, err = readPULWith(dec, cmd, file)
		}
		fv := FileValidation{File: file, Valid: err == nil}
		if err != nil {
			result.Valid = false
			fv.Code, fv.Errors = describe(err)
		}
		result.Files = append(result.Files, fv)
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else {
		for _, fv := range result.Files {
			fmt.Fprintf(f.Writer, "%s %s\n", Mark(fv.Valid), fv.File)
			writeLines(f.Writer, "  ", fv.Errors)
		}
	}

	if !result.Valid {
		return &ExitError{
			Code:     ExitFailure,
			Message:  "validation failed",
			reported: true,
		}
	}
	return nil
}

// describe splits err into a code and one line per problem.
func describe(err error) (string, []string) {
	var se *pulfile.SchemaError
	if errors.As(err, &se) {
		lines := make([]string, len(se.Problems))
		for i, p := range se.Problems {
			lines[i] = p.String()
		}
		return string(pul.CodeInvalidInput), lines
	}
	if c := pul.CodeOf(err); c != "" {
		return string(c), []string{err.Error()}
	}
	return ErrCodeReadFailed, []string{err.Error()}
}

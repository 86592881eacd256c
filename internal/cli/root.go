package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/pulfile"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Encoding string // "json" | "yaml": how PULs and documents are printed in text format
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ijsoniq CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ijsoniq",
		Short: "ijsoniq - pending update lists for JSON documents",
		Long: `Normalize, compose, invert and apply pending update lists (PULs)
against collections of JSON documents, with an undo log.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if _, err := opts.encoding(); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Encoding, "encoding", "json", "encoding of printed PULs and documents (json|yaml)")

	cmd.AddCommand(NewNormalizeCommand(opts))
	cmd.AddCommand(NewComposeCommand(opts))
	cmd.AddCommand(NewInvertCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewApplyCommand(opts))
	cmd.AddCommand(NewUndoCommand(opts))
	cmd.AddCommand(NewLogCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewFindCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

func (o *RootOptions) encoding() (pulfile.Format, error) {
	if o.Encoding == "" {
		return pulfile.FormatJSON, nil
	}
	f, err := pulfile.ParseFormat(o.Encoding)
	if err != nil {
		return "", err
	}
	if f == pulfile.FormatCUE {
		return "", fmt.Errorf("invalid encoding %q: must be json or yaml", o.Encoding)
	}
	return f, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// setupLogging routes slog to w: warnings only by default, debug
// output with --verbose.
func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

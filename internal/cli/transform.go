package cli

import (
	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/pulfile"
)

// NewNormalizeCommand creates the normalize command.
func NewNormalizeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <pul-file>",
		Short: "Normalize a PUL",
		Long: `Read a PUL (JSON, YAML or CUE; "-" reads JSON from stdin) and print
its normal form: primitives on the same target merged, overridden
primitives dropped, and conflicts reported.

Examples:
  ijsoniq normalize update.json
  ijsoniq normalize update.yaml --encoding yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			p, err := readPUL(cmd, args[0])
			if err != nil {
				return f.Fail(inputExitCode(err), ErrCodeReadFailed, err)
			}
			f.VerboseLog("normalized %d primitive(s) over %v", p.Len(), p.Collections())
			return writeValue(rootOpts, f, p.ToValue())
		},
	}
}

// NewComposeCommand creates the compose command.
func NewComposeCommand(rootOpts *RootOptions) *cobra.Command {
	var showIntroduced bool

	cmd := &cobra.Command{
		Use:   "compose <pul-file> <pul-file>...",
		Short: "Compose PULs into one",
		Long: `Compose PULs, oldest first, into a single normalized PUL with the same
effect as applying them in sequence.

With --format json the response also lists the locations the composed
PUL introduces.

Examples:
  ijsoniq compose first.json second.json
  ijsoniq compose a.yaml b.yaml c.yaml --introduced`,
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			inputs := make([]*pul.PUL, len(args))
			for i, path := range args {
				p, err := readPUL(cmd, path)
				if err != nil {
					return f.Fail(inputExitCode(err), ErrCodeReadFailed, err)
				}
				inputs[i] = p
			}

			out := pul.ComposeAll(inputs...)
			if err := out.Err(); err != nil {
				return f.Fail(ExitFailure, ErrCodeGeneric, err)
			}
			introduced := pul.Introduced(out)

			if f.Format == "json" {
				return f.Success(map[string]any{
					"pul":        ir.ToAny(out.ToValue()),
					"introduced": introduced,
				})
			}
			if showIntroduced {
				writeLines(f.Writer, "", introduced)
				return nil
			}
			return writeValue(rootOpts, f, out.ToValue())
		},
	}

	cmd.Flags().BoolVar(&showIntroduced, "introduced", false, "print the introduced locations instead of the PUL")

	return cmd
}

// NewInvertCommand creates the invert command.
func NewInvertCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "invert <undo-file>",
		Short: "Fold undo primitives into an inverse PUL",
		Long: `Read a PUL made only of insert and del primitives, listed oldest
first, and fold it into a normalized inverse PUL. The first insert of a
document wins because it carries the oldest pre-image.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := rootOpts.formatter(cmd)
			dec, err := pulfile.NewDecoder()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeGeneric, err)
			}
			raw, err := dec.ReadPUL(args[0], cmd.InOrStdin())
			if err != nil {
				return f.Fail(inputExitCode(err), ErrCodeReadFailed, err)
			}
			out := pul.Invert(raw.All()...)
			if err := out.Err(); err != nil {
				return f.Fail(ExitFailure, ErrCodeGeneric, err)
			}
			return writeValue(rootOpts, f, out.ToValue())
		},
	}
}

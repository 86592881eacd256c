package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/pulfile"
)

// readPUL decodes a PUL file ("-" for stdin) and normalizes it.
func readPUL(cmd *cobra.Command, path string) (*pul.PUL, error) {
	dec, err := pulfile.NewDecoder()
	if err != nil {
		return nil, err
	}
	return readPULWith(dec, cmd, path)
}

func readPULWith(dec *pulfile.Decoder, cmd *cobra.Command, path string) (*pul.PUL, error) {
	raw, err := dec.ReadPUL(path, cmd.InOrStdin())
	if err != nil {
		return nil, err
	}
	p := pul.Normalize(raw)
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// inputExitCode separates unreadable input from PUL semantics errors.
func inputExitCode(err error) int {
	if pul.CodeOf(err) != "" {
		return ExitFailure
	}
	return ExitCommandError
}

// writeValue prints v as the data of a JSON response, or encoded with
// the --encoding flag in text mode.
func writeValue(opts *RootOptions, f *OutputFormatter, v ir.Value) error {
	if f.Format == "json" {
		return f.Success(ir.ToAny(v))
	}
	enc, err := opts.encoding()
	if err != nil {
		return err
	}
	return pulfile.Encode(f.Writer, v, enc)
}

func writeLines(w io.Writer, prefix string, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(w, "%s%s\n", prefix, l)
	}
}

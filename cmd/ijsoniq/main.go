package main

import (
	"fmt"
	"os"

	"github.com/ldoblies/ijsoniq/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		// Commands that report through the output formatter have already
		// printed the error.
		if !cli.Reported(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

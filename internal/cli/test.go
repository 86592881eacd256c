package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ldoblies/ijsoniq/internal/harness"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update bool   // regenerate golden files
	Filter string // scenario filter (glob pattern)
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name   string   `json:"name"`
	File   string   `json:"file"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run conformance scenarios",
		Long: `Run the YAML scenarios under a directory. Each scenario seeds an
in-memory database, runs its steps (normalize, compose, invert, apply,
undo, roundtrip) and checks their expectations.

When <scenarios-dir>/golden/<file>.golden exists, the step trace must
also match it byte for byte.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, etc.)

Examples:
  ijsoniq test ./scenarios
  ijsoniq test ./scenarios --filter "compose-*"
  ijsoniq test ./scenarios --update
  ijsoniq test ./scenarios --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern on the file name")

	return cmd
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Errorf("scenarios directory not found: %s", scenariosDir))
	}

	files, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeGeneric, err)
	}

	result := TestResult{Scenarios: []ScenarioResult{}, Total: len(files)}
	text := io.Discard
	if f.Format != "json" {
		text = f.Writer
	}
	if len(files) == 0 {
		fmt.Fprintln(text, "No scenarios found.")
	}

	for _, file := range files {
		sr := runScenario(file, opts.Update)
		result.Scenarios = append(result.Scenarios, sr)
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
		fmt.Fprintf(text, "%s %s\n", Mark(sr.Pass), sr.Name)
		writeLines(text, "  ", sr.Errors)
	}

	if f.Format == "json" {
		if err := f.Success(result); err != nil {
			return err
		}
	} else if len(files) > 0 {
		fmt.Fprintln(text)
		fmt.Fprintf(text, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)
		if result.Failed == 0 {
			fmt.Fprintf(text, "%s All scenarios passed\n", Mark(true))
		}
	}

	if result.Failed > 0 {
		return &ExitError{
			Code:     ExitFailure,
			Message:  fmt.Sprintf("%d scenario(s) failed", result.Failed),
			reported: true,
		}
	}
	return nil
}

// findScenarioFiles lists the scenario files under dir whose base name
// matches filter.
func findScenarioFiles(dir, filter string) ([]string, error) {
	all, err := harness.FindScenarios(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to find scenarios: %w", err)
	}
	if filter == "" {
		return all, nil
	}
	var files []string
	for _, path := range all {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		matched, err := filepath.Match(filter, name)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern: %w", err)
		}
		if matched {
			files = append(files, path)
		}
	}
	return files, nil
}

// runScenario executes one scenario file and checks its golden file.
func runScenario(file string, update bool) ScenarioResult {
	sr := ScenarioResult{Name: filepath.Base(file), File: file}
	fail := func(format string, args ...any) ScenarioResult {
		sr.Errors = append(sr.Errors, fmt.Sprintf(format, args...))
		return sr
	}

	scenario, err := harness.LoadScenario(file)
	if err != nil {
		return fail("load error: %v", err)
	}
	sr.Name = scenario.Name

	result, err := harness.Run(scenario)
	if err != nil {
		return fail("execution error: %v", err)
	}
	sr.Errors = append(sr.Errors, result.Errors...)

	snapshot, err := harness.Snapshot(scenario.Name, result)
	if err != nil {
		return fail("snapshot error: %v", err)
	}
	goldenPath := goldenFilePath(file)
	if update {
		if err := writeGolden(goldenPath, snapshot); err != nil {
			return fail("golden update error: %v", err)
		}
	} else if err := compareGolden(goldenPath, snapshot); err != nil {
		return fail("%v", err)
	}

	sr.Pass = len(sr.Errors) == 0
	return sr
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

func writeGolden(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareGolden checks snapshot against the golden file at path. A
// missing golden file is not an error.
func compareGolden(path string, snapshot []byte) error {
	want, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read golden file: %w", err)
	}
	if !bytes.Equal(bytes.TrimSpace(want), bytes.TrimSpace(snapshot)) {
		return fmt.Errorf("golden file mismatch (run with --update to regenerate)")
	}
	return nil
}

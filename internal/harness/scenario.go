package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"gopkg.in/yaml.v3"
)

// Scenario is a sequence of PUL operations run against a fresh store,
// each with optional expectations on its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// State seeds the store before the first step: collection name to
	// documents.
	State map[string][]any `yaml:"state,omitempty"`

	// Steps run in order against the same store.
	Steps []Step `yaml:"steps"`
}

// Step is one operation.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// PUL is the input of normalize, invert, apply and roundtrip, in
	// either wire form.
	PUL any `yaml:"pul,omitempty"`

	// PULs are the inputs of compose, oldest first. Each is normalized
	// before composing.
	PULs []any `yaml:"puls,omitempty"`

	// Expect is checked against the step outcome. Nil checks nothing
	// beyond the absence of an unexpected error.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the outcome of a step. Fields left empty are not
// checked.
type Expect struct {
	// Error is the expected error code. When set the step must fail.
	Error string `yaml:"error,omitempty"`

	// PUL is the expected result PUL. Per kind, primitive order is
	// ignored.
	PUL any `yaml:"pul,omitempty"`

	// Introduced lists the expected introduced locations of the result.
	Introduced []string `yaml:"introduced,omitempty"`

	// State is the expected store content after the step. Document order
	// is ignored.
	State map[string][]any `yaml:"state,omitempty"`
}

// Operations.
const (
	OpNormalize = "normalize"
	OpCompose   = "compose"
	OpInvert    = "invert"
	OpApply     = "apply"
	OpUndo      = "undo"
	OpRoundtrip = "roundtrip"
)

var ops = []string{OpNormalize, OpCompose, OpInvert, OpApply, OpUndo, OpRoundtrip}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios returns the scenario files under dir, sorted.
func FindScenarios(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (filepath.Ext(path) == ".yaml" || filepath.Ext(path) == ".yml") {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, s *Step) error {
	if !slices.Contains(ops, s.Op) {
		return fmt.Errorf("steps[%d]: unknown op %q", i, s.Op)
	}

	switch s.Op {
	case OpCompose:
		if len(s.PULs) == 0 {
			return fmt.Errorf("steps[%d]: puls is required for compose", i)
		}
		if s.PUL != nil {
			return fmt.Errorf("steps[%d]: compose takes puls, not pul", i)
		}
	case OpUndo:
		if s.PUL != nil || len(s.PULs) > 0 {
			return fmt.Errorf("steps[%d]: undo takes no input", i)
		}
	default:
		if s.PUL == nil {
			return fmt.Errorf("steps[%d]: pul is required for %s", i, s.Op)
		}
	}

	if e := s.Expect; e != nil {
		if e.Error != "" && (e.PUL != nil || e.State != nil || e.Introduced != nil) {
			return fmt.Errorf("steps[%d].expect: error excludes other expectations", i)
		}
		if e.State != nil && (s.Op == OpNormalize || s.Op == OpCompose || s.Op == OpInvert) {
			return fmt.Errorf("steps[%d].expect: %s does not change state", i, s.Op)
		}
	}
	return nil
}

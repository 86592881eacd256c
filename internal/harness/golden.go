package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Snapshot renders a result as the canonical JSON stored in golden
// files: the scenario name and one object per step.
func Snapshot(name string, result *Result) ([]byte, error) {
	steps := make(ir.Array, len(result.Steps))
	for i, s := range result.Steps {
		steps[i] = s.toValue()
	}
	return ir.MarshalCanonical(ir.Obj(
		ir.P("scenario", ir.String(name)),
		ir.P("steps", steps),
	))
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can also check Pass; returns an error
// only if the scenario could not be executed.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}

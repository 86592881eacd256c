package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

// AssertionError is returned when an expectation fails.
// It includes a line diff of the canonical values.
type AssertionError struct {
	What     string // which expectation: "pul", "state", ...
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s mismatch (-expected +actual):\n", e.What)
	buf.WriteString(lineDiff(e.Expected, e.Actual))
	return buf.String()
}

// checkStep compares a step outcome with its expectations and returns
// one message per failure.
func checkStep(tr StepTrace, expect *Expect) []string {
	var failures []string
	add := func(err error) {
		if err != nil {
			failures = append(failures, err.Error())
		}
	}

	if expect == nil {
		expect = &Expect{}
	}
	switch {
	case tr.Error != "" && expect.Error == "":
		return []string{fmt.Sprintf("unexpected error: %s", tr.Message)}
	case tr.Error != "" && tr.Error != expect.Error:
		return []string{fmt.Sprintf("expected error %s, got %s: %s", expect.Error, tr.Error, tr.Message)}
	case tr.Error != "":
		return nil
	case expect.Error != "":
		return []string{fmt.Sprintf("expected error %s, step succeeded", expect.Error)}
	}

	if tr.Op == OpRoundtrip {
		add(compareValues("roundtrip state", sortLists(tr.before), sortLists(tr.State)))
	}
	if expect.PUL != nil {
		add(assertPUL(expect.PUL, tr.PUL))
	}
	if expect.Introduced != nil && !slices.Equal(expect.Introduced, tr.Introduced) {
		failures = append(failures, fmt.Sprintf("introduced: expected %v, got %v", expect.Introduced, tr.Introduced))
	}
	if expect.State != nil {
		add(assertState(expect.State, tr.State))
	}
	return failures
}

// assertPUL decodes the expected PUL in either wire form and compares
// it per kind, ignoring the order of primitives within a kind.
func assertPUL(raw any, got ir.Object) error {
	p, err := decodePUL(raw)
	if err != nil {
		return fmt.Errorf("expected pul: %w", err)
	}
	return compareValues("pul", sortLists(p.ToValue()), sortLists(got))
}

func assertState(raw map[string][]any, got ir.Object) error {
	want := make(ir.Object, len(raw))
	for c, docs := range raw {
		arr := make(ir.Array, len(docs))
		for i, d := range docs {
			v, err := ir.FromAny(d)
			if err != nil {
				return fmt.Errorf("expected state %s[%d]: %w", c, i, err)
			}
			arr[i] = v
		}
		want[c] = arr
	}
	// The store lists only non-empty collections.
	for c, docs := range want {
		if len(docs.(ir.Array)) == 0 {
			delete(want, c)
		}
	}
	return compareValues("state", sortLists(want), sortLists(got))
}

func compareValues(what string, want, got ir.Value) error {
	if ir.Equal(want, got) {
		return nil
	}
	return &AssertionError{What: what, Expected: indent(want), Actual: indent(got)}
}

// sortLists orders every list member of v by canonical encoding: the
// primitives of each kind, or the documents of each collection.
func sortLists(v ir.Object) ir.Object {
	if v == nil {
		return ir.Object{}
	}
	out := make(ir.Object, len(v))
	for k, list := range v {
		arr, ok := list.(ir.Array)
		if !ok {
			out[k] = list
			continue
		}
		sorted := arr.Clone()
		slices.SortStableFunc(sorted, func(a, b ir.Value) int {
			return bytes.Compare(ir.MustMarshalCanonical(a), ir.MustMarshalCanonical(b))
		})
		out[k] = sorted
	}
	return out
}

func indent(v ir.Value) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, ir.MustMarshalCanonical(v), "", "  "); err != nil {
		return string(ir.MustMarshalCanonical(v))
	}
	return buf.String()
}

// lineDiff renders a line-level diff of two texts.
func lineDiff(want, got string) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var buf strings.Builder
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			buf.WriteString(prefix + strings.TrimSuffix(line, "\n") + "\n")
		}
	}
	return buf.String()
}

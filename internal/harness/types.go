package harness

import "github.com/ldoblies/ijsoniq/internal/ir"

// StepTrace records the outcome of one step.
type StepTrace struct {
	Index int
	Op    string

	// Error is the error code of a failed step; Message is the full
	// error text.
	Error   string
	Message string

	// PUL is the step's result PUL: the normalized, composed or inverted
	// PUL, the PUL as applied, or the inverse applied by undo.
	PUL ir.Object

	// Inverse is the undo PUL recorded by apply.
	Inverse ir.Object

	// Introduced lists the introduced locations of a composed PUL.
	Introduced []string

	// Seq is the log entry written by apply or consumed by undo.
	Seq int64

	// State is the store content after apply, undo and roundtrip.
	State ir.Object

	// before is the store content a roundtrip must restore.
	before ir.Object
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true when every step met its expectations.
	Pass bool

	// Steps holds one trace per executed step, in order.
	Steps []StepTrace

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{Pass: true, Steps: []StepTrace{}, Errors: []string{}}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// toValue renders a step for golden snapshots. Empty fields are left
// out.
func (s StepTrace) toValue() ir.Object {
	out := ir.Obj(ir.P("op", ir.String(s.Op)))
	if s.Error != "" {
		out["error"] = ir.String(s.Error)
	}
	if s.PUL != nil {
		out["pul"] = s.PUL
	}
	if s.Inverse != nil {
		out["inverse"] = s.Inverse
	}
	if len(s.Introduced) > 0 {
		out["introduced"] = stringArray(s.Introduced)
	}
	if s.Seq != 0 {
		out["seq"] = ir.Int(s.Seq)
	}
	if s.State != nil {
		out["state"] = s.State
	}
	return out
}

func stringArray(xs []string) ir.Array {
	out := make(ir.Array, len(xs))
	for i, x := range xs {
		out[i] = ir.String(x)
	}
	return out
}

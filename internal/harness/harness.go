package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/ldoblies/ijsoniq/internal/apply"
	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
	"github.com/ldoblies/ijsoniq/internal/store"
	"github.com/ldoblies/ijsoniq/internal/testutil"
)

// CodeNothingToUndo is reported by an undo step on an exhausted log.
const CodeNothingToUndo = "NOTHING_TO_UNDO"

// Harness runs the steps of one scenario against its own store.
type Harness struct {
	store  *store.Store
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with sequential
// document ids and a deterministic log clock, so traces are identical
// across runs. A step failure the scenario did not expect is recorded
// in the result; only infrastructure failures are returned as errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDGenerator("doc")),
		store.WithSequencer(testutil.NewDeterministicClock()))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	ctx := context.Background()
	if err := h.seed(ctx, scenario.State); err != nil {
		return nil, fmt.Errorf("failed to seed state: %w", err)
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		tr, err := h.execute(ctx, step)
		if err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
		tr.Index = i
		result.Steps = append(result.Steps, tr)

		for _, failure := range checkStep(tr, step.Expect) {
			result.AddError(fmt.Sprintf("steps[%d] %s: %s", i, step.Op, failure))
		}
	}
	return result, nil
}

func (h *Harness) seed(ctx context.Context, state map[string][]any) error {
	if len(state) == 0 {
		return nil
	}
	collections := make([]string, 0, len(state))
	for c := range state {
		collections = append(collections, c)
	}
	sort.Strings(collections)

	return docstore.Run(ctx, h.store, collections, docstore.ReadWrite, docstore.Hooks{}, func(tx docstore.Tx) error {
		for _, c := range collections {
			for i, raw := range state[c] {
				v, err := ir.FromAny(raw)
				if err != nil {
					return fmt.Errorf("%s[%d]: %w", c, i, err)
				}
				doc, ok := v.(ir.Object)
				if !ok {
					return fmt.Errorf("%s[%d]: document must be an object, got %s", c, i, ir.TypeName(v))
				}
				if _, err := tx.Put(ctx, c, doc); err != nil {
					return fmt.Errorf("%s[%d]: %w", c, i, err)
				}
			}
		}
		return nil
	})
}

// execute runs one step. PUL errors become part of the trace.
func (h *Harness) execute(ctx context.Context, step Step) (StepTrace, error) {
	tr := StepTrace{Op: step.Op}
	fail := func(err error) (StepTrace, error) {
		tr.Error = errorCode(err)
		tr.Message = err.Error()
		return tr, nil
	}

	switch step.Op {
	case OpNormalize:
		p, err := decodePUL(step.PUL)
		if err != nil {
			return fail(err)
		}
		out := pul.Normalize(p)
		if err := out.Err(); err != nil {
			return fail(err)
		}
		tr.PUL = out.ToValue()

	case OpCompose:
		inputs := make([]*pul.PUL, len(step.PULs))
		for i, raw := range step.PULs {
			p, err := decodePUL(raw)
			if err != nil {
				return fail(fmt.Errorf("puls[%d]: %w", i, err))
			}
			inputs[i] = pul.Normalize(p)
		}
		out := pul.ComposeAll(inputs...)
		if err := out.Err(); err != nil {
			return fail(err)
		}
		tr.PUL = out.ToValue()
		tr.Introduced = pul.Introduced(out)

	case OpInvert:
		p, err := decodePUL(step.PUL)
		if err != nil {
			return fail(err)
		}
		out := pul.Invert(p.All()...)
		if err := out.Err(); err != nil {
			return fail(err)
		}
		tr.PUL = out.ToValue()

	case OpApply, OpRoundtrip:
		p, err := decodePUL(step.PUL)
		if err != nil {
			return fail(err)
		}
		if step.Op == OpRoundtrip {
			if tr.before, err = h.dump(ctx); err != nil {
				return tr, err
			}
		}
		res, seq, err := h.store.Apply(ctx, p, apply.WithLogger(h.logger))
		if err != nil {
			return fail(err)
		}
		tr.PUL = res.Applied.ToValue()
		tr.Inverse = res.Inverse.ToValue()
		tr.Seq = seq
		if step.Op == OpRoundtrip {
			if _, err := h.store.Undo(ctx, apply.WithLogger(h.logger)); err != nil {
				return fail(err)
			}
		}
		if tr.State, err = h.dump(ctx); err != nil {
			return tr, err
		}

	case OpUndo:
		entry, err := h.store.Undo(ctx, apply.WithLogger(h.logger))
		if err != nil {
			return fail(err)
		}
		tr.PUL = entry.Inverse.ToValue()
		tr.Seq = entry.Seq
		if tr.State, err = h.dump(ctx); err != nil {
			return tr, err
		}

	default:
		return tr, fmt.Errorf("unknown op %q", step.Op)
	}
	return tr, nil
}

func (h *Harness) dump(ctx context.Context) (ir.Object, error) {
	d, err := docstore.Dump(ctx, h.store)
	if err != nil {
		return nil, err
	}
	return docstore.DumpValue(d), nil
}

func decodePUL(raw any) (*pul.PUL, error) {
	v, err := ir.FromAny(raw)
	if err != nil {
		return nil, &pul.Error{Code: pul.CodeInvalidInput, Kind: -1, Message: "unreadable pul", Err: err}
	}
	return pul.FromValue(v)
}

func errorCode(err error) string {
	if code := pul.CodeOf(err); code != "" {
		return string(code)
	}
	if errors.Is(err, store.ErrNothingToUndo) {
		return CodeNothingToUndo
	}
	return "ERROR"
}

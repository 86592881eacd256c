// Package query filters documents by the values at their paths.
//
// A Select names a collection and an optional predicate tree. Backends
// that can evaluate filters natively implement Finder (the SQLite store
// compiles them with SQLCompiler); any other docstore.Backend is
// filtered in memory with Predicate.Match. Both give the same answer:
// paths resolve the way docval.Get resolves them, so a decimal segment
// is an array index on arrays and a key on objects.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Predicate is a filter condition. The marker method seals the
// interface to this package so compilers can switch exhaustively.
type Predicate interface {
	predicateNode()

	// Match evaluates the predicate against one document.
	Match(doc ir.Object) bool
}

// Equals matches documents whose value at Path equals Value.
type Equals struct {
	Path  docval.Path
	Value ir.Value
}

// Exists matches documents that have a value at Path, null included.
type Exists struct {
	Path docval.Path
}

// And matches when every predicate matches. An empty And matches all.
type And struct {
	Predicates []Predicate
}

func (Equals) predicateNode() {}
func (Exists) predicateNode() {}
func (And) predicateNode()    {}

func (e Equals) Match(doc ir.Object) bool {
	v, err := docval.Get(doc, e.Path)
	return err == nil && ir.Equal(v, e.Value)
}

func (e Exists) Match(doc ir.Object) bool {
	return docval.Has(doc, e.Path)
}

func (a And) Match(doc ir.Object) bool {
	for _, p := range a.Predicates {
		if !p.Match(doc) {
			return false
		}
	}
	return true
}

// Select reads the documents of one collection that satisfy Filter, in
// id order.
type Select struct {
	Collection string
	Filter     Predicate // nil matches every document
	Limit      int       // 0 means no limit
}

// maxIndexSegments bounds the decimal segments of one path; each one
// doubles the alternatives a SQL backend has to try.
const maxIndexSegments = 4

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid query")

// Validate checks that q can be evaluated by every backend.
func Validate(q Select) error {
	if q.Collection == "" {
		return fmt.Errorf("%w: collection is required", ErrInvalid)
	}
	if q.Limit < 0 {
		return fmt.Errorf("%w: negative limit %d", ErrInvalid, q.Limit)
	}
	if q.Filter == nil {
		return nil
	}
	return validatePredicate(q.Filter)
}

func validatePredicate(p Predicate) error {
	switch pred := p.(type) {
	case Equals:
		if pred.Value == nil {
			return fmt.Errorf("%w: equals on %q has no value", ErrInvalid, pred.Path)
		}
		return validatePath(pred.Path)
	case Exists:
		return validatePath(pred.Path)
	case And:
		for _, sub := range pred.Predicates {
			if sub == nil {
				return fmt.Errorf("%w: nil predicate in and", ErrInvalid)
			}
			if err := validatePredicate(sub); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported predicate type %T", ErrInvalid, p)
	}
}

func validatePath(p docval.Path) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty path", ErrInvalid)
	}
	indexes := 0
	for _, seg := range p {
		if seg == "" || strings.ContainsAny(seg, `"`) {
			return fmt.Errorf("%w: unsupported path segment %q in %q", ErrInvalid, seg, p)
		}
		if isIndex(seg) {
			indexes++
		}
	}
	if indexes > maxIndexSegments {
		return fmt.Errorf("%w: path %q has more than %d numeric segments", ErrInvalid, p, maxIndexSegments)
	}
	return nil
}

func isIndex(seg string) bool {
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return seg != ""
}

// Finder is implemented by backends that evaluate selects natively.
type Finder interface {
	Find(ctx context.Context, q Select) ([]ir.Object, error)
}

// Find runs q against b, natively when b is a Finder.
func Find(ctx context.Context, b docstore.Backend, q Select) ([]ir.Object, error) {
	if err := Validate(q); err != nil {
		return nil, err
	}
	if f, ok := b.(Finder); ok {
		return f.Find(ctx, q)
	}

	var out []ir.Object
	err := docstore.Run(ctx, b, []string{q.Collection}, docstore.ReadOnly, docstore.Hooks{}, func(tx docstore.Tx) error {
		for doc, err := range tx.Iterate(ctx, q.Collection) {
			if err != nil {
				return err
			}
			if q.Filter != nil && !q.Filter.Match(doc) {
				continue
			}
			out = append(out, doc)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", q.Collection, err)
	}
	return out, nil
}

// ParseCondition reads "path=value" or "path" (an existence check).
// The value is parsed as JSON when it can be, and taken as a string
// otherwise, so name=al and n=3 both do what they look like.
func ParseCondition(s string) (Predicate, error) {
	path, raw, hasValue := strings.Cut(s, "=")
	p := docval.ParsePath(path)
	if !hasValue {
		return Exists{Path: p}, nil
	}
	v, err := ir.ParseJSON([]byte(raw))
	if err != nil {
		if errors.Is(err, ir.ErrFloat) {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, s, err)
		}
		v = ir.String(raw)
	}
	return Equals{Path: p, Value: v}, nil
}

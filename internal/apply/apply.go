// Package apply executes normalized PULs against a docstore backend.
//
// All primitives of one PUL run inside a single read-write transaction
// in application order: del, insert, then in-place primitives deepest
// first. Any failure rolls the whole PUL back. While applying, the
// applier records the pre-image of every document it touches and
// derives the inverse PUL from them.
package apply

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

// Progress reports one primitive about to be applied.
type Progress struct {
	// Index is 1-based.
	Index     int
	Total     int
	Primitive *pul.Primitive
}

// BeforeCommit runs inside the transaction after every primitive has
// been applied. Returning an error rolls the application back.
type BeforeCommit func(ctx context.Context, tx docstore.Tx, res *Result) error

// Applier applies PULs to one backend.
type Applier struct {
	backend      docstore.Backend
	observe      func(Progress)
	beforeCommit BeforeCommit
	logger       *slog.Logger
}

// Option configures an Applier.
type Option func(*Applier)

// WithObserver registers a callback invoked before each primitive.
func WithObserver(fn func(Progress)) Option {
	return func(a *Applier) { a.observe = fn }
}

// WithBeforeCommit registers a hook run inside the transaction before
// it commits. The store uses it to write the PUL log entry atomically
// with the document changes.
func WithBeforeCommit(fn BeforeCommit) Option {
	return func(a *Applier) { a.beforeCommit = fn }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(a *Applier) { a.logger = l }
}

// New creates an Applier over backend.
func New(backend docstore.Backend, opts ...Option) *Applier {
	a := &Applier{backend: backend}
	for _, opt := range opts {
		opt(a)
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

// Result describes a committed application.
type Result struct {
	// Applied is the PUL as applied: normalized, with generated ids
	// written into inserted documents.
	Applied *pul.PUL

	// Inverse undoes Applied when applied to the resulting state.
	Inverse *pul.PUL

	// Created lists documents that did not exist before, in the order
	// they were inserted.
	Created []pul.DocRef

	// PreImages holds the prior value of every touched document that
	// existed before.
	PreImages pul.PreImages
}

// Apply normalizes p if needed and applies it atomically. A poisoned PUL
// is rejected without opening a transaction.
func (a *Applier) Apply(ctx context.Context, p *pul.PUL) (*Result, error) {
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	if !p.Normalized() {
		p = pul.Normalize(p)
		if err := p.Err(); err != nil {
			return nil, fmt.Errorf("apply: %w", err)
		}
	}

	var res *Result
	hooks := docstore.Hooks{
		OnAbort: func(err error) {
			a.logger.Warn("pul application rolled back", "error", err)
		},
	}
	err := docstore.Run(ctx, a.backend, p.Collections(), docstore.ReadWrite, hooks, func(tx docstore.Tx) error {
		r := &run{ctx: ctx, tx: tx, pre: make(pul.PreImages), created: make(map[pul.DocRef]bool)}
		order := pul.ApplicationOrder(p)
		applied := make([]*pul.Primitive, 0, len(order))
		for i, u := range order {
			if err := ctx.Err(); err != nil {
				return err
			}
			if a.observe != nil {
				a.observe(Progress{Index: i + 1, Total: len(order), Primitive: u})
			}
			a.logger.Debug("applying primitive", "index", i+1, "total", len(order), "primitive", u.String())
			done, err := r.apply(u)
			if err != nil {
				return err
			}
			applied = append(applied, done)
		}

		res = &Result{Applied: pul.NormalizePrimitives(applied...), Created: r.order, PreImages: r.pre}
		if err := res.Applied.Err(); err != nil {
			return err
		}
		res.Inverse = pul.InvertApplied(res.Applied, r.pre)
		if err := res.Inverse.Err(); err != nil {
			return err
		}
		if a.beforeCommit != nil {
			return a.beforeCommit(ctx, tx, res)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}

	a.logger.Info("pul applied",
		"primitives", p.Len(),
		"collections", p.Collections(),
		"created", len(res.Created),
		"touched", len(res.PreImages))
	return res, nil
}

// run is the state of one application.
type run struct {
	ctx     context.Context
	tx      docstore.Tx
	pre     pul.PreImages
	created map[pul.DocRef]bool
	order   []pul.DocRef
}

// capture records doc as the pre-image of ref unless ref already has
// one or was created by this PUL.
func (r *run) capture(ref pul.DocRef, doc ir.Object) {
	if _, ok := r.pre[ref]; ok || r.created[ref] {
		return
	}
	r.pre[ref] = doc.Clone()
}

// apply runs one primitive and returns it as applied.
func (r *run) apply(u *pul.Primitive) (*pul.Primitive, error) {
	coll := u.Target.Collection
	switch u.Kind {
	case pul.KindDelete:
		for _, id := range u.IDs {
			ref := pul.DocRef{Collection: coll, ID: id}
			doc, ok, err := r.tx.Get(r.ctx, coll, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			r.capture(ref, doc)
			if _, err := r.tx.Delete(r.ctx, coll, id); err != nil {
				return nil, err
			}
		}
		return u.Clone(), nil

	case pul.KindInsert:
		out := u.Clone()
		for i, doc := range out.Docs {
			if id, ok := pul.DocumentID(doc); ok {
				_, exists, err := r.tx.Get(r.ctx, coll, id)
				if err != nil {
					return nil, err
				}
				if exists {
					return nil, &pul.Error{Code: pul.CodeDocumentOp, Kind: u.Kind, Target: u.Target,
						Message: fmt.Sprintf("document %s already exists", id)}
				}
			}
			id, err := r.tx.Put(r.ctx, coll, doc)
			if err != nil {
				return nil, &pul.Error{Code: pul.CodeDocumentOp, Kind: u.Kind, Target: u.Target,
					Message: "cannot store document", Err: err}
			}
			if _, ok := doc[pul.IDField]; !ok {
				out.Docs[i][pul.IDField] = ir.String(id)
			}
			ref := pul.DocRef{Collection: coll, ID: id}
			if _, existed := r.pre[ref]; !existed {
				r.created[ref] = true
				r.order = append(r.order, ref)
			}
		}
		return out, nil
	}

	id := u.Target.Key
	doc, ok, err := r.tx.Get(r.ctx, coll, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &pul.Error{Code: pul.CodeDocumentOp, Kind: u.Kind, Target: u.Target,
			Message: fmt.Sprintf("document %s does not exist", id)}
	}
	r.capture(pul.DocRef{Collection: coll, ID: id}, doc)
	next, err := u.ApplyTo(doc)
	if err != nil {
		return nil, err
	}
	if _, err := r.tx.Put(r.ctx, coll, next); err != nil {
		return nil, err
	}
	return u.Clone(), nil
}

// Package docstore defines the document storage contract the applier
// works against, and an in-memory implementation of it.
//
// A Backend hands out transactions scoped to a set of collections. All
// reads and writes of one PUL application go through a single
// read-write transaction, so a failure rolls every change back.
package docstore

import (
	"context"
	"errors"
	"iter"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Mode selects read-only or read-write transactions.
type Mode int

const (
	ReadOnly Mode = iota
	ReadWrite
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "read-write"
	}
	return "read-only"
}

var (
	// ErrOutOfScope is returned for collections the transaction was not
	// opened on.
	ErrOutOfScope = errors.New("collection not in transaction scope")

	// ErrReadOnly is returned for writes in a read-only transaction.
	ErrReadOnly = errors.New("transaction is read-only")

	// ErrTxDone is returned for any use after Commit or Rollback.
	ErrTxDone = errors.New("transaction already finished")
)

// Backend opens transactions over collections of documents.
type Backend interface {
	// Begin opens a transaction over collections.
	Begin(ctx context.Context, collections []string, mode Mode) (Tx, error)

	// Collections lists the collections holding at least one document.
	Collections(ctx context.Context) ([]string, error)
}

// Tx is one transaction. Documents handed in and out are copies.
type Tx interface {
	// Get returns the document with the given id, or false if absent.
	Get(ctx context.Context, collection, id string) (ir.Object, bool, error)

	// Put stores doc, replacing any document with the same id. A document
	// without an id gets one from the backend's generator, written into
	// the stored document. Put returns the id.
	Put(ctx context.Context, collection string, doc ir.Object) (string, error)

	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, collection, id string) (bool, error)

	// Iterate yields every document of collection in id order. Each call
	// starts a fresh pass.
	Iterate(ctx context.Context, collection string) iter.Seq2[ir.Object, error]

	Commit() error
	Rollback() error
}

// Hooks observe the end of a transaction run by Run.
type Hooks struct {
	// OnComplete is called after a successful commit.
	OnComplete func()
	// OnAbort is called after a rollback, with the error that caused it.
	OnAbort func(err error)
}

// Run executes fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func Run(ctx context.Context, b Backend, collections []string, mode Mode, hooks Hooks, fn func(Tx) error) error {
	tx, err := b.Begin(ctx, collections, mode)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			err = errors.Join(err, rbErr)
		}
		if hooks.OnAbort != nil {
			hooks.OnAbort(err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		if hooks.OnAbort != nil {
			hooks.OnAbort(err)
		}
		return err
	}
	if hooks.OnComplete != nil {
		hooks.OnComplete()
	}
	return nil
}

// Collect reads a whole collection into a slice, in id order.
func Collect(ctx context.Context, tx Tx, collection string) ([]ir.Object, error) {
	var out []ir.Object
	for doc, err := range tx.Iterate(ctx, collection) {
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Dump reads every listed collection (all of them when none are given)
// in one read-only transaction.
func Dump(ctx context.Context, b Backend, collections ...string) (map[string][]ir.Object, error) {
	if len(collections) == 0 {
		all, err := b.Collections(ctx)
		if err != nil {
			return nil, err
		}
		collections = all
	}
	out := make(map[string][]ir.Object, len(collections))
	err := Run(ctx, b, collections, ReadOnly, Hooks{}, func(tx Tx) error {
		for _, c := range collections {
			docs, err := Collect(ctx, tx, c)
			if err != nil {
				return err
			}
			out[c] = docs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DumpValue renders a Dump result as one object keyed by collection,
// for canonical output and comparisons.
func DumpValue(dump map[string][]ir.Object) ir.Object {
	out := make(ir.Object, len(dump))
	for c, docs := range dump {
		arr := make(ir.Array, len(docs))
		for i, d := range docs {
			arr[i] = d
		}
		out[c] = arr
	}
	return out
}

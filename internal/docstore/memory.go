package docstore

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Option configures a backend.
type Option func(*options)

type options struct {
	ids IDGenerator
}

// WithIDGenerator sets the generator for documents stored without an id.
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) { o.ids = g }
}

func buildOptions(opts []Option) options {
	o := options{ids: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ResolveIDGenerator returns the generator selected by opts, for
// backends built outside this package.
func ResolveIDGenerator(opts ...Option) IDGenerator {
	return buildOptions(opts).ids
}

type collection map[string]ir.Object

// Memory is an in-memory Backend. Read-write transactions work on a
// private copy of their collections and are serialized; commit swaps
// the copies in.
type Memory struct {
	mu   sync.RWMutex
	data map[string]collection
	ids  IDGenerator
}

// NewMemory returns an empty in-memory backend.
func NewMemory(opts ...Option) *Memory {
	o := buildOptions(opts)
	return &Memory{data: make(map[string]collection), ids: o.ids}
}

// Load stores documents outside any transaction, for seeding.
func (m *Memory) Load(name string, docs ...ir.Object) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.data[name]
	if c == nil {
		c = make(collection)
		m.data[name] = c
	}
	for _, d := range docs {
		d = d.Clone()
		id, err := AssignID(d, m.ids)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		c[id] = d
	}
	return nil
}

// Collections implements Backend.
func (m *Memory) Collections(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []string
	for name, c := range m.data {
		if len(c) > 0 {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out, nil
}

// Begin implements Backend. The transaction holds the backend lock until
// it finishes, so a caller must not begin a second read-write
// transaction from the same goroutine before finishing the first.
func (m *Memory) Begin(ctx context.Context, collections []string, mode Mode) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if mode == ReadWrite {
		m.mu.Lock()
	} else {
		m.mu.RLock()
	}
	tx := &memTx{m: m, mode: mode, scope: make(map[string]collection, len(collections))}
	for _, name := range collections {
		src := m.data[name]
		if mode == ReadWrite {
			cp := make(collection, len(src))
			for id, d := range src {
				cp[id] = d.Clone()
			}
			src = cp
		}
		tx.scope[name] = src
	}
	return tx, nil
}

type memTx struct {
	m     *Memory
	mode  Mode
	scope map[string]collection
	done  bool
}

func (tx *memTx) coll(name string, write bool) (collection, error) {
	if tx.done {
		return nil, ErrTxDone
	}
	if write && tx.mode != ReadWrite {
		return nil, ErrReadOnly
	}
	c, ok := tx.scope[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOutOfScope, name)
	}
	if c == nil && write {
		c = make(collection)
		tx.scope[name] = c
	}
	return c, nil
}

func (tx *memTx) Get(ctx context.Context, name, id string) (ir.Object, bool, error) {
	c, err := tx.coll(name, false)
	if err != nil {
		return nil, false, err
	}
	d, ok := c[id]
	if !ok {
		return nil, false, nil
	}
	return d.Clone(), true, nil
}

func (tx *memTx) Put(ctx context.Context, name string, doc ir.Object) (string, error) {
	c, err := tx.coll(name, true)
	if err != nil {
		return "", err
	}
	doc = doc.Clone()
	id, err := AssignID(doc, tx.m.ids)
	if err != nil {
		return "", err
	}
	c[id] = doc
	return id, nil
}

func (tx *memTx) Delete(ctx context.Context, name, id string) (bool, error) {
	c, err := tx.coll(name, true)
	if err != nil {
		return false, err
	}
	_, ok := c[id]
	delete(c, id)
	return ok, nil
}

func (tx *memTx) Iterate(ctx context.Context, name string) iter.Seq2[ir.Object, error] {
	return func(yield func(ir.Object, error) bool) {
		c, err := tx.coll(name, false)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, id := range slices.Sorted(maps.Keys(c)) {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(c[id].Clone(), nil) {
				return
			}
		}
	}
}

func (tx *memTx) Commit() error {
	if tx.done {
		return ErrTxDone
	}
	if tx.mode == ReadWrite {
		for name, c := range tx.scope {
			if c != nil {
				tx.m.data[name] = c
			}
		}
	}
	tx.finish()
	return nil
}

func (tx *memTx) Rollback() error {
	if tx.done {
		return ErrTxDone
	}
	tx.finish()
	return nil
}

func (tx *memTx) finish() {
	tx.done = true
	if tx.mode == ReadWrite {
		tx.m.mu.Unlock()
	} else {
		tx.m.mu.RUnlock()
	}
}

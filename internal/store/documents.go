package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
)

// Collections implements docstore.Backend.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT collection FROM documents
		ORDER BY collection COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list collections: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Begin implements docstore.Backend. Both modes run in a SQL transaction;
// read-only is enforced by the returned handle.
func (s *Store) Begin(ctx context.Context, collections []string, mode docstore.Mode) (docstore.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin %s transaction: %w", mode, err)
	}
	scope := make(map[string]bool, len(collections))
	for _, c := range collections {
		scope[c] = true
	}
	return &sqlTx{store: s, tx: tx, mode: mode, scope: scope}, nil
}

type sqlTx struct {
	store *Store
	tx    *sql.Tx
	mode  docstore.Mode
	scope map[string]bool
	done  bool
}

func (t *sqlTx) check(collection string, write bool) error {
	if t.done {
		return docstore.ErrTxDone
	}
	if write && t.mode != docstore.ReadWrite {
		return docstore.ErrReadOnly
	}
	if !t.scope[collection] {
		return fmt.Errorf("%w: %s", docstore.ErrOutOfScope, collection)
	}
	return nil
}

func (t *sqlTx) Get(ctx context.Context, collection, id string) (ir.Object, bool, error) {
	if err := t.check(collection, false); err != nil {
		return nil, false, err
	}
	var body string
	err := t.tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	doc, err := unmarshalDocument(body)
	if err != nil {
		return nil, false, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, true, nil
}

func (t *sqlTx) Put(ctx context.Context, collection string, doc ir.Object) (string, error) {
	if err := t.check(collection, true); err != nil {
		return "", err
	}
	doc = doc.Clone()
	if doc == nil {
		doc = ir.Object{}
	}
	id, err := docstore.AssignID(doc, t.store.ids)
	if err != nil {
		return "", err
	}
	body, err := marshalDocument(doc)
	if err != nil {
		return "", err
	}
	_, err = t.tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body) VALUES (?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET body = excluded.body
	`, collection, id, body)
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return id, nil
}

func (t *sqlTx) Delete(ctx context.Context, collection, id string) (bool, error) {
	if err := t.check(collection, true); err != nil {
		return false, err
	}
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`,
		collection, id,
	)
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return n > 0, nil
}

// Iterate reads the collection before yielding, so callers may issue
// other statements on the transaction while ranging.
func (t *sqlTx) Iterate(ctx context.Context, collection string) iter.Seq2[ir.Object, error] {
	return func(yield func(ir.Object, error) bool) {
		if err := t.check(collection, false); err != nil {
			yield(nil, err)
			return
		}
		bodies, err := t.bodies(ctx, collection)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, body := range bodies {
			doc, err := unmarshalDocument(body)
			if !yield(doc, err) || err != nil {
				return
			}
		}
	}
}

func (t *sqlTx) bodies(ctx context.Context, collection string) ([]string, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT body FROM documents WHERE collection = ?
		ORDER BY id COLLATE BINARY
	`, collection)
	if err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("iterate %s: %w", collection, err)
		}
		out = append(out, body)
	}
	return out, rows.Err()
}

func (t *sqlTx) Commit() error {
	if t.done {
		return docstore.ErrTxDone
	}
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (t *sqlTx) Rollback() error {
	if t.done {
		return docstore.ErrTxDone
	}
	t.done = true
	return t.tx.Rollback()
}

// sqlTxOf returns the SQL transaction behind a handle this store issued.
func (s *Store) sqlTxOf(tx docstore.Tx) (*sqlTx, error) {
	st, ok := tx.(*sqlTx)
	if !ok || st.store != s {
		return nil, fmt.Errorf("transaction %T was not opened by this store", tx)
	}
	if st.done {
		return nil, docstore.ErrTxDone
	}
	return st, nil
}

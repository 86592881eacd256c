package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

// LogEntry is one applied PUL.
type LogEntry struct {
	Seq         int64
	Fingerprint string
	PUL         *pul.PUL
	Inverse     *pul.PUL
	Collections []string
	Undone      bool
}

// LogApplied records an applied PUL and its inverse inside tx, so the
// entry commits or rolls back together with the document changes. tx
// must have been opened by s.
func (s *Store) LogApplied(ctx context.Context, tx docstore.Tx, applied, inverse *pul.PUL) (int64, error) {
	st, err := s.sqlTxOf(tx)
	if err != nil {
		return 0, fmt.Errorf("log applied pul: %w", err)
	}
	fp, err := ir.Fingerprint(ir.DomainPUL, applied.ToValue())
	if err != nil {
		return 0, fmt.Errorf("log applied pul: %w", err)
	}
	pulText, err := marshalPUL(applied)
	if err != nil {
		return 0, fmt.Errorf("log applied pul: %w", err)
	}
	invText, err := marshalPUL(inverse)
	if err != nil {
		return 0, fmt.Errorf("log applied pul: %w", err)
	}

	seq := s.seq.Next()
	_, err = st.tx.ExecContext(ctx, `
		INSERT INTO pul_log (seq, fingerprint, pul, inverse, collections)
		VALUES (?, ?, ?, ?, ?)
	`, seq, fp, pulText, invText, joinList(applied.Collections()))
	if err != nil {
		return 0, fmt.Errorf("log applied pul: %w", err)
	}
	return seq, nil
}

// ErrNothingToUndo is returned by Latest when every entry is undone.
var ErrNothingToUndo = errors.New("no applied pul left to undo")

// Latest returns the newest entry that has not been undone.
func (s *Store) Latest(ctx context.Context) (LogEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, fingerprint, pul, inverse, collections, undone
		FROM pul_log
		WHERE undone = 0
		ORDER BY seq DESC
		LIMIT 1
	`)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return LogEntry{}, ErrNothingToUndo
	}
	if err != nil {
		return LogEntry{}, fmt.Errorf("latest log entry: %w", err)
	}
	return e, nil
}

// MarkUndone flags entry seq as undone inside tx.
func (s *Store) MarkUndone(ctx context.Context, tx docstore.Tx, seq int64) error {
	st, err := s.sqlTxOf(tx)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	res, err := st.tx.ExecContext(ctx, `UPDATE pul_log SET undone = 1 WHERE seq = ? AND undone = 0`, seq)
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark undone: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("mark undone: no pending entry with seq %d", seq)
	}
	return nil
}

// Entries returns the whole log ordered by seq.
func (s *Store) Entries(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, fingerprint, pul, inverse, collections, undone
		FROM pul_log
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list log: %w", err)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list log: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (LogEntry, error) {
	var (
		e                LogEntry
		pulText, invText string
		collections      string
		undone           int
	)
	if err := row.Scan(&e.Seq, &e.Fingerprint, &pulText, &invText, &collections, &undone); err != nil {
		return LogEntry{}, err
	}
	var err error
	if e.PUL, err = unmarshalPUL(pulText); err != nil {
		return LogEntry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	if e.Inverse, err = unmarshalPUL(invText); err != nil {
		return LogEntry{}, fmt.Errorf("entry %d: %w", e.Seq, err)
	}
	e.Collections = splitList(collections)
	e.Undone = undone != 0
	return e, nil
}

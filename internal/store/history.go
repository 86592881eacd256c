package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ldoblies/ijsoniq/internal/apply"
	"github.com/ldoblies/ijsoniq/internal/docstore"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

// Apply applies p to the store's documents and records it in the log in
// the same transaction. It returns the application result and the seq of
// the new log entry. Empty PULs change nothing and are not logged.
func (s *Store) Apply(ctx context.Context, p *pul.PUL, opts ...apply.Option) (*apply.Result, int64, error) {
	var seq int64
	logged := apply.WithBeforeCommit(func(ctx context.Context, tx docstore.Tx, res *apply.Result) error {
		if res.Applied.Empty() {
			return nil
		}
		var err error
		seq, err = s.LogApplied(ctx, tx, res.Applied, res.Inverse)
		return err
	})

	res, err := apply.New(s, append(opts, logged)...).Apply(ctx, p)
	if err != nil {
		return nil, 0, err
	}
	if seq != 0 {
		slog.Info("pul logged", "seq", seq, "collections", res.Applied.Collections())
	}
	return res, seq, nil
}

// Undo applies the inverse of the newest entry not yet undone and marks
// that entry undone, atomically. Undo itself is not logged, so repeated
// calls walk the log backwards.
func (s *Store) Undo(ctx context.Context, opts ...apply.Option) (LogEntry, error) {
	entry, err := s.Latest(ctx)
	if err != nil {
		return LogEntry{}, err
	}

	mark := apply.WithBeforeCommit(func(ctx context.Context, tx docstore.Tx, _ *apply.Result) error {
		return s.MarkUndone(ctx, tx, entry.Seq)
	})
	if _, err := apply.New(s, append(opts, mark)...).Apply(ctx, entry.Inverse); err != nil {
		return LogEntry{}, fmt.Errorf("undo entry %d: %w", entry.Seq, err)
	}

	entry.Undone = true
	slog.Info("pul undone", "seq", entry.Seq, "fingerprint", entry.Fingerprint)
	return entry, nil
}

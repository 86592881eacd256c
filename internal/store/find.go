package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/query"
)

// Find implements query.Finder by compiling q to SQLite JSON functions.
func (s *Store) Find(ctx context.Context, q query.Select) ([]ir.Object, error) {
	sqlText, params, err := query.SQLCompiler{}.Compile(q)
	if err != nil {
		return nil, err
	}
	slog.Debug("find", "collection", q.Collection, "sql", sqlText)

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", q.Collection, err)
	}
	defer rows.Close()

	var out []ir.Object
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("find in %s: %w", q.Collection, err)
		}
		doc, err := unmarshalDocument(body)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ldoblies/ijsoniq/internal/docval"
	"github.com/ldoblies/ijsoniq/internal/ir"
)

// SQLCompiler compiles selects to parameterized SQLite over a table
// with (collection, id, body) columns, body holding canonical JSON.
//
// Every query is ordered by id with COLLATE BINARY, and every value and
// JSON path is bound as a parameter, never interpolated.
type SQLCompiler struct {
	// Table is the documents table; "documents" when empty.
	Table string
}

// Compile converts q to SQL selecting the body column.
func (c SQLCompiler) Compile(q Select) (string, []any, error) {
	if err := Validate(q); err != nil {
		return "", nil, err
	}
	table := c.Table
	if table == "" {
		table = "documents"
	}

	where := "collection = ?"
	params := []any{q.Collection}
	if q.Filter != nil {
		sql, fp, err := compilePredicate(q.Filter)
		if err != nil {
			return "", nil, err
		}
		where += " AND " + sql
		params = append(params, fp...)
	}

	sql := fmt.Sprintf("SELECT body FROM %s WHERE %s ORDER BY id COLLATE BINARY", table, where)
	if q.Limit > 0 {
		sql += " LIMIT ?"
		params = append(params, q.Limit)
	}
	return sql, params, nil
}

func compilePredicate(p Predicate) (string, []any, error) {
	switch pred := p.(type) {
	case Equals:
		return anyPath(pred.Path, func(jp string) (string, []any, error) {
			return compileEquals(jp, pred.Value)
		})
	case Exists:
		return anyPath(pred.Path, func(jp string) (string, []any, error) {
			return "json_type(body, ?) IS NOT NULL", []any{jp}, nil
		})
	case And:
		if len(pred.Predicates) == 0 {
			return "1 = 1", nil, nil // vacuous truth
		}
		var (
			parts  []string
			params []any
		)
		for _, sub := range pred.Predicates {
			sql, sp, err := compilePredicate(sub)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			params = append(params, sp...)
		}
		return "(" + strings.Join(parts, " AND ") + ")", params, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported predicate type %T", ErrInvalid, p)
	}
}

// compileEquals compares by JSON type first so that true never equals
// 1 and "1" never equals 1.
func compileEquals(jp string, v ir.Value) (string, []any, error) {
	switch x := v.(type) {
	case ir.Null:
		return "json_type(body, ?) = 'null'", []any{jp}, nil
	case ir.Bool:
		return "json_type(body, ?) = ?", []any{jp, strconv.FormatBool(bool(x))}, nil
	case ir.Int:
		return "(json_type(body, ?) = 'integer' AND json_extract(body, ?) = ?)", []any{jp, jp, int64(x)}, nil
	case ir.String:
		return "(json_type(body, ?) = 'text' AND json_extract(body, ?) = ?)", []any{jp, jp, string(x)}, nil
	case ir.Array, ir.Object:
		data, err := ir.MarshalCanonical(x)
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		kind := "object"
		if _, ok := x.(ir.Array); ok {
			kind = "array"
		}
		return "(json_type(body, ?) = ? AND json_extract(body, ?) = ?)", []any{jp, kind, jp, string(data)}, nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported value type %T", ErrInvalid, v)
	}
}

// anyPath ORs the condition over every JSON path p may denote. At most
// one alternative resolves in a given document.
func anyPath(p docval.Path, cond func(jp string) (string, []any, error)) (string, []any, error) {
	alts := jsonPaths(p)
	if len(alts) == 1 {
		return cond(alts[0])
	}
	var (
		parts  []string
		params []any
	)
	for _, jp := range alts {
		sql, cp, err := cond(jp)
		if err != nil {
			return "", nil, err
		}
		parts = append(parts, sql)
		params = append(params, cp...)
	}
	return "(" + strings.Join(parts, " OR ") + ")", params, nil
}

// jsonPaths renders p as SQLite JSON paths. A decimal segment yields
// both an array index and a quoted key.
func jsonPaths(p docval.Path) []string {
	out := []string{"$"}
	for _, seg := range p {
		key := `."` + seg + `"`
		next := make([]string, 0, 2*len(out))
		for _, prefix := range out {
			next = append(next, prefix+key)
			if isIndex(seg) {
				next = append(next, prefix+"["+seg+"]")
			}
		}
		out = next
	}
	return out
}

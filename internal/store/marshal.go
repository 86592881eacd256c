package store

import (
	"fmt"
	"strings"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

// marshalDocument converts a document to canonical JSON TEXT.
func marshalDocument(doc ir.Object) (string, error) {
	data, err := ir.MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("marshal document: %w", err)
	}
	return string(data), nil
}

// unmarshalDocument parses a stored body. Integers stay exact: bodies go
// through ir.ParseJSON, which never produces floats.
func unmarshalDocument(body string) (ir.Object, error) {
	v, err := ir.ParseJSON([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("unmarshal document: stored body is %s, not an object", ir.TypeName(v))
	}
	return obj, nil
}

func marshalPUL(p *pul.PUL) (string, error) {
	data, err := p.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("marshal pul: %w", err)
	}
	return string(data), nil
}

// unmarshalPUL decodes a logged PUL. Logged PULs were normalized when
// written, so they are normalized again on the way out.
func unmarshalPUL(text string) (*pul.PUL, error) {
	v, err := ir.ParseJSON([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("unmarshal pul: %w", err)
	}
	raw, err := pul.FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("unmarshal pul: %w", err)
	}
	p := pul.Normalize(raw)
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("unmarshal pul: %w", err)
	}
	return p, nil
}

// Collection lists are stored as one tab-separated TEXT column.
const listSep = "\t"

func joinList(xs []string) string { return strings.Join(xs, listSep) }

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, listSep)
}

package docstore

import (
	"github.com/google/uuid"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

// IDGenerator produces identifiers for documents stored without one.
type IDGenerator interface {
	NewID() string
}

// UUIDv7Generator generates time-ordered UUIDv7 identifiers.
type UUIDv7Generator struct{}

// NewID returns a new UUIDv7 string.
func (UUIDv7Generator) NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AssignID returns doc's id, first writing a generated one into doc
// when it has none.
func AssignID(doc ir.Object, gen IDGenerator) (string, error) {
	if raw, ok := doc[pul.IDField]; ok {
		id, valid := pul.DocumentID(doc)
		if !valid {
			return "", &InvalidIDError{Type: ir.TypeName(raw)}
		}
		return id, nil
	}
	id := gen.NewID()
	doc[pul.IDField] = ir.String(id)
	return id, nil
}

// InvalidIDError reports a document whose id is neither a non-empty
// string nor an integer.
type InvalidIDError struct {
	Type string
}

func (e *InvalidIDError) Error() string {
	return "document " + pul.IDField + " has unusable type " + e.Type
}

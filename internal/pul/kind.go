package pul

import "fmt"

// Kind identifies one of the nine update primitive kinds.
type Kind int

const (
	KindInsert Kind = iota
	KindDelete
	KindInsertIntoObject
	KindDeleteFromObject
	KindReplaceInObject
	KindRenameInObject
	KindInsertIntoArray
	KindDeleteFromArray
	KindReplaceInArray

	numKinds
)

var kindNames = [numKinds]string{
	KindInsert:           "insert",
	KindDelete:           "del",
	KindInsertIntoObject: "insert_into_object",
	KindDeleteFromObject: "delete_from_object",
	KindReplaceInObject:  "replace_in_object",
	KindRenameInObject:   "rename_in_object",
	KindInsertIntoArray:  "insert_into_array",
	KindDeleteFromArray:  "delete_from_array",
	KindReplaceInArray:   "replace_in_array",
}

// Kinds lists every kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, numKinds)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || k >= numKinds {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind maps a wire name such as "insert_into_object" to its Kind.
func ParseKind(s string) (Kind, error) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown primitive kind %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if k < 0 || k >= numKinds {
		return nil, fmt.Errorf("invalid kind %d", int(k))
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// WholeDocument reports whether k addresses entire documents.
func (k Kind) WholeDocument() bool {
	return k == KindInsert || k == KindDelete
}

// InPlace reports whether k mutates a location inside one document.
func (k Kind) InPlace() bool {
	return k >= KindInsertIntoObject && k < numKinds
}

// Array reports whether k is one of the array kinds.
func (k Kind) Array() bool {
	return k == KindInsertIntoArray || k == KindDeleteFromArray || k == KindReplaceInArray
}

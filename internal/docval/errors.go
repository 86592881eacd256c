package docval

import (
	"errors"
	"fmt"
)

// Sentinel errors carried by PathError.
var (
	ErrNotFound        = errors.New("location not found")
	ErrNotObject       = errors.New("not an object")
	ErrNotArray        = errors.New("not an array")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrKeyExists       = errors.New("key already exists")
	ErrEmptyPath       = errors.New("empty path")
)

// PathError records a failed document operation and the location it
// addressed.
type PathError struct {
	Op   string
	Path Path
	Err  error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path.String(), e.Err)
}

func (e *PathError) Unwrap() error { return e.Err }

func pathErr(op string, p Path, err error) error {
	return &PathError{Op: op, Path: p, Err: err}
}

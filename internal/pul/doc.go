// Package pul implements Pending Update Lists: batches of update
// primitives against JSON-like documents, and the algorithms that make
// them safe to apply.
//
// A raw PUL is assembled in any order and must be normalized before use:
//
//	raw := pul.New()
//	raw.Add(pul.NewInsert("users", doc))
//	norm := pul.Normalize(raw)
//	if err := norm.Err(); err != nil { ... }
//
// Normalize folds primitives with conflict detection and removes
// primitives shadowed by deletes. Compose merges two serial PULs into one
// equivalent PUL, projecting later primitives onto values the earlier PUL
// still holds in memory. Invert builds the undo PUL from pre-images.
//
// All three share one container type. A PUL carries a Strategy chosen at
// construction that decides how an added primitive is folded in. Once a
// PUL carries an error every further Add is a no-op.
//
// PULs are not safe for concurrent mutation.
package pul

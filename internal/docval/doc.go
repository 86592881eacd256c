// Package docval reads and rewrites locations inside JSON-like documents.
//
// Locations are addressed by a Path: a sequence of object keys written in
// dotted form ("a.b.c"). A literal dot or backslash inside a key is escaped
// with a backslash ("a\.b" is the single key "a.b"). A numeric segment may
// also step into an array element.
//
// Mutators work in place on the maps they reach and return the possibly
// replaced root, so callers that need copy-on-write must Clone first.
// Every failure is a *PathError wrapping one of the sentinel errors.
package docval

// Package ir provides the JSON-like value model shared by every other
// ijsoniq package: documents, primitive parameters and wire payloads.
//
// ir imports nothing internal, so it stays the foundational layer.
//
// Key design constraints:
//   - NO float types anywhere - numbers are int64
//   - null is a real value (Null{}), never a nil interface
//   - Object keys are ordered by UTF-16 code units (RFC 8785) whenever
//     an ordering is observable
package ir

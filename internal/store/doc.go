// Package store provides SQLite-backed durable storage for documents and
// for the log of applied PULs.
//
// # Tables
//
//   - documents: one row per (collection, id), body as canonical JSON
//   - pul_log: one row per successful application, holding the applied
//     PUL, its inverse and an undone flag
//
// # Ordering
//
// Log entries are ordered by seq, a logical clock value, never by wall
// time. Document iteration is ordered by id COLLATE BINARY, so two stores
// with the same content list it identically.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Document and PUL bodies are RFC 8785 canonical JSON produced by
// internal/ir, and every log entry carries the domain-separated SHA-256
// fingerprint of its PUL.
package store

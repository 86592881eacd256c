// Package harness runs PUL conformance scenarios.
//
// A scenario seeds a fresh store, runs a sequence of PUL operations
// against it, and checks each outcome. Results can also be compared
// against golden snapshots.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: rename_then_delete
//	description: "Deleting a renamed key deletes the original key"
//	state:
//	  users:
//	    - {id: "1", a: 1}
//	steps:
//	  - op: compose
//	    puls:
//	      - [{type: rename_in_object, target: "users:1", params: {name: a, newName: b}}]
//	      - [{type: delete_from_object, target: "users:1", params: {names: [b]}}]
//	    expect:
//	      pul:
//	        delete_from_object:
//	          - {target: "users:1", params: {names: [a]}}
//	  - op: apply
//	    pul: {del: [{target: users, params: {ids: ["1"]}}]}
//	    expect:
//	      state: {}
//	  - op: undo
//	    expect:
//	      state: {users: [{id: "1", a: 1}]}
//
// PULs use either wire form: a list of primitives, or an object keyed by
// kind name.
//
// # Operations
//
//   - normalize: normalizes pul
//   - compose: normalizes each of puls and composes them in order
//   - invert: folds the insert/del primitives of pul into an inverse
//   - apply: applies pul to the store and logs it
//   - undo: undoes the newest logged PUL
//   - roundtrip: applies pul, undoes it, and checks the state is restored
//
// # Expectations
//
// A step may expect an error code, a result PUL (primitive order within
// a kind is ignored), the introduced locations of a composition, or the
// store state after the step (document order is ignored). A step that
// fails without expecting to is always reported.
//
// # Deterministic Testing
//
// Each scenario gets an in-memory SQLite store whose generated document
// ids are doc-0001, doc-0002, ... and whose log sequence starts at 1,
// so snapshots are identical across runs.
package harness

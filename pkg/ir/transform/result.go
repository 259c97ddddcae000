// Package transform provides rewriting passes over linear instruction
// programs, built on the surgery primitives of package ir.
//
// Every pass is pure: it returns a new sequence, a remap for re-resolving
// externally held indices, and a [Result] describing what changed. Passes
// never mutate their input.
package transform

// Result reports what a rewriting pass changed.
//
// It is returned alongside the rewritten program so callers can log and
// reason about graph complexity without diffing sequences.
type Result struct {
	// Inserted is the number of instructions added to the program.
	Inserted int

	// Removed is the number of instructions dropped, including
	// placeholder sources introduced and consumed by the pass itself.
	Removed int

	// Length is the final program length.
	Length int
}

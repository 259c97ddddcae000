package ir

import (
	"fmt"
	"sort"
)

// Remove drops the instructions at the indices in toRemove and remaps
// every surviving dependency reference to the compacted positions.
//
// Removal is only legal for instructions with no surviving dependents:
// if any retained instruction still declares a dependency on a removed
// index, Remove fails with [ErrLiveDependent] and the input is untouched.
// Callers are expected to disconnect dependents first (see
// [DisconnectAndRemove]).
//
// The returned remap translates any pre-removal index; removed indices
// are absent from it. An empty toRemove returns the sequence unchanged
// with an identity remap.
func Remove(toRemove map[int]bool, instrs []Instruction) ([]Instruction, Remap, error) {
	for idx, marked := range toRemove {
		if !marked {
			continue
		}
		if idx < 0 || idx >= len(instrs) {
			return nil, nil, fmt.Errorf("remove: %w: %d", ErrIndexOutOfRange, idx)
		}
	}

	// A surviving instruction depending on a removed index is a caller
	// error: the operation is all-or-nothing, so fail before rewriting.
	for i, in := range instrs {
		if toRemove[i] {
			continue
		}
		for _, d := range in.Dependencies() {
			if d != SourceIndex && toRemove[d] {
				return nil, nil, fmt.Errorf("remove: instruction %d depends on removed %d: %w",
					i, d, ErrLiveDependent)
			}
		}
	}

	// removedBefore[i] = how many removed indices precede i; each kept
	// instruction drops by its own offset and each of its dependencies
	// drops by that dependency's offset.
	removedBefore := make([]int, len(instrs))
	count := 0
	for i := range instrs {
		removedBefore[i] = count
		if toRemove[i] {
			count++
		}
	}

	shift := func(d int) int {
		if d == SourceIndex {
			return d
		}
		return d - removedBefore[d]
	}

	out := make([]Instruction, 0, len(instrs)-count)
	remap := make(Remap, len(instrs)-count)
	for i, in := range instrs {
		if toRemove[i] {
			continue
		}
		out = append(out, in.mapRefs(shift))
		remap[i] = i - removedBefore[i]
	}
	return out, remap, nil
}

// DisconnectAndRemove rewrites every dependency edge pointing at a key of
// replacement to point at its mapped value, then removes the
// now-unreferenced keys.
//
// The returned remap resolves a disconnected index directly to its
// replacement's post-removal position; all other indices follow the
// underlying removal offsets.
//
// The replacement map is validated defensively: keys and values must be
// in range and a value must not itself be removed. The rewritten sequence
// is re-checked against the structural invariants before it is returned,
// so a replacement that would introduce a forward reference fails rather
// than producing a corrupt sequence.
func DisconnectAndRemove(replacement map[int]int, instrs []Instruction) ([]Instruction, Remap, error) {
	toRemove := make(map[int]bool, len(replacement))
	for k, v := range replacement {
		if k < 0 || k >= len(instrs) {
			return nil, nil, fmt.Errorf("disconnect: key %d: %w", k, ErrIndexOutOfRange)
		}
		if v != SourceIndex && (v < 0 || v >= len(instrs)) {
			return nil, nil, fmt.Errorf("disconnect: value %d: %w", v, ErrIndexOutOfRange)
		}
		toRemove[k] = true
	}
	for k, v := range replacement {
		if _, removed := replacement[v]; removed {
			return nil, nil, fmt.Errorf("disconnect: %w: %d maps to removed index %d",
				ErrBadReplacement, k, v)
		}
	}

	redirect := func(d int) int {
		if v, ok := replacement[d]; ok {
			return v
		}
		return d
	}

	rewritten := make([]Instruction, len(instrs))
	for i, in := range instrs {
		if toRemove[i] {
			rewritten[i] = in // dropped below; keep deps for removal bookkeeping
			continue
		}
		rewritten[i] = in.mapRefs(redirect)
	}

	out, removeRemap, err := Remove(toRemove, rewritten)
	if err != nil {
		return nil, nil, err
	}
	if err := Validate(out); err != nil {
		return nil, nil, fmt.Errorf("disconnect: %w", err)
	}

	remap := make(Remap, len(removeRemap)+len(replacement))
	for i, v := range removeRemap {
		remap[i] = v
	}
	for k, v := range replacement {
		if v == SourceIndex {
			remap[k] = SourceIndex
			continue
		}
		remap[k] = removeRemap[v]
	}
	return out, remap, nil
}

// SortedIndices returns the keys of an index set in ascending order.
// Useful for deterministic logging of surgery arguments.
func SortedIndices(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for i, marked := range set {
		if marked {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

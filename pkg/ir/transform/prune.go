package transform

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/ir"
)

// Prune removes every instruction that does not contribute to the
// program's sink (the last instruction): anything that is neither the
// sink itself nor one of its transitive ancestors.
//
// Because the kept set is ancestor-closed, the underlying removal can
// never hit a live dependent.
func Prune(instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, Result, error) {
	if len(instrs) == 0 {
		return nil, nil, Result{}, fmt.Errorf("prune: %w", ir.ErrEmptyProgram)
	}

	sink := len(instrs) - 1
	keep, err := ir.Ancestors(sink, instrs)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("prune: %w", err)
	}
	keep[sink] = true

	toRemove := make(map[int]bool)
	for i := range instrs {
		if !keep[i] {
			toRemove[i] = true
		}
	}

	out, remap, err := ir.Remove(toRemove, instrs)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("prune: %w", err)
	}
	return out, remap, Result{Removed: len(toRemove), Length: len(out)}, nil
}

package transform

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// ReplaceOperator substitutes the operator behind the apply instruction at
// index at with t, preserving the apply's inputs and consumers.
//
// The replacement is expressed entirely through surgery primitives: a
// two-instruction declaration+apply block is spliced over the old apply
// (placeholder sources stand in for the apply's inputs and are bound via
// the splice import map), then the old apply, its declaration when no
// other apply shares it, and the spent placeholders are removed.
func ReplaceOperator(at int, t op.Transformer, instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, Result, error) {
	if at < 0 || at >= len(instrs) {
		return nil, nil, Result{}, fmt.Errorf("replace: %w: %d", ir.ErrIndexOutOfRange, at)
	}
	target := instrs[at]
	if target.Kind != ir.KindApply || instrs[target.Target].Kind != ir.KindOperator {
		return nil, nil, Result{}, fmt.Errorf("replace: instruction %d is %s, not an operator apply: %w",
			at, target.Kind, ir.ErrInvalidTarget)
	}

	// Build [placeholders..., operator, apply] with the apply reading the
	// placeholders, and bind each placeholder to the old apply's input.
	importMap := make(map[int]int)
	var insert []ir.Instruction
	applyInputs := make([]int, len(target.Inputs))
	for j, host := range target.Inputs {
		if host == ir.SourceIndex {
			applyInputs[j] = ir.SourceIndex
			continue
		}
		importMap[len(insert)] = host
		applyInputs[j] = len(insert)
		insert = append(insert, ir.Source())
	}
	declIdx := len(insert)
	insert = append(insert, ir.Operator(t))
	insert = append(insert, ir.Apply(declIdx, applyInputs...))

	out, spliceRemap, err := ir.Splice(insert, instrs, importMap, at)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("replace: %w", err)
	}

	// Positions of the old pair and the placeholders after the shift.
	// The insertion point is at most `at`, so the old apply moved by the
	// full inserted length.
	point := 0
	for _, v := range importMap {
		if v+1 > point {
			point = v + 1
		}
	}
	oldApply := at + len(insert)
	oldDecl := target.Target
	if oldDecl >= point {
		oldDecl += len(insert)
	}

	toRemove := map[int]bool{oldApply: true}
	for j := 0; j < declIdx; j++ {
		toRemove[point+j] = true // spent placeholder sources
	}
	children, err := ir.Children(oldDecl, out)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("replace: %w", err)
	}
	shared := false
	for _, c := range children {
		if c != oldApply {
			shared = true
		}
	}
	if !shared {
		toRemove[oldDecl] = true
	}

	final, removeRemap, err := ir.Remove(toRemove, out)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("replace: %w", err)
	}

	res := Result{Inserted: len(insert), Removed: len(toRemove), Length: len(final)}
	return final, spliceRemap.Then(removeRemap), res, nil
}

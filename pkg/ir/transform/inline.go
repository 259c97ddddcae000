package transform

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/ir"
)

// Inline replaces the producer at index at with the sub-program sub,
// binding sub's external references through imports (see [ir.Splice] for
// the import map contract). Consumers of at are rewired to sub's last
// instruction; the replaced producer and anything that only it kept alive
// are pruned away.
//
// This is how a nested pipeline is expanded in place: linearize the inner
// pipeline, then inline its program over the node that stood for it.
func Inline(sub []ir.Instruction, imports map[int]int, at int, instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, Result, error) {
	out, spliceRemap, err := ir.Splice(sub, instrs, imports, at)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("inline: %w", err)
	}

	// All consumers of the replaced producer were redirected to the
	// inserted tail, so the shifted producer has no dependents and can be
	// dropped immediately. Pruning then collects whatever upstream only
	// it referenced.
	point := 0
	for _, v := range imports {
		if v+1 > point {
			point = v + 1
		}
	}
	oldProducer := at
	if at >= point {
		oldProducer = at + len(sub)
	}
	dropped, dropRemap, err := ir.Remove(map[int]bool{oldProducer: true}, out)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("inline: %w", err)
	}

	final, pruneRemap, pruneRes, err := Prune(dropped)
	if err != nil {
		return nil, nil, Result{}, fmt.Errorf("inline: %w", err)
	}

	res := Result{
		Inserted: len(sub),
		Removed:  1 + pruneRes.Removed,
		Length:   len(final),
	}
	return final, spliceRemap.Then(dropRemap).Then(pruneRemap), res, nil
}

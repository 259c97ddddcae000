package ir

import "fmt"

// Ancestors returns the set of instruction indices transitively reachable
// from id through dependency edges. SourceIndex has no ancestors and
// never appears in the result.
func Ancestors(id int, instrs []Instruction) (map[int]bool, error) {
	if err := checkIndex(id, instrs); err != nil {
		return nil, fmt.Errorf("ancestors: %w", err)
	}
	result := make(map[int]bool)
	stack := []int{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range instrs[cur].Dependencies() {
			if d == SourceIndex || result[d] {
				continue
			}
			result[d] = true
			stack = append(stack, d)
		}
	}
	return result, nil
}

// Descendants returns the set of instruction indices that transitively
// depend on id.
//
// Because dependencies always point backward, a single forward scan
// suffices: an instruction is a descendant iff one of its dependencies is
// id itself or an already-collected descendant.
func Descendants(id int, instrs []Instruction) (map[int]bool, error) {
	if err := checkIndex(id, instrs); err != nil {
		return nil, fmt.Errorf("descendants: %w", err)
	}
	result := make(map[int]bool)
	for i := id + 1; i < len(instrs); i++ {
		for _, d := range instrs[i].Dependencies() {
			if d == id || result[d] {
				result[i] = true
				break
			}
		}
	}
	return result, nil
}

// Children returns the indices of instructions that directly depend on id,
// in sequence order. An instruction listing id several times appears once
// per occurrence; the multiplicity reflects multiplicity of use.
func Children(id int, instrs []Instruction) ([]int, error) {
	if err := checkIndex(id, instrs); err != nil {
		return nil, fmt.Errorf("children: %w", err)
	}
	var children []int
	for i, in := range instrs {
		for _, d := range in.Dependencies() {
			if d == id {
				children = append(children, i)
			}
		}
	}
	return children, nil
}

func checkIndex(id int, instrs []Instruction) error {
	if id < 0 || id >= len(instrs) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, id)
	}
	return nil
}

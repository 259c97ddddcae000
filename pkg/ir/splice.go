package ir

import "fmt"

// Splice injects a self-contained instruction sub-sequence into a host
// sequence, rewiring both boundaries.
//
// importMap binds the sub-sequence's external references to host
// positions: while mapping an inserted instruction's dependencies, a
// dependency present in importMap (including SourceIndex) resolves to the
// mapped host index; any other dependency is an insert-local reference
// and is shifted to its new absolute position.
//
// Every host reference to replaceSink is rewired to the last inserted
// instruction, so the sub-sequence takes over the replaced producer's
// consumers.
//
// The insertion point is the smallest index greater than every value in
// importMap. Splice fails with [ErrSplicePoint] if a host instruction
// before that point already depends on replaceSink - the rewired
// dependency would point forward. The assembled sequence is additionally
// re-validated in full before it is returned, covering dependents of
// inserted instructions as well.
//
// The returned remap shifts host indices at or after the insertion point
// by the inserted length and redirects replaceSink to the new tail.
func Splice(insert, into []Instruction, importMap map[int]int, replaceSink int) ([]Instruction, Remap, error) {
	if len(insert) == 0 {
		return nil, nil, fmt.Errorf("splice: %w", ErrEmptyProgram)
	}
	if replaceSink < 0 || replaceSink >= len(into) {
		return nil, nil, fmt.Errorf("splice: sink %d: %w", replaceSink, ErrIndexOutOfRange)
	}
	for k, v := range importMap {
		if k != SourceIndex && (k < 0 || k >= len(insert)) {
			return nil, nil, fmt.Errorf("splice: import key %d: %w", k, ErrIndexOutOfRange)
		}
		if v < 0 || v >= len(into) {
			return nil, nil, fmt.Errorf("splice: import value %d: %w", v, ErrIndexOutOfRange)
		}
	}

	// Insert right after the last host position the sub-sequence imports.
	point := 0
	for _, v := range importMap {
		if v+1 > point {
			point = v + 1
		}
	}

	for i := 0; i < point; i++ {
		for _, d := range into[i].Dependencies() {
			if d == replaceSink {
				return nil, nil, fmt.Errorf(
					"splice: instruction %d depends on sink %d before insertion point %d: %w",
					i, replaceSink, point, ErrSplicePoint)
			}
		}
	}

	n := len(insert)
	tail := point + n - 1
	out := make([]Instruction, 0, len(into)+n)
	out = append(out, into[:point]...)

	for _, in := range insert {
		out = append(out, in.mapRefs(func(d int) int {
			if v, ok := importMap[d]; ok {
				return v
			}
			if d == SourceIndex {
				return d
			}
			return d + point
		}))
	}

	for i := point; i < len(into); i++ {
		out = append(out, into[i].mapRefs(func(d int) int {
			switch {
			case d == replaceSink:
				return tail
			case d == SourceIndex:
				return d
			case d >= point:
				return d + n
			default:
				return d
			}
		}))
	}

	if err := Validate(out); err != nil {
		return nil, nil, fmt.Errorf("splice: %w", err)
	}

	remap := make(Remap, len(into))
	for i := range into {
		switch {
		case i == replaceSink:
			remap[i] = tail
		case i < point:
			remap[i] = i
		default:
			remap[i] = i + n
		}
	}
	return out, remap, nil
}

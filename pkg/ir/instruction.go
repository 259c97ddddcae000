// Package ir implements the linear instruction form of a pipeline.
//
// A pipeline graph (package graph) is linearized into an ordered
// Instruction sequence for analysis and rewriting, and can be compiled
// back into graph form. The central correctness property of the linear
// form is the no-forward-reference invariant: every dependency of the
// instruction at position i is either the SOURCE sentinel or strictly
// less than i. Linearization guarantees it by construction and every
// surgery operation preserves it.
//
// All operations are pure: they return new sequences plus an index [Remap]
// and never mutate their inputs, so callers may hold and query snapshots
// concurrently without locking.
package ir

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flowforge/flowforge/pkg/op"
)

// SourceIndex is the reserved dependency index meaning "bound to external
// input at run time".
const SourceIndex = -1

var (
	// ErrInvalidTarget is returned when an apply instruction targets
	// anything other than an operator or fit instruction, or a fit
	// instruction targets a non-estimator. The sequence is structurally
	// malformed; this is not a recoverable condition.
	ErrInvalidTarget = errors.New("invalid instruction target")

	// ErrForwardReference is returned by [Validate] when a dependency
	// index is not strictly less than its instruction's own position.
	ErrForwardReference = errors.New("forward dependency reference")

	// ErrIndexOutOfRange is returned when a caller-supplied index does
	// not exist in the sequence.
	ErrIndexOutOfRange = errors.New("instruction index out of range")

	// ErrLiveDependent is returned by [Remove] when a surviving
	// instruction still depends on an index marked for removal.
	ErrLiveDependent = errors.New("instruction has live dependents")

	// ErrBadReplacement is returned by [DisconnectAndRemove] when the
	// replacement map is inconsistent (a replacement value is itself
	// being removed, or out of range).
	ErrBadReplacement = errors.New("invalid replacement map")

	// ErrSplicePoint is returned by [Splice] when the computed insertion
	// point would place a dependent instruction before its dependency.
	ErrSplicePoint = errors.New("splice point violates dependency ordering")

	// ErrEmptyProgram is returned by operations that require at least
	// one instruction.
	ErrEmptyProgram = errors.New("empty instruction sequence")
)

// Kind discriminates the instruction variants. The set is closed: every
// consumer switches exhaustively over it.
type Kind int

const (
	// KindSource is a zero-dependency entry point bound to external
	// input at run time.
	KindSource Kind = iota
	// KindOperator declares a transformer capable of producing output
	// directly from inputs.
	KindOperator
	// KindEstimator declares a trainable operator definition.
	KindEstimator
	// KindApply applies a previously declared operator (or a fit result)
	// to a list of inputs.
	KindApply
	// KindFit applies a previously declared estimator to a list of
	// inputs, yielding a fitted operator consumed only by KindApply.
	KindFit
)

// String returns the kind name used in diagnostics and serialization.
func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindOperator:
		return "operator"
	case KindEstimator:
		return "estimator"
	case KindApply:
		return "apply"
	case KindFit:
		return "fit"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Instruction is one element of the linear IR.
//
// The meaningful fields depend on Kind:
//   - KindSource: none
//   - KindOperator: Op, OpName, Label
//   - KindEstimator: Est, OpName, Label
//   - KindApply: Target (operator or fit index), Inputs
//   - KindFit: Target (estimator index), Inputs
//
// Target and Inputs are indices into the same sequence, or [SourceIndex].
//
// OpName is the registry name a declaration serializes under and resolves
// through on import; Label is purely diagnostic. Callers may relabel a
// declaration freely (the builder names declarations after their stage),
// but must leave OpName alone or the program stops round-tripping.
type Instruction struct {
	Kind   Kind
	Op     op.Transformer
	Est    op.Estimator
	OpName string
	Target int
	Inputs []int
	Label  string
}

// Source creates a source instruction.
func Source() Instruction {
	return Instruction{Kind: KindSource}
}

// Operator creates a transformer declaration instruction.
func Operator(t op.Transformer) Instruction {
	name := op.NameOf(t)
	return Instruction{Kind: KindOperator, Op: t, OpName: name, Label: name}
}

// Estimator creates an estimator declaration instruction.
func Estimator(e op.Estimator) Instruction {
	name := op.NameOf(e)
	return Instruction{Kind: KindEstimator, Est: e, OpName: name, Label: name}
}

// Apply creates an instruction applying the operator (or fit result) at
// target to the given inputs.
func Apply(target int, inputs ...int) Instruction {
	return Instruction{Kind: KindApply, Target: target, Inputs: inputs}
}

// Fit creates an instruction fitting the estimator at target on the given
// inputs.
func Fit(target int, inputs ...int) Instruction {
	return Instruction{Kind: KindFit, Target: target, Inputs: inputs}
}

// Dependencies returns the instruction's declared dependency indices: the
// target followed by the inputs for apply and fit instructions, nil
// otherwise. The returned slice is freshly allocated.
func (in Instruction) Dependencies() []int {
	switch in.Kind {
	case KindApply, KindFit:
		deps := make([]int, 0, 1+len(in.Inputs))
		deps = append(deps, in.Target)
		deps = append(deps, in.Inputs...)
		return deps
	default:
		return nil
	}
}

// mapRefs returns a copy of the instruction with every dependency index
// passed through f. f receives raw indices including SourceIndex and is
// responsible for passing the sentinel through where appropriate.
func (in Instruction) mapRefs(f func(int) int) Instruction {
	out := in
	switch in.Kind {
	case KindApply, KindFit:
		out.Target = f(in.Target)
		if in.Inputs != nil {
			out.Inputs = make([]int, len(in.Inputs))
			for i, d := range in.Inputs {
				out.Inputs[i] = f(d)
			}
		}
	}
	return out
}

// String renders the instruction for diagnostics, e.g.
// "fit(est=1, inputs=[0 -1])" or "operator lower".
func (in Instruction) String() string {
	switch in.Kind {
	case KindSource:
		return "source"
	case KindOperator:
		return "operator " + in.Label
	case KindEstimator:
		return "estimator " + in.Label
	case KindApply:
		return fmt.Sprintf("apply(op=%d, inputs=%s)", in.Target, formatIndices(in.Inputs))
	case KindFit:
		return fmt.Sprintf("fit(est=%d, inputs=%s)", in.Target, formatIndices(in.Inputs))
	default:
		return in.Kind.String()
	}
}

func formatIndices(indices []int) string {
	parts := make([]string, len(indices))
	for i, d := range indices {
		if d == SourceIndex {
			parts[i] = "SOURCE"
		} else {
			parts[i] = fmt.Sprintf("%d", d)
		}
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Validate checks the structural invariants of a sequence: every
// dependency index must be SourceIndex or a strictly smaller in-range
// index, apply instructions must target operator or fit instructions, and
// fit instructions must target estimator instructions.
func Validate(instrs []Instruction) error {
	for i, in := range instrs {
		for _, d := range in.Dependencies() {
			if d == SourceIndex {
				continue
			}
			if d < 0 || d >= len(instrs) {
				return fmt.Errorf("instruction %d: %w: %d", i, ErrIndexOutOfRange, d)
			}
			if d >= i {
				return fmt.Errorf("instruction %d: %w: %d", i, ErrForwardReference, d)
			}
		}
		switch in.Kind {
		case KindApply:
			if in.Target == SourceIndex {
				return fmt.Errorf("instruction %d: %w: apply targets SOURCE", i, ErrInvalidTarget)
			}
			if k := instrs[in.Target].Kind; k != KindOperator && k != KindFit {
				return fmt.Errorf("instruction %d: %w: apply targets %s", i, ErrInvalidTarget, k)
			}
		case KindFit:
			if in.Target == SourceIndex {
				return fmt.Errorf("instruction %d: %w: fit targets SOURCE", i, ErrInvalidTarget)
			}
			if k := instrs[in.Target].Kind; k != KindEstimator {
				return fmt.Errorf("instruction %d: %w: fit targets %s", i, ErrInvalidTarget, k)
			}
		}
	}
	return nil
}

// Package op defines the operator surface referenced by the IR.
//
// The IR stores operator values opaquely: it never inspects what a
// transformer computes, only how operators are wired together. A
// Transformer can be applied to a single item or to a bulk dataset; an
// Estimator is fit on a bulk dataset and produces a Transformer.
package op

import (
	"fmt"

	"github.com/flowforge/flowforge/pkg/dataset"
)

// Transformer is an already-trained transformation.
type Transformer interface {
	// Apply transforms a single item.
	Apply(item any) (any, error)

	// ApplyBulk transforms every element of a dataset.
	ApplyBulk(data dataset.Dataset) (dataset.Dataset, error)
}

// Estimator is a trainable specification that produces a Transformer.
type Estimator interface {
	// Fit trains on bulk input and returns the fitted transformer.
	Fit(data dataset.Dataset) (Transformer, error)
}

// Named is implemented by operators that carry a diagnostic name.
type Named interface {
	Name() string
}

// NameOf returns the diagnostic name of an operator value.
// Falls back to the dynamic type when the value does not implement Named.
func NameOf(v any) string {
	if n, ok := v.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", v)
}

// Func adapts a plain item function into a Transformer.
// Bulk application defaults to a dataset Map over the same function.
type Func struct {
	Label string
	Fn    func(any) (any, error)
}

// Apply invokes the wrapped function on one item.
func (f *Func) Apply(item any) (any, error) { return f.Fn(item) }

// ApplyBulk maps the wrapped function over the dataset.
func (f *Func) ApplyBulk(data dataset.Dataset) (dataset.Dataset, error) {
	return data.Map(f.Fn)
}

// Name returns the diagnostic label.
func (f *Func) Name() string { return f.Label }

// EstimatorFunc adapts a fit function into an Estimator.
type EstimatorFunc struct {
	Label string
	Fn    func(dataset.Dataset) (Transformer, error)
}

// Fit invokes the wrapped fit function.
func (f *EstimatorFunc) Fit(data dataset.Dataset) (Transformer, error) { return f.Fn(data) }

// Name returns the diagnostic label.
func (f *EstimatorFunc) Name() string { return f.Label }

// Ensure the adapters satisfy their interfaces.
var (
	_ Transformer = (*Func)(nil)
	_ Estimator   = (*EstimatorFunc)(nil)
	_ Named       = (*Func)(nil)
	_ Named       = (*EstimatorFunc)(nil)
)

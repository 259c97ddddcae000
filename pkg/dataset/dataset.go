// Package dataset defines the minimal bulk-collection surface consumed by
// the IR and operator layers.
//
// The IR never computes over bulk data itself; it only needs two
// capabilities from a dataset backend: a map over all elements (used by
// bulk operator application) and per-partition element counts (used by
// pipeline introspection). Anything beyond that - partitioning strategy,
// caching, fault tolerance - belongs to the backend and is out of scope.
package dataset

import "errors"

// ErrEmptyDataset is returned by operations that require at least one element.
var ErrEmptyDataset = errors.New("empty dataset")

// Dataset is a bulk collection of items.
//
// Implementations must not mutate themselves: Map returns a new Dataset and
// leaves the receiver untouched, so callers may hold multiple snapshots.
type Dataset interface {
	// Map applies fn to every element and returns the resulting dataset.
	// The partition structure is preserved. Map stops at the first error.
	Map(fn func(any) (any, error)) (Dataset, error)

	// Counts returns the number of elements in each partition.
	Counts() []int

	// Collect returns all elements in partition order.
	Collect() []any
}

// Partitioned is an in-memory Dataset split into partitions.
// It is the reference backend used by tests and the CLI.
type Partitioned struct {
	parts [][]any
}

// New creates a single-partition dataset from items.
func New(items ...any) *Partitioned {
	return &Partitioned{parts: [][]any{items}}
}

// NewPartitioned creates a dataset with the given partition layout.
// The partition slices are used as-is and must not be modified afterwards.
func NewPartitioned(parts ...[]any) *Partitioned {
	return &Partitioned{parts: parts}
}

// Map applies fn to every element, preserving partition boundaries.
func (d *Partitioned) Map(fn func(any) (any, error)) (Dataset, error) {
	out := make([][]any, len(d.parts))
	for i, part := range d.parts {
		out[i] = make([]any, len(part))
		for j, item := range part {
			v, err := fn(item)
			if err != nil {
				return nil, err
			}
			out[i][j] = v
		}
	}
	return &Partitioned{parts: out}, nil
}

// Counts returns the element count of each partition.
func (d *Partitioned) Counts() []int {
	counts := make([]int, len(d.parts))
	for i, part := range d.parts {
		counts[i] = len(part)
	}
	return counts
}

// Collect returns all elements in partition order.
func (d *Partitioned) Collect() []any {
	var items []any
	for _, part := range d.parts {
		items = append(items, part...)
	}
	return items
}

// Len returns the total number of elements across all partitions.
func (d *Partitioned) Len() int {
	n := 0
	for _, part := range d.parts {
		n += len(part)
	}
	return n
}

// Ensure Partitioned implements Dataset.
var _ Dataset = (*Partitioned)(nil)

package op

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/flowforge/flowforge/pkg/dataset"
)

// ErrUnknownOp is returned when a registry lookup fails.
var ErrUnknownOp = errors.New("unknown operator")

// Registry resolves operator names to values. Pipeline manifests reference
// operators by name; the registry is how those names become Transformer and
// Estimator values at build time.
type Registry struct {
	transformers map[string]Transformer
	estimators   map[string]Estimator
}

// NewRegistry creates a registry pre-populated with the built-in operators.
func NewRegistry() *Registry {
	r := &Registry{
		transformers: make(map[string]Transformer),
		estimators:   make(map[string]Estimator),
	}
	for name, t := range builtinTransformers {
		r.transformers[name] = t
	}
	for name, e := range builtinEstimators {
		r.estimators[name] = e
	}
	return r
}

// RegisterTransformer adds or replaces a named transformer.
func (r *Registry) RegisterTransformer(name string, t Transformer) {
	r.transformers[name] = t
}

// RegisterEstimator adds or replaces a named estimator.
func (r *Registry) RegisterEstimator(name string, e Estimator) {
	r.estimators[name] = e
}

// Transformer resolves a transformer by name.
func (r *Registry) Transformer(name string) (Transformer, error) {
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("%w: transformer %q", ErrUnknownOp, name)
	}
	return t, nil
}

// Estimator resolves an estimator by name.
func (r *Registry) Estimator(name string) (Estimator, error) {
	e, ok := r.estimators[name]
	if !ok {
		return nil, fmt.Errorf("%w: estimator %q", ErrUnknownOp, name)
	}
	return e, nil
}

// Names returns all registered operator names, sorted, transformers first.
func (r *Registry) Names() (transformers, estimators []string) {
	for name := range r.transformers {
		transformers = append(transformers, name)
	}
	for name := range r.estimators {
		estimators = append(estimators, name)
	}
	sort.Strings(transformers)
	sort.Strings(estimators)
	return transformers, estimators
}

// Built-in operators. These are deliberately trivial: they exist so that
// manifests and tests have concrete operators to wire, not as a compute
// library.
var builtinTransformers = map[string]Transformer{
	"identity": &Func{Label: "identity", Fn: func(v any) (any, error) { return v, nil }},
	"lower": &Func{Label: "lower", Fn: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("lower: want string, got %T", v)
		}
		return strings.ToLower(s), nil
	}},
	"upper": &Func{Label: "upper", Fn: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("upper: want string, got %T", v)
		}
		return strings.ToUpper(s), nil
	}},
	"tokenize": &Func{Label: "tokenize", Fn: func(v any) (any, error) {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("tokenize: want string, got %T", v)
		}
		return strings.Fields(s), nil
	}},
}

var builtinEstimators = map[string]Estimator{
	// vocab fits the set of distinct tokens seen in training data and
	// produces a transformer that filters unknown tokens out.
	"vocab": &EstimatorFunc{Label: "vocab", Fn: fitVocab},
}

func fitVocab(data dataset.Dataset) (Transformer, error) {
	items := data.Collect()
	if len(items) == 0 {
		return nil, fmt.Errorf("vocab: %w", dataset.ErrEmptyDataset)
	}
	known := make(map[string]bool)
	for _, item := range items {
		tokens, ok := item.([]string)
		if !ok {
			return nil, fmt.Errorf("vocab: want []string, got %T", item)
		}
		for _, tok := range tokens {
			known[tok] = true
		}
	}
	return &Func{Label: "vocab-filter", Fn: func(v any) (any, error) {
		tokens, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("vocab-filter: want []string, got %T", v)
		}
		var kept []string
		for _, tok := range tokens {
			if known[tok] {
				kept = append(kept, tok)
			}
		}
		return kept, nil
	}}, nil
}

// Package pkg provides the core libraries for Flowforge pipeline tooling.
//
// # Overview
//
// Flowforge assembles dataflow pipelines from TOML manifests or a
// programmatic builder, linearizes them into an editable instruction
// form, and renders the result as diagrams. The pkg directory is
// organized around that flow:
//
//	TOML manifest / Builder
//	         ↓
//	    [graph] package (build-phase pipeline graph)
//	         ↓
//	    [ir] package (linear instruction form: queries + surgery)
//	         ↓
//	    [viz] / [io] packages (diagrams, wire form)
//
// # Main Packages
//
// [graph] - The build-phase pipeline graph: operator, estimator, and
// delegating nodes with data and fit dependencies, plus validation.
//
// [ir] - The linear instruction form. Linearization, compilation back to
// graph form, dependency queries, and the surgery operations (remove,
// disconnect, splice). [ir/transform] builds the rewrite passes (prune,
// replace, inline) on top of them.
//
// [op] - Operator interfaces and the name registry manifests resolve
// against.
//
// [dataset] - The minimal dataset abstraction operators consume.
//
// [pipeline] - Orchestration: manifest parsing, the fluent builder, and
// the caching Runner shared by CLI and API.
//
// [io] - Wire serialization of programs and graph snapshots.
//
// [viz] - DOT and SVG rendering of graphs and programs.
//
// [store] - Program persistence (in-memory and MongoDB backends).
//
// [cache] - Byte-level caching of built programs, rendered artifacts,
// and query results (file, Redis, and null backends).
//
// [errors] - Structured error codes shared by CLI and API.
//
// [observability] - Hook interfaces for instrumenting builds, surgery,
// rendering, caching, and store access.
//
// # Quick Start
//
// Build a program from a manifest and render it:
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    ManifestPath: "demo.toml",
//	    Format:       pipeline.FormatSVG,
//	})
//
// Or assemble a pipeline programmatically:
//
//	instrs, err := pipeline.NewBuilder().
//	    Transform("tok", tokenize, pipeline.InputRef).
//	    Transform("lower", lower, "tok").
//	    Output("lower").
//	    Build()
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...        # All tests
//	go test ./pkg/ir/...     # Specific package
//
// [graph]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/graph
// [ir]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/ir
// [ir/transform]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/ir/transform
// [op]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/op
// [dataset]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/dataset
// [pipeline]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/pipeline
// [io]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/io
// [viz]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/viz
// [store]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/store
// [cache]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/cache
// [errors]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/errors
// [observability]: https://pkg.go.dev/github.com/flowforge/flowforge/pkg/observability
package pkg

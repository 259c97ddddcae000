// Package viz renders pipeline graphs and programs as Graphviz diagrams.
package viz

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
)

// Options configures diagram rendering.
type Options struct {
	// Detailed includes instruction indices and dependency lists in node
	// labels. When false, only the kind and label are shown.
	Detailed bool
}

// GraphToDOT converts a build-phase graph to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG].
//
// Estimator nodes are drawn with dashed outlines, delegating nodes with a
// grey fill, and fit edges as dashed arrows so the train-time data flow
// is distinguishable from the apply-time flow.
func GraphToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	fmt.Fprintf(&buf, "  %q [label=\"input\", shape=ellipse];\n", string(graph.External))
	for _, id := range g.Sources() {
		fmt.Fprintf(&buf, "  %q [label=\"source\", shape=ellipse];\n", string(id))
	}
	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		attrs := nodeAttrs(n, opts.Detailed)
		fmt.Fprintf(&buf, "  %q [%s];\n", string(id), strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, id := range g.Nodes() {
		n, ok := g.Node(id)
		if !ok {
			continue
		}
		for _, d := range n.DataDeps {
			fmt.Fprintf(&buf, "  %q -> %q;\n", string(d), string(id))
		}
		for _, d := range n.FitDeps {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed];\n", string(d), string(id))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, detailed bool) []string {
	label := n.Payload.Label
	if detailed {
		label = fmt.Sprintf("%s\n%s", label, n.Payload.Kind)
	}
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch n.Payload.Kind {
	case graph.PayloadEstimator:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"")
	case graph.PayloadDelegate:
		attrs = append(attrs, "fillcolor=lightgrey")
	}
	return attrs
}

// ProgramToDOT converts an instruction sequence to Graphviz DOT format.
// Each instruction becomes one node named by its index; dependency edges
// point from dependency to dependent, with the declaration edge of apply
// and fit instructions drawn dashed.
func ProgramToDOT(instrs []ir.Instruction, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=24, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	buf.WriteString("  \"input\" [shape=ellipse];\n")
	for i, in := range instrs {
		label := fmt.Sprintf("%d: %s", i, in.Kind)
		if opts.Detailed {
			label = fmt.Sprintf("%d: %s", i, in.String())
		} else if in.Label != "" {
			label = fmt.Sprintf("%d: %s", i, in.Label)
		}
		fmt.Fprintf(&buf, "  \"%d\" [label=%q];\n", i, label)
	}

	buf.WriteString("\n")
	for i, in := range instrs {
		switch in.Kind {
		case ir.KindApply, ir.KindFit:
			fmt.Fprintf(&buf, "  %s -> \"%d\" [style=dashed];\n", refName(in.Target), i)
			for _, d := range in.Inputs {
				fmt.Fprintf(&buf, "  %s -> \"%d\";\n", refName(d), i)
			}
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func refName(d int) string {
	if d == ir.SourceIndex {
		return "\"input\""
	}
	return fmt.Sprintf("\"%d\"", d)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
)

// WriteProgramJSON encodes an instruction sequence as JSON and writes it
// to w. The output can be re-imported with [ReadProgramJSON] for
// round-trip processing.
func WriteProgramJSON(instrs []ir.Instruction, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromProgram(instrs)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportProgram writes an instruction sequence to a JSON file at path.
// This is a convenience wrapper around [WriteProgramJSON] for file-based
// output.
func ExportProgram(instrs []ir.Instruction, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteProgramJSON(instrs, f)
}

// WriteGraphJSON encodes a graph snapshot as JSON and writes it to w.
func WriteGraphJSON(g *graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(FromGraph(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportGraph writes a graph snapshot to a JSON file at path.
func ExportGraph(g *graph.Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteGraphJSON(g, f)
}

func sortStrings(s []string) { sort.Strings(s) }

func sortSinks(s []Sink) {
	sort.Slice(s, func(i, j int) bool { return s[i].ID < s[j].ID })
}

package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
)

// ReadProgramJSON decodes a JSON program from r into an instruction
// sequence, resolving operator names through reg.
//
// The input must be a JSON object with an "instructions" array:
//
//	{
//	  "instructions": [
//	    {"kind": "operator", "op": "lower"},
//	    {"kind": "apply", "target": 0, "inputs": [-1]}
//	  ]
//	}
//
// ReadProgramJSON returns an error if:
//   - The JSON is malformed or invalid
//   - An instruction has an unknown kind
//   - A declaration names an operator the registry cannot resolve
//   - The decoded sequence violates the structural invariants
//
// The returned sequence is independent of r and can be rewritten safely
// after ReadProgramJSON returns. ReadProgramJSON does not close r.
func ReadProgramJSON(r io.Reader, reg *op.Registry) ([]ir.Instruction, error) {
	var p Program
	if err := json.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return ToProgram(p, reg)
}

// ImportProgram reads a JSON file at path and returns the decoded
// instruction sequence.
//
// ImportProgram opens the file, decodes it using [ReadProgramJSON], and
// closes the file. Errors wrap the underlying cause with the file path
// for context.
func ImportProgram(path string, reg *op.Registry) ([]ir.Instruction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadProgramJSON(f, reg)
}

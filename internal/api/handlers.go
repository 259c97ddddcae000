package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/flowforge/flowforge/pkg/cache"
	apperrors "github.com/flowforge/flowforge/pkg/errors"
	flowio "github.com/flowforge/flowforge/pkg/io"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/ir/transform"
	"github.com/flowforge/flowforge/pkg/observability"
	"github.com/flowforge/flowforge/pkg/pipeline"
)

// =============================================================================
// Build & Render
// =============================================================================

type buildRequest struct {
	Manifest string `json:"manifest"`
	Refresh  bool   `json:"refresh,omitempty"`
}

type buildResponse struct {
	Name        string         `json:"name"`
	Program     flowio.Program `json:"program"`
	ProgramHash string         `json:"program_hash"`
	CacheHit    bool           `json:"cache_hit"`
}

func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Manifest == "" {
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidManifest, "manifest is required"))
		return
	}

	name, instrs, hit, err := s.runner.BuildWithCacheInfo(r.Context(), pipeline.Options{
		Manifest: req.Manifest,
		Refresh:  req.Refresh,
		Registry: s.registry,
	})
	if err != nil {
		writeError(w, buildError(err))
		return
	}

	wire := flowio.FromProgram(instrs)
	wire.Name = name
	writeJSON(w, http.StatusOK, buildResponse{
		Name:        name,
		Program:     wire,
		ProgramHash: programHash(wire),
		CacheHit:    hit,
	})
}

type renderRequest struct {
	Program  flowio.Program `json:"program"`
	Format   string         `json:"format,omitempty"`
	Detailed bool           `json:"detailed,omitempty"`
}

var renderContentTypes = map[string]string{
	pipeline.FormatDOT:  "text/vnd.graphviz",
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatJSON: "application/json",
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Format == "" {
		req.Format = pipeline.DefaultFormat
	}
	if err := pipeline.ValidateFormat(req.Format); err != nil {
		writeError(w, apperrors.Wrap(apperrors.ErrCodeInvalidFormat, err, "render"))
		return
	}

	instrs, err := flowio.ToProgram(req.Program, s.registry)
	if err != nil {
		writeError(w, err)
		return
	}

	artifacts, _, err := s.runner.RenderWithCacheInfo(r.Context(), instrs, programHash(req.Program), pipeline.Options{
		Format:   req.Format,
		Detailed: req.Detailed,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", renderContentTypes[req.Format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[req.Format])
}

// =============================================================================
// Dependency Queries
// =============================================================================

type queryRequest struct {
	Program flowio.Program `json:"program"`
	Index   int            `json:"index"`
}

type queryResponse struct {
	Indices []int `json:"indices"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")

	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	instrs, err := flowio.ToProgram(req.Program, s.registry)
	if err != nil {
		writeError(w, err)
		return
	}

	// Query results are immutable for a given program, so they cache
	// indefinitely under the program's content hash.
	key := s.keyer.QueryKey(programHash(req.Program), cache.QueryKeyOpts{Kind: kind, Index: req.Index})
	if data, hit, err := s.cache.Get(r.Context(), key); err == nil && hit {
		var cached queryResponse
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(r.Context(), "query")
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	var indices []int
	switch kind {
	case "ancestors":
		set, qerr := ir.Ancestors(req.Index, instrs)
		err = qerr
		indices = ir.SortedIndices(set)
	case "descendants":
		set, qerr := ir.Descendants(req.Index, instrs)
		err = qerr
		indices = ir.SortedIndices(set)
	case "children":
		indices, err = ir.Children(req.Index, instrs)
	default:
		writeError(w, apperrors.New(apperrors.ErrCodeInvalidInput, "unknown query kind %q", kind))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if indices == nil {
		indices = []int{}
	}

	resp := queryResponse{Indices: indices}
	if data, err := json.Marshal(resp); err == nil {
		_ = s.cache.Set(r.Context(), key, data, 0)
		observability.Cache().OnCacheSet(r.Context(), "query", len(data))
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// Program Surgery
// =============================================================================

type editResponse struct {
	Program flowio.Program `json:"program"`
	Remap   ir.Remap       `json:"remap"`
}

type removeRequest struct {
	Program flowio.Program `json:"program"`
	Indices []int          `json:"indices"`
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	toRemove := make(map[int]bool, len(req.Indices))
	for _, idx := range req.Indices {
		toRemove[idx] = true
	}
	s.runEdit(w, r, "remove", req.Program, func(instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, error) {
		return ir.Remove(toRemove, instrs)
	})
}

type disconnectRequest struct {
	Program      flowio.Program `json:"program"`
	Replacements map[int]int    `json:"replacements"`
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var req disconnectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.runEdit(w, r, "disconnect", req.Program, func(instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, error) {
		return ir.DisconnectAndRemove(req.Replacements, instrs)
	})
}

type spliceRequest struct {
	Program     flowio.Program `json:"program"`
	Insert      flowio.Program `json:"insert"`
	Imports     map[int]int    `json:"imports,omitempty"`
	ReplaceSink int            `json:"replace_sink"`
}

func (s *Server) handleSplice(w http.ResponseWriter, r *http.Request) {
	var req spliceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	insert, err := flowio.ToProgram(req.Insert, s.registry)
	if err != nil {
		writeError(w, err)
		return
	}
	s.runEdit(w, r, "splice", req.Program, func(instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, error) {
		return ir.Splice(insert, instrs, req.Imports, req.ReplaceSink)
	})
}

type pruneRequest struct {
	Program flowio.Program `json:"program"`
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	var req pruneRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.runEdit(w, r, "prune", req.Program, func(instrs []ir.Instruction) ([]ir.Instruction, ir.Remap, error) {
		out, remap, _, err := transform.Prune(instrs)
		return out, remap, err
	})
}

// runEdit decodes the program, applies one surgery operation, and writes
// the rewritten program plus its index remap.
func (s *Server) runEdit(w http.ResponseWriter, r *http.Request, opName string, wire flowio.Program, edit func([]ir.Instruction) ([]ir.Instruction, ir.Remap, error)) {
	instrs, err := flowio.ToProgram(wire, s.registry)
	if err != nil {
		writeError(w, err)
		return
	}

	hooks := observability.Pipeline()
	hooks.OnSurgeryStart(r.Context(), opName, len(instrs))
	start := time.Now()

	out, remap, err := edit(instrs)
	hooks.OnSurgeryComplete(r.Context(), opName, len(out), time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}

	result := flowio.FromProgram(out)
	result.Name = wire.Name
	writeJSON(w, http.StatusOK, editResponse{Program: result, Remap: remap})
}

// =============================================================================
// Operators
// =============================================================================

type opsResponse struct {
	Transformers []string `json:"transformers"`
	Estimators   []string `json:"estimators"`
}

func (s *Server) handleOps(w http.ResponseWriter, r *http.Request) {
	transformers, estimators := s.registry.Names()
	writeJSON(w, http.StatusOK, opsResponse{
		Transformers: transformers,
		Estimators:   estimators,
	})
}

// =============================================================================
// Program Store
// =============================================================================

func (s *Server) handleSaveProgram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := apperrors.ValidateName(name); err != nil {
		writeError(w, err)
		return
	}

	var wire flowio.Program
	if err := decodeJSON(r, &wire); err != nil {
		writeError(w, err)
		return
	}
	// Reject programs that do not decode against the registry; the store
	// only holds programs the API can hand back.
	if _, err := flowio.ToProgram(wire, s.registry); err != nil {
		writeError(w, err)
		return
	}

	start := time.Now()
	err := s.store.Save(r.Context(), name, wire)
	observability.Store().OnStoreOp(r.Context(), "save", name, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleGetProgram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	start := time.Now()
	p, err := s.store.Load(r.Context(), name)
	observability.Store().OnStoreOp(r.Context(), "load", name, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type listProgramsResponse struct {
	Programs []string `json:"programs"`
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	names, err := s.store.List(r.Context())
	observability.Store().OnStoreOp(r.Context(), "list", "", time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, listProgramsResponse{Programs: names})
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	start := time.Now()
	err := s.store.Delete(r.Context(), name)
	observability.Store().OnStoreOp(r.Context(), "delete", name, time.Since(start), err)
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// programHash computes the content hash of a wire program.
func programHash(p flowio.Program) string {
	data, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}

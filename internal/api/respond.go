package api

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/flowforge/flowforge/pkg/errors"
	"github.com/flowforge/flowforge/pkg/graph"
	"github.com/flowforge/flowforge/pkg/ir"
	"github.com/flowforge/flowforge/pkg/op"
	"github.com/flowforge/flowforge/pkg/store"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
}

// writeJSON writes v as a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error to an HTTP status and structured code, and
// writes the error envelope.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeJSON(w, status, errorBody{Error: errorDetail{
		Code:    code,
		Message: apperrors.UserMessage(err),
	}})
}

// classify maps domain errors to HTTP status and error code. Structural
// violations in a submitted program are the client's fault, so they map
// to 4xx.
func classify(err error) (int, apperrors.Code) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, apperrors.ErrCodePipelineNotFound
	case errors.Is(err, op.ErrUnknownOp):
		return http.StatusBadRequest, apperrors.ErrCodeOpNotFound
	case errors.Is(err, ir.ErrLiveDependent):
		return http.StatusConflict, apperrors.ErrCodeLiveDependent
	case errors.Is(err, ir.ErrSplicePoint):
		return http.StatusConflict, apperrors.ErrCodeSplicePoint
	case errors.Is(err, graph.ErrGraphHasCycle):
		return http.StatusUnprocessableEntity, apperrors.ErrCodeCyclicGraph
	case errors.Is(err, ir.ErrForwardReference),
		errors.Is(err, ir.ErrInvalidTarget),
		errors.Is(err, ir.ErrIndexOutOfRange),
		errors.Is(err, ir.ErrBadReplacement),
		errors.Is(err, ir.ErrEmptyProgram):
		return http.StatusUnprocessableEntity, apperrors.ErrCodeMalformedIR
	}

	if code := apperrors.GetCode(err); code != "" {
		switch code {
		case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeInvalidOp,
			apperrors.ErrCodeInvalidManifest, apperrors.ErrCodeInvalidFormat,
			apperrors.ErrCodeInvalidPath:
			return http.StatusBadRequest, code
		case apperrors.ErrCodeNotFound, apperrors.ErrCodePipelineNotFound,
			apperrors.ErrCodeOpNotFound, apperrors.ErrCodeFileNotFound:
			return http.StatusNotFound, code
		case apperrors.ErrCodeTimeout:
			return http.StatusGatewayTimeout, code
		default:
			return http.StatusInternalServerError, code
		}
	}

	return http.StatusInternalServerError, apperrors.ErrCodeInternal
}

// buildError tags a build failure for classification. Causes classify
// already recognizes (unknown operators, cycles) or that carry a code pass
// through untouched; only plain parse and validation failures become
// INVALID_MANIFEST.
func buildError(err error) error {
	if errors.Is(err, op.ErrUnknownOp) || errors.Is(err, graph.ErrGraphHasCycle) {
		return err
	}
	if apperrors.GetCode(err) != "" {
		return err
	}
	return apperrors.Wrap(apperrors.ErrCodeInvalidManifest, err, "build")
}

// decodeJSON decodes a request body, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

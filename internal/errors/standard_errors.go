// Package errors provides the error-kind taxonomy the core engines use
// to report failures as explicit values rather than exceptions.
package errors

import (
	"encoding/json"
	"net/http"
)

// Kind is one of the six error kinds the core engines distinguish.
// Kinds are a classification, not a type hierarchy: every engine failure
// surfaces as a *CoreError carrying one of these.
type Kind string

const (
	// KindInvalidInput covers out-of-range weights, non-finite numbers,
	// mismatched embedding dimension, empty id lists, malformed filters.
	// Always surfaced to the caller.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindNotFound covers a missing target memory for a relationship
	// analysis or importance update. Surfaced.
	KindNotFound Kind = "NOT_FOUND"
	// KindStoreUnavailable covers transient MemoryStore I/O errors. Not
	// retried by the core; surfaced with the underlying cause so callers
	// can retry at task granularity.
	KindStoreUnavailable Kind = "STORE_UNAVAILABLE"
	// KindEmbeddingUnavailable covers an EmbeddingProvider failure,
	// recovered locally by zeroing the affected similarity axis.
	KindEmbeddingUnavailable Kind = "EMBEDDING_UNAVAILABLE"
	// KindComputationError covers a per-pair or per-batch computation
	// failure. Logged, counted, excluded from results; never fatal to
	// an orchestration run.
	KindComputationError Kind = "COMPUTATION_ERROR"
	// KindConflict covers a rejected merge because a duplicate id no
	// longer exists (concurrent modification). Counted; run continues.
	KindConflict Kind = "CONFLICT"
)

// CoreError is the error value every engine in this module returns for
// an expected failure mode. It never represents a panic-worthy bug.
type CoreError struct {
	Kind    Kind                   `json:"kind"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *CoreError) Unwrap() error {
	return e.Cause
}

// New creates a CoreError with no details and no cause.
func New(kind Kind, message string) *CoreError {
	return &CoreError{Kind: kind, Message: message}
}

// Wrap creates a CoreError carrying an underlying cause, for
// StoreUnavailable and EmbeddingUnavailable conditions originating in a
// caller-supplied capability.
func Wrap(kind Kind, message string, cause error) *CoreError {
	return &CoreError{Kind: kind, Message: message, Cause: cause}
}

// WithDetails attaches structured details to an error and returns it.
func (e *CoreError) WithDetails(details map[string]interface{}) *CoreError {
	e.Details = details
	return e
}

// Is reports whether err is a CoreError of the given kind.
func Is(err error, kind Kind) bool {
	ce, ok := err.(*CoreError)
	return ok && ce.Kind == kind
}

// ToHTTPStatus maps a CoreError's kind to the status code an external
// HTTP wrapper should use, per spec §7's last paragraph. The core ships
// no HTTP server; this mapping exists only so a thin wrapper built on
// top of it does not need to reinvent the table.
func (e *CoreError) ToHTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindConflict:
		return http.StatusConflict
	case KindEmbeddingUnavailable, KindComputationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ToJSON marshals the error to its wire representation.
func (e *CoreError) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Package httpjson writes API responses. All endpoints speak JSON; errors
// are rendered from the faults taxonomy with a stable body shape so the SPA
// can branch on kind/reason instead of parsing messages.
package httpjson

import (
	"encoding/json"
	"net/http"

	"github.com/brigadetools/paradebook/internal/app/system/faults"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Kind   string `json:"kind"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail"`
}

// Respond writes v as JSON with the given status.
func Respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// OK writes v with status 200.
func OK(w http.ResponseWriter, v any) { Respond(w, http.StatusOK, v) }

// Created writes v with status 201.
func Created(w http.ResponseWriter, v any) { Respond(w, http.StatusCreated, v) }

// NoContent writes an empty 204.
func NoContent(w http.ResponseWriter) { w.WriteHeader(http.StatusNoContent) }

// Unauthorized writes the 401 body used when no identity is present.
func Unauthorized(w http.ResponseWriter) {
	Respond(w, http.StatusUnauthorized, ErrorBody{
		Kind:   "unauthorized",
		Detail: "sign in required",
	})
}

// statusOf maps a fault kind to its HTTP status.
func statusOf(k faults.Kind) int {
	switch k {
	case faults.KindDenied:
		return http.StatusForbidden
	case faults.KindValidation:
		return http.StatusUnprocessableEntity
	case faults.KindNotFound:
		return http.StatusNotFound
	case faults.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// Error renders err. Faults keep their kind, reason, and detail; anything
// else is reported as an infrastructure failure without leaking internals.
func Error(w http.ResponseWriter, err error) {
	f, ok := faults.As(err)
	if !ok {
		Respond(w, http.StatusServiceUnavailable, ErrorBody{
			Kind:   string(faults.KindInfrastructure),
			Detail: "backend failure",
		})
		return
	}
	Respond(w, statusOf(f.Kind), ErrorBody{
		Kind:   string(f.Kind),
		Reason: f.Reason,
		Detail: f.Detail,
	})
}

// Decode reads the request body into dst, limited to 1 MiB, rejecting
// unknown fields.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

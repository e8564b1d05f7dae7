// Package api is the HTTP JSON surface over the QuietGrid engines, with
// RFC 7807 Problem Detail error responses.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/CivicMesh-Labs/quietgrid/core/pkg/contracts"
)

// ProblemDetail implements RFC 7807 (Problem Details for HTTP APIs).
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

// Error implements the error interface.
func (p *ProblemDetail) Error() string {
	return fmt.Sprintf("%s: %s", p.Title, p.Detail)
}

// WriteError writes an RFC 7807 Problem Detail JSON response.
func WriteError(w http.ResponseWriter, r *http.Request, status int, title, detail string) {
	problem := &ProblemDetail{
		Type:     fmt.Sprintf("https://quietgrid.dev/errors/%d", status),
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(problem)
}

// WriteLedgerError maps a ledger sentinel to its HTTP status, surfacing the
// sentinel text verbatim as the problem title.
func WriteLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contracts.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, contracts.ErrNotFound), errors.Is(err, contracts.ErrZoneNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contracts.ErrAlreadyExists),
		errors.Is(err, contracts.ErrPermitExists),
		errors.Is(err, contracts.ErrAlreadyVoted),
		errors.Is(err, contracts.ErrInsufficientAllowance),
		errors.Is(err, contracts.ErrVotingPeriodActive),
		errors.Is(err, contracts.ErrInvalidVote):
		status = http.StatusConflict
	case errors.Is(err, contracts.ErrInvalidAmount), errors.Is(err, contracts.ErrInvalidDecibel):
		status = http.StatusBadRequest
	}
	WriteError(w, r, status, err.Error(), "")
}

// WriteBadRequest writes a 400 problem.
func WriteBadRequest(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusBadRequest, "bad request", detail)
}

// WriteUnauthorized writes a 401 problem.
func WriteUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	WriteError(w, r, http.StatusUnauthorized, "unauthorized", detail)
}

// WriteTooManyRequests writes a 429 problem with a Retry-After header.
func WriteTooManyRequests(w http.ResponseWriter, r *http.Request, retryAfterSecs int) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
	WriteError(w, r, http.StatusTooManyRequests, "rate limit exceeded", "")
}

// WriteJSON writes a JSON response body.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

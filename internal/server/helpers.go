package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bobmcallan/stockfolio/internal/models"
)

// ErrorResponse is the standard error format for REST API responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message})
}

// WriteErrorWithCode writes a JSON error response with an error code.
func WriteErrorWithCode(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// errorStatus maps domain errors to an HTTP status and a stable error code.
var errorStatus = []struct {
	err    error
	status int
	code   string
}{
	{models.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{models.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
	{models.ErrPortfolioNotFound, http.StatusNotFound, "portfolio_not_found"},
	{models.ErrHoldingNotFound, http.StatusNotFound, "holding_not_found"},
	{models.ErrNotWatched, http.StatusNotFound, "not_watched"},
	{models.ErrNotFound, http.StatusNotFound, "not_found"},
	{models.ErrInsufficientShares, http.StatusUnprocessableEntity, "insufficient_shares"},
	{models.ErrConflict, http.StatusConflict, "conflict"},
	{models.ErrAlreadyWatched, http.StatusConflict, "already_watched"},
}

// WriteServiceError writes err using the domain error mapping. Unmapped
// errors are logged by the caller and reported as 500 without detail.
func WriteServiceError(w http.ResponseWriter, err error) bool {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			WriteErrorWithCode(w, m.status, err.Error(), m.code)
			return true
		}
	}
	WriteErrorWithCode(w, http.StatusInternalServerError, "Internal server error", "internal")
	return false
}

// RequireMethod validates the HTTP method and returns true if it matches.
// If it doesn't match, it writes a 405 response and returns false.
func RequireMethod(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	return false
}

// DecodeJSON reads and decodes JSON from the request body into v.
// Returns false and writes a 400 error if decoding fails.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil {
		WriteError(w, http.StatusBadRequest, "Request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error())
		return false
	}
	return true
}

// PathParam extracts a path parameter from the URL path.
// For a pattern like /api/portfolios/{id}/chart, calling PathParam(r, "/api/portfolios/", "/chart")
// extracts the {id} part.
func PathParam(r *http.Request, prefix, suffix string) string {
	path := r.URL.Path
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	rest := path[len(prefix):]
	if suffix != "" {
		idx := strings.Index(rest, suffix)
		if idx < 0 {
			return rest
		}
		return rest[:idx]
	}
	// No suffix: return up to the next /
	if idx := strings.Index(rest, "/"); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

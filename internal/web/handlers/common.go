package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/constants"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/fingerprint"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// ValidationErrorResponse lists invalid request fields by JSON name.
type ValidationErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// decodeJSON decodes and validates the request body into dst.
// On failure it writes the error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, constants.MaxJSONBodySize)).Decode(dst); err != nil {
		if errors.Is(err, attendance.ErrInvalidPeriod) {
			respondError(w, http.StatusBadRequest, err.Error())
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return false
	}
	if fields := validateStruct(dst); fields != nil {
		respondJSON(w, http.StatusBadRequest, ValidationErrorResponse{Error: "validation failed", Fields: fields})
		return false
	}
	return true
}

var (
	conflictErrors = []error{
		attendance.ErrAlreadyActive,
		attendance.ErrNotActive,
		database.ErrStatusRegression,
		database.ErrDuplicateRollNo,
		database.ErrDuplicateUsername,
	}
	badRequestErrors = []error{
		attendance.ErrInvalidPeriod,
		attendance.ErrClassRequired,
		fingerprint.ErrNoFaceDetected,
	}
	notFoundErrors = []error{
		attendance.ErrUnknownStudent,
		database.ErrNotFound,
	}
)

func matchSentinel(err error, sentinels []error) error {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s
		}
	}
	return nil
}

// respondServiceError maps domain errors to status codes. Anything unknown is
// logged and reported as "failed to <op>".
func respondServiceError(w http.ResponseWriter, err error, op string) {
	var decodeErr *fingerprint.DecodeError
	if errors.As(err, &decodeErr) {
		respondError(w, http.StatusBadRequest, decodeErr.Error())
		return
	}
	if s := matchSentinel(err, conflictErrors); s != nil {
		respondError(w, http.StatusConflict, s.Error())
		return
	}
	if s := matchSentinel(err, badRequestErrors); s != nil {
		respondError(w, http.StatusBadRequest, s.Error())
		return
	}
	if s := matchSentinel(err, notFoundErrors); s != nil {
		respondError(w, http.StatusNotFound, s.Error())
		return
	}

	log.Printf("Failed to %s: %v", op, err)
	respondError(w, http.StatusInternalServerError, "failed to "+op)
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"backend": database.BackendName(),
	})
}

// collapse trims s and folds inner whitespace runs to single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

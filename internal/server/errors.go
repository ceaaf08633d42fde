package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/ytrelay/internal/shared"
)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// StatusFor maps an error from the services layer to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrBotDetected):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrExtractionFailed),
		errors.Is(err, shared.ErrNoStreamFound),
		errors.Is(err, shared.ErrInvalidPlaylist):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUpstreamFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON detail with the status from [StatusFor].
// Unmapped errors are reported without their message.
func writeError(w http.ResponseWriter, err error) int {
	status := StatusFor(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = "Internal Server Error"
	}
	writeDetail(w, status, detail)
	return status
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slatehub/slate-core/internal/display"
	"github.com/slatehub/slate-core/internal/layout"
	"github.com/slatehub/slate-core/internal/provider"
	"github.com/slatehub/slate-core/internal/scheduler"
	"github.com/slatehub/slate-core/internal/sensor"
)

// errorResponse is the JSON body for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps core errors onto HTTP status codes. Unknown
// names are 404, validation problems 400, everything else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, provider.ErrNotFound),
		errors.Is(err, layout.ErrLayoutNotFound),
		errors.Is(err, scheduler.ErrJobNotFound),
		errors.Is(err, sensor.ErrNoReadings):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, display.ErrUnknownMode),
		errors.Is(err, display.ErrNoRotationSequence),
		errors.Is(err, sensor.ErrInvalidReading):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"physiotrack/backend/internal/service/patients"
	"physiotrack/backend/internal/service/progress"
	"physiotrack/backend/internal/service/scheduling"
	"physiotrack/backend/internal/store"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps service and store errors onto HTTP statuses:
// missing entities are 404, resolved requests are 409, validation failures
// are 422 and everything else is a logged 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrPatientNotFound),
		errors.Is(err, patients.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient not found")
	case errors.Is(err, scheduling.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "reschedule request not found")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrAlreadyResolved):
		writeError(w, http.StatusConflict, "reschedule request already resolved")
	default:
		var schedErr *scheduling.ValidationError
		var progErr *progress.ValidationError
		var patErr *patients.ValidationError
		if errors.As(err, &schedErr) || errors.As(err, &progErr) || errors.As(err, &patErr) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.log.Error("request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

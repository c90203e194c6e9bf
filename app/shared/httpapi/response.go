package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/42core-team/arena/app/shared/apperrors"
)

// WriteJSON encodes body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteMessage writes {"message": msg}.
func WriteMessage(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"message": msg})
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrIllegalState), errors.Is(err, apperrors.ErrPhaseViolation):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as JSON. Domain errors keep their message; anything
// else is logged and reported generically.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		WriteMessage(w, status, "internal error")
		return
	}
	WriteMessage(w, status, err.Error())
}

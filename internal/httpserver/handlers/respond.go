package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tidemark/tidemark/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps store and sync errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, "revision conflict")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Reason)
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

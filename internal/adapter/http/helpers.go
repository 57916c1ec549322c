package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/simaogato/networth-backend/internal/domain"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeDocument(w http.ResponseWriter, status int, doc *domain.Document) {
	data, err := doc.Marshal()
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	var (
		vErr *domain.ValidationError
		nErr *domain.NotFoundError
		uErr *domain.UploadError
	)
	switch {
	case errors.As(err, &vErr), errors.As(err, &uErr):
		return http.StatusBadRequest
	case errors.As(err, &nErr):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), ErrorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Reason: err.Error()}
	}
	return nil
}

package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/contactbook/internal/common"
)

type errorResponse struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", common.BearerScheme)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusOf maps a service error to an HTTP status and a client-safe detail.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized, "Refresh token expired"
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return http.StatusUnauthorized, "Could not validate credentials"
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, "Already exists"
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, common.ErrInvalidVerificationToken):
		return http.StatusBadRequest, "Invalid or expired token"
	case errors.Is(err, common.ErrInvalidContentType):
		return http.StatusBadRequest, "Invalid file type"
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, detail := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeDetail(w, status, detail)
}

// decodeJSON reads a single JSON object from the request body. Malformed
// bodies are validation errors.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

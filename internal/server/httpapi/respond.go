package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/supportchat/internal/common"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst zero.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return common.NewValidationError("", "Invalid JSON body")
	}
	return nil
}

// writeError maps the error taxonomy to a status. fallback is the message
// for unexpected failures; their detail goes to the log only.
func (s *HTTPServer) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var verr *common.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	case errors.Is(err, common.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid request"})
	case errors.Is(err, common.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid credentials"})
	case errors.Is(err, common.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "Invalid or expired token"})
	case errors.Is(err, common.ErrUnconfirmed):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Please confirm your email address"})
	case errors.Is(err, common.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorBody{Error: "Forbidden"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not found"})
	case errors.Is(err, common.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "Already exists"})
	case errors.Is(err, common.ErrTransient):
		s.logger.Warn(r.Context(), fallback, "error", err, "request_id", requestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Service temporarily unavailable"})
	default:
		s.logger.Error(r.Context(), fallback, "error", err, "request_id", requestIDFrom(r.Context()))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: fallback})
	}
}

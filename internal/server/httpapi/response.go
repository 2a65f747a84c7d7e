package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/filevault/internal/common"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, code int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a JSON error response.
func WriteError(w http.ResponseWriter, code int, errCode, message string) {
	_ = WriteJSON(w, code, ErrorResponse{Error: errCode, Message: message})
}

// HandleError maps sentinel errors onto status codes. Internal error text
// leaks into the response only in development mode.
func (h *Handler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		WriteError(w, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, common.ErrorUsernameTaken):
		WriteError(w, http.StatusConflict, "conflict", common.ErrorUsernameTaken.Error())
	case errors.Is(err, common.ErrorEmailTaken):
		WriteError(w, http.StatusConflict, "conflict", common.ErrorEmailTaken.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		WriteError(w, http.StatusUnauthorized, "unauthorized", common.ErrorUnauthorized.Error())
	case errors.Is(err, common.ErrorMissingToken):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "missing token")
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
	case errors.Is(err, common.ErrRefreshTokenExpired):
		WriteError(w, http.StatusForbidden, "forbidden", "refresh token expired")
	case errors.Is(err, common.ErrorNotFound):
		WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, common.ErrorServerConfig):
		h.logger.Error(r.Context(), "configuration error", "error", err)
		WriteError(w, http.StatusInternalServerError, "config_error", "server misconfigured")
	default:
		h.logger.Error(r.Context(), "request failed", "error", err)
		msg := "internal server error"
		if h.devMode {
			msg = err.Error()
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", msg)
	}
}

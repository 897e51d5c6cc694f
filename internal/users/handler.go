package users

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"
)

type Handler struct {
	service ServiceInterface
	logger  *zap.Logger
}

func NewHandler(service ServiceInterface, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// LookupByEmail handles GET /users/lookup?email=
func (h *Handler) LookupByEmail(w http.ResponseWriter, r *http.Request) {
	user, found, err := h.service.FindByEmail(r.Context(), r.URL.Query().Get("email"))
	if errors.Is(err, ErrMissingEmail) {
		respondError(w, http.StatusBadRequest, "validation_error", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("user lookup failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "lookup_failed", "internal server error")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, "not_found", ErrUserNotFound.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toLookupResponse(user))
}

func respondError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":   errorType,
		"message": message,
	})
}

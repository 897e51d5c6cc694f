package patient

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
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
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) ListPatients(w http.ResponseWriter, r *http.Request) {
	patients, err := h.service.ListPatients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patients)
}

func (h *Handler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, err := h.service.GetPatient(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) CreatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON payload: " + err.Error()})
		return
	}

	patient, err := h.service.CreatePatient(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, patient)
}

func (h *Handler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	var req PatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"message": "Invalid JSON payload: " + err.Error()})
		return
	}

	patient, err := h.service.UpdatePatient(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, patient)
}

func (h *Handler) DeletePatient(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeletePatient(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, body := ErrorResponse(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.Error(err))
	}
	respondJSON(w, status, body)
}

// errorMapping is one row of the error kind -> client response table.
type errorMapping struct {
	status int
	body   func(err error) map[string]string
}

var errorTable = map[ErrorKind]errorMapping{
	KindValidation: {
		status: http.StatusBadRequest,
		body: func(err error) map[string]string {
			var ve *ValidationError
			errors.As(err, &ve)
			fields := make(map[string]string, len(ve.Fields))
			for _, f := range ve.Fields {
				if _, seen := fields[f.Field]; !seen {
					fields[f.Field] = f.Message
				}
			}
			return fields
		},
	},
	KindEmailAlreadyExists: {
		status: http.StatusBadRequest,
		body: func(err error) map[string]string {
			return map[string]string{string(KindEmailAlreadyExists): err.Error()}
		},
	},
	KindPatientNotFound: {
		status: http.StatusBadRequest,
		body: func(error) map[string]string {
			return map[string]string{"message": "Patient Not Found"}
		},
	},
	KindDependency: {
		status: http.StatusBadGateway,
		body: func(err error) map[string]string {
			var de *DependencyError
			errors.As(err, &de)
			return map[string]string{"message": de.Dependency + " unavailable"}
		},
	},
}

// ErrorResponse resolves err to its client status and body through errorTable.
func ErrorResponse(err error) (int, map[string]string) {
	if m, ok := errorTable[ErrorKindOf(err)]; ok {
		return m.status, m.body(err)
	}
	return http.StatusInternalServerError, map[string]string{"message": "internal server error"}
}

func respondJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/WailSalutem-Health-Care/patient-service/internal/auth"
	"github.com/WailSalutem-Health-Care/patient-service/internal/patient"
	"github.com/WailSalutem-Health-Care/patient-service/internal/telemetry"
	"github.com/WailSalutem-Health-Care/patient-service/internal/users"
	"github.com/go-chi/httprate"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const serviceName = "patient-service"

// Deps carries everything the router wires into handlers.
type Deps struct {
	Patients patient.ServiceInterface
	Users    users.ServiceInterface

	// Verifier is nil when authentication is disabled.
	Verifier    *auth.Verifier
	Permissions auth.Permissions

	Metrics *telemetry.Metrics
	Logger  *zap.Logger

	AllowedOrigins     []string
	RateLimitPerMinute int
}

// SetupRouter initializes all routes for the application
func SetupRouter(d Deps) *mux.Router {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	patientHandler := patient.NewHandler(d.Patients, d.Logger)
	userHandler := users.NewHandler(d.Users, d.Logger)

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(serviceName))
	r.Use(CORSMiddleware(d.AllowedOrigins))
	if d.Metrics != nil {
		r.Use(MetricsMiddleware(d.Metrics))
	}
	if d.RateLimitPerMinute > 0 {
		r.Use(httprate.LimitByIP(d.RateLimitPerMinute, time.Minute))
	}

	// Public health endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "service": serviceName})
	}).Methods(http.MethodGet)

	protect := guard(d)

	// Patient routes
	r.Handle("/patients", protect("patient:view", patientHandler.ListPatients)).Methods(http.MethodGet)
	r.Handle("/patients", protect("patient:create", patientHandler.CreatePatient)).Methods(http.MethodPost)
	r.Handle("/patients/{id}", protect("patient:view", patientHandler.GetPatient)).Methods(http.MethodGet)
	r.Handle("/patients/{id}", protect("patient:update", patientHandler.UpdatePatient)).Methods(http.MethodPut)
	r.Handle("/patients/{id}", protect("patient:delete", patientHandler.DeletePatient)).Methods(http.MethodDelete)

	// User lookup used by the authentication flow
	r.Handle("/users/lookup", protect("user:view", userHandler.LookupByEmail)).Methods(http.MethodGet)

	// Preflight requests only reach the CORS middleware through a matched route.
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}

// guard wraps a handler with token verification and a permission check,
// or returns it unchanged when authentication is disabled.
func guard(d Deps) func(permission string, h http.HandlerFunc) http.Handler {
	return func(permission string, h http.HandlerFunc) http.Handler {
		if d.Verifier == nil {
			return h
		}

		var (
			authMetrics auth.MetricsRecorder
			permMetrics auth.PermissionMetricsRecorder
		)
		if d.Metrics != nil {
			authMetrics = d.Metrics
			permMetrics = d.Metrics
		}

		return auth.MiddlewareWithMetrics(d.Verifier, authMetrics, d.Logger)(
			auth.RequirePermissionWithMetrics(permission, d.Permissions, permMetrics, d.Logger)(h),
		)
	}
}

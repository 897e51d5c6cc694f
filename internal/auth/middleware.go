package auth

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ctxKey string

const principalKey ctxKey = "auth_principal"

var tracer = otel.Tracer("github.com/WailSalutem-Health-Care/patient-service/auth")

// MetricsRecorder records rejected authentications by reason.
type MetricsRecorder interface {
	RecordAuthFailure(ctx context.Context, reason string)
}

// PermissionMetricsRecorder records the outcome and latency of permission checks.
type PermissionMetricsRecorder interface {
	RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool)
}

// Middleware verifies the bearer token and stores the Principal in the request context.
func Middleware(ver *Verifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return MiddlewareWithMetrics(ver, nil, logger)
}

// MiddlewareWithMetrics is Middleware that also counts failures on metrics.
func MiddlewareWithMetrics(ver *Verifier, metrics MetricsRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "auth.Middleware", trace.WithSpanKind(trace.SpanKindInternal))
			defer span.End()

			reject := func(reason, msg string) {
				span.SetStatus(codes.Error, msg)
				span.SetAttributes(attribute.String("error.type", reason))
				if metrics != nil {
					metrics.RecordAuthFailure(ctx, reason)
				}
				http.Error(w, msg, http.StatusUnauthorized)
			}

			tok, reason := bearerToken(r)
			switch reason {
			case "missing_authorization":
				reject(reason, "missing authorization")
				return
			case "invalid_header_format":
				reject(reason, "invalid authorization header")
				return
			}

			pr, err := ver.ParseAndVerifyToken(tok)
			if err != nil {
				logger.Warn("token validation failed", zap.Error(err), zap.String("path", r.URL.Path))
				span.RecordError(err)
				reject("invalid_token", "invalid token")
				return
			}

			span.SetAttributes(
				attribute.String("user.id", pr.UserID),
				attribute.StringSlice("user.roles", pr.Roles),
			)
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, principalKey, pr)))
		})
	}
}

// bearerToken extracts the token from the Authorization header. On failure
// it returns the failure reason used for metrics instead.
func bearerToken(r *http.Request) (token, failure string) {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return "", "missing_authorization"
	}
	scheme, token, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", "invalid_header_format"
	}
	return token, ""
}

// RequirePermission rejects requests whose principal lacks permission.
func RequirePermission(permission string, perms Permissions) func(http.Handler) http.Handler {
	return RequirePermissionWithMetrics(permission, perms, nil, nil)
}

// RequirePermissionWithMetrics is RequirePermission that also records each check.
func RequirePermissionWithMetrics(permission string, perms Permissions, metrics PermissionMetricsRecorder, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ctx, span := tracer.Start(r.Context(), "auth.RequirePermission",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(attribute.String("permission.required", permission)),
			)
			defer span.End()

			pr, ok := FromContext(ctx)
			allowed := ok && HasPermission(pr, permission, perms)
			if metrics != nil {
				metrics.RecordPermissionCheck(ctx, permission, float64(time.Since(start).Milliseconds()), allowed)
			}
			span.SetAttributes(attribute.Bool("permission.allowed", allowed))

			switch {
			case !ok:
				span.SetStatus(codes.Error, "unauthenticated")
				http.Error(w, "unauthenticated", http.StatusUnauthorized)
			case !allowed:
				logger.Info("permission denied",
					zap.String("user_id", pr.UserID),
					zap.Strings("roles", pr.Roles),
					zap.String("permission", permission),
				)
				span.SetStatus(codes.Error, "forbidden")
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				next.ServeHTTP(w, r.WithContext(ctx))
			}
		})
	}
}

// FromContext returns the Principal stored by Middleware.
func FromContext(ctx context.Context) (*Principal, bool) {
	pr, ok := ctx.Value(principalKey).(*Principal)
	return pr, ok
}

// HasPermission reports whether the principal's roles grant permission.
func HasPermission(pr *Principal, permission string, perms Permissions) bool {
	return perms.Allows(pr.Roles, permission)
}

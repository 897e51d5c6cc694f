package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const meterName = "github.com/WailSalutem-Health-Care/patient-service"

// Metrics holds all custom metrics for the service
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal metric.Int64Counter
	HTTPDurationMs    metric.Float64Histogram

	// Business metrics
	PatientTotal         metric.Int64Counter
	BillingCallsTotal    metric.Int64Counter
	EventsPublishedTotal metric.Int64Counter
	UserLookupTotal      metric.Int64Counter

	// Auth metrics
	AuthFailuresTotal       metric.Int64Counter
	PermissionCheckDuration metric.Float64Histogram
}

// InitMetrics initializes all custom metrics on the global meter provider
func InitMetrics(logger *zap.Logger) (*Metrics, error) {
	m, err := NewMetrics(otel.Meter(meterName))
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Info("custom metrics initialized")
	}
	return m, nil
}

// NewMetrics creates the service instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	var (
		m   Metrics
		err error
	)

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_server_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}

	if m.HTTPDurationMs, err = meter.Float64Histogram(
		"http_server_duration_milliseconds",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	if m.PatientTotal, err = meter.Int64Counter(
		"patient_total",
		metric.WithDescription("Total number of patient operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, err
	}

	if m.BillingCallsTotal, err = meter.Int64Counter(
		"billing_calls_total",
		metric.WithDescription("Total number of billing account provisioning calls"),
		metric.WithUnit("{call}"),
	); err != nil {
		return nil, err
	}

	if m.EventsPublishedTotal, err = meter.Int64Counter(
		"events_published_total",
		metric.WithDescription("Total number of patient events handed to the broker"),
		metric.WithUnit("{event}"),
	); err != nil {
		return nil, err
	}

	if m.UserLookupTotal, err = meter.Int64Counter(
		"user_lookup_total",
		metric.WithDescription("Total number of user lookups by email"),
		metric.WithUnit("{lookup}"),
	); err != nil {
		return nil, err
	}

	if m.AuthFailuresTotal, err = meter.Int64Counter(
		"auth_failures_total",
		metric.WithDescription("Total number of authentication failures"),
		metric.WithUnit("{failure}"),
	); err != nil {
		return nil, err
	}

	if m.PermissionCheckDuration, err = meter.Float64Histogram(
		"permission_check_duration_ms",
		metric.WithDescription("Permission check duration in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordHTTPRequest records an HTTP request metric
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, durationMs float64) {
	attrs := []attribute.KeyValue{
		attribute.String("http_method", method),
		attribute.String("http_route", route),
		attribute.Int("http_status_code", statusCode),
	}

	m.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.HTTPDurationMs.Record(ctx, durationMs, metric.WithAttributes(attrs...))
}

// RecordPatientOperation records a patient operation metric
func (m *Metrics) RecordPatientOperation(ctx context.Context, operation string) {
	m.PatientTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

// RecordBillingCall records the outcome of a billing provisioning call
func (m *Metrics) RecordBillingCall(ctx context.Context, outcome string) {
	m.BillingCallsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordEventPublished records the outcome of a patient event publish
func (m *Metrics) RecordEventPublished(ctx context.Context, outcome string) {
	m.EventsPublishedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

// RecordUserLookup records a user lookup and whether it found a user
func (m *Metrics) RecordUserLookup(ctx context.Context, found bool) {
	m.UserLookupTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("found", found),
	))
}

// RecordAuthFailure records an authentication failure metric
func (m *Metrics) RecordAuthFailure(ctx context.Context, reason string) {
	m.AuthFailuresTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}

// RecordPermissionCheck records a permission check duration metric
func (m *Metrics) RecordPermissionCheck(ctx context.Context, permission string, durationMs float64, allowed bool) {
	m.PermissionCheckDuration.Record(ctx, durationMs, metric.WithAttributes(
		attribute.String("permission", permission),
		attribute.Bool("allowed", allowed),
	))
}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const exportTimeout = 5 * time.Second

// Config holds OpenTelemetry configuration
type Config struct {
	ServiceName      string
	ServiceNamespace string
	ServiceVersion   string
	Environment      string
	OTLPEndpoint     string
	TracesSampler    string
	// SamplerRatio applies to the traceidratio sampler.
	SamplerRatio    float64
	MetricsInterval time.Duration
}

// LoadConfig reads the standard OTEL_* variables, falling back to local defaults.
func LoadConfig() Config {
	cfg := Config{
		ServiceName:      envOr("OTEL_SERVICE_NAME", "patient-service"),
		ServiceNamespace: envOr("OTEL_SERVICE_NAMESPACE", "wailsalutem"),
		ServiceVersion:   envOr("OTEL_SERVICE_VERSION", "1.0.0"),
		Environment:      envOr("ENVIRONMENT", "development"),
		OTLPEndpoint:     envOr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		TracesSampler:    envOr("OTEL_TRACES_SAMPLER", "always_on"),
		SamplerRatio:     0.1,
		MetricsInterval:  30 * time.Second,
	}
	if r, err := strconv.ParseFloat(os.Getenv("OTEL_TRACES_SAMPLER_ARG"), 64); err == nil && r >= 0 && r <= 1 {
		cfg.SamplerRatio = r
	}
	if d, err := time.ParseDuration(os.Getenv("OTEL_METRICS_EXPORT_INTERVAL")); err == nil && d > 0 {
		cfg.MetricsInterval = d
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Provider holds the OpenTelemetry providers. Either may be nil when its
// exporter could not be created.
type Provider struct {
	TracerProvider *trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	logger         *zap.Logger
}

// InitProvider installs global tracer and meter providers exporting over OTLP gRPC.
// An unreachable collector disables the affected signal instead of failing startup.
func InitProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("initializing OpenTelemetry", zap.String("endpoint", cfg.OTLPEndpoint))

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceNamespace(cfg.ServiceNamespace),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	p := &Provider{logger: logger}

	if tp, err := newTracerProvider(ctx, cfg, res); err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		otel.SetTracerProvider(tp)
		p.TracerProvider = tp
	}

	if mp, err := newMeterProvider(ctx, cfg, res); err != nil {
		logger.Warn("metrics export disabled", zap.Error(err))
	} else {
		otel.SetMeterProvider(mp)
		p.MeterProvider = mp
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return p, nil
}

func newTracerProvider(ctx context.Context, cfg Config, res *resource.Resource) (*trace.TracerProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	return trace.NewTracerProvider(
		trace.WithResource(res),
		trace.WithSampler(sampler(cfg)),
		trace.WithBatcher(exporter, trace.WithBatchTimeout(exportTimeout)),
	), nil
}

// sampler maps OTEL_TRACES_SAMPLER to a parent-based sampler; unknown values sample everything.
func sampler(cfg Config) trace.Sampler {
	switch cfg.TracesSampler {
	case "always_off":
		return trace.ParentBased(trace.NeverSample())
	case "traceidratio":
		return trace.ParentBased(trace.TraceIDRatioBased(cfg.SamplerRatio))
	default:
		return trace.ParentBased(trace.AlwaysSample())
	}
}

func newMeterProvider(ctx context.Context, cfg Config, res *resource.Resource) (*metric.MeterProvider, error) {
	ctx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	exporter, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlpmetricgrpc.WithTimeout(exportTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}

	return metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(cfg.MetricsInterval))),
	), nil
}

// Shutdown flushes and stops both providers, returning every failure.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.logger.Info("shutting down OpenTelemetry providers")

	var errs []error
	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}

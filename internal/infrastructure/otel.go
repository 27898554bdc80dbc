package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	ServiceName    = "volgrid"
	ServiceVersion = "v1.2.0"
	MeterName      = "volgrid"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes OpenTelemetry tracing and metrics
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// Disabled signals still expose usable Tracer/Meter handles
	if providers.Tracer == nil {
		providers.Tracer = tracenoop.NewTracerProvider().Tracer(MeterName)
	}
	if providers.Meter == nil {
		providers.Meter = metricnoop.NewMeterProvider().Meter(MeterName)
	}

	// Set up global propagators for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		// No exporter - tracing disabled
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		// No exporter - metrics disabled
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	// HTTP metrics
	httpRequestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	httpRequestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	httpActiveRequests, err := meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	// Solver metrics
	solveBatchesTotal, err := meter.Int64Counter(
		"solve_batches_total",
		metric.WithDescription("Total number of implied volatility batch solves"),
	)
	if err != nil {
		return nil, err
	}

	solveBatchDuration, err := meter.Float64Histogram(
		"solve_batch_duration_seconds",
		metric.WithDescription("Batch solve duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	solveQuotesTotal, err := meter.Int64Counter(
		"solve_quotes_total",
		metric.WithDescription("Total number of quotes submitted to the solver"),
	)
	if err != nil {
		return nil, err
	}

	solveIterations, err := meter.Int64Histogram(
		"solve_iterations",
		metric.WithDescription("Root search iterations per converged quote"),
	)
	if err != nil {
		return nil, err
	}

	solveActiveBatches, err := meter.Int64UpDownCounter(
		"solve_active_batches",
		metric.WithDescription("Number of batch solves in flight"),
	)
	if err != nil {
		return nil, err
	}

	// Grid metrics
	gridBuildsTotal, err := meter.Int64Counter(
		"grid_builds_total",
		metric.WithDescription("Total number of volatility grid builds"),
	)
	if err != nil {
		return nil, err
	}

	gridBuildDuration, err := meter.Float64Histogram(
		"grid_build_duration_seconds",
		metric.WithDescription("Grid build duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	gridCellsTotal, err := meter.Int64Counter(
		"grid_cells_total",
		metric.WithDescription("Grid cells produced, labelled by provenance"),
	)
	if err != nil {
		return nil, err
	}

	// Surface metrics
	surfaceMeshesTotal, err := meter.Int64Counter(
		"surface_meshes_total",
		metric.WithDescription("Total number of surface mesh extractions"),
	)
	if err != nil {
		return nil, err
	}

	surfaceMeshPoints, err := meter.Int64Histogram(
		"surface_mesh_points",
		metric.WithDescription("Lattice points per extracted mesh"),
	)
	if err != nil {
		return nil, err
	}

	// System metrics
	systemErrors, err := meter.Int64Counter(
		"system_errors_total",
		metric.WithDescription("Total number of system errors"),
	)
	if err != nil {
		return nil, err
	}

	return &BusinessMetrics{
		HTTPRequestsTotal:   httpRequestsTotal,
		HTTPRequestDuration: httpRequestDuration,
		HTTPActiveRequests:  httpActiveRequests,

		SolveBatchesTotal:  solveBatchesTotal,
		SolveBatchDuration: solveBatchDuration,
		SolveQuotesTotal:   solveQuotesTotal,
		SolveIterations:    solveIterations,
		SolveActiveBatches: solveActiveBatches,

		GridBuildsTotal:   gridBuildsTotal,
		GridBuildDuration: gridBuildDuration,
		GridCellsTotal:    gridCellsTotal,

		SurfaceMeshesTotal: surfaceMeshesTotal,
		SurfaceMeshPoints:  surfaceMeshPoints,

		SystemErrors: systemErrors,
	}, nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Solver metrics
	SolveBatchesTotal  metric.Int64Counter
	SolveBatchDuration metric.Float64Histogram
	SolveQuotesTotal   metric.Int64Counter
	SolveIterations    metric.Int64Histogram
	SolveActiveBatches metric.Int64UpDownCounter

	// Grid metrics
	GridBuildsTotal   metric.Int64Counter
	GridBuildDuration metric.Float64Histogram
	GridCellsTotal    metric.Int64Counter

	// Surface metrics
	SurfaceMeshesTotal metric.Int64Counter
	SurfaceMeshPoints  metric.Int64Histogram

	// System metrics
	SystemErrors metric.Int64Counter
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// AddSpanEvent adds an event to the current span with structured attributes
func AddSpanEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		attrs = append(attrs, anyAttribute(k, v))
	}

	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		span.SetAttributes(anyAttribute(k, v))
	}
}

// anyAttribute converts an arbitrary value to a span attribute
func anyAttribute(k string, v interface{}) attribute.KeyValue {
	switch val := v.(type) {
	case string:
		return attribute.String(k, val)
	case int:
		return attribute.Int(k, val)
	case int64:
		return attribute.Int64(k, val)
	case float64:
		return attribute.Float64(k, val)
	case bool:
		return attribute.Bool(k, val)
	default:
		return attribute.String(k, fmt.Sprintf("%v", val))
	}
}

// RecordSolveMetrics records metrics for a batch solve
func RecordSolveMetrics(ctx context.Context, metrics *BusinessMetrics, runID string, duration time.Duration, solved, failed int64, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
	}

	metrics.SolveBatchesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
	}
	metrics.SolveBatchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(append(attrs, statusAttr)...))

	metrics.SolveQuotesTotal.Add(ctx, solved, metric.WithAttributes(attribute.String("outcome", "solved")))
	metrics.SolveQuotesTotal.Add(ctx, failed, metric.WithAttributes(attribute.String("outcome", "failed")))

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("solve.metrics_recorded",
			trace.WithAttributes(
				attribute.String("run.id", runID),
				attribute.Int64("solved", solved),
				attribute.Int64("failed", failed),
				attribute.Float64("duration_seconds", duration.Seconds()),
			),
		)
	}
}

// RecordSolveIterations records the iteration count of one converged quote
func RecordSolveIterations(ctx context.Context, metrics *BusinessMetrics, iterations int64) {
	if metrics == nil {
		return
	}

	metrics.SolveIterations.Record(ctx, iterations)
}

// RecordActiveSolveChange records changes in in-flight batch count
func RecordActiveSolveChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}

	metrics.SolveActiveBatches.Add(ctx, delta)
}

// RecordGridMetrics records metrics for a grid build
func RecordGridMetrics(ctx context.Context, metrics *BusinessMetrics, runID string, duration time.Duration, observed, interpolated, missing int64) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
	}

	metrics.GridBuildsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.GridBuildDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	metrics.GridCellsTotal.Add(ctx, observed, metric.WithAttributes(attribute.String("provenance", "observed")))
	metrics.GridCellsTotal.Add(ctx, interpolated, metric.WithAttributes(attribute.String("provenance", "interpolated")))
	metrics.GridCellsTotal.Add(ctx, missing, metric.WithAttributes(attribute.String("provenance", "missing")))
}

// RecordMeshMetrics records metrics for a surface mesh extraction
func RecordMeshMetrics(ctx context.Context, metrics *BusinessMetrics, runID string, points int64) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("run.id", runID),
	}

	metrics.SurfaceMeshesTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.SurfaceMeshPoints.Record(ctx, points)
}

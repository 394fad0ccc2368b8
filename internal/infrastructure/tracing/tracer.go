// Package tracing provides OpenTelemetry-based distributed tracing
// infrastructure. It supports stdout and OTLP exporters and provides
// domain-specific span helpers for push, channel, and restore operations.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the clawsync tracer.
	TracerName = "github.com/jbctechsolutions/clawsync"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "clawsync",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: otel.Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	// The default resource's schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// PushSpan represents one dispatched push attempt across channels.
type PushSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartPushSpan starts a span for a dispatched push attempt.
func (t *Tracer) StartPushSpan(ctx context.Context, syncID string) (context.Context, *PushSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.push",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("sync.id", syncID),
		),
	)

	return ctx, &PushSpan{span: span, ctx: ctx}
}

// SetChannelsTried sets the number of channels the dispatcher walked.
func (ps *PushSpan) SetChannelsTried(count int) {
	ps.span.SetAttributes(attribute.Int("sync.channels_tried", count))
}

// SetWinningChannel records the channel that completed the push.
func (ps *PushSpan) SetWinningChannel(name string) {
	ps.span.SetAttributes(attribute.String("sync.channel", name))
}

// End ends the push span with success status.
func (ps *PushSpan) End() {
	ps.span.SetStatus(codes.Ok, "push completed")
	ps.span.End()
}

// EndWithFailure ends the push span with error status.
func (ps *PushSpan) EndWithFailure(kind, errMsg string) {
	ps.span.SetAttributes(attribute.String("sync.failure_kind", kind))
	ps.span.SetStatus(codes.Error, errMsg)
	ps.span.End()
}

// ChannelSpan represents a single channel's push attempt.
type ChannelSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartChannelSpan starts a span for one channel attempt.
func (t *Tracer) StartChannelSpan(ctx context.Context, channel string) (context.Context, *ChannelSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.channel",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("channel.name", channel),
		),
	)

	return ctx, &ChannelSpan{span: span, ctx: ctx}
}

// SetPayloadSize records the archive payload size in bytes.
func (cs *ChannelSpan) SetPayloadSize(size int) {
	cs.span.SetAttributes(attribute.Int("channel.payload_bytes", size))
}

// End ends the channel span with success status.
func (cs *ChannelSpan) End() {
	cs.span.SetStatus(codes.Ok, "channel push completed")
	cs.span.End()
}

// EndWithFailure ends the channel span with error status.
func (cs *ChannelSpan) EndWithFailure(kind, errMsg string) {
	cs.span.SetAttributes(attribute.String("channel.failure_kind", kind))
	cs.span.SetStatus(codes.Error, errMsg)
	cs.span.End()
}

// RestoreSpan represents a cold-start restore run.
type RestoreSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartRestoreSpan starts a span for a restore run.
func (t *Tracer) StartRestoreSpan(ctx context.Context) (context.Context, *RestoreSpan) {
	ctx, span := t.tracer.Start(ctx, "sync.restore",
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	return ctx, &RestoreSpan{span: span, ctx: ctx}
}

// SetLayout records the layout that completed the restore.
func (rs *RestoreSpan) SetLayout(layout string) {
	rs.span.SetAttributes(attribute.String("restore.layout", layout))
}

// SetSkipped marks the restore as skipped by marker arbitration.
func (rs *RestoreSpan) SetSkipped() {
	rs.span.SetAttributes(attribute.Bool("restore.skipped", true))
}

// End ends the restore span with success status.
func (rs *RestoreSpan) End() {
	rs.span.SetStatus(codes.Ok, "restore completed")
	rs.span.End()
}

// EndWithError ends the restore span with error status.
func (rs *RestoreSpan) EndWithError(err error) {
	rs.span.RecordError(err)
	rs.span.SetStatus(codes.Error, err.Error())
	rs.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}

// SetAttribute sets an attribute on the current span.
func SetAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	}
}

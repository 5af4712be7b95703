// Package tracing wires OpenTelemetry tracing for the worker: one span
// per processed envelope, exported over OTLP/HTTP.
package tracing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Config tunes the tracer.
type Config struct {
	Enabled      bool          `yaml:"enabled"`
	ServiceName  string        `yaml:"serviceName"`
	Endpoint     string        `yaml:"endpoint"`
	SampleRate   float64       `yaml:"sampleRate"`
	BatchTimeout time.Duration `yaml:"batchTimeout"`
	MaxBatchSize int           `yaml:"maxBatchSize"`
}

// DefaultConfig returns a disabled tracer pointed at a local collector.
func DefaultConfig() Config {
	return Config{
		ServiceName:  "streamteam-worker",
		Endpoint:     "localhost:4318",
		SampleRate:   0.1,
		BatchTimeout: 5 * time.Second,
		MaxBatchSize: 512,
	}
}

// Manager owns the tracer provider lifecycle.
type Manager struct {
	config   Config
	logger   *logrus.Logger
	provider *trace.TracerProvider
	tracer   oteltrace.Tracer
}

// NewManager builds the manager; disabled tracing yields a no-op tracer.
func NewManager(config Config, logger *logrus.Logger) (*Manager, error) {
	m := &Manager{config: config, logger: logger}
	if !config.Enabled {
		m.tracer = otel.Tracer("noop")
		return m, nil
	}

	exporter, err := otlptrace.New(context.Background(),
		otlptracehttp.NewClient(
			otlptracehttp.WithEndpoint(config.Endpoint),
			otlptracehttp.WithInsecure(),
		))
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(config.ServiceName),
	)

	m.provider = trace.NewTracerProvider(
		trace.WithBatcher(exporter,
			trace.WithBatchTimeout(config.BatchTimeout),
			trace.WithMaxExportBatchSize(config.MaxBatchSize),
		),
		trace.WithResource(res),
		trace.WithSampler(trace.TraceIDRatioBased(config.SampleRate)),
	)
	otel.SetTracerProvider(m.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	m.tracer = otel.Tracer(config.ServiceName)

	logger.WithFields(logrus.Fields{
		"service_name": config.ServiceName,
		"endpoint":     config.Endpoint,
		"sample_rate":  config.SampleRate,
	}).Info("Distributed tracing initialized")
	return m, nil
}

// StartEnvelopeSpan opens the per-envelope span.
func (m *Manager) StartEnvelopeSpan(ctx context.Context, stream, key string, offset int64) (context.Context, oteltrace.Span) {
	return m.tracer.Start(ctx, "process_envelope",
		oteltrace.WithAttributes(
			attribute.String("stream", stream),
			attribute.String("key", key),
			attribute.Int64("offset", offset),
		))
}

// Shutdown flushes pending spans.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}

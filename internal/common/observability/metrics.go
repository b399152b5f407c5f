package observability

import (
	"context"
	"log"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Observability bundles the otel meter and tracer used by Stage 2.
type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	stepCounter    otelmetric.Int64Counter
	stepDuration   otelmetric.Float64Histogram
}

type Option func(*options)

type options struct {
	registerer   promclient.Registerer
	spanExporter sdktrace.SpanExporter
	spanSyncer   sdktrace.SpanProcessor
}

// WithRegisterer exports metrics to reg instead of the default Prometheus registry.
func WithRegisterer(reg promclient.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithSpanProcessor attaches a span processor, e.g. a tracetest.SpanRecorder.
func WithSpanProcessor(p sdktrace.SpanProcessor) Option {
	return func(o *options) { o.spanSyncer = p }
}

// WithSpanExporter batches finished spans to exp.
func WithSpanExporter(exp sdktrace.SpanExporter) Option {
	return func(o *options) { o.spanExporter = exp }
}

func New(serviceName string, opts ...Option) *Observability {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	traceOpts := []sdktrace.TracerProviderOption{}
	if o.spanSyncer != nil {
		traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(o.spanSyncer))
	}
	if o.spanExporter != nil {
		traceOpts = append(traceOpts, sdktrace.WithBatcher(o.spanExporter))
	}
	tp := sdktrace.NewTracerProvider(traceOpts...)
	obs := &Observability{
		tracerProvider: tp,
		tracer:         tp.Tracer(serviceName),
	}

	exporterOpts := []otelprom.Option{}
	if o.registerer != nil {
		exporterOpts = append(exporterOpts, otelprom.WithRegisterer(o.registerer))
	}
	exporter, err := otelprom.New(exporterOpts...)
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return obs
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	if o.registerer == nil {
		otel.SetMeterProvider(provider)
		otel.SetTracerProvider(tp)
	}

	meter := provider.Meter(serviceName)
	stepCounter, _ := meter.Int64Counter(
		"stage2_steps",
		otelmetric.WithDescription("Stage 2 steps executed"),
	)
	stepDuration, _ := meter.Float64Histogram(
		"stage2_step_duration",
		otelmetric.WithDescription("Stage 2 step duration"),
		otelmetric.WithUnit("ms"),
	)

	obs.meterProvider = provider
	obs.meter = meter
	obs.stepCounter = stepCounter
	obs.stepDuration = stepDuration
	return obs
}

// NewNoop returns an instance whose spans are dropped and metrics discarded.
func NewNoop() *Observability {
	tp := sdktrace.NewTracerProvider()
	return &Observability{tracerProvider: tp, tracer: tp.Tracer("noop")}
}

// StartSpan opens a span named name as a child of any span already in ctx.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return o.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span, if any, and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// RecordStep counts one Stage 2 step and its duration.
func (o *Observability) RecordStep(ctx context.Context, step, status string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status),
	)
	if o.stepCounter != nil {
		o.stepCounter.Add(ctx, 1, attrs)
	}
	if o.stepDuration != nil {
		o.stepDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
	}
	if o.tracerProvider != nil {
		_ = o.tracerProvider.Shutdown(ctx)
	}
}

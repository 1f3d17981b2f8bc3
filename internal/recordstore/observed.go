package recordstore

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/dusk-indust/usercrud/internal/user"
)

const instrumentationName = "github.com/dusk-indust/usercrud/internal/recordstore"

// Compile-time assertion: *Observed satisfies Store.
var _ Store = (*Observed)(nil)

// Metrics holds the OpenTelemetry instruments recorded per store operation.
type Metrics struct {
	Ops      metric.Int64Counter
	Duration metric.Float64Histogram
	Errors   metric.Int64Counter
}

// Observed decorates a Store with logging, tracing and metrics. Every
// instrument is optional; a zero Observed behaves like the wrapped store.
type Observed struct {
	next    Store
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// ObserveOption configures an Observed store.
type ObserveOption func(*Observed)

// WithLogger logs every operation at debug level.
func WithLogger(l *slog.Logger) ObserveOption {
	return func(o *Observed) {
		o.logger = l
	}
}

// WithTracer sets the tracer used for per-operation spans.
func WithTracer(t trace.Tracer) ObserveOption {
	return func(o *Observed) {
		o.tracer = t
	}
}

// WithDefaultTracer uses the global OpenTelemetry tracer provider.
func WithDefaultTracer() ObserveOption {
	return func(o *Observed) {
		o.tracer = otel.Tracer(instrumentationName)
	}
}

// WithMeter creates the store instruments from meter.
func WithMeter(meter metric.Meter) ObserveOption {
	return func(o *Observed) {
		o.metrics = initMetrics(meter)
	}
}

// WithDefaultMeter uses the global OpenTelemetry meter provider.
func WithDefaultMeter() ObserveOption {
	return func(o *Observed) {
		o.metrics = initMetrics(otel.Meter(instrumentationName))
	}
}

// initMetrics creates the store instruments. Creation errors go to the otel
// error handler; an instrument the meter did not return is replaced by a no-op.
func initMetrics(meter metric.Meter) *Metrics {
	m := &Metrics{}
	var err error

	m.Ops, err = meter.Int64Counter("usercrud.store.ops",
		metric.WithDescription("Record store operations"),
		metric.WithUnit("{operation}"),
	)
	reportInstrumentErr(err)
	if m.Ops == nil {
		m.Ops = noop.Int64Counter{}
	}

	m.Duration, err = meter.Float64Histogram("usercrud.store.duration",
		metric.WithDescription("Record store operation duration in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 5, 10, 25, 50, 100, 250, 1000),
	)
	reportInstrumentErr(err)
	if m.Duration == nil {
		m.Duration = noop.Float64Histogram{}
	}

	m.Errors, err = meter.Int64Counter("usercrud.store.errors",
		metric.WithDescription("Record store operations that failed"),
		metric.WithUnit("{error}"),
	)
	reportInstrumentErr(err)
	if m.Errors == nil {
		m.Errors = noop.Int64Counter{}
	}
	return m
}

func reportInstrumentErr(err error) {
	if err != nil {
		otel.Handle(err)
	}
}

// Observe wraps next.
func Observe(next Store, opts ...ObserveOption) *Observed {
	o := &Observed{next: next}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Load implements Store.
func (o *Observed) Load(ctx context.Context) ([]user.User, error) {
	ctx, span := o.startSpan(ctx, "recordstore.Load")
	defer span.End()

	start := time.Now()
	users, err := o.next.Load(ctx)
	o.finish(ctx, span, "load", len(users), time.Since(start), err)
	return users, err
}

// Save implements Store.
func (o *Observed) Save(ctx context.Context, users []user.User) error {
	ctx, span := o.startSpan(ctx, "recordstore.Save")
	defer span.End()

	start := time.Now()
	err := o.next.Save(ctx, users)
	o.finish(ctx, span, "save", len(users), time.Since(start), err)
	return err
}

// spanWrapper tolerates a nil span so that tracing stays optional.
type spanWrapper struct {
	span trace.Span
}

func (w spanWrapper) End() {
	if w.span != nil {
		w.span.End()
	}
}

func (o *Observed) startSpan(ctx context.Context, name string) (context.Context, spanWrapper) {
	if o.tracer == nil {
		return ctx, spanWrapper{}
	}
	ctx, span := o.tracer.Start(ctx, name, trace.WithSpanKind(trace.SpanKindInternal))
	return ctx, spanWrapper{span}
}

func (o *Observed) finish(ctx context.Context, span spanWrapper, op string, count int, d time.Duration, err error) {
	if span.span != nil {
		span.span.SetAttributes(
			attribute.String("store.operation", op),
			attribute.Int("store.records", count),
		)
		if err != nil {
			span.span.RecordError(err)
			span.span.SetStatus(codes.Error, err.Error())
		}
	}

	if o.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("store.operation", op))
		o.metrics.Ops.Add(ctx, 1, attrs)
		o.metrics.Duration.Record(ctx, float64(d.Microseconds())/1000, attrs)
		if err != nil {
			o.metrics.Errors.Add(ctx, 1, attrs)
		}
	}

	if o.logger != nil {
		if err != nil {
			o.logger.LogAttrs(ctx, slog.LevelError, "recordstore operation failed",
				slog.String("operation", op),
				slog.Duration("duration", d),
				slog.String("error", err.Error()),
			)
			return
		}
		o.logger.LogAttrs(ctx, slog.LevelDebug, "recordstore operation",
			slog.String("operation", op),
			slog.Int("records", count),
			slog.Duration("duration", d),
		)
	}
}

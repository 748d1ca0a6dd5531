package database

import (
	"context"
	"time"

	"github.com/Aidin1998/todos/common/errors"
	"github.com/Aidin1998/todos/internal/todos"
	"github.com/Aidin1998/todos/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/Aidin1998/todos/internal/database"

// instrumented records Prometheus and OpenTelemetry metrics around every
// store call.
type instrumented struct {
	driver   string
	next     todos.Store
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

// Instrument wraps store so each operation is counted and timed. OTel
// instruments come from the global meter provider.
func Instrument(driver string, store todos.Store) todos.Store {
	return instrument(driver, store, otel.GetMeterProvider())
}

func instrument(driver string, store todos.Store, provider metric.MeterProvider) *instrumented {
	meter := provider.Meter(meterName)
	ops, err := meter.Int64Counter("todos.store.operations",
		metric.WithDescription("Storage operations by driver, operation and result"))
	if err != nil {
		otel.Handle(err)
	}
	duration, err := meter.Float64Histogram("todos.store.operation.duration",
		metric.WithDescription("Latency of storage operations"),
		metric.WithUnit("s"))
	if err != nil {
		otel.Handle(err)
	}
	return &instrumented{driver: driver, next: store, ops: ops, duration: duration}
}

func (s *instrumented) observe(ctx context.Context, op string, start time.Time, err error) {
	result := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errors.NotFound):
		result = "not_found"
	default:
		result = "error"
	}
	elapsed := time.Since(start).Seconds()
	metrics.StoreOperations.WithLabelValues(s.driver, op, result).Inc()
	metrics.StoreOperationDuration.WithLabelValues(s.driver, op).Observe(elapsed)

	attrs := metric.WithAttributes(
		attribute.String("driver", s.driver),
		attribute.String("op", op),
		attribute.String("result", result))
	if s.ops != nil {
		s.ops.Add(ctx, 1, attrs)
	}
	if s.duration != nil {
		s.duration.Record(ctx, elapsed, attrs)
	}
}

func (s *instrumented) Create(ctx context.Context, t *todos.Todo) (err error) {
	defer func(start time.Time) { s.observe(ctx, "create", start, err) }(time.Now())
	return s.next.Create(ctx, t)
}

func (s *instrumented) FindAll(ctx context.Context) (list []*todos.Todo, err error) {
	defer func(start time.Time) { s.observe(ctx, "find_all", start, err) }(time.Now())
	return s.next.FindAll(ctx)
}

func (s *instrumented) FindByID(ctx context.Context, id todos.ID) (t *todos.Todo, err error) {
	defer func(start time.Time) { s.observe(ctx, "find_by_id", start, err) }(time.Now())
	return s.next.FindByID(ctx, id)
}

func (s *instrumented) FindByIDAndRemove(ctx context.Context, id todos.ID) (t *todos.Todo, err error) {
	defer func(start time.Time) { s.observe(ctx, "find_and_remove", start, err) }(time.Now())
	return s.next.FindByIDAndRemove(ctx, id)
}

func (s *instrumented) FindByIDAndUpdate(ctx context.Context, id todos.ID, u todos.Update) (t *todos.Todo, err error) {
	defer func(start time.Time) { s.observe(ctx, "find_and_update", start, err) }(time.Now())
	return s.next.FindByIDAndUpdate(ctx, id, u)
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumented) Close(ctx context.Context) error {
	return s.next.Close(ctx)
}

package repository

import (
	"context"
	"errors"

	"github.com/RoGogDBD/items/internal/models"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/RoGogDBD/items/internal/repository"

// InstrumentedStore пишет span и счетчик items.store.operations на каждую операцию.
type InstrumentedStore struct {
	next   ItemStore
	tracer trace.Tracer
	ops    metric.Int64Counter
}

func NewInstrumentedStore(next ItemStore) (*InstrumentedStore, error) {
	ops, err := otel.Meter(instrumentationName).Int64Counter(
		"items.store.operations",
		metric.WithDescription("Item store operations by outcome"),
	)
	if err != nil {
		return nil, err
	}
	return &InstrumentedStore{
		next:   next,
		tracer: otel.Tracer(instrumentationName),
		ops:    ops,
	}, nil
}

func (s *InstrumentedStore) List(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := s.observe(ctx, "list", func(ctx context.Context) error {
		var err error
		items, err = s.next.List(ctx)
		return err
	})
	return items, err
}

func (s *InstrumentedStore) Get(ctx context.Context, id uuid.UUID) (models.Item, error) {
	var it models.Item
	err := s.observe(ctx, "get", func(ctx context.Context) error {
		var err error
		it, err = s.next.Get(ctx, id)
		return err
	}, attribute.String("item.id", id.String()))
	return it, err
}

func (s *InstrumentedStore) Insert(ctx context.Context, n models.NewItem) (models.Item, error) {
	var it models.Item
	err := s.observe(ctx, "insert", func(ctx context.Context) error {
		var err error
		it, err = s.next.Insert(ctx, n)
		return err
	})
	return it, err
}

func (s *InstrumentedStore) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	var deleted bool
	err := s.observe(ctx, "delete", func(ctx context.Context) error {
		var err error
		deleted, err = s.next.Delete(ctx, id)
		return err
	}, attribute.String("item.id", id.String()))
	return deleted, err
}

func (s *InstrumentedStore) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *InstrumentedStore) observe(ctx context.Context, op string, fn func(context.Context) error, attrs ...attribute.KeyValue) error {
	ctx, span := s.tracer.Start(ctx, "ItemStore."+op, trace.WithAttributes(attrs...))
	defer span.End()

	err := fn(ctx)
	outcome := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	s.ops.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("outcome", outcome),
	))
	return err
}

package service

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/iliyamo/golf-ops/internal/logger"
	"github.com/iliyamo/golf-ops/internal/model"
	"github.com/iliyamo/golf-ops/internal/queue"
)

var tracer = otel.Tracer("github.com/iliyamo/golf-ops/internal/service")

// Service runs the lifecycle, compensation and status operations.
type Service struct {
	store          Store
	events         Publisher
	replenishSpare bool
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the destination of lifecycle and audit events.
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithSpareReplenish toggles the spare-pool top-up after a cart
// replacement.  It is on by default.
func WithSpareReplenish(on bool) Option {
	return func(s *Service) { s.replenishSpare = on }
}

// New returns a Service over store.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, replenishSpare: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// run wraps one operation in a span and a transaction.
func (s *Service) run(ctx context.Context, op string, caller model.Caller, fn func(ctx context.Context, tx Tx) error) error {
	ctx, span := tracer.Start(ctx, "service."+op)
	defer span.End()
	span.SetAttributes(
		attribute.Int64("caller.id", int64(caller.UserID)),
		attribute.String("caller.role", string(caller.Role)),
	)
	err := s.store.WithTx(ctx, func(tx Tx) error { return fn(ctx, tx) })
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *Service) publishBooking(ctx context.Context, action string, caller model.Caller, b *model.Booking) {
	if s.events == nil || b == nil {
		return
	}
	ev := queue.NewBookingEvent(action, caller, b)
	if err := s.events.PublishBookingEvent(ctx, ev); err != nil {
		logger.WarnLogger.WithError(err).WithField("booking_id", b.ID).Warnf("publish %s failed", ev.RoutingKey())
	}
}

func (s *Service) publishAudit(ctx context.Context, entry *model.AuditEntry) {
	if s.events == nil || entry == nil {
		return
	}
	ev := queue.NewAuditEvent(*entry)
	if err := s.events.PublishAuditEvent(ctx, ev); err != nil {
		logger.WarnLogger.WithError(err).WithField("entity_id", entry.EntityID).Warnf("publish %s failed", ev.RoutingKey())
	}
}

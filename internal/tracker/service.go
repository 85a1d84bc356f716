// Package tracker implements coin identity resolution, the coin upsert
// merge and the trade/tip lifecycles on top of a storage.Store.
//
// Every operation that writes more than one record runs inside a single
// Store.Update so partial writes are never visible. Events are published
// to notifiers only after the unit of work has committed.
package tracker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/idhash"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

// Notifier receives committed state changes.
// Notify must not block; slow consumers should queue internally.
type Notifier interface {
	Notify(ctx context.Context, e domain.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, e domain.Event)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, e domain.Event) { f(ctx, e) }

// Service is the tracker core.
type Service struct {
	store      storage.Store
	log        *zap.Logger
	now        func() time.Time
	newTradeID idhash.Generator
	notifiers  []Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithClock sets the clock used to stamp events.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTradeIDGenerator replaces the trade_id generator.
func WithTradeIDGenerator(g idhash.Generator) Option {
	return func(s *Service) { s.newTradeID = g }
}

// WithNotifier adds a notifier. Notifiers are called in registration order.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifiers = append(s.notifiers, n) }
}

// New creates a Service over store.
func New(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store:      store,
		log:        zap.NewNop(),
		now:        time.Now,
		newTradeID: idhash.NewTradeID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks the underlying store.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return domain.Unavailable("storage unavailable: " + err.Error())
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e domain.Event) {
	e.At = s.now().UTC()
	for _, n := range s.notifiers {
		n.Notify(ctx, e)
	}
}

// observe records the outcome of op and logs unexpected failures.
func (s *Service) observe(op string, err error) {
	outcome := outcomeOf(err)
	observability.RecordTrackerOp(op, outcome)
	if outcome == "error" || outcome == "unavailable" {
		s.log.Error("tracker operation failed", zap.String("op", op), zap.Error(err))
	}
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

// notFound maps storage.ErrNotFound to a caller-facing NotFound error.
func notFound(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.NotFound(msg)
	}
	return err
}

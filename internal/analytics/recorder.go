// Package analytics forwards closed trades and tracked tips to the
// outcome store.
package analytics

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"memedesk/internal/domain"
	"memedesk/internal/observability"
	"memedesk/internal/storage"
)

// DefaultBufferSize is the number of events queued before new ones are dropped.
const DefaultBufferSize = 256

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("recorder closed")

// Recorder turns tracker events into outcome rows. Notify never blocks:
// when the queue is full the event is dropped and counted.
type Recorder struct {
	store   storage.OutcomeStore
	log     *zap.Logger
	now     func() time.Time
	timeout time.Duration

	events    chan domain.Event
	closeOnce sync.Once
	done      chan struct{}
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Recorder) {
		r.log = l
	}
}

// WithBufferSize sets the queue length.
func WithBufferSize(n int) Option {
	return func(r *Recorder) {
		if n > 0 {
			r.events = make(chan domain.Event, n)
		}
	}
}

// WithClock overrides the recorded_at time source.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) {
		r.now = now
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store storage.OutcomeStore, opts ...Option) *Recorder {
	r := &Recorder{
		store:   store,
		log:     zap.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 5 * time.Second,
		events:  make(chan domain.Event, DefaultBufferSize),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Notify queues e if it carries an outcome.
func (r *Recorder) Notify(_ context.Context, e domain.Event) {
	if !relevant(e) {
		return
	}
	select {
	case <-r.done:
		return
	default:
	}
	select {
	case r.events <- e:
	default:
		observability.RecordOutcomeDropped()
		r.log.Warn("outcome queue full, event dropped", zap.String("type", string(e.Type)))
	}
}

func relevant(e domain.Event) bool {
	switch e.Type {
	case domain.EventTradeClosed, domain.EventTradeUpdated:
		return e.Trade != nil && e.Trade.ExitTS != nil
	case domain.EventTipCreated, domain.EventTipUpdated:
		return e.Tip != nil
	}
	return false
}

// Run writes queued events until ctx is cancelled or Close is called,
// then drains what is left.
func (r *Recorder) Run(ctx context.Context) error {
	for {
		select {
		case e := <-r.events:
			r.record(ctx, e)
		case <-ctx.Done():
			r.drain()
			return ctx.Err()
		case <-r.done:
			r.drain()
			return ErrClosed
		}
	}
}

func (r *Recorder) drain() {
	for {
		select {
		case e := <-r.events:
			r.record(context.Background(), e)
		default:
			return
		}
	}
}

// Close stops Run. Events queued before Close are still written.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.done) })
}

func (r *Recorder) record(ctx context.Context, e domain.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	var (
		kind string
		err  error
	)
	switch {
	case e.Trade != nil:
		kind = "trade"
		if o := domain.NewTradeOutcome(e.Trade, r.now()); o != nil {
			err = r.store.InsertTradeOutcome(ctx, o)
		}
	case e.Tip != nil:
		kind = "tip"
		err = r.store.InsertTipOutcome(ctx, domain.NewTipOutcome(e.Tip, r.now()))
	default:
		return
	}

	observability.RecordOutcome(kind, err)
	if err != nil {
		r.log.Error("record outcome", zap.String("kind", kind), zap.String("type", string(e.Type)), zap.Error(err))
	}
}

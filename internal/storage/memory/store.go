package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"memedesk/internal/domain"
	"memedesk/internal/storage"
)

// Store is an in-memory implementation of storage.Store.
//
// Update works on a copy of the current state and publishes it only when
// fn succeeds, so a failed unit of work leaves no trace. Stored records are
// never mutated in place; writers replace them with modified copies, which
// keeps the shallow map copies of clone safe.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for server-side timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates an empty in-memory store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		st:  newState(),
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Compile-time interface checks.
var (
	_ storage.Store      = (*Store)(nil)
	_ storage.Repository = (*repo)(nil)
)

// View runs fn against the current state. Writes fail with ErrReadOnly.
func (s *Store) View(_ context.Context, fn func(storage.Repository) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&repo{st: s.st, now: s.now(), readOnly: true})
}

// Update runs fn on a copy of the state and commits it when fn returns nil.
func (s *Store) Update(_ context.Context, fn func(storage.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.st.clone()
	if err := fn(&repo{st: next, now: s.now()}); err != nil {
		return err
	}
	s.st = next
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
}

type accountKey struct {
	platform string
	handle   string
}

type state struct {
	coins        map[domain.CoinKey]*domain.Coin
	trades       map[string]*domain.Trade
	tips         map[int64]*domain.Tip
	accounts     map[int64]*domain.Account
	accountIDs   map[accountKey]int64
	tradeBubbles map[string]*domain.Bubbles
	tipBubbles   map[int64]*domain.Bubbles
	coinBubbles  map[domain.CoinKey]*domain.Bubbles
	tradeScores  map[string][]*domain.Score
	tipScores    map[int64][]*domain.Score
	coinScores   []*domain.Score
	context      domain.ActiveContext

	// last assigned surrogate ids
	lastTradeID   int64
	lastTipID     int64
	lastAccountID int64
	lastScoreID   int64
}

func newState() *state {
	return &state{
		coins:        make(map[domain.CoinKey]*domain.Coin),
		trades:       make(map[string]*domain.Trade),
		tips:         make(map[int64]*domain.Tip),
		accounts:     make(map[int64]*domain.Account),
		accountIDs:   make(map[accountKey]int64),
		tradeBubbles: make(map[string]*domain.Bubbles),
		tipBubbles:   make(map[int64]*domain.Bubbles),
		coinBubbles:  make(map[domain.CoinKey]*domain.Bubbles),
		tradeScores:  make(map[string][]*domain.Score),
		tipScores:    make(map[int64][]*domain.Score),
		context:      domain.ActiveContext{ID: 1},
	}
}

func (s *state) clone() *state {
	c := *s
	c.coins = maps.Clone(s.coins)
	c.trades = maps.Clone(s.trades)
	c.tips = maps.Clone(s.tips)
	c.accounts = maps.Clone(s.accounts)
	c.accountIDs = maps.Clone(s.accountIDs)
	c.tradeBubbles = maps.Clone(s.tradeBubbles)
	c.tipBubbles = maps.Clone(s.tipBubbles)
	c.coinBubbles = maps.Clone(s.coinBubbles)
	c.tradeScores = maps.Clone(s.tradeScores)
	c.tipScores = maps.Clone(s.tipScores)
	c.coinScores = slices.Clone(s.coinScores)
	return &c
}

// repo implements storage.Repository over one state snapshot.
// now is fixed for the unit of work, like a database transaction timestamp.
type repo struct {
	st       *state
	now      time.Time
	readOnly bool
}

func (r *repo) writable() error {
	if r.readOnly {
		return storage.ErrReadOnly
	}
	return nil
}

func cloneBubbles(b *domain.Bubbles) *domain.Bubbles {
	if b == nil {
		return nil
	}
	return &domain.Bubbles{
		Clusters: slices.Clone(b.Clusters),
		Others:   slices.Clone(b.Others),
	}
}

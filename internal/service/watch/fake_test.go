package watch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var (
	btcusdt = exchange.TradingPair{Base: "BTC", Quote: "USDT"}
	ethusdt = exchange.TradingPair{Base: "ETH", Quote: "USDT"}
)

type recordingNotifier struct {
	mu         sync.Mutex
	bootstraps []ChangeEvent
	changes    []ChangeEvent
	summaries  []Snapshot
	errors     []string
}

func (n *recordingNotifier) OnBootstrap(id MetricID, value decimal.Decimal) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bootstraps = append(n.bootstraps, ChangeEvent{ID: id, Current: value})
}

func (n *recordingNotifier) OnChange(event ChangeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, event)
}

func (n *recordingNotifier) OnSummary(snapshot Snapshot) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.summaries = append(n.summaries, snapshot)
}

func (n *recordingNotifier) OnError(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *recordingNotifier) counts() (bootstraps, changes, summaries, errs int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.bootstraps), len(n.changes), len(n.summaries), len(n.errors)
}

func (n *recordingNotifier) bootstrapIDs() []MetricID {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]MetricID, 0, len(n.bootstraps))
	for _, e := range n.bootstraps {
		ids = append(ids, e.ID)
	}
	return ids
}

// fakeSession serves values from maps; a missing key means ErrNoData.
type fakeSession struct {
	mu         sync.Mutex
	prices     map[exchange.TradingPair]decimal.Decimal
	priceErr   error
	balances   map[string]decimal.Decimal
	balanceErr map[string]error
	positions  map[exchange.TradingPair]exchange.Position
	funding    map[exchange.TradingPair]exchange.FundingRate
	err        error

	subscribeErr error
	// onPrice runs inside Price before the lookup, outside the lock
	onPrice func(call int64)

	priceCalls atomic.Int64
	inflight   atomic.Int32
	maxFlight  atomic.Int32
	subscribed atomic.Bool
	closed     atomic.Bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		prices:     make(map[exchange.TradingPair]decimal.Decimal),
		balances:   make(map[string]decimal.Decimal),
		balanceErr: make(map[string]error),
		positions:  make(map[exchange.TradingPair]exchange.Position),
		funding:    make(map[exchange.TradingPair]exchange.FundingRate),
	}
}

func (s *fakeSession) setPrice(pair exchange.TradingPair, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[pair] = decimal.RequireFromString(v)
}

func (s *fakeSession) setBalance(asset, v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[asset] = decimal.RequireFromString(v)
}

func (s *fakeSession) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSession) Price(pair exchange.TradingPair) (decimal.Decimal, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	if n > s.maxFlight.Load() {
		s.maxFlight.Store(n)
	}
	call := s.priceCalls.Add(1)
	if s.onPrice != nil {
		s.onPrice(call)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.priceErr != nil {
		return decimal.Zero, s.priceErr
	}
	p, ok := s.prices[pair]
	if !ok {
		return decimal.Zero, exchange.ErrNoData
	}
	return p, nil
}

func (s *fakeSession) Funding(pair exchange.TradingPair) (exchange.FundingRate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.funding[pair]
	if !ok {
		return exchange.FundingRate{}, exchange.ErrNoData
	}
	return f, nil
}

func (s *fakeSession) Balance(asset string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.balanceErr[asset]; err != nil {
		return decimal.Zero, err
	}
	b, ok := s.balances[asset]
	if !ok {
		return decimal.Zero, exchange.ErrNoData
	}
	return b, nil
}

func (s *fakeSession) Position(pair exchange.TradingPair) (exchange.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.positions[pair]
	if !ok {
		return exchange.Position{}, exchange.ErrNoData
	}
	return p, nil
}

func (s *fakeSession) Subscribe(ctx context.Context) error {
	if s.subscribeErr != nil {
		return s.subscribeErr
	}
	s.subscribed.Store(true)
	return nil
}

func (s *fakeSession) Diagnose(ctx context.Context) error {
	return nil
}

func (s *fakeSession) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *fakeSession) Close() error {
	s.closed.Store(true)
	return nil
}

// manualTicker behaves like time.Ticker with a one-slot buffer, but only
// fires when the test says so.
type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time, 1)}
}

func (t *manualTicker) C() <-chan time.Time {
	return t.ch
}

func (t *manualTicker) Stop() {
	t.stopped.Store(true)
}

// Fire reports false when a tick is already pending and this one is dropped.
func (t *manualTicker) Fire() bool {
	select {
	case t.ch <- time.Now():
		return true
	default:
		return false
	}
}

const (
	testFast = 100 * time.Millisecond
	testSlow = 30 * time.Second
)

type manualTickers struct {
	fast *manualTicker
	slow *manualTicker
}

func newManualTickers() *manualTickers {
	return &manualTickers{fast: newManualTicker(), slow: newManualTicker()}
}

func (m *manualTickers) factory(d time.Duration) Ticker {
	if d == testFast {
		return m.fast
	}
	return m.slow
}

func testConfig() Config {
	return Config{
		FastInterval:      testFast,
		SlowInterval:      testSlow,
		ReconnectCooldown: time.Second,
		ErrorLogInterval:  time.Hour,
	}
}

package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSampler(t *testing.T, ms []Metric, n Notifier, errInterval time.Duration) (*Sampler, *State) {
	state := NewState()
	for _, m := range ms {
		require.NoError(t, state.Register(m.ID, m.Policy))
	}
	return NewSampler(ms, state, n, errInterval, zerolog.Nop()), state
}

func TestSampler_BootstrapThenChange(t *testing.T) {
	n := &recordingNotifier{}
	sampler, _ := newTestSampler(t, []Metric{PriceMetric(btcusdt, Exact()), BalanceMetric("usdc")}, n, time.Hour)
	session := newFakeSession()
	session.setPrice(btcusdt, "60000")
	session.setBalance("USDC", "1000")

	require.NoError(t, sampler.Sample(context.Background(), session))
	assert.Equal(t, []MetricID{"price:BTCUSDT", "balance:USDC"}, n.bootstrapIDs())

	require.NoError(t, sampler.Sample(context.Background(), session))
	_, changes, _, _ := n.counts()
	assert.Equal(t, 0, changes)

	session.setPrice(btcusdt, "60001")
	require.NoError(t, sampler.Sample(context.Background(), session))
	require.Len(t, n.changes, 1)
	assert.Equal(t, MetricID("price:BTCUSDT"), n.changes[0].ID)
	assert.True(t, decimalx.MustFromString("60000").Equal(n.changes[0].Previous.Decimal))
}

func TestSampler_UnavailableIsSilent(t *testing.T) {
	n := &recordingNotifier{}
	ms := []Metric{
		PriceMetric(btcusdt, Exact()),
		BalanceMetric("USDC"),
		PositionMetric(btcusdt),
		PnlMetric(btcusdt),
		FundingMetric(ethusdt),
		Funding24hMetric(ethusdt),
	}
	sampler, state := newTestSampler(t, ms, n, time.Hour)
	session := newFakeSession()

	require.NoError(t, sampler.Sample(context.Background(), session))
	b, c, _, e := n.counts()
	assert.Zero(t, b)
	assert.Zero(t, c)
	assert.Zero(t, e)
	for _, r := range state.Snapshot() {
		assert.False(t, r.Value.Valid, r.ID)
	}
}

func TestSampler_PnlUsesSameTickPrice(t *testing.T) {
	n := &recordingNotifier{}
	sampler, state := newTestSampler(t, []Metric{PnlMetric(btcusdt), PositionMetric(btcusdt), PriceMetric(btcusdt, Exact())}, n, time.Hour)
	session := newFakeSession()
	session.positions[btcusdt] = exchange.Position{
		TradingPair: btcusdt,
		EntryPrice:  decimalx.MustFromString("60000"),
		Quantity:    decimalx.MustFromString("0.5"),
	}

	// no price yet: pnl is unavailable, position size is not
	require.NoError(t, sampler.Sample(context.Background(), session))
	assert.Equal(t, []MetricID{"position:BTCUSDT"}, n.bootstrapIDs())

	session.setPrice(btcusdt, "62000")
	require.NoError(t, sampler.Sample(context.Background(), session))
	pnl, _ := state.Snapshot().Get("pnl:BTCUSDT")
	require.True(t, pnl.Valid)
	assert.True(t, decimalx.MustFromString("1000").Equal(pnl.Decimal), pnl.Decimal.String())

	// price is fetched once per tick even though two metrics need it
	assert.Equal(t, int64(2), session.priceCalls.Load())
}

func TestSampler_ShortPositionPnl(t *testing.T) {
	n := &recordingNotifier{}
	sampler, state := newTestSampler(t, []Metric{PriceMetric(btcusdt, Exact()), PnlMetric(btcusdt)}, n, time.Hour)
	session := newFakeSession()
	session.setPrice(btcusdt, "59000")
	session.positions[btcusdt] = exchange.Position{
		EntryPrice: decimalx.MustFromString("60000"),
		Quantity:   decimalx.MustFromString("-0.1"),
	}

	require.NoError(t, sampler.Sample(context.Background(), session))
	pnl, _ := state.Snapshot().Get("pnl:BTCUSDT")
	assert.True(t, decimalx.MustFromString("100").Equal(pnl.Decimal), pnl.Decimal.String())
}

func TestSampler_ErrorsAreRateLimited(t *testing.T) {
	n := &recordingNotifier{}
	sampler, _ := newTestSampler(t, []Metric{BalanceMetric("USDC"), PriceMetric(btcusdt, Exact())}, n, time.Hour)
	session := newFakeSession()
	session.balanceErr["USDC"] = errors.New("api: -1021 timestamp outside recvWindow")
	session.setPrice(btcusdt, "60000")

	for i := 0; i < 3; i++ {
		require.NoError(t, sampler.Sample(context.Background(), session))
	}

	_, _, _, errs := n.counts()
	assert.Equal(t, 1, errs)
	assert.Contains(t, n.errors[0], "balance:USDC")
	// the failing metric does not stop the others
	assert.Equal(t, []MetricID{"price:BTCUSDT"}, n.bootstrapIDs())
}

func TestSampler_ConnectionLost(t *testing.T) {
	testCases := []struct {
		name    string
		prepare func(s *fakeSession)
	}{
		{
			name: "session error",
			prepare: func(s *fakeSession) {
				s.setErr(exchange.ErrConnectionLost)
			},
		},
		{
			name: "source error",
			prepare: func(s *fakeSession) {
				s.priceErr = exchange.ErrConnectionLost
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := &recordingNotifier{}
			sampler, _ := newTestSampler(t, []Metric{PriceMetric(btcusdt, Exact())}, n, time.Hour)
			session := newFakeSession()
			tc.prepare(session)

			err := sampler.Sample(context.Background(), session)
			assert.ErrorIs(t, err, exchange.ErrConnectionLost)
			_, _, _, errs := n.counts()
			assert.Zero(t, errs)
		})
	}
}

func TestSampler_UnregisteredMetricFailsFast(t *testing.T) {
	n := &recordingNotifier{}
	state := NewState()
	sampler := NewSampler([]Metric{PriceMetric(btcusdt, Exact())}, state, n, time.Hour, zerolog.Nop())
	session := newFakeSession()
	session.setPrice(btcusdt, "1")

	err := sampler.Sample(context.Background(), session)
	assert.ErrorIs(t, err, ErrUnknownMetric)
}

func TestSampler_Funding(t *testing.T) {
	n := &recordingNotifier{}
	sampler, state := newTestSampler(t, []Metric{FundingMetric(ethusdt), Funding24hMetric(ethusdt)}, n, time.Hour)
	session := newFakeSession()
	session.funding[ethusdt] = exchange.FundingRate{
		TradingPair: ethusdt,
		Current:     decimalx.MustFromString("0.0001"),
	}

	require.NoError(t, sampler.Sample(context.Background(), session))
	assert.Equal(t, []MetricID{"funding:ETHUSDT"}, n.bootstrapIDs())

	session.funding[ethusdt] = exchange.FundingRate{
		TradingPair: ethusdt,
		Current:     decimalx.MustFromString("0.0001"),
		Average24h:  decimal.NewNullDecimal(decimalx.MustFromString("0.00008")),
	}
	require.NoError(t, sampler.Sample(context.Background(), session))
	avg, _ := state.Snapshot().Get("funding24h:ETHUSDT")
	assert.True(t, avg.Valid)
	assert.Equal(t, []MetricID{"funding:ETHUSDT", "funding24h:ETHUSDT"}, n.bootstrapIDs())
}

package watch

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMetrics(t *testing.T) {
	threshold := 0.01
	ms, err := BuildMetrics(Targets{
		Market:         "BTC/USDT",
		PriceThreshold: &threshold,
		Assets:         []string{"usdc", "BNB", "USDC"},
		FundingMarkets: []string{"BTCUSDT", "ETHUSDT", "SOLUSDT", "ETHUSDT"},
	})
	require.NoError(t, err)

	ids := lo.Map(ms, func(m Metric, _ int) MetricID { return m.ID })
	assert.Equal(t, []MetricID{
		"price:BTCUSDT",
		"balance:USDC",
		"balance:BNB",
		"position:BTCUSDT",
		"pnl:BTCUSDT",
		"funding:BTCUSDT",
		"funding24h:BTCUSDT",
		"funding:ETHUSDT",
		"funding24h:ETHUSDT",
		"funding:SOLUSDT",
		"funding24h:SOLUSDT",
	}, ids)

	assert.Equal(t, RelativeThreshold, ms[0].Policy.Mode)
	for _, m := range ms[1:] {
		assert.Equal(t, ExactChange, m.Policy.Mode, m.ID)
	}
}

func TestBuildMetrics_Invalid(t *testing.T) {
	negative := -0.5
	testCases := []struct {
		name    string
		targets Targets
	}{
		{name: "no market", targets: Targets{}},
		{name: "bad market", targets: Targets{Market: "BTC"}},
		{name: "negative threshold", targets: Targets{Market: "BTCUSDT", PriceThreshold: &negative}},
		{name: "bad funding market", targets: Targets{Market: "BTCUSDT", FundingMarkets: []string{"/USDT"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := BuildMetrics(tc.targets)
			assert.Error(t, err)
		})
	}
}

func TestBuildMetrics_ExactPriceWithoutThreshold(t *testing.T) {
	ms, err := BuildMetrics(Targets{Market: "ETHUSDT"})
	require.NoError(t, err)
	assert.Equal(t, ExactChange, ms[0].Policy.Mode)
	assert.Len(t, ms, 3)
}

func TestBuildMetrics_FundingMarketSpellings(t *testing.T) {
	ms, err := BuildMetrics(Targets{
		Market:         "BTCUSDT",
		FundingMarkets: []string{"BTCUSDT", "BTC/USDT", "btc-usdt", "ETH_USDT", "ETHUSDT"},
	})
	require.NoError(t, err)

	ids := lo.Map(ms, func(m Metric, _ int) MetricID { return m.ID })
	assert.Equal(t, []MetricID{
		"price:BTCUSDT",
		"position:BTCUSDT",
		"pnl:BTCUSDT",
		"funding:BTCUSDT",
		"funding24h:BTCUSDT",
		"funding:ETHUSDT",
		"funding24h:ETHUSDT",
	}, ids)

	// every id must register cleanly
	state := NewState()
	for _, m := range ms {
		require.NoError(t, state.Register(m.ID, m.Policy))
	}
}

package notification

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConsole() (*Console, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	clock := func() time.Time { return time.Date(2024, 5, 1, 12, 34, 56, 0, time.UTC) }
	return NewConsole(buf, WithClock(clock)), buf
}

func change(id watch.MetricID, prev, cur string) watch.ChangeEvent {
	return watch.ChangeEvent{
		ID:       id,
		Previous: decimal.NewNullDecimal(decimalx.MustFromString(prev)),
		Current:  decimalx.MustFromString(cur),
	}
}

func TestConsole_Events(t *testing.T) {
	testCases := []struct {
		name   string
		notify func(c *Console)
		want   string
	}{
		{
			name: "price bootstrap",
			notify: func(c *Console) {
				c.OnBootstrap("price:BTCUSDT", decimalx.MustFromString("61234.5"))
			},
			want: "12:34:56 📈 Price: BTCUSDT 61,234.5 (first known value)",
		},
		{
			name: "bootstrap event routed through OnChange",
			notify: func(c *Console) {
				c.OnChange(watch.ChangeEvent{ID: "balance:USDC", Current: decimalx.MustFromString("0")})
			},
			want: "12:34:56 💰 Balance: USDC 0.000000 (first known value)",
		},
		{
			name: "price up",
			notify: func(c *Console) {
				c.OnChange(change("price:BTCUSDT", "60000", "61000"))
			},
			want: "12:34:56 📈 Price: BTCUSDT 61,000 +1.67%",
		},
		{
			name: "price down",
			notify: func(c *Console) {
				c.OnChange(change("price:BTCUSDT", "100", "98.5"))
			},
			want: "12:34:56 📈 Price: BTCUSDT 98.5 -1.50%",
		},
		{
			name: "price from zero has no percentage",
			notify: func(c *Console) {
				c.OnChange(change("price:BTCUSDT", "0", "1"))
			},
			want: "12:34:56 📈 Price: BTCUSDT 1 (+1.000000)",
		},
		{
			name: "balance delta",
			notify: func(c *Console) {
				c.OnChange(change("balance:USDC", "1000", "1012.5"))
			},
			want: "12:34:56 💰 Balance: USDC 1,012.500000 (+12.500000)",
		},
		{
			name: "position delta",
			notify: func(c *Console) {
				c.OnChange(change("position:BTCUSDT", "0.5", "0.25"))
			},
			want: "12:34:56 📊 Position: BTCUSDT 0.250000 (-0.250000)",
		},
		{
			name: "pnl",
			notify: func(c *Console) {
				c.OnChange(change("pnl:BTCUSDT", "100", "-50.125"))
			},
			want: "12:34:56 📊 PnL: BTCUSDT -$50.13 (-$150.13)",
		},
		{
			name: "funding",
			notify: func(c *Console) {
				c.OnChange(change("funding:ETHUSDT", "0.0001", "0.00015"))
			},
			want: "12:34:56 💸 Funding Rate: ETHUSDT +0.015000% (+0.005000%)",
		},
		{
			name: "error",
			notify: func(c *Console) {
				c.OnError("Monitor failed: connection lost. Reconnecting in 10s...")
			},
			want: "❌ Monitor failed: connection lost. Reconnecting in 10s...",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, buf := newTestConsole()
			tc.notify(c)
			assert.Equal(t, tc.want+"\n", buf.String())
		})
	}
}

func TestConsole_SummaryMarksMissingValues(t *testing.T) {
	c, buf := newTestConsole()
	c.OnSummary(watch.Snapshot{
		{ID: "price:BTCUSDT", Value: decimal.NewNullDecimal(decimalx.MustFromString("61000"))},
		{ID: "balance:USDC", Value: decimal.NewNullDecimal(decimal.Zero)},
		{ID: "balance:BNB"},
		{ID: "funding24h:ETHUSDT"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, strings.Repeat("─", Width), lines[0])
	assert.Equal(t, "📋 Current Status 12:34:56", lines[1])
	assert.Equal(t, "  BTCUSDT Price: 61,000", lines[2])
	// 观测到的 0 与从未观测到要区分
	assert.Equal(t, "  USDC Balance: 0.000000", lines[3])
	assert.Equal(t, "  BNB Balance: No data yet", lines[4])
	assert.Equal(t, "  ETHUSDT Funding Rate (24h avg): No data yet", lines[5])
	assert.Equal(t, strings.Repeat("─", Width), lines[6])
}

func TestConsole_Header(t *testing.T) {
	c, buf := newTestConsole()
	c.Header("Account Monitor", "Market: BTCUSDT", "Price monitoring: threshold(1%)")
	c.Info("account data unavailable")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, strings.Repeat("═", Width)+"\n"))
	assert.Contains(t, out, "  🚀 Account Monitor\n")
	assert.Contains(t, out, "  Market: BTCUSDT\n")
	assert.Contains(t, out, "ℹ️  account data unavailable\n")
}

func TestWithCommas(t *testing.T) {
	testCases := []struct {
		v      string
		places int32
		want   string
	}{
		{v: "0", places: 2, want: "0.00"},
		{v: "999.999", places: 2, want: "1,000.00"},
		{v: "-1234567.891", places: 3, want: "-1,234,567.891"},
		{v: "61234.50000", places: -1, want: "61,234.5"},
		{v: "-0.5", places: 6, want: "-0.500000"},
	}
	for _, tc := range testCases {
		t.Run(tc.v, func(t *testing.T) {
			assert.Equal(t, tc.want, withCommas(decimalx.MustFromString(tc.v), tc.places))
		})
	}
}

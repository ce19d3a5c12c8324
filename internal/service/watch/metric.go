package watch

import (
	"fmt"
	"strings"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// Metric describes what the sampler fetches for one MetricID.
type Metric struct {
	ID     MetricID
	Pair   exchange.TradingPair // price, position, pnl, funding
	Asset  string               // balance
	Policy Policy
}

func PriceMetric(pair exchange.TradingPair, p Policy) Metric {
	return Metric{ID: NewMetricID(KindPrice, pair.ToString()), Pair: pair, Policy: p}
}

func BalanceMetric(asset string) Metric {
	asset = strings.ToUpper(asset)
	return Metric{ID: NewMetricID(KindBalance, asset), Asset: asset, Policy: Exact()}
}

func PositionMetric(pair exchange.TradingPair) Metric {
	return Metric{ID: NewMetricID(KindPosition, pair.ToString()), Pair: pair, Policy: Exact()}
}

// PnlMetric 未实现盈亏, 依赖同一 tick 内取到的价格
func PnlMetric(pair exchange.TradingPair) Metric {
	return Metric{ID: NewMetricID(KindPnl, pair.ToString()), Pair: pair, Policy: Exact()}
}

func FundingMetric(pair exchange.TradingPair) Metric {
	return Metric{ID: NewMetricID(KindFunding, pair.ToString()), Pair: pair, Policy: Exact()}
}

func Funding24hMetric(pair exchange.TradingPair) Metric {
	return Metric{ID: NewMetricID(KindFunding24h, pair.ToString()), Pair: pair, Policy: Exact()}
}

// Targets is the monitored universe, usually unmarshalled from the watch config.
type Targets struct {
	Market         string   `mapstructure:"market"`
	PriceThreshold *float64 `mapstructure:"price_threshold"`
	Assets         []string `mapstructure:"assets"`
	FundingMarkets []string `mapstructure:"funding_markets"`
}

func (t Targets) PrimaryPair() (exchange.TradingPair, error) {
	return exchange.ParseTradingPair(t.Market)
}

func (t Targets) FundingPairs() ([]exchange.TradingPair, error) {
	pairs := make([]exchange.TradingPair, 0, len(t.FundingMarkets))
	for _, m := range t.FundingMarkets {
		pair, err := exchange.ParseTradingPair(m)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	// BTCUSDT 与 BTC/USDT 是同一个市场, 解析后再去重
	return lo.Uniq(pairs), nil
}

// BuildMetrics 按配置生成指标列表: 主交易对价格/仓位/盈亏, 各资产余额, 各市场资金费率
func BuildMetrics(t Targets) ([]Metric, error) {
	primary, err := t.PrimaryPair()
	if err != nil {
		return nil, fmt.Errorf("primary market: %w", err)
	}
	if t.PriceThreshold != nil && *t.PriceThreshold <= 0 {
		return nil, fmt.Errorf("price threshold must be positive, got %v", *t.PriceThreshold)
	}
	threshold := decimal.NullDecimal{}
	if t.PriceThreshold != nil {
		threshold = decimal.NewNullDecimal(decimal.NewFromFloat(*t.PriceThreshold))
	}

	metrics := []Metric{
		PriceMetric(primary, PolicyFor(threshold)),
	}
	metrics = append(metrics, lo.Map(lo.Uniq(lo.Map(t.Assets, func(a string, _ int) string {
		return strings.ToUpper(a)
	})), func(a string, _ int) Metric {
		return BalanceMetric(a)
	})...)
	metrics = append(metrics, PositionMetric(primary), PnlMetric(primary))

	fundingPairs, err := t.FundingPairs()
	if err != nil {
		return nil, fmt.Errorf("funding markets: %w", err)
	}
	for _, pair := range fundingPairs {
		metrics = append(metrics, FundingMetric(pair), Funding24hMetric(pair))
	}
	return metrics, nil
}

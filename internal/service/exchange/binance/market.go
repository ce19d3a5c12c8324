package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

var _ exchange.MarketService = (*MarketService)(nil)

const (
	contractTypePerpetual = "PERPETUAL"
	symbolStatusTrading   = "TRADING"
)

const exchangeInfoKey = "exchangeInfo"

type MarketService struct {
	cli *futures.Client
	// exchangeInfo 体积较大, 缓存一段时间
	info *cache.Cache
}

// NewMarketService 创建市场数据服务
func NewMarketService(cli *futures.Client) *MarketService {
	return &MarketService{cli: cli, info: cache.New(time.Hour, time.Hour)}
}

// ResolveMarket 通过 exchangeInfo 确认交易对存在且为可交易的永续合约
func (m *MarketService) ResolveMarket(ctx context.Context, pair exchange.TradingPair) (exchange.MarketInfo, error) {
	symbols, err := m.symbols(ctx)
	if err != nil {
		return exchange.MarketInfo{}, err
	}
	return findMarket(symbols, pair)
}

func (m *MarketService) symbols(ctx context.Context) ([]futures.Symbol, error) {
	if v, ok := m.info.Get(exchangeInfoKey); ok {
		return v.([]futures.Symbol), nil
	}
	info, err := m.cli.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	m.info.Set(exchangeInfoKey, info.Symbols, cache.DefaultExpiration)
	return info.Symbols, nil
}

func findMarket(symbols []futures.Symbol, pair exchange.TradingPair) (exchange.MarketInfo, error) {
	s, ok := lo.Find(symbols, func(s futures.Symbol) bool {
		return s.Symbol == pair.ToString()
	})
	if !ok {
		return exchange.MarketInfo{}, fmt.Errorf("%s: %w", pair.ToString(), exchange.ErrMarketNotFound)
	}
	if s.ContractType != contractTypePerpetual || s.Status != symbolStatusTrading {
		return exchange.MarketInfo{}, fmt.Errorf("%s is %s/%s: %w", pair.ToString(), s.ContractType, s.Status, exchange.ErrMarketNotFound)
	}
	return exchange.MarketInfo{
		TradingPair:  pair,
		ContractType: string(s.ContractType),
		Status:       s.Status,
	}, nil
}

func (m *MarketService) Ticker(ctx context.Context, tradingPair exchange.TradingPair) (decimal.Decimal, error) {
	prices, err := m.cli.NewListPricesService().Symbol(tradingPair.ToString()).Do(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if len(prices) == 0 {
		return decimal.Zero, fmt.Errorf("ticker %s: %w", tradingPair.ToString(), exchange.ErrNoData)
	}
	return decimal.NewFromString(prices[0].Price)
}

// PremiumQuote 拉取一次标记价格和当前资金费率, 用于在推送到达之前预填行情
func (m *MarketService) PremiumQuote(ctx context.Context, pair exchange.TradingPair) (exchange.Quote, error) {
	res, err := m.cli.NewPremiumIndexService().Symbol(pair.ToString()).Do(ctx)
	if err != nil {
		return exchange.Quote{}, err
	}
	if len(res) == 0 {
		return exchange.Quote{}, fmt.Errorf("premium index %s: %w", pair.ToString(), exchange.ErrNoData)
	}
	return convertPremiumIndex(pair, res[0])
}

func convertPremiumIndex(pair exchange.TradingPair, p *futures.PremiumIndex) (exchange.Quote, error) {
	mark, err := decimal.NewFromString(p.MarkPrice)
	if err != nil {
		return exchange.Quote{}, fmt.Errorf("mark price %q: %w", p.MarkPrice, err)
	}
	rate, err := decimal.NewFromString(p.LastFundingRate)
	if err != nil {
		return exchange.Quote{}, fmt.Errorf("funding rate %q: %w", p.LastFundingRate, err)
	}
	// indexPrice 缺失不影响监控
	index := decimalx.OrZero(p.IndexPrice)
	return exchange.Quote{
		TradingPair:     pair,
		MarkPrice:       mark,
		IndexPrice:      index,
		FundingRate:     rate,
		NextFundingTime: time.UnixMilli(p.NextFundingTime),
		UpdatedAt:       time.UnixMilli(p.Time),
	}, nil
}

// FundingHistory 最近 limit 次已结算的资金费率, 按时间升序
// 币安每 8h 结算一次, limit=3 即最近 24h
func (m *MarketService) FundingHistory(ctx context.Context, pair exchange.TradingPair, limit int) ([]decimal.Decimal, error) {
	res, err := m.cli.NewFundingRateService().Symbol(pair.ToString()).Limit(limit).Do(ctx)
	if err != nil {
		return nil, err
	}
	rates := make([]decimal.Decimal, 0, len(res))
	for _, r := range res {
		v, err := decimal.NewFromString(r.FundingRate)
		if err != nil {
			return nil, fmt.Errorf("funding rate %q: %w", r.FundingRate, err)
		}
		rates = append(rates, v)
	}
	return rates, nil
}

// averageRate 没有历史时 Valid=false
func averageRate(rates []decimal.Decimal) decimal.NullDecimal {
	if len(rates) == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.Avg(rates[0], rates[1:]...))
}

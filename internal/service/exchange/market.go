package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FundingRate 永续合约资金费率
type FundingRate struct {
	TradingPair TradingPair
	// Current 当前(预测)资金费率, 小数形式, 0.0001 = 0.01%
	Current decimal.Decimal
	// Average24h 最近 24h 已结算资金费率均值, 没有历史时 Valid=false
	Average24h      decimal.NullDecimal
	NextFundingTime time.Time
}

// Quote 最新推送的标记价格与资金费率
type Quote struct {
	TradingPair TradingPair
	MarkPrice   decimal.Decimal
	IndexPrice  decimal.Decimal
	FundingRate decimal.Decimal
	// NextFundingTime 下次结算时间
	NextFundingTime time.Time
	UpdatedAt       time.Time
}

// QuoteSource is a non-blocking view of the last pushed quotes.
// Implementations return ErrNoData until the first update arrives.
type QuoteSource interface {
	Price(pair TradingPair) (decimal.Decimal, error)
	Funding(pair TradingPair) (FundingRate, error)
}

// MarketInfo 交易对元信息
type MarketInfo struct {
	TradingPair  TradingPair
	ContractType string
	Status       string
}

type MarketService interface {
	// ResolveMarket 查询交易对, 不存在或不可交易时返回 ErrMarketNotFound
	ResolveMarket(ctx context.Context, pair TradingPair) (MarketInfo, error)
	Ticker(ctx context.Context, pair TradingPair) (decimal.Decimal, error)
	FundingHistory(ctx context.Context, pair TradingPair, limit int) ([]decimal.Decimal, error)
}

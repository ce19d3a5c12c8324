package binance

import (
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ exchange.QuoteSource = (*QuoteFeed)(nil)

// markPriceServer 订阅单个交易对的标记价格, 测试中替换
type markPriceServer func(symbol string, handler futures.WsMarkPriceHandler, errHandler futures.ErrHandler) (doneC, stopC chan struct{}, err error)

// markPriceRate 默认的 @markPrice 流 3s 推送一次, 这里用 @markPrice@1s
const markPriceRate = time.Second

func serveMarkPrice(symbol string, handler futures.WsMarkPriceHandler, errHandler futures.ErrHandler) (chan struct{}, chan struct{}, error) {
	return futures.WsMarkPriceServeWithRate(symbol, markPriceRate, handler, errHandler)
}

// QuoteFeed 订阅标记价格推送 (markPrice@1s), 最新报价缓存在 go-cache 中.
// 超过 ttl 没有更新的报价会过期, 读取时按 ErrNoData 处理.
type QuoteFeed struct {
	cache *cache.Cache
	ttl   time.Duration
	serve markPriceServer
	log   zerolog.Logger

	mu      sync.Mutex
	err     error
	stops   []chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

func NewQuoteFeed(ttl time.Duration, log zerolog.Logger) *QuoteFeed {
	return &QuoteFeed{
		cache: cache.New(ttl, 2*ttl),
		ttl:   ttl,
		serve: serveMarkPrice,
		log:   log,
	}
}

func quoteKey(pair exchange.TradingPair) string {
	return "quote:" + pair.ToString()
}

func fundingAvgKey(pair exchange.TradingPair) string {
	return "funding24h:" + pair.ToString()
}

// Start 为每个交易对建立一条推送连接. 任一连接意外关闭后 Err 返回 ErrConnectionLost.
func (f *QuoteFeed) Start(pairs []exchange.TradingPair) error {
	for _, pair := range pairs {
		pair := pair
		doneC, stopC, err := f.serve(pair.ToString(), f.onMarkPrice, f.onError)
		if err != nil {
			return fmt.Errorf("subscribe mark price %s: %w", pair.ToString(), err)
		}
		f.mu.Lock()
		f.stops = append(f.stops, stopC)
		f.mu.Unlock()

		f.wg.Add(1)
		go func() {
			defer f.wg.Done()
			<-doneC
			f.mu.Lock()
			defer f.mu.Unlock()
			if !f.stopped && f.err == nil {
				f.err = fmt.Errorf("mark price stream %s closed: %w", pair.ToString(), exchange.ErrConnectionLost)
				f.log.Warn().Str("symbol", pair.ToString()).Msg("mark price stream closed")
			}
		}()
	}
	return nil
}

// Stop 关闭所有推送连接并等待退出, 可重复调用
func (f *QuoteFeed) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	for _, stopC := range f.stops {
		close(stopC)
	}
	f.mu.Unlock()
	f.wg.Wait()
}

// Err 推送连接断开后非 nil
func (f *QuoteFeed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *QuoteFeed) onMarkPrice(e *futures.WsMarkPriceEvent) {
	q, err := convertMarkPriceEvent(e)
	if err != nil {
		f.log.Warn().Err(err).Str("symbol", e.Symbol).Msg("drop malformed mark price event")
		return
	}
	f.SetQuote(q)
}

// onError 解析失败或读错误都会回调到这里, 连接是否断开以 doneC 为准
func (f *QuoteFeed) onError(err error) {
	f.log.Warn().Err(err).Msg("mark price stream error")
}

func convertMarkPriceEvent(e *futures.WsMarkPriceEvent) (exchange.Quote, error) {
	base, quote := exchange.SplitSymbol(e.Symbol)
	mark, err := decimal.NewFromString(e.MarkPrice)
	if err != nil {
		return exchange.Quote{}, fmt.Errorf("mark price %q: %w", e.MarkPrice, err)
	}
	rate, err := decimal.NewFromString(e.FundingRate)
	if err != nil {
		return exchange.Quote{}, fmt.Errorf("funding rate %q: %w", e.FundingRate, err)
	}
	index := decimalx.OrZero(e.IndexPrice)
	return exchange.Quote{
		TradingPair:     exchange.TradingPair{Base: base, Quote: quote},
		MarkPrice:       mark,
		IndexPrice:      index,
		FundingRate:     rate,
		NextFundingTime: time.UnixMilli(e.NextFundingTime),
		UpdatedAt:       time.UnixMilli(e.Time),
	}, nil
}

func (f *QuoteFeed) SetQuote(q exchange.Quote) {
	f.cache.Set(quoteKey(q.TradingPair), q, cache.DefaultExpiration)
}

// SetFundingAverage 24h 均值由定时任务刷新, 不随报价过期
func (f *QuoteFeed) SetFundingAverage(pair exchange.TradingPair, avg decimal.NullDecimal) {
	f.cache.Set(fundingAvgKey(pair), avg, cache.NoExpiration)
}

func (f *QuoteFeed) quote(pair exchange.TradingPair) (exchange.Quote, error) {
	v, ok := f.cache.Get(quoteKey(pair))
	if !ok {
		return exchange.Quote{}, fmt.Errorf("quote %s: %w", pair.ToString(), exchange.ErrNoData)
	}
	return v.(exchange.Quote), nil
}

func (f *QuoteFeed) Price(pair exchange.TradingPair) (decimal.Decimal, error) {
	q, err := f.quote(pair)
	if err != nil {
		return decimal.Zero, err
	}
	return q.MarkPrice, nil
}

func (f *QuoteFeed) Funding(pair exchange.TradingPair) (exchange.FundingRate, error) {
	q, err := f.quote(pair)
	if err != nil {
		return exchange.FundingRate{}, err
	}
	fr := exchange.FundingRate{
		TradingPair:     pair,
		Current:         q.FundingRate,
		NextFundingTime: q.NextFundingTime,
	}
	if v, ok := f.cache.Get(fundingAvgKey(pair)); ok {
		fr.Average24h = v.(decimal.NullDecimal)
	}
	return fr, nil
}

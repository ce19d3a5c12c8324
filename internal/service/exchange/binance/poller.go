package binance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ exchange.AccountSource = (*AccountFeed)(nil)

// AccountFeed 定时拉取余额与持仓, 结果缓存在 go-cache 中.
// 连续多次拉取失败后缓存过期, 读取时返回最后一次拉取错误.
type AccountFeed struct {
	accountSvc  exchange.AccountService
	positionSvc exchange.PositionService
	pairs       []exchange.TradingPair
	cache       *cache.Cache
	log         zerolog.Logger

	mu      sync.RWMutex
	lastErr error
}

// NewAccountFeed ttl 一般取刷新间隔的数倍
func NewAccountFeed(accountSvc exchange.AccountService, positionSvc exchange.PositionService,
	pairs []exchange.TradingPair, ttl time.Duration, log zerolog.Logger) *AccountFeed {
	return &AccountFeed{
		accountSvc:  accountSvc,
		positionSvc: positionSvc,
		pairs:       pairs,
		cache:       cache.New(ttl, 2*ttl),
		log:         log,
	}
}

func balanceKey(asset string) string {
	return "balance:" + strings.ToUpper(asset)
}

func positionKey(pair exchange.TradingPair) string {
	return "position:" + pair.ToString()
}

// Refresh 拉取一次账户数据, 失败时保留上一次的缓存
func (a *AccountFeed) Refresh(ctx context.Context) error {
	balances, err := a.accountSvc.Balances(ctx)
	if err != nil {
		return a.fail(fmt.Errorf("fetch balances: %w", err))
	}
	positions, err := a.positionSvc.GetActivePositions(ctx, a.pairs)
	if err != nil {
		return a.fail(fmt.Errorf("fetch positions: %w", err))
	}
	a.apply(balances, positions)
	return nil
}

func (a *AccountFeed) fail(err error) error {
	a.mu.Lock()
	a.lastErr = err
	a.mu.Unlock()
	return err
}

func (a *AccountFeed) apply(balances []exchange.AccountBalance, positions []exchange.Position) {
	for _, b := range balances {
		a.cache.Set(balanceKey(b.Asset), b, cache.DefaultExpiration)
	}
	merged := mergePositions(positions)
	for _, pair := range a.pairs {
		if p, ok := merged[pair]; ok {
			a.cache.Set(positionKey(pair), p, cache.DefaultExpiration)
		} else if _, had := a.cache.Get(positionKey(pair)); had {
			// 已平仓: 记为空仓, 从未持仓的交易对保持不可用
			a.cache.Set(positionKey(pair), exchange.Position{
				TradingPair:  pair,
				PositionSide: exchange.PositionSideBoth,
			}, cache.DefaultExpiration)
		}
	}
	a.mu.Lock()
	a.lastErr = nil
	a.mu.Unlock()
}

func (a *AccountFeed) missing(what string) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastErr != nil {
		return a.lastErr
	}
	return fmt.Errorf("%s: %w", what, exchange.ErrNoData)
}

func (a *AccountFeed) Balance(asset string) (decimal.Decimal, error) {
	v, ok := a.cache.Get(balanceKey(asset))
	if !ok {
		return decimal.Zero, a.missing(balanceKey(asset))
	}
	return v.(exchange.AccountBalance).Balance, nil
}

func (a *AccountFeed) Position(pair exchange.TradingPair) (exchange.Position, error) {
	v, ok := a.cache.Get(positionKey(pair))
	if !ok {
		return exchange.Position{}, a.missing(positionKey(pair))
	}
	return v.(exchange.Position), nil
}

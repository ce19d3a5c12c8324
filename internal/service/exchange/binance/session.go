package binance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var _ watch.Session = (*Session)(nil)

// fundingWindow 币安每 8h 结算一次, 3 次即 24h
const fundingWindow = 3

type SessionConfig struct {
	// QuoteTTL 报价超过该时间未更新视为不可用
	QuoteTTL time.Duration `mapstructure:"quote_ttl"`
	// AccountRefresh 余额/持仓轮询间隔
	AccountRefresh time.Duration `mapstructure:"account_refresh"`
	// FundingRefresh 24h 资金费率均值刷新间隔
	FundingRefresh time.Duration `mapstructure:"funding_refresh"`
}

func (c SessionConfig) WithDefaults() SessionConfig {
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = 30 * time.Second
	}
	if c.AccountRefresh <= 0 {
		c.AccountRefresh = 5 * time.Second
	}
	if c.FundingRefresh <= 0 {
		c.FundingRefresh = 5 * time.Minute
	}
	return c
}

type marketSource interface {
	exchange.MarketService
	PremiumQuote(ctx context.Context, pair exchange.TradingPair) (exchange.Quote, error)
}

// Session 一次连接的生命周期: 标记价格推送 + 账户轮询 + 资金费率刷新
type Session struct {
	cfg          SessionConfig
	market       marketSource
	quotes       *QuoteFeed
	accounts     *AccountFeed
	primary      exchange.TradingPair
	fundingPairs []exchange.TradingPair
	assets       []string
	log          zerolog.Logger

	// 订阅成功的资金费率市场
	fundingLive []exchange.TradingPair
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

func NewSession(market marketSource, accountSvc exchange.AccountService, positionSvc exchange.PositionService,
	targets watch.Targets, cfg SessionConfig, log zerolog.Logger) (*Session, error) {
	cfg = cfg.WithDefaults()
	primary, err := targets.PrimaryPair()
	if err != nil {
		return nil, err
	}
	fundingPairs, err := targets.FundingPairs()
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:          cfg,
		market:       market,
		quotes:       NewQuoteFeed(cfg.QuoteTTL, log),
		accounts:     NewAccountFeed(accountSvc, positionSvc, []exchange.TradingPair{primary}, 3*cfg.AccountRefresh, log),
		primary:      primary,
		fundingPairs: fundingPairs,
		assets:       targets.Assets,
		log:          log,
	}, nil
}

// NewSessionFactory 每次重连都创建新的客户端和会话
func NewSessionFactory(creds Credentials, cfg SessionConfig, targets watch.Targets, log zerolog.Logger) watch.SessionFactory {
	return func(ctx context.Context) (watch.Session, error) {
		svc := NewService(NewClient(creds))
		return NewSession(svc.marketSvc, svc.AccountService(), svc.PositionService(), targets, cfg, log)
	}
}

func (s *Session) Subscribe(ctx context.Context) error {
	if _, err := s.market.ResolveMarket(ctx, s.primary); err != nil {
		return fmt.Errorf("resolve %s: %w", s.primary.ToString(), err)
	}
	streams := []exchange.TradingPair{s.primary}
	for _, pair := range s.fundingPairs {
		if pair == s.primary {
			s.fundingLive = append(s.fundingLive, pair)
			continue
		}
		if _, err := s.market.ResolveMarket(ctx, pair); err != nil {
			if errors.Is(err, exchange.ErrMarketNotFound) {
				s.log.Warn().Err(err).Str("market", pair.ToString()).Msg("skip funding market")
				continue
			}
			return fmt.Errorf("resolve %s: %w", pair.ToString(), err)
		}
		streams = append(streams, pair)
		s.fundingLive = append(s.fundingLive, pair)
	}

	// 推送到达前先用 REST 预填一次
	for _, pair := range streams {
		q, err := s.market.PremiumQuote(ctx, pair)
		if err != nil {
			s.log.Warn().Err(err).Str("market", pair.ToString()).Msg("seed quote failed")
			continue
		}
		s.quotes.SetQuote(q)
	}
	if err := s.quotes.Start(streams); err != nil {
		return err
	}

	if err := s.accounts.Refresh(ctx); err != nil {
		s.log.Warn().Err(err).Msg("account data unavailable, continue monitoring prices only")
	}
	if err := s.refreshFunding(ctx); err != nil {
		s.log.Warn().Err(err).Msg("funding history unavailable")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.every(runCtx, s.cfg.AccountRefresh, "account", s.accounts.Refresh)
	s.every(runCtx, s.cfg.FundingRefresh, "funding", s.refreshFunding)
	return nil
}

func (s *Session) every(ctx context.Context, interval time.Duration, name string, fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := fn(ctx); err != nil && ctx.Err() == nil {
					// 面向用户的报错由采样侧限流输出
					s.log.Debug().Err(err).Str("job", name).Msg("refresh failed")
				}
			}
		}
	}()
}

func (s *Session) refreshFunding(ctx context.Context) error {
	var errs []error
	for _, pair := range s.fundingLive {
		rates, err := s.market.FundingHistory(ctx, pair, fundingWindow)
		if err != nil {
			errs = append(errs, fmt.Errorf("funding history %s: %w", pair.ToString(), err))
			continue
		}
		s.quotes.SetFundingAverage(pair, averageRate(rates))
	}
	return errors.Join(errs...)
}

// Diagnose 打印启动时的初始状态, 账户不可用时返回错误但不影响价格监控
func (s *Session) Diagnose(ctx context.Context) error {
	if price, err := s.quotes.Price(s.primary); err == nil {
		s.log.Info().Str("market", s.primary.ToString()).Str("price", price.String()).Msg("initial mark price")
	} else if last, err := s.market.Ticker(ctx, s.primary); err == nil {
		// 还没有标记价格, 用最新成交价代替
		s.log.Info().Str("market", s.primary.ToString()).Str("last", last.String()).Msg("waiting for first mark price")
	} else {
		s.log.Info().Err(err).Str("market", s.primary.ToString()).Msg("waiting for first mark price")
	}

	for _, fr := range s.fundingLive {
		if f, err := s.quotes.Funding(fr); err == nil {
			s.log.Info().Str("market", fr.ToString()).Str("rate", f.Current.String()).
				Time("next", f.NextFundingTime).Msg("initial funding rate")
		}
	}

	var accountErr error
	for _, asset := range s.assets {
		b, err := s.accounts.Balance(asset)
		switch {
		case err == nil:
			s.log.Info().Str("asset", asset).Str("balance", b.String()).Msg("initial balance")
		case errors.Is(err, exchange.ErrNoData):
			s.log.Info().Str("asset", asset).Msg("no balance for asset")
		default:
			accountErr = err
		}
	}
	if accountErr != nil {
		return fmt.Errorf("account unavailable: %w", accountErr)
	}

	if p, err := s.accounts.Position(s.primary); err == nil {
		s.log.Info().Str("market", s.primary.ToString()).Str("size", p.Quantity.String()).
			Str("entry", p.EntryPrice.String()).Int("leverage", p.Leverage).Msg("initial position")
	} else {
		s.log.Info().Str("market", s.primary.ToString()).Msg("no open position")
	}
	return nil
}

func (s *Session) Err() error {
	return s.quotes.Err()
}

func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.wg.Wait()
		s.quotes.Stop()
	})
	return nil
}

func (s *Session) Price(pair exchange.TradingPair) (decimal.Decimal, error) {
	return s.quotes.Price(pair)
}

func (s *Session) Funding(pair exchange.TradingPair) (exchange.FundingRate, error) {
	return s.quotes.Funding(pair)
}

func (s *Session) Balance(asset string) (decimal.Decimal, error) {
	return s.accounts.Balance(asset)
}

func (s *Session) Position(pair exchange.TradingPair) (exchange.Position, error) {
	return s.accounts.Position(pair)
}

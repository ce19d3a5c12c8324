package watch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/KNICEX/trading-monitor/internal/metrics"
	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

// Sampler pulls every metric once per fast tick and feeds the values
// through State.
type Sampler struct {
	metrics  []Metric
	state    *State
	notifier Notifier
	errLimit *rate.Limiter
	log      zerolog.Logger
}

func NewSampler(ms []Metric, state *State, notifier Notifier, errInterval time.Duration, log zerolog.Logger) *Sampler {
	return &Sampler{
		metrics:  ms,
		state:    state,
		notifier: notifier,
		errLimit: rate.NewLimiter(rate.Every(errInterval), 1),
		log:      log,
	}
}

type priceResult struct {
	price decimal.Decimal
	err   error
}

// Sample runs one tick. A returned error ends the session: either the
// connection is gone or a metric id is not registered.
func (s *Sampler) Sample(ctx context.Context, session Session) error {
	if err := session.Err(); err != nil {
		return err
	}

	// 同一 tick 内价格只取一次, pnl 复用
	prices := make(map[exchange.TradingPair]priceResult)
	priceOf := func(pair exchange.TradingPair) (decimal.Decimal, error) {
		if r, ok := prices[pair]; ok {
			return r.price, r.err
		}
		p, err := session.Price(pair)
		prices[pair] = priceResult{price: p, err: err}
		return p, err
	}

	for _, m := range s.metrics {
		value, err := s.fetch(session, m, priceOf)
		switch {
		case err == nil:
		case errors.Is(err, exchange.ErrNoData):
			continue
		case errors.Is(err, exchange.ErrConnectionLost), IsPermanent(err):
			return fmt.Errorf("sample %s: %w", m.ID, err)
		default:
			s.reportError(m.ID, err)
			continue
		}

		event, err := s.state.Observe(m.ID, value)
		if err != nil {
			return err
		}
		if event == nil {
			continue
		}
		if event.Bootstrap() {
			metrics.AnnouncementsTotal.WithLabelValues(m.ID.String(), "bootstrap").Inc()
			s.notifier.OnBootstrap(event.ID, event.Current)
		} else {
			metrics.AnnouncementsTotal.WithLabelValues(m.ID.String(), "change").Inc()
			s.notifier.OnChange(*event)
		}
	}
	return nil
}

func (s *Sampler) fetch(session Session, m Metric, priceOf func(exchange.TradingPair) (decimal.Decimal, error)) (decimal.Decimal, error) {
	switch m.ID.Kind() {
	case KindPrice:
		return priceOf(m.Pair)
	case KindBalance:
		return session.Balance(m.Asset)
	case KindPosition:
		pos, err := session.Position(m.Pair)
		if err != nil {
			return decimal.Zero, err
		}
		return pos.Quantity, nil
	case KindPnl:
		pos, err := session.Position(m.Pair)
		if err != nil {
			return decimal.Zero, err
		}
		price, err := priceOf(m.Pair)
		if err != nil {
			// 没有当前价格就不计算, 避免用旧价格算出错误的盈亏
			return decimal.Zero, err
		}
		return pos.UnrealizedPnlAt(price), nil
	case KindFunding:
		fr, err := session.Funding(m.Pair)
		if err != nil {
			return decimal.Zero, err
		}
		return fr.Current, nil
	case KindFunding24h:
		fr, err := session.Funding(m.Pair)
		if err != nil {
			return decimal.Zero, err
		}
		if !fr.Average24h.Valid {
			return decimal.Zero, exchange.ErrNoData
		}
		return fr.Average24h.Decimal, nil
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported kind %q", ErrUnknownMetric, m.ID.Kind())
	}
}

func (s *Sampler) reportError(id MetricID, err error) {
	metrics.SampleErrorsTotal.WithLabelValues(id.String()).Inc()
	if !s.errLimit.Allow() {
		return
	}
	s.log.Warn().Err(err).Str("metric", id.String()).Msg("failed to sample metric")
	s.notifier.OnError(fmt.Sprintf("Failed to sample %s: %v", id, err))
}

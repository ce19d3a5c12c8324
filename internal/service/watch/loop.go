package watch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/KNICEX/trading-monitor/internal/metrics"
	"github.com/rs/zerolog"
)

type Config struct {
	FastInterval      time.Duration `mapstructure:"fast_interval"`
	SlowInterval      time.Duration `mapstructure:"slow_interval"`
	ReconnectCooldown time.Duration `mapstructure:"reconnect_cooldown"`
	ErrorLogInterval  time.Duration `mapstructure:"error_log_interval"`
}

func (c Config) WithDefaults() Config {
	if c.FastInterval <= 0 {
		c.FastInterval = 100 * time.Millisecond
	}
	if c.SlowInterval <= 0 {
		c.SlowInterval = 30 * time.Second
	}
	if c.ReconnectCooldown <= 0 {
		c.ReconnectCooldown = 10 * time.Second
	}
	if c.ErrorLogInterval <= 0 {
		c.ErrorLogInterval = 10 * time.Second
	}
	return c
}

type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseInitializing
	PhaseSubscribing
	PhaseRunning
	PhaseDraining
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseInitializing:
		return "initializing"
	case PhaseSubscribing:
		return "subscribing"
	case PhaseRunning:
		return "running"
	case PhaseDraining:
		return "draining"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// Loop runs one session from construction to teardown. Each Run builds a
// fresh session and a fresh State.
type Loop struct {
	cfg       Config
	metrics   []Metric
	factory   SessionFactory
	notifier  Notifier
	newTicker TickerFactory
	log       zerolog.Logger

	phase   atomic.Int32
	skipped atomic.Int64
}

type LoopOption func(l *Loop)

func WithTickerFactory(f TickerFactory) LoopOption {
	return func(l *Loop) {
		l.newTicker = f
	}
}

func NewLoop(cfg Config, ms []Metric, factory SessionFactory, notifier Notifier, log zerolog.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		cfg:       cfg.WithDefaults(),
		metrics:   ms,
		factory:   factory,
		notifier:  notifier,
		newTicker: NewTimeTicker,
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Loop) Phase() Phase {
	return Phase(l.phase.Load())
}

// Skipped returns how many ticks were coalesced since the loop was created.
func (l *Loop) Skipped() int64 {
	return l.skipped.Load()
}

func (l *Loop) setPhase(p Phase) {
	l.phase.Store(int32(p))
	l.log.Debug().Str("phase", p.String()).Msg("session phase")
}

// Run returns nil when ctx is cancelled and an error when the session
// could not be established or the connection was lost.
func (l *Loop) Run(ctx context.Context) error {
	l.setPhase(PhaseInitializing)
	defer l.setPhase(PhaseIdle)

	state := NewState()
	for _, m := range l.metrics {
		if err := state.Register(m.ID, m.Policy); err != nil {
			return err
		}
	}

	l.log.Info().Msg("initializing session")
	session, err := l.factory(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("initialize session: %w", err)
	}
	defer func() {
		l.setPhase(PhaseDraining)
		if err := session.Close(); err != nil {
			l.log.Warn().Err(err).Msg("failed to close session")
		}
	}()

	l.setPhase(PhaseSubscribing)
	if err = session.Subscribe(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe: %w", err)
	}
	if err = session.Diagnose(ctx); err != nil {
		l.log.Warn().Err(err).Msg("startup diagnostics incomplete")
	}

	sampler := NewSampler(l.metrics, state, l.notifier, l.cfg.ErrorLogInterval, l.log)
	summarizer := NewSummarizer(state, l.notifier)

	fast := l.newTicker(l.cfg.FastInterval)
	defer fast.Stop()
	slow := l.newTicker(l.cfg.SlowInterval)
	defer slow.Stop()

	l.setPhase(PhaseRunning)
	l.log.Info().
		Dur("fast", l.cfg.FastInterval).
		Dur("slow", l.cfg.SlowInterval).
		Int("metrics", len(l.metrics)).
		Msg("starting real-time monitoring")
	// 进入运行状态先输出一次状态, 不必等第一个慢周期
	summarizer.Summarize()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-fast.C():
			if ctx.Err() != nil {
				return nil
			}
			metrics.TicksTotal.WithLabelValues("fast").Inc()
			if err := sampler.Sample(ctx, session); err != nil {
				return err
			}
			l.coalesce(fast, "fast")
		case <-slow.C():
			if ctx.Err() != nil {
				return nil
			}
			metrics.TicksTotal.WithLabelValues("slow").Inc()
			summarizer.Summarize()
			l.coalesce(slow, "slow")
		}
	}
}

// coalesce drops a tick of t that fired while its handler was running.
func (l *Loop) coalesce(t Ticker, schedule string) {
	select {
	case <-t.C():
		l.skipped.Add(1)
		metrics.TicksSkipped.WithLabelValues(schedule).Inc()
	default:
	}
}

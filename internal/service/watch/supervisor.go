package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/KNICEX/trading-monitor/internal/metrics"
	"github.com/KNICEX/trading-monitor/internal/schedule"
	"github.com/rs/zerolog"
)

var _ schedule.Task = (*Supervisor)(nil)

type Runner interface {
	Run(ctx context.Context) error
}

// Supervisor restarts the session loop after every failure, forever,
// waiting a fixed cooldown in between.
type Supervisor struct {
	runner   Runner
	cooldown time.Duration
	notifier Notifier
	log      zerolog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

type SupervisorOption func(s *Supervisor)

// WithSleep replaces the cooldown wait, mainly for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) SupervisorOption {
	return func(s *Supervisor) {
		s.sleep = sleep
	}
}

func NewSupervisor(runner Runner, cooldown time.Duration, notifier Notifier, log zerolog.Logger, opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		runner:   runner,
		cooldown: cooldown,
		notifier: notifier,
		log:      log,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Supervisor) Run(ctx context.Context) error {
	for attempt := 1; ; attempt++ {
		err := s.runner.Run(ctx)
		if err == nil {
			s.log.Info().Int("attempt", attempt).Msg("monitor ended normally")
			return nil
		}
		if IsPermanent(err) {
			s.log.Error().Err(err).Msg("monitor stopped on configuration error")
			return err
		}
		if ctx.Err() != nil {
			return nil
		}

		metrics.SessionRestarts.Inc()
		s.log.Warn().Err(err).Int("attempt", attempt).Dur("cooldown", s.cooldown).Msg("monitor failed, reconnecting")
		s.notifier.OnError(fmt.Sprintf("Monitor failed: %v. Reconnecting in %s...", err, s.cooldown))

		if err := s.sleep(ctx, s.cooldown); err != nil {
			return nil
		}
		s.log.Info().Msg("attempting to reconnect")
	}
}

func (s *Supervisor) Name() string {
	return "account monitor supervisor"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

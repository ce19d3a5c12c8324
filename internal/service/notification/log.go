package notification

import (
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Log 以结构化日志输出播报, 适合非终端环境
type Log struct {
	log zerolog.Logger
}

func NewLog(log zerolog.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) OnBootstrap(id watch.MetricID, value decimal.Decimal) {
	l.log.Info().Str("metric", id.String()).Str("value", value.String()).Msg("first known value")
}

func (l *Log) OnChange(event watch.ChangeEvent) {
	if event.Bootstrap() {
		l.OnBootstrap(event.ID, event.Current)
		return
	}
	l.log.Info().Str("metric", event.ID.String()).
		Str("previous", event.Previous.Decimal.String()).
		Str("value", event.Current.String()).
		Msg("changed")
}

func (l *Log) OnSummary(snapshot watch.Snapshot) {
	d := zerolog.Dict()
	for _, r := range snapshot {
		if r.Value.Valid {
			d.Str(r.ID.String(), r.Value.Decimal.String())
		} else {
			d.Str(r.ID.String(), noData)
		}
	}
	l.log.Info().Dict("status", d).Msg("current status")
}

func (l *Log) OnError(message string) {
	l.log.Error().Msg(message)
}

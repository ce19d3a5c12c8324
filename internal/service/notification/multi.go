package notification

import (
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/shopspring/decimal"
)

// Multi 按顺序分发给多个 Notifier
type Multi []watch.Notifier

func (m Multi) OnBootstrap(id watch.MetricID, value decimal.Decimal) {
	for _, n := range m {
		n.OnBootstrap(id, value)
	}
}

func (m Multi) OnChange(event watch.ChangeEvent) {
	for _, n := range m {
		n.OnChange(event)
	}
}

func (m Multi) OnSummary(snapshot watch.Snapshot) {
	for _, n := range m {
		n.OnSummary(snapshot)
	}
}

func (m Multi) OnError(message string) {
	for _, n := range m {
		n.OnError(message)
	}
}

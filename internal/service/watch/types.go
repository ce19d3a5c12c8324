package watch

import (
	"context"
	"errors"
	"strings"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnknownMetric is returned by Observe for an id that was never registered.
	ErrUnknownMetric   = errors.New("watch: unknown metric")
	ErrDuplicateMetric = errors.New("watch: metric registered twice")
)

// IsPermanent reports configuration bugs that a reconnect cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownMetric) || errors.Is(err, ErrDuplicateMetric)
}

type Kind string

const (
	KindPrice      Kind = "price"
	KindBalance    Kind = "balance"
	KindPosition   Kind = "position"
	KindPnl        Kind = "pnl"
	KindFunding    Kind = "funding"
	KindFunding24h Kind = "funding24h"
)

// MetricID 指标标识, 格式 kind:subject, 例如 price:BTCUSDT, balance:USDC
type MetricID string

func NewMetricID(kind Kind, subject string) MetricID {
	return MetricID(string(kind) + ":" + subject)
}

func (id MetricID) Kind() Kind {
	kind, _, _ := strings.Cut(string(id), ":")
	return Kind(kind)
}

func (id MetricID) Subject() string {
	_, subject, _ := strings.Cut(string(id), ":")
	return subject
}

func (id MetricID) String() string {
	return string(id)
}

// ChangeEvent is produced by State.Observe when a value is announced.
type ChangeEvent struct {
	ID       MetricID
	Previous decimal.NullDecimal
	Current  decimal.Decimal
}

// Bootstrap reports the first known value of a metric.
func (e ChangeEvent) Bootstrap() bool {
	return !e.Previous.Valid
}

// Reading 快照中的单个指标, Value.Valid=false 表示从未观测到
type Reading struct {
	ID    MetricID
	Value decimal.NullDecimal
}

// Snapshot lists every registered metric in registration order.
type Snapshot []Reading

func (s Snapshot) Get(id MetricID) (decimal.NullDecimal, bool) {
	for _, r := range s {
		if r.ID == id {
			return r.Value, true
		}
	}
	return decimal.NullDecimal{}, false
}

// Notifier renders announcements. Implementations must not block for long,
// they run on the session loop.
type Notifier interface {
	OnBootstrap(id MetricID, value decimal.Decimal)
	OnChange(event ChangeEvent)
	OnSummary(snapshot Snapshot)
	OnError(message string)
}

// Session is one connected attempt: live subscriptions plus the cached
// sources the sampler reads from.
type Session interface {
	exchange.QuoteSource
	exchange.AccountSource

	// Subscribe 建立行情/账户订阅, 主交易对无法解析时返回错误
	Subscribe(ctx context.Context) error
	// Diagnose performs one full read for startup logging.
	Diagnose(ctx context.Context) error
	// Err returns a non-nil error once the connection is unusable.
	Err() error
	Close() error
}

type SessionFactory func(ctx context.Context) (Session, error)

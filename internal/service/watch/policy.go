package watch

import (
	"fmt"

	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/shopspring/decimal"
)

type Mode int

const (
	// ExactChange announces any numeric difference.
	ExactChange Mode = iota
	// RelativeThreshold announces when |new-old|/|old| >= Threshold.
	RelativeThreshold
)

func (m Mode) String() string {
	switch m {
	case ExactChange:
		return "exact"
	case RelativeThreshold:
		return "threshold"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

type Policy struct {
	Mode      Mode
	Threshold decimal.Decimal
}

func Exact() Policy {
	return Policy{Mode: ExactChange}
}

func Threshold(epsilon decimal.Decimal) Policy {
	return Policy{Mode: RelativeThreshold, Threshold: epsilon}
}

// PolicyFor 配置了阈值则按阈值比较, 否则任何变化都通知
func PolicyFor(threshold decimal.NullDecimal) Policy {
	if threshold.Valid {
		return Threshold(threshold.Decimal)
	}
	return Exact()
}

func (p Policy) String() string {
	if p.Mode == RelativeThreshold {
		return fmt.Sprintf("threshold(%s%%)", decimalx.Percent(p.Threshold).String())
	}
	return p.Mode.String()
}

type Decision int

const (
	Suppress Decision = iota
	Announce
)

func (d Decision) String() string {
	if d == Announce {
		return "announce"
	}
	return "suppress"
}

// Decide compares candidate against the last announced value.
func Decide(previous decimal.NullDecimal, candidate decimal.Decimal, p Policy) Decision {
	if !previous.Valid {
		return Announce
	}
	switch p.Mode {
	case RelativeThreshold:
		change, ok := decimalx.RelativeChange(previous.Decimal, candidate)
		if !ok {
			// 基准为 0, 无法计算相对变化
			return Announce
		}
		if change.GreaterThanOrEqual(p.Threshold) {
			return Announce
		}
		return Suppress
	default:
		if candidate.Equal(previous.Decimal) {
			return Suppress
		}
		return Announce
	}
}

package notification

import (
	"strconv"
	"strings"

	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// 各类指标展示精度
const (
	amountPlaces  = 6
	pnlPlaces     = 2
	changePlaces  = 2
	fundingPlaces = 6
)

// withCommas 10000.12 -> 10,000.12, places < 0 时保留原精度
func withCommas(v decimal.Decimal, places int32) string {
	var s string
	if places < 0 {
		s = v.String()
	} else {
		s = v.StringFixed(places)
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	sign := ""
	if strings.HasPrefix(intPart, "-") {
		sign = "-"
		intPart = strings.TrimPrefix(intPart, "-")
	}
	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return s
	}
	out := sign + humanize.Comma(n)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// signed 正数带 + 号
func signed(s string, v decimal.Decimal) string {
	if v.IsPositive() {
		return "+" + s
	}
	return s
}

func formatValue(kind watch.Kind, v decimal.Decimal) string {
	switch kind {
	case watch.KindPrice:
		return withCommas(v, -1)
	case watch.KindPnl:
		if v.IsNegative() {
			return "-$" + withCommas(v.Abs(), pnlPlaces)
		}
		return "$" + withCommas(v, pnlPlaces)
	case watch.KindFunding, watch.KindFunding24h:
		return formatRate(v)
	default:
		return withCommas(v, amountPlaces)
	}
}

// formatRate 0.0001 -> +0.010000%
func formatRate(v decimal.Decimal) string {
	return signed(decimalx.Percent(v).StringFixed(fundingPlaces), v) + "%"
}

// formatPercentChange +1.23%, 基准为 0 时没有百分比
func formatPercentChange(prev, cur decimal.Decimal) (string, decimal.Decimal, bool) {
	change, ok := decimalx.SignedChange(prev, cur)
	if !ok {
		return "", decimal.Zero, false
	}
	return signed(decimalx.Percent(change).StringFixed(changePlaces), change) + "%", change, true
}

// formatDelta 带符号的差值
func formatDelta(prev, cur decimal.Decimal) (string, decimal.Decimal) {
	delta := cur.Sub(prev)
	return signed(withCommas(delta, amountPlaces), delta), delta
}

// label 摘要中的指标名称
func label(id watch.MetricID) string {
	subject := id.Subject()
	switch id.Kind() {
	case watch.KindPrice:
		return subject + " Price"
	case watch.KindBalance:
		return subject + " Balance"
	case watch.KindPosition:
		return subject + " Position"
	case watch.KindPnl:
		return subject + " PnL"
	case watch.KindFunding:
		return subject + " Funding Rate"
	case watch.KindFunding24h:
		return subject + " Funding Rate (24h avg)"
	default:
		return id.String()
	}
}

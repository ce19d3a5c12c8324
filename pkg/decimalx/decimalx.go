package decimalx

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RelativeChange returns |next - prev| / |prev|.
// ok is false when prev is zero, a relative change is undefined there.
func RelativeChange(prev, next decimal.Decimal) (change decimal.Decimal, ok bool) {
	if prev.IsZero() {
		return decimal.Zero, false
	}
	return next.Sub(prev).Abs().Div(prev.Abs()), true
}

// SignedChange 带符号的相对变化 (next - prev) / |prev|, 用于展示涨跌幅
func SignedChange(prev, next decimal.Decimal) (decimal.Decimal, bool) {
	if prev.IsZero() {
		return decimal.Zero, false
	}
	return next.Sub(prev).Div(prev.Abs()), true
}

// Percent 0.0123 -> 1.23
func Percent(ratio decimal.Decimal) decimal.Decimal {
	return ratio.Mul(hundred)
}

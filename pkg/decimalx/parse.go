package decimalx

import "github.com/shopspring/decimal"

// MustFromString 仅用于常量和测试
func MustFromString(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return res
}

// OrZero 解析可选的展示字段, 空串或格式错误时返回 0
func OrZero(s string) decimal.Decimal {
	res, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return res
}

package exchange

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData 数据暂不可用(例如账户还没有该资产/仓位, 或行情还未推送), 不是错误
	ErrNoData = errors.New("exchange: no data available yet")
	// ErrConnectionLost 行情/账户连接已断开, 本次会话需要重建
	ErrConnectionLost = errors.New("exchange: connection lost")
	// ErrMarketNotFound 交易对无法解析
	ErrMarketNotFound = errors.New("exchange: market not found")
)

// TradingPair 交易对
type TradingPair struct {
	Base  string
	Quote string
}

// SplitSymbol splits an exchange symbol such as BTCUSDT into base and quote.
func SplitSymbol(s string) (string, string) {
	s = strings.ToUpper(s)
	// 常见 Quote 列表
	quotes := []string{"USDT", "BUSD", "USDC", "BTC", "ETH"}
	for _, q := range quotes {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return strings.TrimSuffix(s, q), q
		}
	}
	// fallback
	return s, ""
}

// ParseTradingPair accepts BTCUSDT, BTC/USDT and btc-usdt forms.
func ParseTradingPair(s string) (TradingPair, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote, ok := strings.Cut(s, sep); ok {
			if base == "" || quote == "" {
				return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
			}
			return TradingPair{Base: base, Quote: quote}, nil
		}
	}
	base, quote := SplitSymbol(s)
	if quote == "" {
		return TradingPair{}, fmt.Errorf("invalid trading pair %q", s)
	}
	return TradingPair{Base: base, Quote: quote}, nil
}

func (s TradingPair) IsZero() bool {
	return s.Base == "" || s.Quote == ""
}

func (s TradingPair) ToString() string {
	return fmt.Sprintf("%s%s", s.Base, s.Quote)
}

func (s TradingPair) ToSlashString() string {
	return fmt.Sprintf("%s/%s", s.Base, s.Quote)
}

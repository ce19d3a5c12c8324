package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// https://developers.binance.com/docs/zh-CN/derivatives/usds-margined-futures/trade/rest-api/Position-Information-V3

type PositionSide string

const (
	PositionSideBoth  PositionSide = "BOTH"
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
)

type Position struct {
	TradingPair  TradingPair
	PositionSide PositionSide
	EntryPrice   decimal.Decimal
	MarkPrice    decimal.Decimal
	Leverage     int
	// Quantity 带符号仓位数量, 空头为负
	Quantity      decimal.Decimal
	UnrealizedPnl decimal.Decimal
	// Locked 多空两条腿对冲掉的部分已锁定的盈亏, 与价格无关
	Locked    decimal.Decimal
	UpdatedAt time.Time
}

// Cost 持仓成本, UnrealizedPnlAt = quantity*price - cost
func (p Position) Cost() decimal.Decimal {
	return p.Quantity.Mul(p.EntryPrice).Sub(p.Locked)
}

// UnrealizedPnlAt 按给定价格计算未实现盈亏: quantity * (price - entry) + locked
func (p Position) UnrealizedPnlAt(price decimal.Decimal) decimal.Decimal {
	return p.Quantity.Mul(price.Sub(p.EntryPrice)).Add(p.Locked)
}

type PositionService interface {
	// GetActivePositions 获取持仓, 数量为 0 的仓位会被过滤
	GetActivePositions(ctx context.Context, pairs []TradingPair) ([]Position, error)
}

package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

var _ exchange.PositionService = (*PositionService)(nil)

type PositionService struct {
	cli *futures.Client
	now func() time.Time
}

// NewPositionService 创建持仓服务
func NewPositionService(cli *futures.Client) *PositionService {
	return &PositionService{cli: cli, now: time.Now}
}

// GetActivePositions 获取所有持仓
// notice: 币安有挂单，未成交的仓位也会返回，需要过滤掉
func (p *PositionService) GetActivePositions(ctx context.Context, pairs []exchange.TradingPair) ([]exchange.Position, error) {
	var binancePositions []*futures.PositionRisk

	if len(pairs) == 0 {
		ps, err := p.cli.NewGetPositionRiskService().Do(ctx)
		if err != nil {
			return nil, err
		}
		binancePositions = ps
	} else {
		for _, pair := range pairs {
			ps, err := p.cli.NewGetPositionRiskService().Symbol(pair.ToString()).Do(ctx)
			if err != nil {
				return nil, err
			}
			binancePositions = append(binancePositions, ps...)
		}
	}
	return convertPositions(binancePositions, p.now())
}

func convertPositions(binancePositions []*futures.PositionRisk, now time.Time) ([]exchange.Position, error) {
	positions := make([]exchange.Position, 0, len(binancePositions))
	for _, v := range binancePositions {
		position, err := convertPosition(v, now)
		if err != nil {
			return nil, err
		}
		// 过滤掉未成交的仓位
		if position.Quantity.IsZero() {
			continue
		}
		positions = append(positions, position)
	}
	return positions, nil
}

func convertPosition(v *futures.PositionRisk, now time.Time) (exchange.Position, error) {
	base, quote := exchange.SplitSymbol(v.Symbol)
	leverage, err := strconv.Atoi(v.Leverage)
	if err != nil {
		return exchange.Position{}, fmt.Errorf("leverage %s %q: %w", v.Symbol, v.Leverage, err)
	}
	quantity, err := decimal.NewFromString(v.PositionAmt)
	if err != nil {
		return exchange.Position{}, fmt.Errorf("position amount %s %q: %w", v.Symbol, v.PositionAmt, err)
	}
	entry, err := decimal.NewFromString(v.EntryPrice)
	if err != nil {
		return exchange.Position{}, fmt.Errorf("entry price %s %q: %w", v.Symbol, v.EntryPrice, err)
	}
	mark := decimalx.OrZero(v.MarkPrice)
	pnl := decimalx.OrZero(v.UnRealizedProfit)
	return exchange.Position{
		TradingPair: exchange.TradingPair{
			Base:  base,
			Quote: quote,
		},
		PositionSide:  exchange.PositionSide(v.PositionSide),
		EntryPrice:    entry,
		MarkPrice:     mark,
		Leverage:      leverage,
		Quantity:      quantity,
		UnrealizedPnl: pnl,
		UpdatedAt:     now,
	}, nil
}

// mergePositions 对冲模式下同一交易对会有 LONG/SHORT 两条, 合并为一个净头寸
// 净头寸的开仓价按成本/数量计算, 除不尽的部分和对冲掉的盈亏记在 Locked 里,
// 合并后 UnrealizedPnlAt 与各条腿之和一致
func mergePositions(positions []exchange.Position) map[exchange.TradingPair]exchange.Position {
	merged := make(map[exchange.TradingPair]exchange.Position, len(positions))
	for _, p := range positions {
		cur, ok := merged[p.TradingPair]
		if !ok {
			merged[p.TradingPair] = p
			continue
		}
		qty := cur.Quantity.Add(p.Quantity)
		cost := cur.Cost().Add(p.Cost())
		if !qty.IsZero() {
			cur.EntryPrice = cost.Div(qty)
		}
		cur.Locked = qty.Mul(cur.EntryPrice).Sub(cost)
		cur.Quantity = qty
		cur.PositionSide = exchange.PositionSideBoth
		cur.UnrealizedPnl = cur.UnrealizedPnl.Add(p.UnrealizedPnl)
		merged[p.TradingPair] = cur
	}
	return merged
}

package binance

import (
	"context"
	"fmt"

	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/KNICEX/trading-monitor/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

var _ exchange.AccountService = (*AccountService)(nil)

type AccountService struct {
	cli *futures.Client
}

func NewAccountService(cli *futures.Client) *AccountService {
	return &AccountService{cli: cli}
}

// Balances 合约账户各资产余额
func (s *AccountService) Balances(ctx context.Context) ([]exchange.AccountBalance, error) {
	res, err := s.cli.NewGetBalanceService().Do(ctx)
	if err != nil {
		return nil, err
	}
	balances := make([]exchange.AccountBalance, 0, len(res))
	for _, b := range res {
		balance, err := convertBalance(b)
		if err != nil {
			return nil, err
		}
		balances = append(balances, balance)
	}
	return balances, nil
}

func convertBalance(b *futures.Balance) (exchange.AccountBalance, error) {
	total, err := decimal.NewFromString(b.Balance)
	if err != nil {
		return exchange.AccountBalance{}, fmt.Errorf("balance %s %q: %w", b.Asset, b.Balance, err)
	}
	// 以下两个字段只用于展示
	pnl := decimalx.OrZero(b.CrossUnPnl)
	available := decimalx.OrZero(b.AvailableBalance)
	return exchange.AccountBalance{
		AccountAlias:     b.AccountAlias,
		Asset:            b.Asset,
		Balance:          total,
		UnrealizedPnl:    pnl,
		AvailableBalance: available,
	}, nil
}

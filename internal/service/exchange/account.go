package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

type AccountBalance struct {
	AccountAlias     string
	Asset            string
	Balance          decimal.Decimal
	UnrealizedPnl    decimal.Decimal
	AvailableBalance decimal.Decimal
}

// AccountSource is a non-blocking view of the last fetched account state.
// Balance and Position return ErrNoData when the account holds nothing
// of that kind yet.
type AccountSource interface {
	Balance(asset string) (decimal.Decimal, error)
	Position(pair TradingPair) (Position, error)
}

type AccountService interface {
	Balances(ctx context.Context) ([]AccountBalance, error)
}

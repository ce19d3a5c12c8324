package binance

import (
	"github.com/KNICEX/trading-monitor/internal/service/exchange"
	"github.com/adshao/go-binance/v2/futures"
)

var _ exchange.Service = (*Service)(nil)

type Service struct {
	marketSvc   *MarketService
	accountSvc  *AccountService
	positionSvc *PositionService
}

func NewService(cli *futures.Client) *Service {
	return &Service{
		marketSvc:   NewMarketService(cli),
		accountSvc:  NewAccountService(cli),
		positionSvc: NewPositionService(cli),
	}
}

func (s *Service) MarketService() exchange.MarketService {
	return s.marketSvc
}

func (s *Service) PositionService() exchange.PositionService {
	return s.positionSvc
}

func (s *Service) AccountService() exchange.AccountService {
	return s.accountSvc
}

// Credentials 币安 API 凭证, 只读权限即可
type Credentials struct {
	ApiKey    string `mapstructure:"api_key"`
	ApiSecret string `mapstructure:"api_secret"`
}

// NewClient 创建 USDⓈ-M 合约客户端, 测试网由 futures.UseTestnet 决定
func NewClient(creds Credentials) *futures.Client {
	return futures.NewClient(creds.ApiKey, creds.ApiSecret)
}

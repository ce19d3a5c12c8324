package exchange

// Service 交易所只读服务集合
type Service interface {
	MarketService() MarketService
	AccountService() AccountService
	PositionService() PositionService
}

package ioc

import (
	"github.com/KNICEX/trading-monitor/internal/service/exchange/binance"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/spf13/viper"
)

// InitBinanceCredentials 读取 cex.binance, 密钥也可以通过环境变量提供
func InitBinanceCredentials() binance.Credentials {
	_ = viper.BindEnv("cex.binance.api_key", "BINANCE_API_KEY")
	_ = viper.BindEnv("cex.binance.api_secret", "BINANCE_API_SECRET")

	creds := binance.Credentials{
		ApiKey:    viper.GetString("cex.binance.api_key"),
		ApiSecret: viper.GetString("cex.binance.api_secret"),
	}
	futures.UseTestnet = viper.GetBool("cex.binance.testnet")
	return creds
}

func InitSessionConfig() binance.SessionConfig {
	var cfg binance.SessionConfig
	if err := viper.UnmarshalKey("cex.binance.session", &cfg); err != nil {
		panic(err)
	}
	return cfg.WithDefaults()
}

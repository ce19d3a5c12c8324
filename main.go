package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/KNICEX/trading-monitor/internal/metrics"
	"github.com/KNICEX/trading-monitor/internal/repo"
	"github.com/KNICEX/trading-monitor/internal/schedule"
	"github.com/KNICEX/trading-monitor/internal/service/exchange/binance"
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/KNICEX/trading-monitor/ioc"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

type flags struct {
	config    *string
	market    *string
	threshold *float64
}

func initViper() flags {
	// .env 可选
	_ = godotenv.Load()

	// --config=./config/xxx.yaml
	f := flags{
		config:    pflag.String("config", "./config/config.dev.yaml", "specify config file"),
		market:    pflag.String("market", "", "override watch.market, e.g. BTCUSDT"),
		threshold: pflag.Float64("threshold", 0, "override watch.price_threshold, e.g. 0.01 for 1%"),
	}
	pflag.Parse()

	viper.SetConfigFile(*f.config)
	viper.SetEnvPrefix("MONITOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	err := viper.ReadInConfig()
	if err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}
	return f
}

func applyOverrides(f flags, targets watch.Targets) watch.Targets {
	if pflag.CommandLine.Changed("market") {
		targets.Market = *f.market
	}
	if pflag.CommandLine.Changed("threshold") {
		v := *f.threshold
		targets.PriceThreshold = &v
	}
	return targets
}

func main() {
	f := initViper()
	log := ioc.InitLogger()

	targets := applyOverrides(f, ioc.InitTargets())
	ms, err := watch.BuildMetrics(targets)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid watch targets")
	}
	cfg := ioc.InitWatchConfig()

	if addr := viper.GetString("metrics.addr"); addr != "" {
		srv := metrics.Serve(addr)
		defer srv.Close()
		log.Info().Str("addr", addr).Msg("metrics up")
	}

	var db *gorm.DB
	if viper.GetBool("notify.journal") {
		db = ioc.InitDB()
		pruneJournal(db, log)
	}

	console := ioc.InitConsole()
	notifier := ioc.InitNotifier(console, db, log)
	console.Header("Account Monitor", describe(targets, ms, cfg)...)
	console.Info("Press Ctrl+C to stop")

	factory := binance.NewSessionFactory(ioc.InitBinanceCredentials(), ioc.InitSessionConfig(), targets, log)
	loop := watch.NewLoop(cfg, ms, factory, notifier, log)
	var task schedule.Task = watch.NewSupervisor(loop, cfg.ReconnectCooldown, notifier, log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info().Str("task", task.Name()).Int("metrics", len(ms)).Msg("monitor started")
	if err := task.Run(ctx); err != nil {
		log.Error().Err(err).Msg("monitor stopped")
		os.Exit(1)
	}
	log.Info().Msg("shutting down")
}

func describe(targets watch.Targets, ms []watch.Metric, cfg watch.Config) []string {
	lines := []string{"Market: " + targets.Market}
	if targets.PriceThreshold != nil {
		lines = append(lines, fmt.Sprintf("Price change threshold: %g%%", *targets.PriceThreshold*100))
	} else {
		lines = append(lines, "Price monitoring: All price changes will be displayed")
	}
	if len(targets.Assets) > 0 {
		lines = append(lines, "Assets: "+strings.Join(targets.Assets, ", "))
	}
	if len(targets.FundingMarkets) > 0 {
		lines = append(lines, "Funding markets: "+strings.Join(targets.FundingMarkets, ", "))
	}
	lines = append(lines, fmt.Sprintf("Tracking %d metrics, polling every %s, status every %s",
		len(ms), cfg.FastInterval, cfg.SlowInterval))
	if viper.GetBool("cex.binance.testnet") {
		lines = append(lines, "Using Binance futures testnet")
	}
	return lines
}

// pruneJournal 清理过期记录并打印上次运行的最后几条播报
func pruneJournal(db *gorm.DB, log zerolog.Logger) {
	r := repo.NewAnnouncementRepo(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if retention := viper.GetDuration("journal.retention"); retention > 0 {
		n, err := r.Prune(ctx, time.Now().Add(-retention))
		if err != nil {
			log.Warn().Err(err).Msg("prune journal")
		} else if n > 0 {
			log.Info().Int64("deleted", n).Msg("journal pruned")
		}
	}

	latest, err := r.Latest(ctx, 5)
	if err != nil {
		log.Warn().Err(err).Msg("read journal")
		return
	}
	for _, a := range latest {
		log.Info().Time("at", a.CreatedAt).Str("metric", a.MetricID).Str("type", a.Type).
			Str("value", a.Current).Str("message", a.Message).Msg("previous run")
	}
}

package ioc

import (
	"os"

	"github.com/KNICEX/trading-monitor/internal/repo"
	"github.com/KNICEX/trading-monitor/internal/service/notification"
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

func InitWatchConfig() watch.Config {
	var cfg watch.Config
	if err := viper.UnmarshalKey("watch.schedule", &cfg); err != nil {
		panic(err)
	}
	return cfg.WithDefaults()
}

func InitTargets() watch.Targets {
	var t watch.Targets
	if err := viper.UnmarshalKey("watch", &t); err != nil {
		panic(err)
	}
	return t
}

// InitNotifier 按配置组合终端/日志/数据库三种输出, 终端输出默认开启
func InitNotifier(console *notification.Console, db *gorm.DB, log zerolog.Logger) watch.Notifier {
	viper.SetDefault("notify.console", true)

	var m notification.Multi
	if viper.GetBool("notify.console") {
		m = append(m, console)
	}
	if viper.GetBool("notify.log") {
		m = append(m, notification.NewLog(log.With().Str("component", "notify").Logger()))
	}
	if viper.GetBool("notify.journal") && db != nil {
		m = append(m, notification.NewJournal(repo.NewAnnouncementRepo(db), log))
	}
	return m
}

func InitConsole() *notification.Console {
	return notification.NewConsole(os.Stdout)
}

package notification

import (
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/charmbracelet/lipgloss"
)

var (
	_ watch.Notifier = (*Console)(nil)
	_ watch.Notifier = (*Journal)(nil)
	_ watch.Notifier = (*Log)(nil)
	_ watch.Notifier = Multi(nil)
)

// ANSI 色号, 兼容大多数终端
const (
	colorUp     lipgloss.Color = "10" // bright green
	colorDown   lipgloss.Color = "9"  // bright red
	colorFlat   lipgloss.Color = "7"
	colorPrice  lipgloss.Color = "14" // bright cyan
	colorMuted  lipgloss.Color = "8"
	colorTitle  lipgloss.Color = "15"
	colorBorder lipgloss.Color = "12" // bright blue
	colorIcon   lipgloss.Color = "11" // bright yellow
	colorInfo   lipgloss.Color = "12"
)

// Width 分隔线宽度
const Width = 60

const noData = "No data yet"

package notification

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
)

type styles struct {
	up     lipgloss.Style
	down   lipgloss.Style
	flat   lipgloss.Style
	price  lipgloss.Style
	muted  lipgloss.Style
	title  lipgloss.Style
	border lipgloss.Style
	icon   lipgloss.Style
	info   lipgloss.Style
}

// 颜色是否输出由 renderer 根据 writer 自动判断, 非终端时为纯文本
func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		up:     r.NewStyle().Foreground(colorUp),
		down:   r.NewStyle().Foreground(colorDown),
		flat:   r.NewStyle().Foreground(colorFlat),
		price:  r.NewStyle().Foreground(colorPrice),
		muted:  r.NewStyle().Foreground(colorMuted),
		title:  r.NewStyle().Foreground(colorTitle).Bold(true),
		border: r.NewStyle().Foreground(colorBorder),
		icon:   r.NewStyle().Foreground(colorIcon),
		info:   r.NewStyle().Foreground(colorInfo),
	}
}

type ConsoleOption func(c *Console)

// WithClock 替换时间戳来源
func WithClock(now func() time.Time) ConsoleOption {
	return func(c *Console) {
		c.now = now
	}
}

// Console 在终端输出彩色的播报行和状态摘要
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	st  styles
	now func() time.Time
}

func NewConsole(w io.Writer, opts ...ConsoleOption) *Console {
	c := &Console{
		w:   w,
		st:  newStyles(lipgloss.NewRenderer(w)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Console) println(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintln(c.w, s)
}

func (c *Console) timestamp() string {
	return c.st.muted.Render(c.now().Format(time.TimeOnly))
}

func (c *Console) divider() string {
	return c.st.muted.Render(strings.Repeat("─", Width))
}

// Header 启动时输出标题和配置信息
func (c *Console) Header(title string, lines ...string) {
	var b strings.Builder
	border := c.st.border.Render(strings.Repeat("═", Width))
	b.WriteString(border + "\n")
	b.WriteString(c.st.title.Render("  🚀 "+title) + "\n")
	for _, line := range lines {
		b.WriteString("  " + c.st.info.Render(line) + "\n")
	}
	b.WriteString(border)
	c.println(b.String())
}

func (c *Console) Info(message string) {
	c.println(c.st.info.Render("ℹ️  " + message))
}

func kindTitle(kind watch.Kind) (icon, title string) {
	switch kind {
	case watch.KindPrice:
		return "📈", "Price"
	case watch.KindBalance:
		return "💰", "Balance"
	case watch.KindPosition:
		return "📊", "Position"
	case watch.KindPnl:
		return "📊", "PnL"
	case watch.KindFunding:
		return "💸", "Funding Rate"
	case watch.KindFunding24h:
		return "💸", "Funding Rate 24h avg"
	default:
		return "•", string(kind)
	}
}

// directional 按符号着色
func (c *Console) directional(s string, v decimal.Decimal) string {
	switch v.Sign() {
	case 1:
		return c.st.up.Render(s)
	case -1:
		return c.st.down.Render(s)
	default:
		return c.st.flat.Render(s)
	}
}

func (c *Console) renderValue(kind watch.Kind, v decimal.Decimal) string {
	s := formatValue(kind, v)
	switch kind {
	case watch.KindPrice:
		return c.st.price.Render(s)
	case watch.KindPosition:
		return s
	case watch.KindBalance:
		if v.IsNegative() {
			return c.st.down.Render(s)
		}
		return c.st.up.Render(s)
	default:
		return c.directional(s, v)
	}
}

func (c *Console) line(id watch.MetricID, value, suffix string) string {
	icon, title := kindTitle(id.Kind())
	s := fmt.Sprintf("%s %s %s: %s %s", c.timestamp(), c.st.icon.Render(icon), title,
		c.st.title.Render(id.Subject()), value)
	if suffix != "" {
		s += " " + suffix
	}
	return s
}

func (c *Console) OnBootstrap(id watch.MetricID, value decimal.Decimal) {
	c.println(c.line(id, c.renderValue(id.Kind(), value), c.st.muted.Render("(first known value)")))
}

func (c *Console) OnChange(event watch.ChangeEvent) {
	if event.Bootstrap() {
		c.OnBootstrap(event.ID, event.Current)
		return
	}
	c.println(c.line(event.ID, c.renderValue(event.ID.Kind(), event.Current), c.changeSuffix(event)))
}

// changeSuffix 价格显示涨跌幅, 其它指标显示带符号的差值
func (c *Console) changeSuffix(event watch.ChangeEvent) string {
	prev, cur := event.Previous.Decimal, event.Current
	kind := event.ID.Kind()
	if kind == watch.KindPrice {
		if pct, change, ok := formatPercentChange(prev, cur); ok {
			return c.directional(pct, change)
		}
	}
	delta := cur.Sub(prev)
	var s string
	switch kind {
	case watch.KindFunding, watch.KindFunding24h:
		s = formatRate(delta)
	case watch.KindPnl:
		s = signed(formatValue(kind, delta), delta)
	default:
		s, _ = formatDelta(prev, cur)
	}
	return "(" + c.directional(s, delta) + ")"
}

// OnSummary 输出全部指标, 从未观测到的显示为 No data yet
func (c *Console) OnSummary(snapshot watch.Snapshot) {
	var b strings.Builder
	b.WriteString(c.divider() + "\n")
	b.WriteString(c.st.title.Render("📋 Current Status") + " " + c.timestamp() + "\n")
	for _, r := range snapshot {
		value := c.st.muted.Render(noData)
		if r.Value.Valid {
			value = c.renderValue(r.ID.Kind(), r.Value.Decimal)
		}
		b.WriteString(fmt.Sprintf("  %s: %s\n", label(r.ID), value))
	}
	b.WriteString(c.divider())
	c.println(b.String())
}

func (c *Console) OnError(message string) {
	c.println(c.st.down.Render("❌ " + message))
}

package notification

import (
	"context"
	"time"

	"github.com/KNICEX/trading-monitor/internal/entity"
	"github.com/KNICEX/trading-monitor/internal/repo"
	"github.com/KNICEX/trading-monitor/internal/service/watch"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const journalWriteTimeout = time.Second

// Journal 把播报写入数据库, 写入失败只记日志
type Journal struct {
	repo repo.AnnouncementRepo
	log  zerolog.Logger
}

func NewJournal(repo repo.AnnouncementRepo, log zerolog.Logger) *Journal {
	return &Journal{repo: repo, log: log}
}

func (j *Journal) save(a entity.Announcement) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if _, err := j.repo.Create(ctx, a); err != nil {
		j.log.Error().Err(err).Str("metric", a.MetricID).Str("type", a.Type).Msg("journal write failed")
	}
}

func (j *Journal) OnBootstrap(id watch.MetricID, value decimal.Decimal) {
	j.save(entity.Announcement{
		MetricID: id.String(),
		Kind:     string(id.Kind()),
		Type:     entity.AnnouncementBootstrap,
		Current:  value.String(),
	})
}

func (j *Journal) OnChange(event watch.ChangeEvent) {
	if event.Bootstrap() {
		j.OnBootstrap(event.ID, event.Current)
		return
	}
	j.save(entity.Announcement{
		MetricID: event.ID.String(),
		Kind:     string(event.ID.Kind()),
		Type:     entity.AnnouncementChange,
		Previous: event.Previous.Decimal.String(),
		Current:  event.Current.String(),
	})
}

// OnSummary 摘要不入库
func (j *Journal) OnSummary(snapshot watch.Snapshot) {}

func (j *Journal) OnError(message string) {
	j.save(entity.Announcement{
		Type:    entity.AnnouncementError,
		Message: message,
	})
}

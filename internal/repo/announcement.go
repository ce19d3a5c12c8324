package repo

import (
	"context"
	"time"

	"github.com/KNICEX/trading-monitor/internal/entity"
	"gorm.io/gorm"
)

type AnnouncementRepo interface {
	Create(ctx context.Context, a entity.Announcement) (int64, error)
	// Latest 最近 limit 条记录, 新的在前
	Latest(ctx context.Context, limit int) ([]entity.Announcement, error)
	FindByMetric(ctx context.Context, metricID string, limit int) ([]entity.Announcement, error)
	// Prune 删除 before 之前的记录, 返回删除条数
	Prune(ctx context.Context, before time.Time) (int64, error)
}

type announcementRepo struct {
	db *gorm.DB
}

func NewAnnouncementRepo(db *gorm.DB) AnnouncementRepo {
	return &announcementRepo{
		db: db,
	}
}

func (r *announcementRepo) Create(ctx context.Context, a entity.Announcement) (int64, error) {
	err := r.db.WithContext(ctx).Create(&a).Error
	if err != nil {
		return 0, err
	}
	return a.Id, nil
}

func (r *announcementRepo) Latest(ctx context.Context, limit int) ([]entity.Announcement, error) {
	var res []entity.Announcement
	err := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *announcementRepo) FindByMetric(ctx context.Context, metricID string, limit int) ([]entity.Announcement, error) {
	var res []entity.Announcement
	err := r.db.WithContext(ctx).Where("metric_id = ?", metricID).Order("id DESC").Limit(limit).Find(&res).Error
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (r *announcementRepo) Prune(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before).Delete(&entity.Announcement{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

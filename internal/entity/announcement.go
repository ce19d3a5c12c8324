package entity

import (
	"time"
)

// Announcement 已发出的通知记录, 只追加, 不用于恢复状态
type Announcement struct {
	Id       int64  `gorm:"primaryKey;autoIncrement"`
	MetricID string `gorm:"index"`
	Kind     string `gorm:"index"`
	Type     string `gorm:"index"`
	// Previous 首次播报时为空
	Previous  string
	Current   string
	Message   string
	CreatedAt time.Time `gorm:"index"`
}

const (
	AnnouncementBootstrap = "bootstrap"
	AnnouncementChange    = "change"
	AnnouncementError     = "error"
)

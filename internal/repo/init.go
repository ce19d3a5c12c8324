package repo

import (
	"github.com/KNICEX/trading-monitor/internal/entity"
	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(&entity.Announcement{})
}

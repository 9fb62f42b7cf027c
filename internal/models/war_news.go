package models

import (
	"time"

	"gorm.io/datatypes"
)

// WarNewsItem is one classified news article. ID is the article URL when present.
type WarNewsItem struct {
	ID          string         `gorm:"primaryKey;type:varchar(512)"`
	Title       string         `gorm:"type:text;not null"`
	Summary     string         `gorm:"type:text"`
	URL         string         `gorm:"type:text"`
	SourceName  string         `gorm:"type:varchar(120);index"`
	SourceType  string         `gorm:"type:varchar(10);not null"` // api | rss
	Category    string         `gorm:"type:varchar(30);not null;index"`
	Severity    string         `gorm:"type:varchar(20);not null;index"`
	Keywords    datatypes.JSON `gorm:"type:jsonb"`
	Verified    bool           `gorm:"not null;default:false"`
	PublishedAt *time.Time     `gorm:"type:timestamptz;index"`
	FetchedAt   time.Time      `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WarNewsItem) TableName() string {
	return "war_news"
}

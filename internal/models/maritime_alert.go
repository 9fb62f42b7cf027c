package models

import "time"

// MaritimeAlert is one advisory scraped from a maritime authority page.
type MaritimeAlert struct {
	Fingerprint   string     `gorm:"primaryKey;type:char(64)"`
	Source        string     `gorm:"type:varchar(80);not null;index"`
	Title         string     `gorm:"type:text;not null"`
	Text          string     `gorm:"type:text"`
	URL           string     `gorm:"type:text"`
	ThreatLevel   string     `gorm:"type:varchar(20);not null;index"`
	Region        string     `gorm:"type:varchar(40);index"`
	AffectsStrait bool       `gorm:"not null;default:false;index"`
	PublishedAt   *time.Time `gorm:"type:timestamptz;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MaritimeAlert) TableName() string {
	return "maritime_alerts"
}

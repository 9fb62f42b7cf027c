package models

import "time"

// MapEvent is a geocoded geopolitical event shown on the map.
type MapEvent struct {
	Fingerprint  string    `gorm:"primaryKey;type:char(64)"`
	EventType    string    `gorm:"type:varchar(40);not null;index"`
	Title        string    `gorm:"type:text;not null"`
	LocationName string    `gorm:"type:varchar(80)"`
	Lat          float64   `gorm:"not null"`
	Lon          float64   `gorm:"not null"`
	Region       string    `gorm:"type:varchar(40);index"`
	Source       string    `gorm:"type:varchar(120)"`
	SourceURL    string    `gorm:"type:text"`
	Severity     string    `gorm:"type:varchar(20);not null;index"`
	Verified     bool      `gorm:"not null;default:false"`
	Active       bool      `gorm:"not null;default:true;index"`
	PublishedAt  time.Time `gorm:"type:timestamptz;not null;index"`
	ExpiresAt    time.Time `gorm:"type:timestamptz;not null;index"`
	LastSeenAt   time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (MapEvent) TableName() string {
	return "map_events"
}

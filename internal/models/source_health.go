package models

import "time"

// SourceHealth records the outcome of the latest run of one collector.
type SourceHealth struct {
	Name      string     `gorm:"primaryKey;type:varchar(50)"`
	Kind      string     `gorm:"type:varchar(30);not null"`
	Endpoint  string     `gorm:"type:text"`
	Status    string     `gorm:"type:varchar(20);not null;index"` // healthy | degraded | down | disabled
	LastRunAt *time.Time `gorm:"type:timestamptz"`
	LastError *string    `gorm:"type:text"`
	LastCount int        `gorm:"not null;default:0"`
	Duration  int64      `gorm:"column:duration_ms;not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (SourceHealth) TableName() string {
	return "source_health"
}

package models

import "time"

// OilPrice is one benchmark snapshot per fetch bucket.
type OilPrice struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	Benchmark      string    `gorm:"type:varchar(20);not null;uniqueIndex:uniq_oil_price_bucket"`
	BucketAt       time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_oil_price_bucket"`
	Price          float64   `gorm:"not null"`
	Open           float64   `gorm:"not null;default:0"`
	High           float64   `gorm:"not null;default:0"`
	Low            float64   `gorm:"not null;default:0"`
	Close          float64   `gorm:"not null;default:0"`
	PrevClose      float64   `gorm:"not null;default:0"`
	Change1hPct    float64   `gorm:"column:change_1h_pct;not null;default:0"`
	Change30mPct   float64   `gorm:"column:change_30m_pct;not null;default:0"`
	ChangeClosePct float64   `gorm:"not null;default:0"`
	Volume         int64     `gorm:"not null;default:0"`
	MarketOpen     bool      `gorm:"not null;default:false"`
	Spike          bool      `gorm:"not null;default:false;index"`
	SampledAt      time.Time `gorm:"type:timestamptz"`
	FetchedAt      time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (OilPrice) TableName() string {
	return "oil_prices"
}

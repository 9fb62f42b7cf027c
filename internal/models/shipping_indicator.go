package models

import "time"

const (
	IndicatorWarRiskPremium = "war_risk_premium_pct"
	IndicatorVLCCDayRate    = "vlcc_day_rate_usd"
	IndicatorWorldscale     = "worldscale_points"
	IndicatorWarRiskMention = "war_risk_mentions"
	IndicatorInsuranceProxy = "insurance_proxy_score"
)

// ShippingIndicator is one market indicator extracted from trade press per fetch bucket.
type ShippingIndicator struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	IndicatorType string    `gorm:"type:varchar(40);not null;uniqueIndex:uniq_indicator_bucket"`
	BucketAt      time.Time `gorm:"type:timestamptz;not null;uniqueIndex:uniq_indicator_bucket"`
	Name          string    `gorm:"type:varchar(120);not null"`
	Value         float64   `gorm:"not null"`
	Unit          string    `gorm:"type:varchar(20)"`
	Source        string    `gorm:"type:varchar(120)"`
	ChangePct     *float64  `gorm:"type:double precision"`
	Notes         string    `gorm:"type:text"`
	FetchedAt     time.Time `gorm:"type:timestamptz;not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ShippingIndicator) TableName() string {
	return "shipping_indicators"
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

const ZoneAll = "all"

// TrafficSummary aggregates one vessel batch for a period and zone.
type TrafficSummary struct {
	ID                      uint64         `gorm:"primaryKey;autoIncrement"`
	PeriodType              string         `gorm:"type:varchar(20);not null;uniqueIndex:uniq_traffic_period"`
	PeriodStart             time.Time      `gorm:"type:timestamptz;not null;uniqueIndex:uniq_traffic_period"`
	Zone                    string         `gorm:"type:varchar(30);not null;uniqueIndex:uniq_traffic_period"`
	VesselTypeCounts        datatypes.JSON `gorm:"type:jsonb"`
	StatusCounts            datatypes.JSON `gorm:"type:jsonb"`
	Inbound                 int            `gorm:"not null;default:0"`
	Outbound                int            `gorm:"not null;default:0"`
	TotalVessels            int            `gorm:"not null;default:0"`
	Turns                   int            `gorm:"not null;default:0"`
	AvgSpeed                float64        `gorm:"not null;default:0"`
	EstimatedThroughputMbbl float64        `gorm:"column:estimated_throughput_mbbl;not null;default:0"`
	ChangePct               *float64       `gorm:"type:double precision"`
	Anomaly                 bool           `gorm:"not null;default:false;index"`
	AnomalyDescription      string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TrafficSummary) TableName() string {
	return "traffic_summaries"
}

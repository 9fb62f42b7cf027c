package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	AnalysisOK     = "ok"
	AnalysisFailed = "failed"
)

// AnalysisLog records every reasoning call. It is the only place cost is accounted.
type AnalysisLog struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)"`
	Status       string          `gorm:"type:varchar(10);not null;index"`
	InputSummary string          `gorm:"type:text"`
	NewsIDs      datatypes.JSON  `gorm:"type:jsonb"`
	Output       datatypes.JSON  `gorm:"type:jsonb"`
	RawOutput    string          `gorm:"type:text"`
	AlertLevel   string          `gorm:"type:varchar(20);index"`
	Changed      bool            `gorm:"not null;default:false"`
	InputTokens  int             `gorm:"not null;default:0"`
	OutputTokens int             `gorm:"not null;default:0"`
	CostUSD      decimal.Decimal `gorm:"column:cost_usd;type:numeric(12,6);not null;default:0"`
	DurationMs   int64           `gorm:"not null;default:0"`
	Notified     bool            `gorm:"not null;default:false"`
	Error        *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;not null;index"`
}

func (AnalysisLog) TableName() string {
	return "analysis_logs"
}

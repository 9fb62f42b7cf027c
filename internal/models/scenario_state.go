package models

import (
	"time"

	"gorm.io/datatypes"
)

const CurrentScenarioID = "current"

// Alert levels, in escalation order.
const (
	LevelNone     = "NONE"
	LevelElevated = "ELEVATED"
	LevelHigh     = "HIGH"
	LevelCritical = "CRITICAL"
)

var levelRank = map[string]int{LevelNone: 0, LevelElevated: 1, LevelHigh: 2, LevelCritical: 3}

// LevelRank orders alert levels; unknown levels rank -1.
func LevelRank(level string) int {
	if r, ok := levelRank[level]; ok {
		return r
	}
	return -1
}

func ValidLevel(level string) bool {
	_, ok := levelRank[level]
	return ok
}

// ScenarioState is the persisted crisis judgement. Only the row with ID "current" is live;
// Version guards the read-modify-write against overlapping cycles.
type ScenarioState struct {
	ID              string         `gorm:"primaryKey;type:varchar(20)"`
	Version         int64          `gorm:"not null;default:0"`
	AlertLevel      string         `gorm:"type:varchar(20);not null"`
	PrimaryScenario string         `gorm:"type:text;not null"`
	Variables       datatypes.JSON `gorm:"type:jsonb"`
	NewsIDs         datatypes.JSON `gorm:"type:jsonb"`
	LastAnalysisID  *string        `gorm:"type:varchar(36)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ScenarioState) TableName() string {
	return "scenario_states"
}

// ScenarioTransition is the append-only history of state changes.
type ScenarioTransition struct {
	ID                 uint64         `gorm:"primaryKey;autoIncrement"`
	AnalysisID         string         `gorm:"type:varchar(36);not null;index"`
	FromLevel          string         `gorm:"type:varchar(20);not null"`
	ToLevel            string         `gorm:"type:varchar(20);not null"`
	FromScenario       string         `gorm:"type:text"`
	ToScenario         string         `gorm:"type:text"`
	TransitionDetected bool           `gorm:"not null;default:false"`
	NewsIDs            datatypes.JSON `gorm:"type:jsonb"`
	Version            int64          `gorm:"not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (ScenarioTransition) TableName() string {
	return "scenario_transitions"
}

package models

import "time"

const (
	VesselTransiting = "transiting"
	VesselStopped    = "stopped"
	VesselUTurn      = "u_turn"
	VesselDark       = "dark"
)

// VesselPosition holds the latest observation per vessel.
type VesselPosition struct {
	MMSI         string  `gorm:"primaryKey;type:varchar(20)"`
	Name         string  `gorm:"type:varchar(120)"`
	VesselType   string  `gorm:"type:varchar(30);index"`
	ShipTypeCode int     `gorm:"not null;default:0"`
	Lat          float64 `gorm:"not null"`
	Lon          float64 `gorm:"not null"`
	Speed        float64 `gorm:"not null;default:0"`
	Heading      *float64  `gorm:"type:double precision"`
	Course       *float64  `gorm:"type:double precision"`
	NavStatus    int     `gorm:"not null;default:15"`
	Draught      *float64  `gorm:"type:double precision"`
	Destination  string    `gorm:"type:varchar(120)"`
	Status       string    `gorm:"type:varchar(20);not null;index"`
	Zone         string    `gorm:"type:varchar(30);not null;index"`
	ObservedAt   time.Time `gorm:"type:timestamptz;not null;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (VesselPosition) TableName() string {
	return "vessel_positions"
}

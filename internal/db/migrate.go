package db

import (
	"straitwatch/internal/models"
)

// Models lists every table the service owns, in migration order.
func Models() []any {
	return []any{
		// ingestion
		&models.VesselPosition{},
		&models.MapEvent{},
		&models.MaritimeAlert{},
		&models.WarNewsItem{},
		&models.OilPrice{},
		&models.ShippingIndicator{},
		&models.TrafficSummary{},
		&models.SourceHealth{},
		// reasoning
		&models.ScenarioState{},
		&models.ScenarioTransition{},
		&models.AnalysisLog{},
		&models.SystemSetting{},
	}
}

func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil || db.SQL == nil {
		return nil
	}
	return db.Gorm.AutoMigrate(Models()...)
}

package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"straitwatch/internal/models"
)

// IngestRepository is the write side used by collectors. Every upsert reports
// whether a new row was created so re-ingesting identical data is observable.
type IngestRepository interface {
	UpsertVesselPosition(ctx context.Context, item *models.VesselPosition) (bool, error)
	UpsertMapEvent(ctx context.Context, item *models.MapEvent) (bool, error)
	UpsertMaritimeAlert(ctx context.Context, item *models.MaritimeAlert) (bool, error)
	UpsertWarNews(ctx context.Context, item *models.WarNewsItem) (bool, error)
	UpsertOilPrice(ctx context.Context, item *models.OilPrice) (bool, error)
	UpsertShippingIndicator(ctx context.Context, item *models.ShippingIndicator) (bool, error)
	UpsertTrafficSummary(ctx context.Context, item *models.TrafficSummary) (bool, error)
	GetPreviousTrafficSummary(ctx context.Context, periodType string, zone string, before time.Time) (*models.TrafficSummary, error)
	UpsertSourceHealth(ctx context.Context, item *models.SourceHealth) error
}

// AnalysisRepository backs the governor, the orchestrator and the dispatcher.
type AnalysisRepository interface {
	InsertAnalysisLog(ctx context.Context, item *models.AnalysisLog) error
	MarkAnalysisNotified(ctx context.Context, id string) error
	SumAnalysisCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	CountAnalysesSince(ctx context.Context, since time.Time) (int64, error)
	GetLastSuccessfulAnalysis(ctx context.Context) (*models.AnalysisLog, error)
	ListAnalysisLogs(ctx context.Context, params ListAnalysisLogsParams) ([]models.AnalysisLog, error)
}

type ScenarioRepository interface {
	GetScenarioState(ctx context.Context) (*models.ScenarioState, error)
	CreateScenarioState(ctx context.Context, item *models.ScenarioState) error
	// ApplyScenarioUpdate writes next only while the stored version equals
	// expectedVersion, and records the transition in the same transaction.
	// It returns false when no row matched.
	ApplyScenarioUpdate(ctx context.Context, expectedVersion int64, next *models.ScenarioState, transition *models.ScenarioTransition) (bool, error)
	ListScenarioTransitions(ctx context.Context, params ListScenarioTransitionsParams) ([]models.ScenarioTransition, error)
}

// SignalRepository is the filtered read side: aggregation for the significance
// filter and the analyzer payload, and the presentation read API.
type SignalRepository interface {
	CountNewsSince(ctx context.Context, since time.Time) (NewsCounts, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int64, error)
	ListWarNews(ctx context.Context, params ListWarNewsParams) ([]models.WarNewsItem, error)
	ListMaritimeAlerts(ctx context.Context, params ListMaritimeAlertsParams) ([]models.MaritimeAlert, error)
	ListMapEvents(ctx context.Context, params ListMapEventsParams) ([]models.MapEvent, error)
	ListVesselPositions(ctx context.Context, params ListVesselPositionsParams) ([]models.VesselPosition, error)
	ListOilPrices(ctx context.Context, params ListOilPricesParams) ([]models.OilPrice, error)
	ListLatestOilPrices(ctx context.Context) ([]models.OilPrice, error)
	ListShippingIndicators(ctx context.Context, params ListShippingIndicatorsParams) ([]models.ShippingIndicator, error)
	ListLatestShippingIndicators(ctx context.Context) ([]models.ShippingIndicator, error)
	ListTrafficSummaries(ctx context.Context, params ListTrafficSummariesParams) ([]models.TrafficSummary, error)
	GetLatestTrafficSummary(ctx context.Context, zone string) (*models.TrafficSummary, error)
	ListSourceHealth(ctx context.Context) ([]models.SourceHealth, error)
}

type MaintenanceRepository interface {
	DeactivateExpiredMapEvents(ctx context.Context, now time.Time) (int64, error)
	MarkDarkVessels(ctx context.Context, notSeenSince time.Time) (int64, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
}

// Repository is the full store used by the service wiring.
type Repository interface {
	IngestRepository
	AnalysisRepository
	ScenarioRepository
	SignalRepository
	MaintenanceRepository
	SettingsRepository
}

type NewsCounts struct {
	Total    int64
	Critical int64
	High     int64
}

type ListWarNewsParams struct {
	Limit      int
	Offset     int
	Category   *string
	Severity   *string
	SourceType *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListMaritimeAlertsParams struct {
	Limit         int
	Offset        int
	Source        *string
	ThreatLevel   *string
	AffectsStrait *bool
	Since         *time.Time
	OrderBy       string
	Asc           *bool
}

type ListMapEventsParams struct {
	Limit     int
	Offset    int
	EventType *string
	Severity  *string
	Region    *string
	Active    *bool
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}

type ListVesselPositionsParams struct {
	Limit      int
	Offset     int
	Zone       *string
	Status     *string
	VesselType *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListOilPricesParams struct {
	Limit     int
	Offset    int
	Benchmark *string
	Since     *time.Time
	OrderBy   string
	Asc       *bool
}

type ListShippingIndicatorsParams struct {
	Limit         int
	Offset        int
	IndicatorType *string
	Since         *time.Time
	OrderBy       string
	Asc           *bool
}

type ListTrafficSummariesParams struct {
	Limit      int
	Offset     int
	Zone       *string
	PeriodType *string
	Anomaly    *bool
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListAnalysisLogsParams struct {
	Limit      int
	Offset     int
	Status     *string
	AlertLevel *string
	Since      *time.Time
	OrderBy    string
	Asc        *bool
}

type ListScenarioTransitionsParams struct {
	Limit   int
	Offset  int
	Since   *time.Time
	OrderBy string
	Asc     *bool
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

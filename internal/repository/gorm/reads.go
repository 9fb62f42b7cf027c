package gormrepository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

func (s *Store) CountNewsSince(ctx context.Context, since time.Time) (repository.NewsCounts, error) {
	var out repository.NewsCounts
	if s == nil || s.db == nil {
		return out, nil
	}
	base := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.WarNewsItem{}).Where("created_at >= ?", since)
	}
	if err := base().Count(&out.Total).Error; err != nil {
		return out, err
	}
	if err := base().Where("severity = ?", "critical").Count(&out.Critical).Error; err != nil {
		return out, err
	}
	if err := base().Where("severity = ?", "high").Count(&out.High).Error; err != nil {
		return out, err
	}
	return out, nil
}

func (s *Store) CountAlertsSince(ctx context.Context, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.MaritimeAlert{}).Where("created_at >= ?", since).Count(&total).Error
	return total, err
}

func (s *Store) ListWarNews(ctx context.Context, params repository.ListWarNewsParams) ([]models.WarNewsItem, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.WarNewsItem{})
	if v, ok := trimmed(params.Category); ok {
		query = query.Where("category = ?", v)
	}
	if v, ok := trimmed(params.Severity); ok {
		query = query.Where("severity = ?", v)
	}
	if v, ok := trimmed(params.SourceType); ok {
		query = query.Where("source_type = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "created_at", "published_at"), params.Asc, "created_at")
	var items []models.WarNewsItem
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMaritimeAlerts(ctx context.Context, params repository.ListMaritimeAlertsParams) ([]models.MaritimeAlert, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.MaritimeAlert{})
	if v, ok := trimmed(params.Source); ok {
		query = query.Where("source = ?", v)
	}
	if v, ok := trimmed(params.ThreatLevel); ok {
		query = query.Where("threat_level = ?", v)
	}
	if params.AffectsStrait != nil {
		query = query.Where("affects_strait = ?", *params.AffectsStrait)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "created_at", "published_at"), params.Asc, "created_at")
	var items []models.MaritimeAlert
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListMapEvents(ctx context.Context, params repository.ListMapEventsParams) ([]models.MapEvent, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.MapEvent{})
	if v, ok := trimmed(params.EventType); ok {
		query = query.Where("event_type = ?", v)
	}
	if v, ok := trimmed(params.Severity); ok {
		query = query.Where("severity = ?", v)
	}
	if v, ok := trimmed(params.Region); ok {
		query = query.Where("region = ?", v)
	}
	if params.Active != nil {
		query = query.Where("active = ?", *params.Active)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "created_at", "published_at", "expires_at"), params.Asc, "published_at")
	var items []models.MapEvent
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListVesselPositions(ctx context.Context, params repository.ListVesselPositionsParams) ([]models.VesselPosition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.VesselPosition{})
	if v, ok := trimmed(params.Zone); ok {
		query = query.Where("zone = ?", v)
	}
	if v, ok := trimmed(params.Status); ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := trimmed(params.VesselType); ok {
		query = query.Where("vessel_type = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("observed_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "observed_at", "speed"), params.Asc, "observed_at")
	var items []models.VesselPosition
	if err := query.Limit(normalizeLimit(params.Limit, 500)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOilPrices(ctx context.Context, params repository.ListOilPricesParams) ([]models.OilPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.OilPrice{})
	if v, ok := trimmed(params.Benchmark); ok {
		query = query.Where("benchmark = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("bucket_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "bucket_at"), params.Asc, "bucket_at")
	var items []models.OilPrice
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// ListLatestOilPrices returns the newest bucket of every benchmark.
func (s *Store) ListLatestOilPrices(ctx context.Context) ([]models.OilPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var benchmarks []string
	if err := s.db.WithContext(ctx).Model(&models.OilPrice{}).Distinct().Pluck("benchmark", &benchmarks).Error; err != nil {
		return nil, err
	}
	out := make([]models.OilPrice, 0, len(benchmarks))
	for _, b := range benchmarks {
		var item models.OilPrice
		err := s.db.WithContext(ctx).Where("benchmark = ?", b).Order("bucket_at desc").First(&item).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) ListShippingIndicators(ctx context.Context, params repository.ListShippingIndicatorsParams) ([]models.ShippingIndicator, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ShippingIndicator{})
	if v, ok := trimmed(params.IndicatorType); ok {
		query = query.Where("indicator_type = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("bucket_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "bucket_at", "value"), params.Asc, "bucket_at")
	var items []models.ShippingIndicator
	if err := query.Limit(normalizeLimit(params.Limit, 200)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListLatestShippingIndicators(ctx context.Context) ([]models.ShippingIndicator, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var types []string
	if err := s.db.WithContext(ctx).Model(&models.ShippingIndicator{}).Distinct().Pluck("indicator_type", &types).Error; err != nil {
		return nil, err
	}
	out := make([]models.ShippingIndicator, 0, len(types))
	for _, t := range types {
		var item models.ShippingIndicator
		err := s.db.WithContext(ctx).Where("indicator_type = ?", t).Order("bucket_at desc").First(&item).Error
		if err == gorm.ErrRecordNotFound {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) ListTrafficSummaries(ctx context.Context, params repository.ListTrafficSummariesParams) ([]models.TrafficSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.TrafficSummary{})
	if v, ok := trimmed(params.Zone); ok {
		query = query.Where("zone = ?", v)
	}
	if v, ok := trimmed(params.PeriodType); ok {
		query = query.Where("period_type = ?", v)
	}
	if params.Anomaly != nil {
		query = query.Where("anomaly = ?", *params.Anomaly)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("period_start >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "period_start"), params.Asc, "period_start")
	var items []models.TrafficSummary
	if err := query.Limit(normalizeLimit(params.Limit, 100)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) GetLatestTrafficSummary(ctx context.Context, zone string) (*models.TrafficSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TrafficSummary
	err := s.db.WithContext(ctx).Model(&models.TrafficSummary{}).
		Where("zone = ?", zone).
		Order("period_start desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSourceHealth(ctx context.Context) ([]models.SourceHealth, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.SourceHealth
	if err := s.db.WithContext(ctx).Model(&models.SourceHealth{}).Order("name asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

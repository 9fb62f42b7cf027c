package gormrepository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"straitwatch/internal/models"
)

// UpsertVesselPosition keeps one row per vessel and only moves it forward in time.
func (s *Store) UpsertVesselPosition(ctx context.Context, item *models.VesselPosition) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	item.MMSI = strings.TrimSpace(item.MMSI)
	if item.MMSI == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "mmsi"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.VesselPosition{}).
				Where("mmsi = ? AND observed_at <= ?", item.MMSI, item.ObservedAt).
				Updates(map[string]any{
					"name":           item.Name,
					"vessel_type":    item.VesselType,
					"ship_type_code": item.ShipTypeCode,
					"lat":            item.Lat,
					"lon":            item.Lon,
					"speed":          item.Speed,
					"heading":        item.Heading,
					"course":         item.Course,
					"nav_status":     item.NavStatus,
					"draught":        item.Draught,
					"destination":    item.Destination,
					"status":         item.Status,
					"zone":           item.Zone,
					"observed_at":    item.ObservedAt,
				}).Error
		})
}

// UpsertMapEvent re-affirms a known event: it becomes active again and keeps the later expiry.
func (s *Store) UpsertMapEvent(ctx context.Context, item *models.MapEvent) (bool, error) {
	if s == nil || s.db == nil || item == nil || item.Fingerprint == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "fingerprint"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.MapEvent{}).
				Where("fingerprint = ?", item.Fingerprint).
				Updates(map[string]any{
					"event_type":   item.EventType,
					"severity":     item.Severity,
					"region":       item.Region,
					"verified":     item.Verified,
					"active":       true,
					"last_seen_at": item.LastSeenAt,
					"expires_at":   gorm.Expr("CASE WHEN expires_at < ? THEN ? ELSE expires_at END", item.ExpiresAt, item.ExpiresAt),
				}).Error
		})
}

func (s *Store) UpsertMaritimeAlert(ctx context.Context, item *models.MaritimeAlert) (bool, error) {
	if s == nil || s.db == nil || item == nil || item.Fingerprint == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "fingerprint"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.MaritimeAlert{}).
				Where("fingerprint = ?", item.Fingerprint).
				Updates(map[string]any{
					"text":           item.Text,
					"threat_level":   item.ThreatLevel,
					"region":         item.Region,
					"affects_strait": item.AffectsStrait,
				}).Error
		})
}

func (s *Store) UpsertWarNews(ctx context.Context, item *models.WarNewsItem) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "id"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.WarNewsItem{}).
				Where("id = ?", item.ID).
				Updates(map[string]any{
					"category":   item.Category,
					"severity":   item.Severity,
					"keywords":   item.Keywords,
					"verified":   item.Verified,
					"fetched_at": item.FetchedAt,
				}).Error
		})
}

func (s *Store) UpsertOilPrice(ctx context.Context, item *models.OilPrice) (bool, error) {
	if s == nil || s.db == nil || item == nil || item.Benchmark == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "benchmark"}, {Name: "bucket_at"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.OilPrice{}).
				Where("benchmark = ? AND bucket_at = ?", item.Benchmark, item.BucketAt).
				Updates(map[string]any{
					"price":            item.Price,
					"open":             item.Open,
					"high":             item.High,
					"low":              item.Low,
					"close":            item.Close,
					"prev_close":       item.PrevClose,
					"change_1h_pct":    item.Change1hPct,
					"change_30m_pct":   item.Change30mPct,
					"change_close_pct": item.ChangeClosePct,
					"volume":           item.Volume,
					"market_open":      item.MarketOpen,
					"spike":            item.Spike,
					"sampled_at":       item.SampledAt,
					"fetched_at":       item.FetchedAt,
				}).Error
		})
}

func (s *Store) UpsertShippingIndicator(ctx context.Context, item *models.ShippingIndicator) (bool, error) {
	if s == nil || s.db == nil || item == nil || item.IndicatorType == "" {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "indicator_type"}, {Name: "bucket_at"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.ShippingIndicator{}).
				Where("indicator_type = ? AND bucket_at = ?", item.IndicatorType, item.BucketAt).
				Updates(map[string]any{
					"name":       item.Name,
					"value":      item.Value,
					"unit":       item.Unit,
					"source":     item.Source,
					"change_pct": item.ChangePct,
					"notes":      item.Notes,
					"fetched_at": item.FetchedAt,
				}).Error
		})
}

func (s *Store) UpsertTrafficSummary(ctx context.Context, item *models.TrafficSummary) (bool, error) {
	if s == nil || s.db == nil || item == nil {
		return false, nil
	}
	return insertOrRefresh(s.db.WithContext(ctx), item,
		[]clause.Column{{Name: "period_type"}, {Name: "period_start"}, {Name: "zone"}},
		func(tx *gorm.DB) error {
			return tx.Model(&models.TrafficSummary{}).
				Where("period_type = ? AND period_start = ? AND zone = ?", item.PeriodType, item.PeriodStart, item.Zone).
				Updates(map[string]any{
					"vessel_type_counts":        item.VesselTypeCounts,
					"status_counts":             item.StatusCounts,
					"inbound":                   item.Inbound,
					"outbound":                  item.Outbound,
					"total_vessels":             item.TotalVessels,
					"turns":                     item.Turns,
					"avg_speed":                 item.AvgSpeed,
					"estimated_throughput_mbbl": item.EstimatedThroughputMbbl,
					"change_pct":                item.ChangePct,
					"anomaly":                   item.Anomaly,
					"anomaly_description":       item.AnomalyDescription,
				}).Error
		})
}

func (s *Store) GetPreviousTrafficSummary(ctx context.Context, periodType string, zone string, before time.Time) (*models.TrafficSummary, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.TrafficSummary
	err := s.db.WithContext(ctx).Model(&models.TrafficSummary{}).
		Where("period_type = ? AND zone = ? AND period_start < ?", periodType, zone, before).
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

func (s *Store) UpsertSourceHealth(ctx context.Context, item *models.SourceHealth) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"kind",
			"endpoint",
			"status",
			"last_run_at",
			"last_error",
			"last_count",
			"duration_ms",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) DeactivateExpiredMapEvents(ctx context.Context, now time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	res := s.db.WithContext(ctx).
		Model(&models.MapEvent{}).
		Where("active = ? AND expires_at < ?", true, now).
		Update("active", false)
	return res.RowsAffected, res.Error
}

func (s *Store) MarkDarkVessels(ctx context.Context, notSeenSince time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Model(&models.VesselPosition{}).
		Where("status <> ? AND observed_at < ?", models.VesselDark, notSeenSince).
		Update("status", models.VesselDark)
	return res.RowsAffected, res.Error
}

package gormrepository

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

func (s *Store) InsertAnalysisLog(ctx context.Context, item *models.AnalysisLog) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) MarkAnalysisNotified(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return s.db.WithContext(ctx).Model(&models.AnalysisLog{}).Where("id = ?", id).Update("notified", true).Error
}

// SumAnalysisCostSince sums the recorded spend of every call since the given instant,
// failed calls included.
func (s *Store) SumAnalysisCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error) {
	if s == nil || s.db == nil {
		return decimal.Zero, nil
	}
	var total decimal.NullDecimal
	row := s.db.WithContext(ctx).Model(&models.AnalysisLog{}).
		Select("SUM(cost_usd)").
		Where("created_at >= ?", since).
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func (s *Store) CountAnalysesSince(ctx context.Context, since time.Time) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var total int64
	err := s.db.WithContext(ctx).Model(&models.AnalysisLog{}).Where("created_at >= ?", since).Count(&total).Error
	return total, err
}

func (s *Store) GetLastSuccessfulAnalysis(ctx context.Context) (*models.AnalysisLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.AnalysisLog
	err := s.db.WithContext(ctx).Model(&models.AnalysisLog{}).
		Where("status = ?", models.AnalysisOK).
		Order("created_at desc").
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListAnalysisLogs(ctx context.Context, params repository.ListAnalysisLogsParams) ([]models.AnalysisLog, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.AnalysisLog{})
	if v, ok := trimmed(params.Status); ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := trimmed(params.AlertLevel); ok {
		query = query.Where("alert_level = ?", v)
	}
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "created_at", "cost_usd"), params.Asc, "created_at")
	var items []models.AnalysisLog
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

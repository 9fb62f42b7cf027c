package gormrepository

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

type Store struct {
	db *gorm.DB
}

var _ repository.Repository = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// insertOrRefresh creates item unless its key already exists; on conflict it
// applies refresh to the existing row. The bool reports whether a row was created.
func insertOrRefresh(db *gorm.DB, item any, conflict []clause.Column, refresh func(tx *gorm.DB) error) (bool, error) {
	res := db.Clauses(clause.OnConflict{Columns: conflict, DoNothing: true}).Create(item)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	if refresh == nil {
		return false, nil
	}
	return false, refresh(db)
}

func (s *Store) UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Key = strings.TrimSpace(item.Key)
	if item.Key == "" {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"value",
			"description",
			"updated_at",
		}),
	}).Create(item).Error
}

func (s *Store) GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var item models.SystemSetting
	err := s.db.WithContext(ctx).Model(&models.SystemSetting{}).Where("key = ?", key).First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListSystemSettings(ctx context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.SystemSetting{})
	if params.Prefix != nil && strings.TrimSpace(*params.Prefix) != "" {
		pattern := strings.TrimSpace(*params.Prefix) + "%"
		query = query.Where("key LIKE ?", pattern)
	}
	query = applyOrder(query, params.OrderBy, params.Asc, "key")
	limit := normalizeLimit(params.Limit, 500)
	offset := normalizeOffset(params.Offset)
	var items []models.SystemSetting
	if err := query.Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// allowedOrder guards the user-supplied order column against the columns a list exposes.
func allowedOrder(orderBy string, allowed ...string) string {
	orderBy = strings.TrimSpace(orderBy)
	for _, col := range allowed {
		if orderBy == col {
			return orderBy
		}
	}
	return ""
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}

func trimmed(val *string) (string, bool) {
	if val == nil {
		return "", false
	}
	out := strings.TrimSpace(*val)
	return out, out != ""
}

package gormrepository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

func (s *Store) GetScenarioState(ctx context.Context) (*models.ScenarioState, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.ScenarioState
	err := s.db.WithContext(ctx).Model(&models.ScenarioState{}).
		Where("id = ?", models.CurrentScenarioID).
		First(&item).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateScenarioState inserts the initial row; an existing row is left untouched.
func (s *Store) CreateScenarioState(ctx context.Context, item *models.ScenarioState) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if item.ID == "" {
		item.ID = models.CurrentScenarioID
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ApplyScenarioUpdate(ctx context.Context, expectedVersion int64, next *models.ScenarioState, transition *models.ScenarioTransition) (bool, error) {
	if s == nil || s.db == nil || next == nil {
		return false, nil
	}
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ScenarioState{}).
			Where("id = ? AND version = ?", models.CurrentScenarioID, expectedVersion).
			Updates(map[string]any{
				"version":          expectedVersion + 1,
				"alert_level":      next.AlertLevel,
				"primary_scenario": next.PrimaryScenario,
				"variables":        next.Variables,
				"news_ids":         next.NewsIDs,
				"last_analysis_id": next.LastAnalysisID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true
		if transition == nil {
			return nil
		}
		transition.Version = expectedVersion + 1
		return tx.Create(transition).Error
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *Store) ListScenarioTransitions(ctx context.Context, params repository.ListScenarioTransitionsParams) ([]models.ScenarioTransition, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.ScenarioTransition{})
	if params.Since != nil && !params.Since.IsZero() {
		query = query.Where("created_at >= ?", *params.Since)
	}
	query = applyOrder(query, allowedOrder(params.OrderBy, "created_at", "version"), params.Asc, "created_at")
	var items []models.ScenarioTransition
	if err := query.Limit(normalizeLimit(params.Limit, 50)).Offset(normalizeOffset(params.Offset)).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

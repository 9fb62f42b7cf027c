package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"straitwatch/internal/repository"
)

type CleanupResult struct {
	ExpiredEvents int64 `json:"expired_events"`
	DarkVessels   int64 `json:"dark_vessels"`
}

type MaintenanceService struct {
	Repo      repository.MaintenanceRepository
	DarkAfter time.Duration
	Logger    *zap.Logger
}

// Cleanup deactivates map events past their expiry and marks vessels unseen
// for DarkAfter as dark. Both steps run even if the first one fails.
func (s *MaintenanceService) Cleanup(ctx context.Context, now time.Time) (CleanupResult, error) {
	var res CleanupResult
	if s == nil || s.Repo == nil {
		return res, nil
	}
	now = now.UTC()
	darkAfter := s.DarkAfter
	if darkAfter <= 0 {
		darkAfter = 2 * time.Hour
	}

	expired, errEvents := s.Repo.DeactivateExpiredMapEvents(ctx, now)
	res.ExpiredEvents = expired
	dark, errVessels := s.Repo.MarkDarkVessels(ctx, now.Add(-darkAfter))
	res.DarkVessels = dark

	if s.Logger != nil {
		s.Logger.Info("cleanup done",
			zap.Int64("expired_events", res.ExpiredEvents),
			zap.Int64("dark_vessels", res.DarkVessels),
		)
	}
	if errEvents != nil {
		return res, errEvents
	}
	return res, errVessels
}

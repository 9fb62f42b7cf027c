// Package alert sends one notification per qualifying analysis.
package alert

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"straitwatch/internal/analyzer"
	"straitwatch/internal/models"
	"straitwatch/internal/notification"
)

type Marker interface {
	MarkAnalysisNotified(ctx context.Context, id string) error
}

type Dispatcher struct {
	Sender notification.Sender
	Store  Marker
	Logger *zap.Logger
}

// Qualifies reports whether an alert level is notified at all.
func Qualifies(level string) bool {
	return models.LevelRank(level) >= models.LevelRank(models.LevelHigh)
}

// Dispatch makes a single send attempt for HIGH and CRITICAL results and marks
// the analysis notified on success. Failures are logged and reported as false;
// they never touch the persisted scenario state.
func (d *Dispatcher) Dispatch(ctx context.Context, analysisID string, res *analyzer.Result, at time.Time) bool {
	if d == nil || res == nil || !Qualifies(res.AlertLevel) {
		return false
	}
	if d.Sender == nil {
		d.warn("no notification channel configured", analysisID, nil)
		return false
	}
	msg := notification.Message{
		AnalysisID:      analysisID,
		Level:           res.AlertLevel,
		Scenario:        res.ScenarioUpdate.PrimaryScenario,
		Summary:         strings.TrimSpace(res.Summary),
		Headline:        strings.TrimSpace(res.AlertMessage),
		KeyDevelopments: res.KeyDevelopments,
		At:              at.UTC(),
	}
	if err := d.Sender.Send(ctx, msg); err != nil {
		d.warn("alert send failed", analysisID, err)
		return false
	}
	if d.Store != nil {
		if err := d.Store.MarkAnalysisNotified(ctx, analysisID); err != nil {
			d.warn("mark notified failed", analysisID, err)
		}
	}
	if d.Logger != nil {
		d.Logger.Info("alert sent", zap.String("analysis_id", analysisID), zap.String("level", res.AlertLevel))
	}
	return true
}

func (d *Dispatcher) warn(msg, analysisID string, err error) {
	if d.Logger == nil {
		return
	}
	fields := []zap.Field{zap.String("analysis_id", analysisID)}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	d.Logger.Warn(msg, fields...)
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"

	"straitwatch/internal/collector"
	"straitwatch/internal/ingest"
	"straitwatch/internal/models"
	"straitwatch/internal/orchestrator"
	"straitwatch/internal/repository"
)

const (
	FeatureScenario = orchestrator.SwitchScenario
	FeatureNotify   = orchestrator.SwitchNotify
	FeatureCleanup  = "feature.cleanup"

	switchPrefix = "feature."
)

var ErrUnknownSwitch = errors.New("unknown feature switch")

func DefaultFeatureSwitches() map[string]bool {
	out := map[string]bool{
		FeatureScenario: true,
		FeatureNotify:   true,
		FeatureCleanup:  true,
	}
	for _, name := range collector.Names {
		out[ingest.SwitchKey(name)] = true
	}
	return out
}

type Switch struct {
	Name      string    `json:"name"`
	Key       string    `json:"key"`
	Enabled   bool      `json:"enabled"`
	Default   bool      `json:"default"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches writes missing switches with their default value.
// Stored values are operator decisions and are never overwritten.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	now := time.Now().UTC()
	for key, enabled := range DefaultFeatureSwitches() {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		raw, _ := json.Marshal(enabled)
		item := &models.SystemSetting{
			Key:         key,
			Value:       datatypes.JSON(raw),
			Description: "feature switch",
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := s.Repo.UpsertSystemSetting(ctx, item); err != nil {
			return err
		}
	}
	return nil
}

func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil || len(item.Value) == 0 {
		return fallback
	}
	var enabled bool
	if err := json.Unmarshal(item.Value, &enabled); err != nil {
		return fallback
	}
	return enabled
}

// SetEnabled accepts a full key ("feature.notify") or a bare name ("notify").
func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) (string, error) {
	key = NormalizeSwitchKey(key)
	if _, ok := DefaultFeatureSwitches()[key]; !ok {
		return key, ErrUnknownSwitch
	}
	if s == nil || s.Repo == nil {
		return key, nil
	}
	raw, _ := json.Marshal(enabled)
	item := &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: "feature switch",
		UpdatedAt:   time.Now().UTC(),
	}
	return key, s.Repo.UpsertSystemSetting(ctx, item)
}

// ListSwitches returns every known switch with its effective value, sorted by key.
func (s *SystemSettingsService) ListSwitches(ctx context.Context) ([]Switch, error) {
	defaults := DefaultFeatureSwitches()
	stored := map[string]models.SystemSetting{}
	if s != nil && s.Repo != nil {
		prefix := switchPrefix
		items, err := s.Repo.ListSystemSettings(ctx, repository.ListSystemSettingsParams{Prefix: &prefix, Limit: 500})
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			stored[it.Key] = it
		}
	}
	out := make([]Switch, 0, len(defaults))
	for key, def := range defaults {
		sw := Switch{Name: strings.TrimPrefix(key, switchPrefix), Key: key, Enabled: def, Default: def}
		if it, ok := stored[key]; ok {
			var v bool
			if err := json.Unmarshal(it.Value, &v); err == nil {
				sw.Enabled = v
			}
			sw.UpdatedAt = it.UpdatedAt
		}
		out = append(out, sw)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func NormalizeSwitchKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, switchPrefix) {
		return key
	}
	return switchPrefix + key
}

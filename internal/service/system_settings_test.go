package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"gorm.io/datatypes"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

type memSettings struct {
	items map[string]models.SystemSetting
}

func newMemSettings() *memSettings {
	return &memSettings{items: map[string]models.SystemSetting{}}
}

func (m *memSettings) UpsertSystemSetting(_ context.Context, item *models.SystemSetting) error {
	m.items[item.Key] = *item
	return nil
}

func (m *memSettings) GetSystemSettingByKey(_ context.Context, key string) (*models.SystemSetting, error) {
	it, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (m *memSettings) ListSystemSettings(_ context.Context, params repository.ListSystemSettingsParams) ([]models.SystemSetting, error) {
	var out []models.SystemSetting
	for k, v := range m.items {
		if params.Prefix != nil && !strings.HasPrefix(k, *params.Prefix) {
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func TestEnsureDefaultSwitchesKeepsOperatorChoice(t *testing.T) {
	repo := newMemSettings()
	repo.items[FeatureNotify] = models.SystemSetting{Key: FeatureNotify, Value: datatypes.JSON("false")}
	svc := &SystemSettingsService{Repo: repo}

	if err := svc.EnsureDefaultSwitches(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if len(repo.items) != len(DefaultFeatureSwitches()) {
		t.Fatalf("items=%d want %d", len(repo.items), len(DefaultFeatureSwitches()))
	}
	if svc.IsEnabled(context.Background(), FeatureNotify, true) {
		t.Fatalf("notify switch was overwritten")
	}
	if !svc.IsEnabled(context.Background(), "feature.collector.news", false) {
		t.Fatalf("collector switch should default on")
	}
}

func TestIsEnabledFallback(t *testing.T) {
	repo := newMemSettings()
	repo.items["feature.garbled"] = models.SystemSetting{Key: "feature.garbled", Value: datatypes.JSON(`"yes"`)}
	svc := &SystemSettingsService{Repo: repo}

	if !svc.IsEnabled(context.Background(), "feature.missing", true) {
		t.Fatalf("missing key should fall back")
	}
	if svc.IsEnabled(context.Background(), "feature.garbled", false) {
		t.Fatalf("non-bool value should fall back")
	}
	var nilSvc *SystemSettingsService
	if !nilSvc.IsEnabled(context.Background(), FeatureScenario, true) {
		t.Fatalf("nil service should fall back")
	}
}

func TestSetEnabled(t *testing.T) {
	repo := newMemSettings()
	svc := &SystemSettingsService{Repo: repo}

	key, err := svc.SetEnabled(context.Background(), "collector.vessels", false)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if key != "feature.collector.vessels" {
		t.Fatalf("key=%q", key)
	}
	var v bool
	if err := json.Unmarshal(repo.items[key].Value, &v); err != nil || v {
		t.Fatalf("stored=%s err=%v", repo.items[key].Value, err)
	}

	if _, err := svc.SetEnabled(context.Background(), "feature.unknown", true); !errors.Is(err, ErrUnknownSwitch) {
		t.Fatalf("err=%v want ErrUnknownSwitch", err)
	}
}

func TestListSwitchesMergesStoredValues(t *testing.T) {
	repo := newMemSettings()
	svc := &SystemSettingsService{Repo: repo}
	if _, err := svc.SetEnabled(context.Background(), FeatureScenario, false); err != nil {
		t.Fatalf("set: %v", err)
	}

	switches, err := svc.ListSwitches(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(switches) != len(DefaultFeatureSwitches()) {
		t.Fatalf("len=%d", len(switches))
	}
	for i := 1; i < len(switches); i++ {
		if switches[i-1].Key > switches[i].Key {
			t.Fatalf("not sorted at %d", i)
		}
	}
	for _, sw := range switches {
		if sw.Key == FeatureScenario {
			if sw.Enabled || !sw.Default || sw.Name != "scenario" {
				t.Fatalf("scenario switch=%+v", sw)
			}
			return
		}
	}
	t.Fatalf("scenario switch missing")
}

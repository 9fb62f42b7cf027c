package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeMaintenance struct {
	eventsNow    time.Time
	notSeenSince time.Time
	eventsErr    error
	vesselCalls  int
}

func (f *fakeMaintenance) DeactivateExpiredMapEvents(_ context.Context, now time.Time) (int64, error) {
	f.eventsNow = now
	if f.eventsErr != nil {
		return 0, f.eventsErr
	}
	return 3, nil
}

func (f *fakeMaintenance) MarkDarkVessels(_ context.Context, notSeenSince time.Time) (int64, error) {
	f.vesselCalls++
	f.notSeenSince = notSeenSince
	return 2, nil
}

func TestCleanup(t *testing.T) {
	repo := &fakeMaintenance{}
	svc := &MaintenanceService{Repo: repo, DarkAfter: 2 * time.Hour}
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	res, err := svc.Cleanup(context.Background(), now)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if res.ExpiredEvents != 3 || res.DarkVessels != 2 {
		t.Fatalf("res=%+v", res)
	}
	if !repo.eventsNow.Equal(now) {
		t.Fatalf("events cutoff=%v", repo.eventsNow)
	}
	if want := now.Add(-2 * time.Hour); !repo.notSeenSince.Equal(want) {
		t.Fatalf("dark cutoff=%v want %v", repo.notSeenSince, want)
	}
}

func TestCleanupContinuesAfterEventError(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeMaintenance{eventsErr: boom}
	svc := &MaintenanceService{Repo: repo}

	res, err := svc.Cleanup(context.Background(), time.Now())
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v", err)
	}
	if repo.vesselCalls != 1 || res.DarkVessels != 2 {
		t.Fatalf("vessel step skipped: calls=%d res=%+v", repo.vesselCalls, res)
	}
}

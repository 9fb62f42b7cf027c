package service

import (
	"context"
	"errors"
	"testing"

	"straitwatch/internal/ingest"
	"straitwatch/internal/orchestrator"
)

type fakeIngest struct {
	names  []string
	report ingest.Report
}

func (f *fakeIngest) Run(_ context.Context, names ...string) ingest.Report {
	f.names = names
	return f.report
}

type fakeCycle struct {
	res orchestrator.CycleResult
	err error
}

func (f fakeCycle) RunCycle(context.Context) (orchestrator.CycleResult, error) { return f.res, f.err }

func TestJobsRunSingleCollector(t *testing.T) {
	fi := &fakeIngest{report: ingest.Report{Outcomes: []ingest.Outcome{
		{Collector: "news", Persisted: ingest.Persisted{Inserted: 4}},
	}}}
	jobs := &Jobs{Ingest: fi}

	res, err := jobs.Run(context.Background(), "news")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != JobOK {
		t.Fatalf("status=%q", res.Status)
	}
	if len(fi.names) != 1 || fi.names[0] != "news" {
		t.Fatalf("names=%v", fi.names)
	}
	sums := res.Data.([]CollectorSummary)
	if sums[0].Inserted != 4 || sums[0].Status != ingest.HealthHealthy {
		t.Fatalf("summary=%+v", sums[0])
	}
}

func TestJobsCollectToleratesPartialFailure(t *testing.T) {
	fi := &fakeIngest{report: ingest.Report{Outcomes: []ingest.Outcome{
		{Collector: "news", Persisted: ingest.Persisted{Inserted: 1}},
		{Collector: "prices", Err: errors.New("timeout")},
	}}}
	jobs := &Jobs{Ingest: fi, Collectors: []string{"news", "prices"}}

	res, err := jobs.Run(context.Background(), JobCollect)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != JobOK {
		t.Fatalf("status=%q", res.Status)
	}
}

func TestJobsSingleCollectorFailure(t *testing.T) {
	fi := &fakeIngest{report: ingest.Report{Outcomes: []ingest.Outcome{
		{Collector: "prices", Err: errors.New("timeout")},
	}}}
	res, err := (&Jobs{Ingest: fi}).Run(context.Background(), "prices")
	if err == nil {
		t.Fatalf("expected error")
	}
	if res.Status != JobFailed {
		t.Fatalf("status=%q", res.Status)
	}
}

func TestJobsDisabledCollectorIsSkipped(t *testing.T) {
	fi := &fakeIngest{report: ingest.Report{Outcomes: []ingest.Outcome{
		{Collector: "vessels", Disabled: true},
	}}}
	res, err := (&Jobs{Ingest: fi}).Run(context.Background(), "vessels")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != JobSkipped || res.Reason != orchestrator.ReasonDisabled {
		t.Fatalf("res=%+v", res)
	}
}

func TestJobsScenarioStatusMapping(t *testing.T) {
	tests := []struct {
		cycle orchestrator.CycleResult
		err   error
		want  string
	}{
		{orchestrator.CycleResult{Status: orchestrator.StatusAnalyzed}, nil, JobOK},
		{orchestrator.CycleResult{Status: orchestrator.StatusSkipped, Reason: "cost_ceiling"}, nil, JobSkipped},
		{orchestrator.CycleResult{Status: orchestrator.StatusNotSignificant}, nil, JobNotSignificant},
		{orchestrator.CycleResult{Status: orchestrator.StatusFailed}, errors.New("parse"), JobFailed},
	}
	for _, tt := range tests {
		jobs := &Jobs{Cycle: fakeCycle{res: tt.cycle, err: tt.err}}
		res, _ := jobs.Run(context.Background(), JobScenario)
		if res.Status != tt.want {
			t.Fatalf("cycle %q: status=%q want %q", tt.cycle.Status, res.Status, tt.want)
		}
	}
}

func TestJobsUnknown(t *testing.T) {
	_, err := (&Jobs{}).Run(context.Background(), "labeler")
	if !errors.Is(err, ErrUnknownJob) {
		t.Fatalf("err=%v", err)
	}
}

func TestJobsCleanupSwitchOff(t *testing.T) {
	repo := newMemSettings()
	settings := &SystemSettingsService{Repo: repo}
	if _, err := settings.SetEnabled(context.Background(), FeatureCleanup, false); err != nil {
		t.Fatalf("set: %v", err)
	}
	maint := &fakeMaintenance{}
	jobs := &Jobs{Maintenance: &MaintenanceService{Repo: maint}, Switches: settings}

	res, err := jobs.Run(context.Background(), JobCleanup)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Status != JobSkipped || maint.vesselCalls != 0 {
		t.Fatalf("res=%+v calls=%d", res, maint.vesselCalls)
	}
}

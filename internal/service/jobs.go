package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"straitwatch/internal/collector"
	"straitwatch/internal/ingest"
	"straitwatch/internal/orchestrator"
)

const (
	JobCollect  = "collect"
	JobScenario = "scenario"
	JobCleanup  = "cleanup"

	JobOK             = "ok"
	JobSkipped        = "skipped"
	JobNotSignificant = "not_significant"
	JobFailed         = "failed"
)

var ErrUnknownJob = errors.New("unknown job")

// JobNames lists every independently triggerable job.
func JobNames() []string {
	out := append([]string{}, collector.Names...)
	return append(out, JobCollect, JobScenario, JobCleanup)
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (orchestrator.CycleResult, error)
}

type CollectorSummary struct {
	Collector  string `json:"collector"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Inserted   int    `json:"inserted"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed"`
	DurationMs int64  `json:"duration_ms"`
}

type JobResult struct {
	Job        string    `json:"job"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
	Data       any       `json:"data,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Jobs maps job names onto the components that run them. It is shared by the
// HTTP trigger, the cron schedule and the one-shot CLI.
type Jobs struct {
	Ingest      orchestrator.Ingestor
	Cycle       CycleRunner
	Maintenance *MaintenanceService
	Switches    ingest.Switches
	// Collectors is what "collect" runs; empty means all.
	Collectors []string
	Logger     *zap.Logger

	now func() time.Time
}

func (j *Jobs) clock() time.Time {
	if j.now != nil {
		return j.now().UTC()
	}
	return time.Now().UTC()
}

func (j *Jobs) Run(ctx context.Context, name string) (JobResult, error) {
	res := JobResult{Job: name, StartedAt: j.clock()}
	var err error
	switch {
	case isCollector(name):
		err = j.collect(ctx, &res, name)
	case name == JobCollect:
		err = j.collect(ctx, &res, j.Collectors...)
	case name == JobScenario:
		err = j.scenario(ctx, &res)
	case name == JobCleanup:
		err = j.cleanup(ctx, &res)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	res.FinishedAt = j.clock()
	if err != nil {
		res.Status = JobFailed
		res.Error = err.Error()
	}
	j.log(res)
	return res, err
}

func (j *Jobs) collect(ctx context.Context, res *JobResult, names ...string) error {
	if j.Ingest == nil {
		return errors.New("ingest runner not configured")
	}
	report := j.Ingest.Run(ctx, names...)
	summaries := make([]CollectorSummary, 0, len(report.Outcomes))
	disabled := 0
	var failed []error
	for _, o := range report.Outcomes {
		sum := CollectorSummary{
			Collector:  o.Collector,
			Status:     ingest.HealthHealthy,
			Inserted:   o.Persisted.Inserted,
			Updated:    o.Persisted.Updated,
			Failed:     o.Persisted.Failed,
			DurationMs: o.Duration.Milliseconds(),
		}
		switch {
		case o.Disabled:
			sum.Status = ingest.HealthDisabled
			disabled++
		case o.Err != nil:
			sum.Status = ingest.HealthDown
			sum.Error = o.Err.Error()
			failed = append(failed, fmt.Errorf("%s: %w", o.Collector, o.Err))
		}
		summaries = append(summaries, sum)
	}
	res.Data = summaries
	res.Status = JobOK
	if len(report.Outcomes) > 0 && disabled == len(report.Outcomes) {
		res.Status, res.Reason = JobSkipped, orchestrator.ReasonDisabled
		return nil
	}
	// a single-collector job fails with its collector; "collect" only when nothing succeeded
	if len(failed) > 0 && len(failed)+disabled == len(report.Outcomes) {
		return errors.Join(failed...)
	}
	return nil
}

func (j *Jobs) scenario(ctx context.Context, res *JobResult) error {
	if j.Cycle == nil {
		return errors.New("scenario cycle not configured")
	}
	cycle, err := j.Cycle.RunCycle(ctx)
	res.Data = cycle
	res.Reason = cycle.Reason
	switch cycle.Status {
	case orchestrator.StatusAnalyzed:
		res.Status = JobOK
	case orchestrator.StatusSkipped:
		res.Status = JobSkipped
	case orchestrator.StatusNotSignificant:
		res.Status = JobNotSignificant
	default:
		res.Status = JobFailed
	}
	return err
}

func (j *Jobs) cleanup(ctx context.Context, res *JobResult) error {
	if j.Switches != nil && !j.Switches.IsEnabled(ctx, FeatureCleanup, true) {
		res.Status, res.Reason = JobSkipped, orchestrator.ReasonDisabled
		return nil
	}
	out, err := j.Maintenance.Cleanup(ctx, j.clock())
	res.Data = out
	res.Status = JobOK
	return err
}

func (j *Jobs) log(res JobResult) {
	if j.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("job", res.Job),
		zap.String("status", res.Status),
		zap.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	}
	if res.Reason != "" {
		fields = append(fields, zap.String("reason", res.Reason))
	}
	if res.Error != "" {
		j.Logger.Warn("job failed", append(fields, zap.String("error", res.Error))...)
		return
	}
	j.Logger.Info("job done", fields...)
}

func isCollector(name string) bool {
	for _, n := range collector.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Package ingest runs collectors concurrently and persists what they return.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"straitwatch/internal/collector"
	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "down"
	HealthDisabled = "disabled"
)

// SwitchKey is the feature-switch key gating one collector.
func SwitchKey(name string) string {
	return "feature.collector." + name
}

// Switches reads runtime feature switches.
type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// Outcome is the settled result of one collector. Err is set when the
// collector failed or panicked; Batch is then empty.
type Outcome struct {
	Collector string
	Batch     collector.Batch
	Err       error
	Disabled  bool
	Duration  time.Duration
	Persisted Persisted
}

type Persisted struct {
	Inserted int
	Updated  int
	Failed   int
}

func (p *Persisted) add(o Persisted) {
	p.Inserted += o.Inserted
	p.Updated += o.Updated
	p.Failed += o.Failed
}

func (p *Persisted) record(inserted bool, err error) {
	switch {
	case err != nil:
		p.Failed++
	case inserted:
		p.Inserted++
	default:
		p.Updated++
	}
}

// Report summarizes one fan-out.
type Report struct {
	Outcomes  []Outcome
	Persisted Persisted
}

// Failed lists the collectors that contributed nothing because of an error.
func (r Report) Failed() []string {
	var out []string
	for _, o := range r.Outcomes {
		if o.Err != nil {
			out = append(out, o.Collector)
		}
	}
	return out
}

type Runner struct {
	Collectors []collector.Collector
	Repo       repository.IngestRepository
	Switches   Switches
	Logger     *zap.Logger

	now func() time.Time
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now().UTC()
	}
	return time.Now().UTC()
}

// Run executes the named collectors (all when names is empty) concurrently,
// waits for every one to settle, then persists each batch. A failing or
// panicking collector contributes nothing and never cancels its siblings.
func (r *Runner) Run(ctx context.Context, names ...string) Report {
	if r == nil {
		return Report{}
	}
	selected := r.selectCollectors(names)
	outcomes := make([]Outcome, len(selected))

	var g errgroup.Group
	for i, c := range selected {
		i, c := i, c
		outcomes[i].Collector = c.Name()
		if r.Switches != nil && !r.Switches.IsEnabled(ctx, SwitchKey(c.Name()), true) {
			outcomes[i].Disabled = true
			continue
		}
		g.Go(func() error {
			start := time.Now()
			batch, err := safeCollect(ctx, c)
			outcomes[i].Duration = time.Since(start)
			if err != nil {
				outcomes[i].Err = err
				return nil
			}
			outcomes[i].Batch = batch
			return nil
		})
	}
	_ = g.Wait()

	var report Report
	for i := range outcomes {
		o := &outcomes[i]
		if o.Err != nil {
			if r.Logger != nil {
				r.Logger.Warn("collector failed", zap.String("collector", o.Collector), zap.Error(o.Err))
			}
		} else if !o.Disabled {
			o.Persisted = r.Persist(ctx, o.Batch)
			report.Persisted.add(o.Persisted)
			if r.Logger != nil {
				r.Logger.Info("collector done",
					zap.String("collector", o.Collector),
					zap.Int("records", o.Batch.Len()),
					zap.Int("inserted", o.Persisted.Inserted),
					zap.Int("updated", o.Persisted.Updated),
					zap.Int("failed", o.Persisted.Failed),
					zap.Duration("took", o.Duration),
				)
			}
		}
		r.recordHealth(ctx, selected[i], *o)
	}
	report.Outcomes = outcomes
	return report
}

func (r *Runner) selectCollectors(names []string) []collector.Collector {
	if len(names) == 0 {
		return r.Collectors
	}
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	out := make([]collector.Collector, 0, len(names))
	for _, c := range r.Collectors {
		if c == nil {
			continue
		}
		if _, ok := want[c.Name()]; ok {
			out = append(out, c)
		}
	}
	return out
}

func safeCollect(ctx context.Context, c collector.Collector) (batch collector.Batch, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			batch = collector.Batch{}
			err = fmt.Errorf("collector %s panicked: %v\n%s", c.Name(), rec, debug.Stack())
		}
	}()
	return c.Collect(ctx)
}

// Persist writes every record independently. A failed write is counted and
// the rest of the batch continues.
func (r *Runner) Persist(ctx context.Context, b collector.Batch) Persisted {
	var p Persisted
	if r == nil || r.Repo == nil {
		return p
	}
	for i := range b.Vessels {
		p.record(r.Repo.UpsertVesselPosition(ctx, &b.Vessels[i]))
	}
	if b.Traffic != nil {
		p.record(r.Repo.UpsertTrafficSummary(ctx, b.Traffic))
	}
	for i := range b.Events {
		p.record(r.Repo.UpsertMapEvent(ctx, &b.Events[i]))
	}
	for i := range b.News {
		p.record(r.Repo.UpsertWarNews(ctx, &b.News[i]))
	}
	for i := range b.Prices {
		p.record(r.Repo.UpsertOilPrice(ctx, &b.Prices[i]))
	}
	for i := range b.Alerts {
		p.record(r.Repo.UpsertMaritimeAlert(ctx, &b.Alerts[i]))
	}
	for i := range b.Indicators {
		p.record(r.Repo.UpsertShippingIndicator(ctx, &b.Indicators[i]))
	}
	return p
}

func (r *Runner) recordHealth(ctx context.Context, c collector.Collector, o Outcome) {
	if r.Repo == nil {
		return
	}
	info := collector.SourceInfo{Kind: "unknown"}
	if p, ok := c.(collector.SourceInfoProvider); ok {
		info = p.SourceInfo()
	}
	now := r.clock()
	item := &models.SourceHealth{
		Name:      o.Collector,
		Kind:      info.Kind,
		Endpoint:  info.Endpoint,
		Status:    healthStatus(o),
		LastRunAt: &now,
		LastCount: o.Batch.Len(),
		Duration:  o.Duration.Milliseconds(),
	}
	if o.Err != nil {
		msg := o.Err.Error()
		if len(msg) > 1000 {
			msg = msg[:1000]
		}
		item.LastError = &msg
	}
	if err := r.Repo.UpsertSourceHealth(ctx, item); err != nil && r.Logger != nil {
		r.Logger.Warn("source health upsert failed", zap.String("collector", o.Collector), zap.Error(err))
	}
}

func healthStatus(o Outcome) string {
	switch {
	case o.Disabled, errors.Is(o.Err, collector.ErrNotConfigured):
		return HealthDisabled
	case o.Err != nil:
		return HealthDown
	case o.Persisted.Failed > 0:
		return HealthDegraded
	}
	return HealthHealthy
}

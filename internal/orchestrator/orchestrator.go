// Package orchestrator runs one scenario cycle: lock, governor, collectors,
// significance, analysis, state update and alert.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"straitwatch/internal/alert"
	"straitwatch/internal/analyzer"
	"straitwatch/internal/cache"
	"straitwatch/internal/config"
	"straitwatch/internal/governor"
	"straitwatch/internal/ingest"
	"straitwatch/internal/models"
	"straitwatch/internal/repository"
	"straitwatch/internal/scenario"
	"straitwatch/internal/significance"
)

const (
	StatusAnalyzed       = "analyzed"
	StatusSkipped        = "skipped"
	StatusNotSignificant = "not_significant"
	StatusFailed         = "failed"

	ReasonInProgress = "cycle_in_progress"
	ReasonDisabled   = "disabled"

	SwitchScenario = "feature.scenario"
	SwitchNotify   = "feature.notify"

	lockKey = "lock:scenario_cycle"
)

// Store is the part of the repository a cycle reads and writes.
type Store interface {
	governor.Ledger
	scenario.Store
	alert.Marker
	InsertAnalysisLog(ctx context.Context, item *models.AnalysisLog) error
	GetLastSuccessfulAnalysis(ctx context.Context) (*models.AnalysisLog, error)
	CountNewsSince(ctx context.Context, since time.Time) (repository.NewsCounts, error)
	CountAlertsSince(ctx context.Context, since time.Time) (int64, error)
	ListWarNews(ctx context.Context, params repository.ListWarNewsParams) ([]models.WarNewsItem, error)
	ListMaritimeAlerts(ctx context.Context, params repository.ListMaritimeAlertsParams) ([]models.MaritimeAlert, error)
	ListMapEvents(ctx context.Context, params repository.ListMapEventsParams) ([]models.MapEvent, error)
	ListLatestOilPrices(ctx context.Context) ([]models.OilPrice, error)
	ListLatestShippingIndicators(ctx context.Context) ([]models.ShippingIndicator, error)
	GetLatestTrafficSummary(ctx context.Context, zone string) (*models.TrafficSummary, error)
}

type Ingestor interface {
	Run(ctx context.Context, names ...string) ingest.Report
}

type Analyst interface {
	Analyze(ctx context.Context, in analyzer.Input) (analyzer.Analysis, error)
}

type CycleResult struct {
	Status           string           `json:"status"`
	Reason           string           `json:"reason,omitempty"`
	AnalysisID       string           `json:"analysis_id,omitempty"`
	AlertLevel       string           `json:"alert_level,omitempty"`
	Advanced         bool             `json:"advanced"`
	Notified         bool             `json:"notified"`
	Significance     string           `json:"significance,omitempty"`
	Persisted        ingest.Persisted `json:"persisted"`
	FailedCollectors []string         `json:"failed_collectors,omitempty"`
	CostUSD          string           `json:"cost_usd,omitempty"`
	Error            string           `json:"error,omitempty"`
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
}

type Orchestrator struct {
	Store      Store
	Lock       cache.Store
	Ingest     Ingestor
	Analyzer   Analyst
	Machine    *scenario.Machine
	Dispatcher *alert.Dispatcher
	Switches   ingest.Switches
	Config     config.Config
	Logger     *zap.Logger

	now func() time.Time
}

func (o *Orchestrator) clock() time.Time {
	if o.now != nil {
		return o.now().UTC()
	}
	return time.Now().UTC()
}

func (o *Orchestrator) enabled(ctx context.Context, key string) bool {
	if o.Switches == nil {
		return true
	}
	return o.Switches.IsEnabled(ctx, key, true)
}

// RunCycle executes one scenario cycle. Skips are successful results; the
// returned error is set only together with StatusFailed.
func (o *Orchestrator) RunCycle(ctx context.Context) (CycleResult, error) {
	if o == nil || o.Store == nil || o.Analyzer == nil || o.Machine == nil {
		err := errors.New("orchestrator: not wired")
		return CycleResult{Status: StatusFailed, Error: err.Error()}, err
	}
	res := CycleResult{StartedAt: o.clock()}
	finish := func(r CycleResult, err error) (CycleResult, error) {
		r.FinishedAt = o.clock()
		if err != nil {
			r.Status = StatusFailed
			r.Error = err.Error()
		}
		o.logResult(r)
		return r, err
	}
	if !o.enabled(ctx, SwitchScenario) {
		res.Status, res.Reason = StatusSkipped, ReasonDisabled
		return finish(res, nil)
	}

	if o.Lock != nil {
		ttl := o.Config.Scenario.LockTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		token := uuid.NewString()
		ok, err := o.Lock.SetNX(ctx, lockKey, []byte(token), ttl)
		if err != nil {
			return finish(res, err)
		}
		if !ok {
			res.Status, res.Reason = StatusSkipped, ReasonInProgress
			return finish(res, nil)
		}
		defer o.release(token)
	}

	gov := &governor.Governor{Ledger: o.Store, Config: o.Config.Governor}
	verdict, err := gov.Check(ctx, o.clock())
	if err != nil {
		return finish(res, err)
	}
	if !verdict.Allowed {
		res.Status, res.Reason = StatusSkipped, verdict.Reason
		return finish(res, nil)
	}

	if o.Ingest != nil {
		report := o.Ingest.Run(ctx, o.Config.Scenario.Collectors...)
		res.Persisted = report.Persisted
		res.FailedCollectors = report.Failed()
	}

	agg, err := o.aggregate(ctx)
	if err != nil {
		return finish(res, err)
	}
	decision := significance.Evaluate(agg.signals, o.Config.Significance)
	res.Significance = decision.Summary
	if !decision.Significant {
		res.Status = StatusNotSignificant
		return finish(res, nil)
	}

	// the log row's timestamp bounds what the next cycle counts as new
	seenAt := o.clock()
	input, err := o.buildInput(ctx, agg.since)
	if err != nil {
		return finish(res, err)
	}
	input.Traffic = agg.traffic
	input.Prices = agg.prices
	input.Trigger = decision.Summary

	analysisID := uuid.NewString()
	analysis, analyzeErr := o.Analyzer.Analyze(ctx, input)
	if analysis.Called {
		res.AnalysisID = analysisID
		res.CostUSD = analysis.Cost.StringFixed(6)
		if err := o.Store.InsertAnalysisLog(ctx, analysisLog(analysisID, analysis, analyzeErr, seenAt)); err != nil {
			return finish(res, errors.Join(analyzeErr, err))
		}
	}
	if analyzeErr != nil {
		return finish(res, analyzeErr)
	}
	res.AlertLevel = analysis.Result.AlertLevel

	outcome, err := o.Machine.Apply(ctx, analysis.Result, analysisID, analysis.NewsIDs)
	if err != nil {
		return finish(res, err)
	}
	res.Advanced = outcome.Advanced

	if o.Dispatcher != nil && o.enabled(ctx, SwitchNotify) {
		res.Notified = o.Dispatcher.Dispatch(ctx, analysisID, analysis.Result, o.clock())
	}
	res.Status = StatusAnalyzed
	return finish(res, nil)
}

// release drops the lock only while it still holds our token.
func (o *Orchestrator) release(token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	released, err := o.Lock.DeleteIfValue(ctx, lockKey, []byte(token))
	if err != nil {
		if o.Logger != nil {
			o.Logger.Warn("release cycle lock failed", zap.Error(err))
		}
		return
	}
	if !released && o.Logger != nil {
		o.Logger.Warn("cycle lock expired before release", zap.Duration("ttl", o.Config.Scenario.LockTTL))
	}
}

type aggregate struct {
	since   time.Time
	signals significance.Signals
	prices  []models.OilPrice
	traffic *models.TrafficSummary
}

// aggregate counts what arrived since the last successful analysis, or within
// the staleness window when there is none.
func (o *Orchestrator) aggregate(ctx context.Context) (aggregate, error) {
	now := o.clock()
	var agg aggregate
	last, err := o.Store.GetLastSuccessfulAnalysis(ctx)
	if err != nil {
		return agg, err
	}
	if last != nil {
		agg.since = last.CreatedAt
		elapsed := now.Sub(last.CreatedAt)
		agg.signals.SinceLastSuccess = &elapsed
	} else {
		window := o.Config.Significance.MaxStaleness
		if window <= 0 {
			window = 6 * time.Hour
		}
		agg.since = now.Add(-window)
	}

	news, err := o.Store.CountNewsSince(ctx, agg.since)
	if err != nil {
		return agg, err
	}
	agg.signals.NewsTotal = news.Total
	agg.signals.CriticalNews = news.Critical
	agg.signals.HighNews = news.High

	if agg.signals.NewAlerts, err = o.Store.CountAlertsSince(ctx, agg.since); err != nil {
		return agg, err
	}

	prices, err := o.Store.ListLatestOilPrices(ctx)
	if err != nil {
		return agg, err
	}
	agg.prices = prices
	for _, p := range prices {
		if p.FetchedAt.Before(agg.since) {
			continue
		}
		if math.Abs(p.Change1hPct) > math.Abs(agg.signals.PriceMovePct) {
			agg.signals.PriceMovePct = p.Change1hPct
		}
	}

	traffic, err := o.Store.GetLatestTrafficSummary(ctx, models.ZoneAll)
	if err != nil {
		return agg, err
	}
	agg.traffic = traffic
	if traffic != nil && !traffic.UpdatedAt.Before(agg.since) {
		agg.signals.TrafficAnomaly = traffic.Anomaly
		if traffic.ChangePct != nil {
			agg.signals.TrafficChangePct = *traffic.ChangePct
		}
	}
	return agg, nil
}

func (o *Orchestrator) buildInput(ctx context.Context, since time.Time) (analyzer.Input, error) {
	var in analyzer.Input
	state, err := o.Machine.Ensure(ctx)
	if err != nil {
		return in, err
	}
	in.State = state
	if in.News, err = o.Store.ListWarNews(ctx, repository.ListWarNewsParams{Since: &since, Limit: 200}); err != nil {
		return in, err
	}
	if in.Alerts, err = o.Store.ListMaritimeAlerts(ctx, repository.ListMaritimeAlertsParams{Since: &since, Limit: 100}); err != nil {
		return in, err
	}
	active := true
	if in.Events, err = o.Store.ListMapEvents(ctx, repository.ListMapEventsParams{Active: &active, Limit: 100}); err != nil {
		return in, err
	}
	if in.Indicators, err = o.Store.ListLatestShippingIndicators(ctx); err != nil {
		return in, err
	}
	return in, nil
}

func analysisLog(id string, a analyzer.Analysis, analyzeErr error, at time.Time) *models.AnalysisLog {
	ids, _ := json.Marshal(a.NewsIDs)
	item := &models.AnalysisLog{
		ID:           id,
		Status:       models.AnalysisOK,
		InputSummary: a.InputSummary,
		NewsIDs:      datatypes.JSON(ids),
		RawOutput:    a.Raw,
		InputTokens:  a.InputTokens,
		OutputTokens: a.OutputTokens,
		CostUSD:      a.Cost,
		DurationMs:   a.Duration.Milliseconds(),
		CreatedAt:    at,
	}
	if a.Result != nil {
		out, _ := json.Marshal(a.Result)
		item.Output = datatypes.JSON(out)
		item.AlertLevel = a.Result.AlertLevel
		item.Changed = a.Result.ScenarioUpdate.Changed
	}
	if analyzeErr != nil {
		msg := analyzeErr.Error()
		item.Status = models.AnalysisFailed
		item.Error = &msg
	}
	return item
}

func (o *Orchestrator) logResult(r CycleResult) {
	if o.Logger == nil {
		return
	}
	fields := []zap.Field{
		zap.String("status", r.Status),
		zap.Duration("took", r.FinishedAt.Sub(r.StartedAt)),
		zap.Int("inserted", r.Persisted.Inserted),
		zap.Strings("failed_collectors", r.FailedCollectors),
	}
	if r.Reason != "" {
		fields = append(fields, zap.String("reason", r.Reason))
	}
	if r.AnalysisID != "" {
		fields = append(fields, zap.String("analysis_id", r.AnalysisID), zap.String("alert_level", r.AlertLevel))
	}
	if r.Significance != "" {
		fields = append(fields, zap.String("significance", r.Significance))
	}
	switch r.Status {
	case StatusFailed:
		o.Logger.Error("scenario cycle failed", append(fields, zap.String("error", r.Error))...)
	default:
		o.Logger.Info("scenario cycle", fields...)
	}
}

// Package analyzer turns the current scenario state and fresh signals into a
// reasoning request and validates the structured reply.
package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"straitwatch/internal/client/llm"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

// Completer is the reasoning collaborator.
type Completer interface {
	Complete(ctx context.Context, system, user string) (llm.Completion, error)
}

// Input is everything the prompt is built from.
type Input struct {
	State      *models.ScenarioState
	News       []models.WarNewsItem
	Alerts     []models.MaritimeAlert
	Events     []models.MapEvent
	Prices     []models.OilPrice
	Indicators []models.ShippingIndicator
	Traffic    *models.TrafficSummary
	// Trigger is the significance summary that justified the call.
	Trigger string
}

// Analysis is one reasoning call. Called is true once the provider answered,
// so the spend must be logged even when Result is nil.
type Analysis struct {
	Result       *Result
	Raw          string
	Called       bool
	InputSummary string
	NewsIDs      []string
	InputTokens  int
	OutputTokens int
	Cost         decimal.Decimal
	Duration     time.Duration
}

type Analyzer struct {
	Client Completer
	Config config.AnalyzerConfig
}

func (a *Analyzer) Analyze(ctx context.Context, in Input) (Analysis, error) {
	if a == nil || a.Client == nil {
		return Analysis{}, fmt.Errorf("analyzer: no reasoning client")
	}
	payload, newsIDs := a.buildPayload(in)
	user, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Analysis{}, fmt.Errorf("analyzer: marshal payload: %w", err)
	}
	out := Analysis{
		InputSummary: inputSummary(payload, in.Trigger),
		NewsIDs:      newsIDs,
	}

	start := time.Now()
	completion, err := a.Client.Complete(ctx, systemPrompt, string(user))
	out.Duration = time.Since(start)
	if err != nil {
		return out, fmt.Errorf("analyzer: reasoning call: %w", err)
	}
	out.Called = true
	out.Raw = completion.Text
	out.InputTokens = completion.InputTokens
	out.OutputTokens = completion.OutputTokens
	out.Cost = Cost(completion.InputTokens, completion.OutputTokens, a.Config.InputPricePerM, a.Config.OutputPricePerM)

	result, err := Parse(completion.Text)
	if err != nil {
		return out, err
	}
	out.Result = result
	return out, nil
}

// Cost prices a call from token counts and per-million-token rates.
func Cost(inputTokens, outputTokens int, inPerM, outPerM float64) decimal.Decimal {
	million := decimal.NewFromInt(1_000_000)
	in := decimal.NewFromInt(int64(inputTokens)).Mul(decimal.NewFromFloat(inPerM)).Div(million)
	out := decimal.NewFromInt(int64(outputTokens)).Mul(decimal.NewFromFloat(outPerM)).Div(million)
	return in.Add(out).Round(6)
}

type statePayload struct {
	AlertLevel      string          `json:"alert_level"`
	PrimaryScenario string          `json:"primary_scenario"`
	Variables       json.RawMessage `json:"variables,omitempty"`
	Version         int64           `json:"version"`
}

type newsPayload struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Summary   string     `json:"summary,omitempty"`
	Source    string     `json:"source"`
	Category  string     `json:"category"`
	Severity  string     `json:"severity"`
	Verified  bool       `json:"verified"`
	Published *time.Time `json:"published_at,omitempty"`
}

type alertPayload struct {
	Source        string     `json:"source"`
	Title         string     `json:"title"`
	Text          string     `json:"text,omitempty"`
	ThreatLevel   string     `json:"threat_level"`
	Region        string     `json:"region"`
	AffectsStrait bool       `json:"affects_strait"`
	Published     *time.Time `json:"published_at,omitempty"`
}

type eventPayload struct {
	Type     string    `json:"type"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Severity string    `json:"severity"`
	Verified bool      `json:"verified"`
	Seen     time.Time `json:"published_at"`
}

type pricePayload struct {
	Benchmark      string  `json:"benchmark"`
	Price          float64 `json:"price"`
	Change1hPct    float64 `json:"change_1h_pct"`
	Change30mPct   float64 `json:"change_30m_pct"`
	ChangeClosePct float64 `json:"change_close_pct"`
	Spike          bool    `json:"spike"`
	MarketOpen     bool    `json:"market_open"`
}

type indicatorPayload struct {
	Type  string  `json:"type"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

type trafficPayload struct {
	TotalVessels   int             `json:"total_vessels"`
	Inbound        int             `json:"inbound"`
	Outbound       int             `json:"outbound"`
	Turns          int             `json:"u_turns"`
	StatusCounts   json.RawMessage `json:"status_counts,omitempty"`
	ChangePct      *float64        `json:"change_pct,omitempty"`
	Anomaly        bool            `json:"anomaly"`
	AnomalyDetails string          `json:"anomaly_description,omitempty"`
}

type payload struct {
	CurrentState statePayload       `json:"current_state"`
	Trigger      string             `json:"trigger,omitempty"`
	News         []newsPayload      `json:"news"`
	Alerts       []alertPayload     `json:"maritime_alerts"`
	Events       []eventPayload     `json:"map_events"`
	Prices       []pricePayload     `json:"oil_prices"`
	Indicators   []indicatorPayload `json:"shipping_indicators"`
	Traffic      *trafficPayload    `json:"traffic,omitempty"`
}

var severityRank = map[string]int{"critical": 0, "high": 1, "elevated": 1, "medium": 2, "low": 3}

func rank(severity string) int {
	if r, ok := severityRank[severity]; ok {
		return r
	}
	return 4
}

func (a *Analyzer) buildPayload(in Input) (payload, []string) {
	p := payload{CurrentState: statePayload{AlertLevel: models.LevelNone, PrimaryScenario: "baseline"}, Trigger: in.Trigger}
	if in.State != nil {
		p.CurrentState = statePayload{
			AlertLevel:      in.State.AlertLevel,
			PrimaryScenario: in.State.PrimaryScenario,
			Variables:       json.RawMessage(in.State.Variables),
			Version:         in.State.Version,
		}
		if len(in.State.Variables) == 0 {
			p.CurrentState.Variables = nil
		}
	}

	news := append([]models.WarNewsItem(nil), in.News...)
	sort.SliceStable(news, func(i, j int) bool { return rank(news[i].Severity) < rank(news[j].Severity) })
	news = limit(news, a.Config.MaxNewsItems)
	ids := make([]string, 0, len(news))
	for _, n := range news {
		ids = append(ids, n.ID)
		p.News = append(p.News, newsPayload{
			ID: n.ID, Title: n.Title, Summary: n.Summary, Source: n.SourceName,
			Category: n.Category, Severity: n.Severity, Verified: n.Verified, Published: n.PublishedAt,
		})
	}

	alerts := append([]models.MaritimeAlert(nil), in.Alerts...)
	sort.SliceStable(alerts, func(i, j int) bool { return rank(alerts[i].ThreatLevel) < rank(alerts[j].ThreatLevel) })
	for _, al := range limit(alerts, a.Config.MaxAlertItems) {
		p.Alerts = append(p.Alerts, alertPayload{
			Source: al.Source, Title: al.Title, Text: al.Text, ThreatLevel: al.ThreatLevel,
			Region: al.Region, AffectsStrait: al.AffectsStrait, Published: al.PublishedAt,
		})
	}

	events := append([]models.MapEvent(nil), in.Events...)
	sort.SliceStable(events, func(i, j int) bool { return rank(events[i].Severity) < rank(events[j].Severity) })
	for _, ev := range limit(events, a.Config.MaxEventItems) {
		p.Events = append(p.Events, eventPayload{
			Type: ev.EventType, Title: ev.Title, Location: ev.LocationName,
			Severity: ev.Severity, Verified: ev.Verified, Seen: ev.PublishedAt,
		})
	}

	for _, pr := range in.Prices {
		p.Prices = append(p.Prices, pricePayload{
			Benchmark: pr.Benchmark, Price: pr.Price, Change1hPct: pr.Change1hPct, Change30mPct: pr.Change30mPct,
			ChangeClosePct: pr.ChangeClosePct, Spike: pr.Spike, MarketOpen: pr.MarketOpen,
		})
	}
	for _, ind := range in.Indicators {
		p.Indicators = append(p.Indicators, indicatorPayload{Type: ind.IndicatorType, Value: ind.Value, Unit: ind.Unit})
	}
	if t := in.Traffic; t != nil {
		p.Traffic = &trafficPayload{
			TotalVessels: t.TotalVessels, Inbound: t.Inbound, Outbound: t.Outbound, Turns: t.Turns,
			StatusCounts: json.RawMessage(t.StatusCounts), ChangePct: t.ChangePct,
			Anomaly: t.Anomaly, AnomalyDetails: t.AnomalyDescription,
		}
		if len(t.StatusCounts) == 0 {
			p.Traffic.StatusCounts = nil
		}
	}
	return p, ids
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

func inputSummary(p payload, trigger string) string {
	s := fmt.Sprintf("state=%s news=%d alerts=%d events=%d prices=%d indicators=%d traffic=%t",
		p.CurrentState.AlertLevel, len(p.News), len(p.Alerts), len(p.Events), len(p.Prices), len(p.Indicators), p.Traffic != nil)
	if trigger != "" {
		s += " | " + trigger
	}
	return s
}

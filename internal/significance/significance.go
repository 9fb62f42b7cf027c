// Package significance decides whether new signals warrant a reasoning call.
package significance

import (
	"fmt"
	"math"
	"time"

	"straitwatch/internal/config"
)

const (
	ReasonCriticalNews   = "critical_news"
	ReasonPriceMove      = "price_move"
	ReasonTrafficAnomaly = "traffic_anomaly"
	ReasonStale          = "stale"
	ReasonNoPrior        = "no_prior_analysis"
	ReasonActivity       = "activity_score"
)

// Signals are the counts aggregated since the last successful analysis.
type Signals struct {
	NewsTotal        int64
	CriticalNews     int64
	HighNews         int64
	NewAlerts        int64
	PriceMovePct     float64 // largest absolute benchmark move
	TrafficChangePct float64
	TrafficAnomaly   bool
	// SinceLastSuccess is nil when no analysis has ever succeeded.
	SinceLastSuccess *time.Duration
}

type Decision struct {
	Significant bool
	Reasons     []string
	Score       float64
	Summary     string
}

// Evaluate applies the trigger rules in order and falls back to the weighted
// activity score. It has no side effects.
func Evaluate(s Signals, t config.SignificanceConfig) Decision {
	d := Decision{Score: Score(s, t)}

	minCritical := int64(t.CriticalNewsMin)
	if minCritical <= 0 {
		minCritical = 1
	}
	if s.CriticalNews >= minCritical {
		d.Reasons = append(d.Reasons, ReasonCriticalNews)
	}
	if t.PriceMovePct > 0 && math.Abs(s.PriceMovePct) >= t.PriceMovePct {
		d.Reasons = append(d.Reasons, ReasonPriceMove)
	}
	if s.TrafficAnomaly {
		d.Reasons = append(d.Reasons, ReasonTrafficAnomaly)
	}
	switch {
	case s.SinceLastSuccess == nil:
		d.Reasons = append(d.Reasons, ReasonNoPrior)
	case t.MaxStaleness > 0 && *s.SinceLastSuccess >= t.MaxStaleness:
		d.Reasons = append(d.Reasons, ReasonStale)
	}
	if len(d.Reasons) == 0 && d.Score >= t.MinActivityScore {
		d.Reasons = append(d.Reasons, ReasonActivity)
	}
	d.Significant = len(d.Reasons) > 0
	d.Summary = summary(s, d.Score)
	return d
}

// Score is the weighted activity score used when no hard trigger fires.
func Score(s Signals, t config.SignificanceConfig) float64 {
	return float64(s.NewsTotal)*t.WeightNews +
		float64(s.HighNews)*t.WeightHigh +
		float64(s.NewAlerts)*t.WeightAlert +
		math.Abs(s.TrafficChangePct)*t.WeightTraffic
}

func summary(s Signals, score float64) string {
	since := "never"
	if s.SinceLastSuccess != nil {
		since = fmt.Sprintf("%.0fm", s.SinceLastSuccess.Minutes())
	}
	return fmt.Sprintf("news=%d critical=%d high=%d alerts=%d price=%.2f%% traffic=%.1f%% anomaly=%t last=%s score=%.1f",
		s.NewsTotal, s.CriticalNews, s.HighNews, s.NewAlerts, s.PriceMovePct, s.TrafficChangePct, s.TrafficAnomaly, since, score)
}

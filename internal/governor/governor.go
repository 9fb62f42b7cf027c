// Package governor refuses reasoning calls past the configured spend and rate
// ceilings. Its decisions are sums over analysis log rows and nothing else.
package governor

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"straitwatch/internal/config"
)

const (
	ReasonCostCeiling = "cost_ceiling"
	ReasonRateCeiling = "rate_ceiling"
)

// Ledger is the slice of the analysis log the governor reads.
type Ledger interface {
	SumAnalysisCostSince(ctx context.Context, since time.Time) (decimal.Decimal, error)
	CountAnalysesSince(ctx context.Context, since time.Time) (int64, error)
}

type Verdict struct {
	Allowed       bool
	Reason        string
	CostToday     decimal.Decimal
	CallsThisHour int64
}

type Governor struct {
	Ledger Ledger
	Config config.GovernorConfig
}

// Check reads today's spend (since UTC midnight) and this clock hour's call
// count. A read failure is returned as an error and must be treated as a refusal.
func (g *Governor) Check(ctx context.Context, now time.Time) (Verdict, error) {
	if g == nil || g.Ledger == nil {
		return Verdict{}, fmt.Errorf("governor: no ledger")
	}
	now = now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	hour := now.Truncate(time.Hour)

	cost, err := g.Ledger.SumAnalysisCostSince(ctx, midnight)
	if err != nil {
		return Verdict{}, fmt.Errorf("governor: read daily cost: %w", err)
	}
	calls, err := g.Ledger.CountAnalysesSince(ctx, hour)
	if err != nil {
		return Verdict{}, fmt.Errorf("governor: read hourly calls: %w", err)
	}

	v := Verdict{Allowed: true, CostToday: cost, CallsThisHour: calls}
	ceiling := decimal.NewFromFloat(g.Config.MaxDailyCostUSD)
	if g.Config.MaxDailyCostUSD > 0 && cost.GreaterThanOrEqual(ceiling) {
		v.Allowed = false
		v.Reason = ReasonCostCeiling
		return v, nil
	}
	if g.Config.MaxCallsPerHour > 0 && calls >= int64(g.Config.MaxCallsPerHour) {
		v.Allowed = false
		v.Reason = ReasonRateCeiling
	}
	return v, nil
}

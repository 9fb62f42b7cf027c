package governor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/config"
)

type fakeLedger struct {
	cost      decimal.Decimal
	calls     int64
	err       error
	costSince time.Time
	callSince time.Time
}

func (f *fakeLedger) SumAnalysisCostSince(_ context.Context, since time.Time) (decimal.Decimal, error) {
	f.costSince = since
	return f.cost, f.err
}

func (f *fakeLedger) CountAnalysesSince(_ context.Context, since time.Time) (int64, error) {
	f.callSince = since
	return f.calls, f.err
}

var cfg = config.GovernorConfig{MaxDailyCostUSD: 5, MaxCallsPerHour: 4}

func TestCheckWindows(t *testing.T) {
	led := &fakeLedger{cost: decimal.RequireFromString("1.25"), calls: 1}
	g := &Governor{Ledger: led, Config: cfg}
	now := time.Date(2026, 3, 2, 14, 37, 12, 0, time.UTC)

	v, err := g.Check(context.Background(), now)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), led.costSince)
	assert.Equal(t, time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC), led.callSince)
}

func TestCheckCeilings(t *testing.T) {
	tests := []struct {
		name   string
		cost   string
		calls  int64
		allow  bool
		reason string
	}{
		{"under both", "4.999999", 3, true, ""},
		{"cost at ceiling", "5.00", 0, false, ReasonCostCeiling},
		{"cost over ceiling wins", "7.10", 9, false, ReasonCostCeiling},
		{"rate at ceiling", "0.10", 4, false, ReasonRateCeiling},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &Governor{Ledger: &fakeLedger{cost: decimal.RequireFromString(tt.cost), calls: tt.calls}, Config: cfg}
			v, err := g.Check(context.Background(), time.Now())
			require.NoError(t, err)
			assert.Equal(t, tt.allow, v.Allowed)
			assert.Equal(t, tt.reason, v.Reason)
		})
	}
}

func TestCheckFailsClosed(t *testing.T) {
	g := &Governor{Ledger: &fakeLedger{err: errors.New("db down")}, Config: cfg}
	v, err := g.Check(context.Background(), time.Now())
	assert.Error(t, err)
	assert.False(t, v.Allowed)
}

package significance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"straitwatch/internal/config"
)

func defaults() config.SignificanceConfig {
	return config.Default().Significance
}

func ago(d time.Duration) *time.Duration { return &d }

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		signals Signals
		want    bool
		reasons []string
	}{
		{"quiet", Signals{NewsTotal: 2, SinceLastSuccess: ago(time.Hour)}, false, nil},
		{"critical news", Signals{NewsTotal: 1, CriticalNews: 1, SinceLastSuccess: ago(time.Hour)}, true, []string{ReasonCriticalNews}},
		{"price move at cutoff", Signals{PriceMovePct: -3.0, SinceLastSuccess: ago(time.Hour)}, true, []string{ReasonPriceMove}},
		{"price move below cutoff", Signals{PriceMovePct: 2.99, SinceLastSuccess: ago(time.Hour)}, false, nil},
		{"traffic anomaly", Signals{TrafficAnomaly: true, SinceLastSuccess: ago(time.Hour)}, true, []string{ReasonTrafficAnomaly}},
		{"stale", Signals{SinceLastSuccess: ago(6 * time.Hour)}, true, []string{ReasonStale}},
		{"never analyzed", Signals{}, true, []string{ReasonNoPrior}},
		{"activity score", Signals{NewsTotal: 1, HighNews: 1, NewAlerts: 1, SinceLastSuccess: ago(time.Hour)}, true, []string{ReasonActivity}},
		{"activity score short", Signals{NewsTotal: 2, NewAlerts: 1, TrafficChangePct: 10, SinceLastSuccess: ago(time.Hour)}, false, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Evaluate(tt.signals, defaults())
			assert.Equal(t, tt.want, d.Significant, d.Summary)
			assert.Equal(t, tt.reasons, d.Reasons)
			assert.NotEmpty(t, d.Summary)
		})
	}
}

func TestScoreWeights(t *testing.T) {
	s := Signals{NewsTotal: 2, HighNews: 1, NewAlerts: 1, TrafficChangePct: -20}
	assert.InDelta(t, 2*1.0+1*3.0+1*2.0+20*0.1, Score(s, defaults()), 1e-9)
}

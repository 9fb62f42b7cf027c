package anomaly

import (
	"math"
	"time"
)

// Sample is one close in an intraday series.
type Sample struct {
	At    time.Time
	Close float64
}

// PriceChange is the percent move of the newest sample against the newest
// sample at least horizon older. Samples must be sorted by time.
func PriceChange(samples []Sample, horizon time.Duration) (float64, bool) {
	if len(samples) < 2 {
		return 0, false
	}
	last := samples[len(samples)-1]
	target := last.At.Add(-horizon)
	for i := len(samples) - 2; i >= 0; i-- {
		if samples[i].At.After(target) {
			continue
		}
		if samples[i].Close == 0 {
			return 0, false
		}
		return PercentChange(samples[i].Close, last.Close), true
	}
	return 0, false
}

func PercentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// IsSpike reports an absolute move strictly beyond cutoffPct at either horizon.
func IsSpike(change1h, change30m, cutoffPct float64) bool {
	return math.Abs(change1h) > cutoffPct || math.Abs(change30m) > cutoffPct
}

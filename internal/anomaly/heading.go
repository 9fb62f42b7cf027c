// Package anomaly holds the turn, stop, price-spike and traffic detectors.
package anomaly

import (
	"math"

	"straitwatch/internal/models"
)

// HeadingUnavailable is the AIS sentinel for "no true heading".
const HeadingUnavailable = 511

// HeadingDelta is the smallest angle between two headings, in [0, 180].
func HeadingDelta(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// EffectiveHeading prefers the true heading and falls back to course over ground.
func EffectiveHeading(heading, course *float64) (float64, bool) {
	if heading != nil && *heading >= 0 && *heading < 360 && *heading != HeadingUnavailable {
		return *heading, true
	}
	if course != nil && *course >= 0 && *course < 360 {
		return *course, true
	}
	return 0, false
}

// Tracker derives vessel status from consecutive headings within one batch.
// It is not safe for concurrent use; each collection window owns one.
type Tracker struct {
	TurnDeltaDeg float64
	StopSpeedKn  float64

	last map[string]float64
}

func NewTracker(turnDeltaDeg, stopSpeedKn float64) *Tracker {
	if turnDeltaDeg <= 0 {
		turnDeltaDeg = 90
	}
	if stopSpeedKn <= 0 {
		stopSpeedKn = 0.5
	}
	return &Tracker{TurnDeltaDeg: turnDeltaDeg, StopSpeedKn: stopSpeedKn, last: map[string]float64{}}
}

// Observe records one report and returns its status. A turn beyond the
// threshold wins over a stop; the two flags never co-occur.
func (t *Tracker) Observe(mmsi string, heading, course *float64, speed float64) string {
	if t.last == nil {
		t.last = map[string]float64{}
	}
	h, ok := EffectiveHeading(heading, course)
	status := models.VesselTransiting
	if prev, seen := t.last[mmsi]; seen && ok && HeadingDelta(prev, h) > t.TurnDeltaDeg {
		status = models.VesselUTurn
	} else if speed < t.StopSpeedKn {
		status = models.VesselStopped
	}
	if ok {
		t.last[mmsi] = h
	}
	return status
}

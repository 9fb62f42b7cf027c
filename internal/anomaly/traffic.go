package anomaly

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"
	"gorm.io/datatypes"

	"straitwatch/internal/classify"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

// Summarize aggregates one batch of latest-per-vessel positions. prev is the
// previous period's summary for the same zone, or nil.
func Summarize(positions []models.VesselPosition, prev *models.TrafficSummary, cfg config.TrafficConfig, periodType string, periodStart time.Time) models.TrafficSummary {
	byType := map[string]int{}
	byStatus := map[string]int{}
	speeds := make([]float64, 0, len(positions))
	out := models.TrafficSummary{
		PeriodType:  periodType,
		PeriodStart: periodStart,
		Zone:        models.ZoneAll,
	}
	transitingTankers := 0
	for _, p := range positions {
		byType[p.VesselType]++
		byStatus[p.Status]++
		speeds = append(speeds, p.Speed)
		if p.Status == models.VesselUTurn {
			out.Turns++
		}
		if p.Status == models.VesselTransiting && p.VesselType == classify.VesselTanker {
			transitingTankers++
		}
		if c, ok := EffectiveHeading(nil, p.Course); ok {
			if c >= 180 {
				out.Inbound++
			} else {
				out.Outbound++
			}
		}
	}
	out.TotalVessels = len(positions)
	if len(speeds) > 0 {
		out.AvgSpeed = stat.Mean(speeds, nil)
	}
	out.EstimatedThroughputMbbl = float64(transitingTankers) * cfg.BarrelsPerTankerMb
	out.VesselTypeCounts = countsJSON(byType)
	out.StatusCounts = countsJSON(byStatus)

	if prev != nil && prev.TotalVessels > 0 {
		change := PercentChange(float64(prev.TotalVessels), float64(out.TotalVessels))
		out.ChangePct = &change
	}

	var reasons []string
	minTurns := cfg.AnomalyMinTurns
	if minTurns <= 0 {
		minTurns = 3
	}
	if out.Turns >= minTurns {
		reasons = append(reasons, fmt.Sprintf("%d vessels reversed course", out.Turns))
	}
	if out.TotalVessels > 0 {
		stopped := float64(byStatus[models.VesselStopped]) / float64(out.TotalVessels)
		if stopped > cfg.AnomalyStoppedRatio {
			reasons = append(reasons, fmt.Sprintf("%.0f%% of vessels stopped", stopped*100))
		}
	}
	if len(reasons) > 0 {
		out.Anomaly = true
		out.AnomalyDescription = strings.Join(reasons, "; ")
	}
	return out
}

func countsJSON(counts map[string]int) datatypes.JSON {
	raw, err := json.Marshal(counts)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(raw)
}

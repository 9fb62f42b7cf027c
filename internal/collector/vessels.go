package collector

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"straitwatch/internal/anomaly"
	"straitwatch/internal/classify"
	"straitwatch/internal/client/aisstream"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

// TrafficHistory reads the previous traffic period for change computation.
type TrafficHistory interface {
	GetPreviousTrafficSummary(ctx context.Context, periodType string, zone string, before time.Time) (*models.TrafficSummary, error)
}

// VesselCollector listens to the vessel stream for one collection window and
// returns the latest position per vessel plus the batch traffic summary.
type VesselCollector struct {
	Config  config.VesselsConfig
	Traffic config.TrafficConfig
	History TrafficHistory
	Logger  *zap.Logger

	now clock
}

func (c *VesselCollector) Name() string { return NameVessels }

func (c *VesselCollector) SourceInfo() SourceInfo {
	return SourceInfo{Kind: "stream", Endpoint: c.Config.URL}
}

func (c *VesselCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil || c.Config.APIKey == "" {
		return Batch{}, ErrNotConfigured
	}
	window := c.Config.CollectionWindow
	if window <= 0 {
		window = 60 * time.Second
	}
	wctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	ws := aisstream.NewWSClient(c.Config.URL)
	if err := ws.Connect(wctx); err != nil {
		return Batch{}, err
	}
	defer func() { _ = ws.Close(websocket.StatusNormalClosure, "collection window elapsed") }()

	if err := ws.Subscribe(wctx, aisstream.Subscription{
		APIKey:             c.Config.APIKey,
		BoundingBoxes:      boundingBoxes(c.Config.BoundingBoxes),
		FilterMessageTypes: []string{aisstream.MessagePositionReport, aisstream.MessageShipStaticData},
	}); err != nil {
		return Batch{}, err
	}

	acc := newVesselAccumulator(anomaly.NewTracker(c.Traffic.TurnDeltaDeg, c.Traffic.StopSpeedKn))
	for n := 0; c.Config.MaxMessages <= 0 || n < c.Config.MaxMessages; n++ {
		env, err := ws.Read(wctx)
		if err != nil {
			if errors.Is(err, aisstream.ErrBadFrame) {
				continue
			}
			// window elapsed or the stream broke: keep what arrived
			if wctx.Err() == nil && c.Logger != nil {
				c.Logger.Warn("vessel stream ended early", zap.Int("messages", n), zap.Error(err))
			}
			break
		}
		acc.add(env, c.now.now())
	}

	return c.finish(ctx, acc.positions())
}

func (c *VesselCollector) finish(ctx context.Context, positions []models.VesselPosition) (Batch, error) {
	now := c.now.now()
	period := c.Traffic.Period
	if period <= 0 {
		period = time.Hour
	}
	start := now.Truncate(period)
	kind := periodType(period)

	var prev *models.TrafficSummary
	if c.History != nil {
		p, err := c.History.GetPreviousTrafficSummary(ctx, kind, models.ZoneAll, start)
		if err != nil && c.Logger != nil {
			c.Logger.Warn("previous traffic summary unavailable", zap.Error(err))
		}
		prev = p
	}
	summary := anomaly.Summarize(positions, prev, c.Traffic, kind, start)
	return Batch{Vessels: positions, Traffic: &summary}, nil
}

type vesselAccumulator struct {
	tracker *anomaly.Tracker
	latest  map[string]*models.VesselPosition
	statics map[string]aisstream.ShipStaticData
	order   []string
}

func newVesselAccumulator(tr *anomaly.Tracker) *vesselAccumulator {
	return &vesselAccumulator{
		tracker: tr,
		latest:  map[string]*models.VesselPosition{},
		statics: map[string]aisstream.ShipStaticData{},
	}
}

func (a *vesselAccumulator) add(env aisstream.Envelope, now time.Time) {
	switch env.MessageType {
	case aisstream.MessagePositionReport:
		pr := env.Message.PositionReport
		if pr == nil {
			return
		}
		mmsi := mmsiOf(env.MetaData.MMSI, pr.UserID)
		if mmsi == "" {
			return
		}
		heading := optionalAngle(pr.TrueHeading)
		course := optionalAngle(pr.Cog)
		observed := env.ObservedAt(now)
		cur, ok := a.latest[mmsi]
		if ok && observed.Before(cur.ObservedAt) {
			// Late reports never reach the tracker.
			return
		}
		if !ok {
			cur = &models.VesselPosition{MMSI: mmsi}
			a.latest[mmsi] = cur
			a.order = append(a.order, mmsi)
		}
		status := a.tracker.Observe(mmsi, heading, course, pr.Sog)
		cur.Name = firstNonEmpty(env.MetaData.ShipName, cur.Name)
		cur.Lat, cur.Lon = pr.Latitude, pr.Longitude
		cur.Speed = pr.Sog
		cur.Heading, cur.Course = heading, course
		cur.NavStatus = pr.NavigationalStatus
		cur.Status = status
		cur.Zone = classify.Zone(pr.Latitude, pr.Longitude)
		cur.ObservedAt = observed
	case aisstream.MessageShipStaticData:
		sd := env.Message.ShipStaticData
		if sd == nil {
			return
		}
		if mmsi := mmsiOf(env.MetaData.MMSI, sd.UserID); mmsi != "" {
			a.statics[mmsi] = *sd
		}
	}
}

// positions merges static data into the latest reports, in first-seen order.
func (a *vesselAccumulator) positions() []models.VesselPosition {
	out := make([]models.VesselPosition, 0, len(a.order))
	for _, mmsi := range a.order {
		p := *a.latest[mmsi]
		if sd, ok := a.statics[mmsi]; ok {
			p.Name = firstNonEmpty(collapseSpace(sd.Name), p.Name)
			p.ShipTypeCode = sd.Type
			p.Destination = collapseSpace(sd.Destination)
			if sd.MaximumStaticDraught > 0 {
				d := sd.MaximumStaticDraught
				p.Draught = &d
			}
		}
		p.Name = collapseSpace(p.Name)
		p.VesselType = classify.VesselType(p.ShipTypeCode)
		out = append(out, p)
	}
	return out
}

func boundingBoxes(in [][][]float64) [][][2]float64 {
	out := make([][][2]float64, 0, len(in))
	for _, box := range in {
		if len(box) != 2 || len(box[0]) != 2 || len(box[1]) != 2 {
			continue
		}
		out = append(out, [][2]float64{{box[0][0], box[0][1]}, {box[1][0], box[1][1]}})
	}
	return out
}

func mmsiOf(ids ...int64) string {
	for _, id := range ids {
		if id > 0 {
			return strconv.FormatInt(id, 10)
		}
	}
	return ""
}

// optionalAngle drops the AIS "not available" values (511 for heading, 360 for course).
func optionalAngle(v float64) *float64 {
	if v < 0 || v >= 360 {
		return nil
	}
	return &v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func periodType(d time.Duration) string {
	switch d {
	case time.Hour:
		return "hour"
	case 24 * time.Hour:
		return "day"
	}
	return d.String()
}

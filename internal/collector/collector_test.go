package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"straitwatch/internal/anomaly"
	"straitwatch/internal/classify"
	"straitwatch/internal/client/aisstream"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

var fixedNow = time.Date(2026, 3, 2, 10, 7, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func TestEventCollector(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "artlist", r.URL.Query().Get("mode"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = fmt.Fprint(w, `{"articles":[
			{"url":"https://www.reuters.com/world/a","title":"Naval forces report missile launch near the strait","seendate":"20260302T090000Z","domain":"reuters.com"},
			{"url":"https://blog.example/b","title":"Markets close mixed","seendate":"20260302T090000Z","domain":"blog.example"}
		]}`)
	}))
	defer srv.Close()

	c := &EventCollector{
		Config: config.EventsConfig{
			Endpoint:       srv.URL,
			Queries:        []string{"hormuz", "gulf"},
			TrustedDomains: []string{"reuters.com"},
			ExpiryWindow:   72 * time.Hour,
		},
		now: fixedClock,
	}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, batch.Events, 1, "duplicate URL across queries and the ungeocoded title are dropped")

	ev := batch.Events[0]
	assert.Equal(t, classify.EventMissileLaunch, ev.EventType)
	assert.Equal(t, classify.RegionStrait, ev.Region)
	assert.Equal(t, classify.StraitOfHormuz.Lat, ev.Lat)
	assert.True(t, ev.Verified)
	assert.True(t, ev.Active)
	assert.Equal(t, ev.PublishedAt.Add(72*time.Hour), ev.ExpiresAt)
	assert.Len(t, ev.Fingerprint, 64)
}

func TestEventCollectorAllQueriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "Your query was too short")
	}))
	defer srv.Close()

	c := &EventCollector{Config: config.EventsConfig{Endpoint: srv.URL, Queries: []string{"x"}}}
	_, err := c.Collect(context.Background())
	assert.Error(t, err)
}

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>Tanker seized in Strait of Hormuz</title><link>https://example.com/tanker?utm_source=rss</link>
<description>&lt;p&gt;Iranian &lt;b&gt;forces&lt;/b&gt; boarded a tanker&lt;/p&gt;</description>
<pubDate>Mon, 02 Mar 2026 08:00:00 GMT</pubDate></item>
<item><title>Local football results</title><link>https://example.com/football</link><description>Scores</description></item>
<item><title>Brent crude jumps on supply fears</title><description>Oil rallies</description></item>
</channel></rss>`

func TestNewsCollectorMergesAndDedups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/everything", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		_, _ = fmt.Fprint(w, `{"status":"ok","articles":[
			{"source":{"name":"Reuters"},"title":"Tanker seized in Strait of Hormuz","description":"API copy","url":"https://example.com/tanker","publishedAt":"2026-03-02T08:00:00Z"}
		]}`)
	})
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = fmt.Fprint(w, testFeed)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := &NewsCollector{
		Config: config.NewsConfig{
			SearchEndpoint: srv.URL + "/v2/everything",
			APIKey:         "k",
			Query:          "hormuz",
			Feeds:          []config.FeedConfig{{Name: "Wire", URL: srv.URL + "/feed"}},
			TrustedSources: []string{"reuters"},
		},
		now: fixedClock,
	}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.News, 2)

	first := batch.News[0]
	assert.Equal(t, "example.com/tanker", first.ID)
	assert.Equal(t, "https://example.com/tanker", first.URL)
	assert.Equal(t, "api", first.SourceType)
	assert.Equal(t, "API copy", first.Summary)
	assert.True(t, first.Verified)
	assert.Equal(t, classify.SeverityCritical, first.Severity)

	gen := batch.News[1]
	assert.True(t, strings.HasPrefix(gen.ID, "gen:"))
	assert.Equal(t, "rss", gen.SourceType)
	assert.Equal(t, classify.CategoryEnergy, gen.Category)

	var kws []string
	require.NoError(t, json.Unmarshal(first.Keywords, &kws))
	assert.Contains(t, kws, "hormuz")
}

func TestNewsItemIDIgnoresTrackingParams(t *testing.T) {
	c := &NewsCollector{}
	plain := c.toItem(rawNews{title: "Tanker seized", url: "https://www.example.com/tanker/"}, fixedNow)
	tracked := c.toItem(rawNews{title: "Tanker seized", url: "https://example.com/tanker?utm_source=rss&utm_medium=feed"}, fixedNow)
	assert.Equal(t, plain.ID, tracked.ID)
	assert.Equal(t, "example.com/tanker", plain.ID)
	assert.Equal(t, "https://example.com/tanker?utm_source=rss&utm_medium=feed", tracked.URL)
}

func TestNewsCollectorStripsHTML(t *testing.T) {
	assert.Equal(t, "Iranian forces boarded a tanker", cleanHTML("<p>Iranian <b>forces</b> boarded a tanker</p>"))
	assert.Equal(t, "", cleanHTML("  "))
}

func chartJSON(closes []float64, start time.Time) string {
	ts := make([]string, len(closes))
	cs := make([]string, len(closes))
	for i, c := range closes {
		ts[i] = fmt.Sprint(start.Add(time.Duration(i) * 5 * time.Minute).Unix())
		cs[i] = fmt.Sprint(c)
	}
	return fmt.Sprintf(`{"chart":{"result":[{"meta":{"symbol":"BZ=F","regularMarketPrice":%v,"chartPreviousClose":78},
		"timestamp":[%s],"indicators":{"quote":[{"open":[%s],"high":[%s],"low":[%s],"close":[%s],"volume":[%s]}]}}],"error":null}}`,
		closes[len(closes)-1], strings.Join(ts, ","), strings.Join(cs, ","), strings.Join(cs, ","), strings.Join(cs, ","), strings.Join(cs, ","),
		strings.Repeat("100,", len(closes)-1)+"100")
}

func TestPriceCollectorSpike(t *testing.T) {
	start := fixedNow.Add(-65 * time.Minute)
	closes := []float64{80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 92}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/BZ=F", r.URL.Path)
		_, _ = fmt.Fprint(w, chartJSON(closes, start))
	}))
	defer srv.Close()

	c := &PriceCollector{
		Config: config.PricesConfig{Endpoint: srv.URL, Benchmarks: []string{"BZ=F"}, SpikePct: 5, Bucket: time.Hour, MarketOpenLag: 30 * time.Minute},
		now:    fixedClock,
	}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Prices, 1)
	p := batch.Prices[0]
	assert.Equal(t, "brent", p.Benchmark)
	assert.Equal(t, 92.0, p.Price)
	assert.Equal(t, 92.0, p.High)
	assert.Equal(t, 80.0, p.Low)
	assert.Equal(t, 80.0, p.Open)
	assert.Equal(t, int64(1300), p.Volume)
	assert.InDelta(t, 15.0, p.Change1hPct, 1e-9)
	assert.True(t, p.Spike)
	assert.True(t, p.MarketOpen)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC), p.BucketAt)
}

func TestPriceCollectorNoSpikeForSmallMove(t *testing.T) {
	start := fixedNow.Add(-3 * time.Hour)
	closes := []float64{80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 80, 83}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, chartJSON(closes, start))
	}))
	defer srv.Close()

	c := &PriceCollector{Config: config.PricesConfig{Endpoint: srv.URL, Benchmarks: []string{"CL=F"}, SpikePct: 5}, now: fixedClock}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)
	p := batch.Prices[0]
	assert.Equal(t, "wti", p.Benchmark)
	assert.False(t, p.Spike)
	assert.False(t, p.MarketOpen, "newest sample is two hours old")
}

const advisoryPage = `<html><body>
<div class="incident"><h3>UKMTO WARNING 014/2026 - Vessel hijacked east of Fujairah</h3>
<time datetime="2026-03-01T18:00:00Z">1 March</time><p>Armed persons boarded a tanker.</p><a href="/incidents/14">more</a></div>
<div class="incident"><h3>Port notice</h3><p>Berth schedule changes.</p></div>
<div class="incident"><p>no title here</p></div>
</body></html>`

func TestAdvisoryCollector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, advisoryPage)
	}))
	defer srv.Close()

	c := &AdvisoryCollector{Config: config.AdvisoriesConfig{Sources: []config.AdvisorySource{{
		Name: "UKMTO", URL: srv.URL + "/recent", ItemSelector: ".incident", TitleSelector: "h3",
		LinkSelector: "a", DateSelector: "time", BodySelector: "p",
	}}}}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Alerts, 2)

	a := batch.Alerts[0]
	assert.Equal(t, classify.ThreatCritical, a.ThreatLevel)
	assert.Equal(t, classify.RegionGulfOfOman, a.Region)
	assert.True(t, a.AffectsStrait)
	assert.Equal(t, srv.URL+"/incidents/14", a.URL)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, 18, a.PublishedAt.Hour())

	b := batch.Alerts[1]
	assert.Equal(t, classify.ThreatLow, b.ThreatLevel)
	assert.False(t, b.AffectsStrait)
	assert.Equal(t, srv.URL+"/recent", b.URL)
}

func TestInsuranceProxyScore(t *testing.T) {
	tests := []struct {
		premium  float64
		mentions int
		want     int
	}{
		{0, 0, 1},
		{0, 3, 2},
		{0.05, 0, 2},
		{0.1, 0, 3},
		{0.25, 2, 4},
		{0.5, 5, 7},
		{1.0, 6, 10},
		{2.5, 30, 10},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, InsuranceProxyScore(tt.premium, tt.mentions), "premium=%v mentions=%d", tt.premium, tt.mentions)
	}
}

func TestExtractFigures(t *testing.T) {
	text := `Underwriters said war risk premiums for Gulf calls rose to 0.7% of hull value this week.
	VLCC rates on the MEG-China route hit $85,000 per day, or WS 120. Brokers say the war-risk
	picture may worsen. Another war risk quote: 0.5% of the hull value.`
	fig := extractFigures(text)
	assert.Equal(t, 0.7, fig.premiumPct)
	assert.Equal(t, 85000.0, fig.dayRateUSD)
	assert.Equal(t, 120.0, fig.worldscale)
	assert.Equal(t, 3, fig.mentions)
}

func TestShippingCollector(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><script>var x = "war risk 9% of hull value";</script>
			<p>War risk premiums climbed to 1.2% of hull value. War-risk cover is scarce; war risk desks are busy.</p></body></html>`)
	}))
	defer srv.Close()

	c := &ShippingCollector{Config: config.ShippingConfig{Pages: []config.FeedConfig{{Name: "Press", URL: srv.URL}}, Bucket: 6 * time.Hour}, now: fixedClock}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)

	byType := map[string]models.ShippingIndicator{}
	for _, ind := range batch.Indicators {
		byType[ind.IndicatorType] = ind
	}
	require.Contains(t, byType, models.IndicatorWarRiskPremium)
	assert.Equal(t, 1.2, byType[models.IndicatorWarRiskPremium].Value)
	assert.Equal(t, 3.0, byType[models.IndicatorWarRiskMention].Value)
	assert.Equal(t, 9.0, byType[models.IndicatorInsuranceProxy].Value)
	assert.NotContains(t, byType, models.IndicatorVLCCDayRate)
	assert.Equal(t, time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC), byType[models.IndicatorInsuranceProxy].BucketAt)
}

type stubHistory struct{ prev *models.TrafficSummary }

func (s stubHistory) GetPreviousTrafficSummary(context.Context, string, string, time.Time) (*models.TrafficSummary, error) {
	return s.prev, nil
}

func TestVesselCollector(t *testing.T) {
	frames := []string{
		`{"MessageType":"ShipStaticData","MetaData":{"MMSI":111},"Message":{"ShipStaticData":{"UserID":111,"Name":"GULF STAR  ","Type":84,"Destination":"FUJAIRAH","MaximumStaticDraught":20.5}}}`,
		`{"MessageType":"PositionReport","MetaData":{"MMSI":111,"ShipName":"GULF STAR","time_utc":"2026-03-02 10:00:00.000000 +0000 UTC"},"Message":{"PositionReport":{"UserID":111,"Latitude":26.5,"Longitude":56.3,"Sog":11,"Cog":120,"TrueHeading":118}}}`,
		`not json`,
		`{"MessageType":"PositionReport","MetaData":{"MMSI":111,"time_utc":"2026-03-02 10:01:00.000000 +0000 UTC"},"Message":{"PositionReport":{"UserID":111,"Latitude":26.51,"Longitude":56.29,"Sog":4,"Cog":300,"TrueHeading":511}}}`,
		`{"MessageType":"PositionReport","MetaData":{"MMSI":222,"time_utc":"2026-03-02 10:01:00.000000 +0000 UTC"},"Message":{"PositionReport":{"UserID":222,"Latitude":27.9,"Longitude":51.0,"Sog":0.1,"Cog":360,"TrueHeading":511}}}`,
	}
	subs := make(chan []byte, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		subs <- data
		for _, f := range frames {
			if err := conn.Write(ctx, websocket.MessageText, []byte(f)); err != nil {
				return
			}
		}
		_ = conn.Close(websocket.StatusNormalClosure, "done")
	}))
	defer srv.Close()

	c := &VesselCollector{
		Config: config.VesselsConfig{
			URL:              "ws" + strings.TrimPrefix(srv.URL, "http"),
			APIKey:           "key",
			CollectionWindow: 5 * time.Second,
			BoundingBoxes:    [][][]float64{{{24, 54}, {27.5, 58.5}}},
		},
		Traffic: config.TrafficConfig{TurnDeltaDeg: 90, StopSpeedKn: 0.5, AnomalyMinTurns: 3, AnomalyStoppedRatio: 0.3, BarrelsPerTankerMb: 2, Period: time.Hour},
		History: stubHistory{prev: &models.TrafficSummary{TotalVessels: 4}},
		now:     fixedClock,
	}
	batch, err := c.Collect(context.Background())
	require.NoError(t, err)

	var sub map[string]any
	require.NoError(t, json.Unmarshal(<-subs, &sub))
	assert.Equal(t, "key", sub["APIKey"])
	assert.ElementsMatch(t, []any{"PositionReport", "ShipStaticData"}, sub["FilterMessageTypes"])

	require.Len(t, batch.Vessels, 2)
	v := batch.Vessels[0]
	assert.Equal(t, "111", v.MMSI)
	assert.Equal(t, "GULF STAR", v.Name)
	assert.Equal(t, classify.VesselTanker, v.VesselType)
	assert.Equal(t, models.VesselUTurn, v.Status, "course 120 -> 300 with heading unavailable")
	assert.Nil(t, v.Heading)
	assert.Equal(t, 26.51, v.Lat)
	assert.Equal(t, classify.ZoneStraitCore, v.Zone)
	require.NotNil(t, v.Draught)
	assert.Equal(t, "FUJAIRAH", v.Destination)

	w := batch.Vessels[1]
	assert.Equal(t, models.VesselStopped, w.Status)
	assert.Nil(t, w.Course)
	assert.Equal(t, classify.ZonePersianGulf, w.Zone)

	require.NotNil(t, batch.Traffic)
	assert.Equal(t, 2, batch.Traffic.TotalVessels)
	assert.Equal(t, "hour", batch.Traffic.PeriodType)
	require.NotNil(t, batch.Traffic.ChangePct)
	assert.InDelta(t, -50.0, *batch.Traffic.ChangePct, 1e-9)
	assert.True(t, batch.Traffic.Anomaly, "half the fleet is stopped")
}

func TestVesselAccumulatorIgnoresLateReports(t *testing.T) {
	acc := newVesselAccumulator(anomaly.NewTracker(90, 0.5))
	report := func(minute int, heading float64) aisstream.Envelope {
		var env aisstream.Envelope
		env.MessageType = aisstream.MessagePositionReport
		env.MetaData = aisstream.MetaData{MMSI: 333, TimeUTC: fmt.Sprintf("2026-03-02 10:%02d:00.000000 +0000 UTC", minute)}
		env.Message.PositionReport = &aisstream.PositionReport{UserID: 333, Latitude: 26.5, Longitude: 56.3, Sog: 10, Cog: heading, TrueHeading: heading}
		return env
	}
	acc.add(report(0, 100), fixedNow)
	acc.add(report(2, 100), fixedNow)
	acc.add(report(1, 290), fixedNow)
	acc.add(report(3, 100), fixedNow)

	positions := acc.positions()
	require.Len(t, positions, 1)
	assert.Equal(t, models.VesselTransiting, positions[0].Status)
	require.NotNil(t, positions[0].Heading)
	assert.Equal(t, 100.0, *positions[0].Heading)
	assert.Equal(t, time.Date(2026, 3, 2, 10, 3, 0, 0, time.UTC), positions[0].ObservedAt)
}

func TestVesselCollectorRequiresKey(t *testing.T) {
	_, err := (&VesselCollector{}).Collect(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

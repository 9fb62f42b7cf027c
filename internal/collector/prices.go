package collector

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"straitwatch/internal/anomaly"
	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

// PriceCollector reads an intraday chart per benchmark and derives the moves
// the significance filter and the dashboard need.
type PriceCollector struct {
	HTTP   *http.Client
	Config config.PricesConfig
	Logger *zap.Logger

	now clock
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
				PreviousClose      float64 `json:"previousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

var benchmarkNames = map[string]string{
	"BZ=F": "brent",
	"CL=F": "wti",
}

// BenchmarkName maps a futures symbol to the stored benchmark key.
func BenchmarkName(symbol string) string {
	if name, ok := benchmarkNames[strings.ToUpper(strings.TrimSpace(symbol))]; ok {
		return name
	}
	return strings.ToLower(strings.TrimSpace(symbol))
}

func (c *PriceCollector) Name() string { return NamePrices }

func (c *PriceCollector) SourceInfo() SourceInfo {
	return SourceInfo{Kind: "api_poll", Endpoint: c.Config.Endpoint}
}

func (c *PriceCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil || strings.TrimSpace(c.Config.Endpoint) == "" || len(c.Config.Benchmarks) == 0 {
		return Batch{}, ErrNotConfigured
	}
	client := httpClient(c.HTTP, c.Config.Timeout)
	now := c.now.now()

	var out []models.OilPrice
	var errs []error
	for _, symbol := range c.Config.Benchmarks {
		item, err := c.fetch(ctx, client, symbol, now)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", symbol, err))
			continue
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return Batch{}, joinErrors("prices", errs)
	}
	if len(errs) > 0 && c.Logger != nil {
		c.Logger.Warn("some benchmarks failed", zap.Error(joinErrors("prices", errs)))
	}
	return Batch{Prices: out}, nil
}

func (c *PriceCollector) fetch(ctx context.Context, client *http.Client, symbol string, now time.Time) (models.OilPrice, error) {
	vals := url.Values{}
	vals.Set("interval", firstNonEmpty(c.Config.Interval, "5m"))
	vals.Set("range", firstNonEmpty(c.Config.Range, "1d"))
	u := strings.TrimRight(c.Config.Endpoint, "/") + "/" + url.PathEscape(symbol) + "?" + vals.Encode()

	var resp chartResponse
	if err := getJSON(ctx, client, u, nil, &resp); err != nil {
		return models.OilPrice{}, err
	}
	if resp.Chart.Error != nil {
		return models.OilPrice{}, fmt.Errorf("chart error %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 || len(resp.Chart.Result[0].Indicators.Quote) == 0 {
		return models.OilPrice{}, fmt.Errorf("empty chart")
	}
	res := resp.Chart.Result[0]
	q := res.Indicators.Quote[0]

	item := models.OilPrice{
		Benchmark: BenchmarkName(symbol),
		FetchedAt: now,
		BucketAt:  now.Truncate(bucketOr(c.Config.Bucket, time.Hour)),
		High:      math.Inf(-1),
		Low:       math.Inf(1),
	}
	samples := make([]anomaly.Sample, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i < len(q.Close) && q.Close[i] != nil {
			samples = append(samples, anomaly.Sample{At: time.Unix(ts, 0).UTC(), Close: *q.Close[i]})
		}
		if i < len(q.Open) && q.Open[i] != nil && item.Open == 0 {
			item.Open = *q.Open[i]
		}
		if i < len(q.High) && q.High[i] != nil {
			item.High = math.Max(item.High, *q.High[i])
		}
		if i < len(q.Low) && q.Low[i] != nil {
			item.Low = math.Min(item.Low, *q.Low[i])
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			item.Volume += *q.Volume[i]
		}
	}
	if len(samples) == 0 {
		return models.OilPrice{}, fmt.Errorf("no closes in window")
	}
	if math.IsInf(item.High, 0) {
		item.High = 0
	}
	if math.IsInf(item.Low, 0) {
		item.Low = 0
	}
	last := samples[len(samples)-1]
	item.Close = last.Close
	item.SampledAt = last.At
	item.Price = res.Meta.RegularMarketPrice
	if item.Price == 0 {
		item.Price = last.Close
	}
	item.PrevClose = res.Meta.ChartPreviousClose
	if item.PrevClose == 0 {
		item.PrevClose = res.Meta.PreviousClose
	}

	item.Change1hPct, _ = anomaly.PriceChange(samples, time.Hour)
	item.Change30mPct, _ = anomaly.PriceChange(samples, 30*time.Minute)
	item.ChangeClosePct = anomaly.PercentChange(item.PrevClose, item.Price)
	item.Spike = anomaly.IsSpike(item.Change1hPct, item.Change30mPct, c.Config.SpikePct)

	lag := c.Config.MarketOpenLag
	if lag <= 0 {
		lag = 30 * time.Minute
	}
	item.MarketOpen = now.Sub(last.At) <= lag
	return item, nil
}

func bucketOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

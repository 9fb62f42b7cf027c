// Package collector holds the six source families. A collector fetches,
// classifies and returns canonical candidate records; it never writes.
package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"straitwatch/internal/models"
)

const (
	NameVessels    = "vessels"
	NameEvents     = "events"
	NameNews       = "news"
	NamePrices     = "prices"
	NameAdvisories = "advisories"
	NameShipping   = "shipping"
)

// Names lists every collector family in fan-out order.
var Names = []string{NameVessels, NameEvents, NameNews, NamePrices, NameAdvisories, NameShipping}

var ErrNotConfigured = errors.New("collector not configured")

// Batch carries candidates for every family; a collector fills only its own slices.
type Batch struct {
	Vessels    []models.VesselPosition
	Traffic    *models.TrafficSummary
	Events     []models.MapEvent
	News       []models.WarNewsItem
	Prices     []models.OilPrice
	Alerts     []models.MaritimeAlert
	Indicators []models.ShippingIndicator
}

func (b Batch) Len() int {
	n := len(b.Vessels) + len(b.Events) + len(b.News) + len(b.Prices) + len(b.Alerts) + len(b.Indicators)
	if b.Traffic != nil {
		n++
	}
	return n
}

// Merge appends other into b.
func (b *Batch) Merge(other Batch) {
	b.Vessels = append(b.Vessels, other.Vessels...)
	b.Events = append(b.Events, other.Events...)
	b.News = append(b.News, other.News...)
	b.Prices = append(b.Prices, other.Prices...)
	b.Alerts = append(b.Alerts, other.Alerts...)
	b.Indicators = append(b.Indicators, other.Indicators...)
	if other.Traffic != nil {
		b.Traffic = other.Traffic
	}
}

type Collector interface {
	Name() string
	Collect(ctx context.Context) (Batch, error)
}

type SourceInfo struct {
	Kind     string
	Endpoint string
}

// SourceInfoProvider is implemented by collectors that can describe their upstream.
type SourceInfoProvider interface {
	SourceInfo() SourceInfo
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}

func httpClient(c *http.Client, timeout time.Duration) *http.Client {
	if c != nil {
		return c
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

const userAgent = "straitwatch/1.0 (+https://github.com/straitwatch)"

func getBody(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(body), 200))
	}
	return body, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, out any) error {
	body, err := getBody(ctx, client, url, headers)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", truncate(url, 120), err)
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsFold(list []string, val string) bool {
	val = strings.ToLower(strings.TrimSpace(val))
	for _, item := range list {
		if strings.ToLower(strings.TrimSpace(item)) == val {
			return true
		}
	}
	return false
}

// joinErrors folds per-source failures into one error; nil when there were none.
func joinErrors(prefix string, errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%s: %w", prefix, errors.Join(errs...))
}

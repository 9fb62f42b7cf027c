package collector

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"straitwatch/internal/classify"
	"straitwatch/internal/config"
	"straitwatch/internal/dedup"
	"straitwatch/internal/models"
)

// EventCollector queries the GDELT DOC API and keeps articles whose title
// names a place in the gazetteer.
type EventCollector struct {
	HTTP   *http.Client
	Config config.EventsConfig
	Logger *zap.Logger

	now clock
}

type gdeltResponse struct {
	Articles []gdeltArticle `json:"articles"`
}

type gdeltArticle struct {
	URL      string `json:"url"`
	Title    string `json:"title"`
	SeenDate string `json:"seendate"`
	Domain   string `json:"domain"`
	Language string `json:"language"`
}

func (c *EventCollector) Name() string { return NameEvents }

func (c *EventCollector) SourceInfo() SourceInfo {
	return SourceInfo{Kind: "api_poll", Endpoint: c.Config.Endpoint}
}

func (c *EventCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil || strings.TrimSpace(c.Config.Endpoint) == "" || len(c.Config.Queries) == 0 {
		return Batch{}, ErrNotConfigured
	}
	client := httpClient(c.HTTP, c.Config.Timeout)

	var articles []gdeltArticle
	var errs []error
	for _, q := range c.Config.Queries {
		var resp gdeltResponse
		if err := getJSON(ctx, client, c.queryURL(q), nil, &resp); err != nil {
			errs = append(errs, err)
			continue
		}
		articles = append(articles, resp.Articles...)
	}
	if len(articles) == 0 && len(errs) > 0 {
		return Batch{}, joinErrors("events", errs)
	}
	if len(errs) > 0 && c.Logger != nil {
		c.Logger.Warn("some event queries failed", zap.Int("failed", len(errs)), zap.Error(joinErrors("events", errs)))
	}

	articles = dedup.ByKey(articles, func(a gdeltArticle) string { return dedup.CanonicalURL(a.URL) })
	now := c.now.now()
	expiry := c.Config.ExpiryWindow
	if expiry <= 0 {
		expiry = 72 * time.Hour
	}

	out := make([]models.MapEvent, 0, len(articles))
	for _, a := range articles {
		title := collapseSpace(a.Title)
		if title == "" {
			continue
		}
		place, ok := classify.ExtractGeo(title)
		if !ok {
			continue
		}
		region := classify.Region(title)
		if region == classify.RegionOther {
			region = place.Region
		}
		published := parseGDELTDate(a.SeenDate, now)
		out = append(out, models.MapEvent{
			Fingerprint:  dedup.Fingerprint(a.URL, title),
			EventType:    classify.EventType(title),
			Title:        title,
			LocationName: place.Name,
			Lat:          place.Lat,
			Lon:          place.Lon,
			Region:       region,
			Source:       a.Domain,
			SourceURL:    a.URL,
			Severity:     classify.Severity(title),
			Verified:     trustedDomain(c.Config.TrustedDomains, a.Domain),
			Active:       published.Add(expiry).After(now),
			PublishedAt:  published,
			ExpiresAt:    published.Add(expiry),
			LastSeenAt:   now,
		})
	}
	return Batch{Events: out}, nil
}

func (c *EventCollector) queryURL(q string) string {
	vals := url.Values{}
	vals.Set("query", q)
	vals.Set("mode", "artlist")
	vals.Set("format", "json")
	vals.Set("sort", "datedesc")
	if c.Config.Timespan != "" {
		vals.Set("timespan", c.Config.Timespan)
	}
	if c.Config.MaxRecords > 0 {
		vals.Set("maxrecords", strconv.Itoa(c.Config.MaxRecords))
	}
	return strings.TrimRight(c.Config.Endpoint, "?") + "?" + vals.Encode()
}

// parseGDELTDate reads "20260302T101500Z".
func parseGDELTDate(raw string, fallback time.Time) time.Time {
	t, err := time.Parse("20060102T150405Z", strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return t.UTC()
}

func trustedDomain(trusted []string, domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), "www.")
	if domain == "" {
		return false
	}
	for _, t := range trusted {
		t = strings.ToLower(strings.TrimSpace(t))
		if domain == t || strings.HasSuffix(domain, "."+t) {
			return true
		}
	}
	return false
}

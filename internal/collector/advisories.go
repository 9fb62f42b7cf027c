package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"straitwatch/internal/classify"
	"straitwatch/internal/config"
	"straitwatch/internal/dedup"
	"straitwatch/internal/models"
)

// AdvisoryCollector scrapes maritime authority pages using per-source selectors.
type AdvisoryCollector struct {
	HTTP   *http.Client
	Config config.AdvisoriesConfig
	Logger *zap.Logger
}

var advisoryDateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"02 Jan 2006",
	"2 Jan 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
	"01/02/2006",
}

func (c *AdvisoryCollector) Name() string { return NameAdvisories }

func (c *AdvisoryCollector) SourceInfo() SourceInfo {
	endpoint := ""
	if len(c.Config.Sources) > 0 {
		endpoint = c.Config.Sources[0].URL
	}
	return SourceInfo{Kind: "scrape", Endpoint: endpoint}
}

func (c *AdvisoryCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil || len(c.Config.Sources) == 0 {
		return Batch{}, ErrNotConfigured
	}
	client := httpClient(c.HTTP, c.Config.Timeout)

	var out []models.MaritimeAlert
	var errs []error
	for _, src := range c.Config.Sources {
		items, err := c.scrape(ctx, client, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", src.Name, err))
			continue
		}
		out = append(out, items...)
	}
	if len(errs) == len(c.Config.Sources) {
		return Batch{}, joinErrors("advisories", errs)
	}
	if len(errs) > 0 && c.Logger != nil {
		c.Logger.Warn("some advisory pages failed", zap.Error(joinErrors("advisories", errs)))
	}
	out = dedup.ByKey(out, func(a models.MaritimeAlert) string { return a.Fingerprint })
	return Batch{Alerts: out}, nil
}

func (c *AdvisoryCollector) scrape(ctx context.Context, client *http.Client, src config.AdvisorySource) ([]models.MaritimeAlert, error) {
	body, err := getBody(ctx, client, src.URL, nil)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(src.URL)

	var out []models.MaritimeAlert
	doc.Find(src.ItemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if src.MaxItems > 0 && len(out) >= src.MaxItems {
			return false
		}
		title := selectText(item, src.TitleSelector)
		if title == "" {
			return true
		}
		detail := selectText(item, src.BodySelector)
		link := src.URL
		if href, ok := item.Find(firstNonEmpty(src.LinkSelector, "a")).First().Attr("href"); ok {
			link = resolveLink(base, href)
		}
		text := strings.TrimSpace(title + " " + detail)
		alert := models.MaritimeAlert{
			Fingerprint:   dedup.Fingerprint(link, title),
			Source:        src.Name,
			Title:         title,
			Text:          truncate(detail, 4000),
			URL:           link,
			ThreatLevel:   classify.ThreatLevel(text),
			Region:        classify.Region(text),
			AffectsStrait: classify.AffectsStrait(text),
		}
		if src.DateSelector != "" {
			if t, ok := parseLooseDate(selectDate(item, src.DateSelector)); ok {
				alert.PublishedAt = &t
			}
		}
		out = append(out, alert)
		return true
	})
	return out, nil
}

func selectText(item *goquery.Selection, selector string) string {
	if strings.TrimSpace(selector) == "" {
		return collapseSpace(item.Text())
	}
	return collapseSpace(item.Find(selector).First().Text())
}

// selectDate prefers a machine-readable datetime attribute over the visible text.
func selectDate(item *goquery.Selection, selector string) string {
	sel := item.Find(selector).First()
	if dt, ok := sel.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
		return dt
	}
	return collapseSpace(sel.Text())
}

func parseLooseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range advisoryDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func resolveLink(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil || base == nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

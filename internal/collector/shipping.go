package collector

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"straitwatch/internal/config"
	"straitwatch/internal/models"
)

// ShippingCollector extracts market indicators from trade-press pages.
type ShippingCollector struct {
	HTTP   *http.Client
	Config config.ShippingConfig
	Logger *zap.Logger

	now clock
}

var (
	premiumPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)war[\s-]+risk(?:\s+insurance)?\s+(?:premiums?|cover|rates?)[^.%]{0,80}?(\d+(?:\.\d+)?)\s*%`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*%\s+of\s+(?:the\s+)?(?:ship'?s?\s+|vessel'?s?\s+)?hull\s+value`),
	}
	dayRatePattern    = regexp.MustCompile(`(?i)VLCC[^.$]{0,80}?\$\s?(\d{1,3}(?:,\d{3})+|\d+(?:\.\d+)?)\s*(k|,000)?\s*(?:/|per|a)\s*day`)
	worldscalePattern = regexp.MustCompile(`(?i)\b(?:WS|Worldscale)\s*(\d{2,3}(?:\.\d+)?)\b`)
	warRiskMention    = regexp.MustCompile(`(?i)war[\s-]+risk`)
)

// pageFigures is what one page yielded.
type pageFigures struct {
	source     string
	premiumPct float64
	dayRateUSD float64
	worldscale float64
	mentions   int
}

func (c *ShippingCollector) Name() string { return NameShipping }

func (c *ShippingCollector) SourceInfo() SourceInfo {
	endpoint := ""
	if len(c.Config.Pages) > 0 {
		endpoint = c.Config.Pages[0].URL
	}
	return SourceInfo{Kind: "scrape", Endpoint: endpoint}
}

func (c *ShippingCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil || len(c.Config.Pages) == 0 {
		return Batch{}, ErrNotConfigured
	}
	client := httpClient(c.HTTP, c.Config.Timeout)

	var pages []pageFigures
	var errs []error
	for _, page := range c.Config.Pages {
		body, err := getBody(ctx, client, page.URL, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", page.Name, err))
			continue
		}
		text, err := visibleText(body)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", page.Name, err))
			continue
		}
		fig := extractFigures(text)
		fig.source = page.Name
		pages = append(pages, fig)
	}
	if len(pages) == 0 {
		return Batch{}, joinErrors("shipping", errs)
	}
	if len(errs) > 0 && c.Logger != nil {
		c.Logger.Warn("some shipping pages failed", zap.Error(joinErrors("shipping", errs)))
	}

	now := c.now.now()
	return Batch{Indicators: c.indicators(pages, now)}, nil
}

func (c *ShippingCollector) indicators(pages []pageFigures, now time.Time) []models.ShippingIndicator {
	bucket := now.Truncate(bucketOr(c.Config.Bucket, 6*time.Hour))
	mk := func(kind, name, unit, source string, value float64, notes string) models.ShippingIndicator {
		return models.ShippingIndicator{
			IndicatorType: kind,
			BucketAt:      bucket,
			Name:          name,
			Value:         value,
			Unit:          unit,
			Source:        source,
			Notes:         notes,
			FetchedAt:     now,
		}
	}

	var premium, dayRate, ws pageFigures
	mentions := 0
	var sources []string
	for _, p := range pages {
		if p.premiumPct > premium.premiumPct {
			premium = p
		}
		if p.dayRateUSD > dayRate.dayRateUSD {
			dayRate = p
		}
		if p.worldscale > ws.worldscale {
			ws = p
		}
		mentions += p.mentions
		sources = append(sources, p.source)
	}

	var out []models.ShippingIndicator
	if premium.premiumPct > 0 {
		out = append(out, mk(models.IndicatorWarRiskPremium, "War-risk premium", "pct_hull_value", premium.source, premium.premiumPct, ""))
	}
	if dayRate.dayRateUSD > 0 {
		out = append(out, mk(models.IndicatorVLCCDayRate, "VLCC day rate", "usd_per_day", dayRate.source, dayRate.dayRateUSD, ""))
	}
	if ws.worldscale > 0 {
		out = append(out, mk(models.IndicatorWorldscale, "Worldscale", "points", ws.source, ws.worldscale, ""))
	}
	joined := strings.Join(sources, ", ")
	out = append(out, mk(models.IndicatorWarRiskMention, "War-risk mentions", "count", joined, float64(mentions), ""))
	score := InsuranceProxyScore(premium.premiumPct, mentions)
	out = append(out, mk(models.IndicatorInsuranceProxy, "Insurance proxy score", "score_1_10", joined, float64(score),
		fmt.Sprintf("premium=%.2f%% mentions=%d", premium.premiumPct, mentions)))
	return out
}

// extractFigures runs the rate patterns over page text, keeping the largest
// value of each kind.
func extractFigures(text string) pageFigures {
	var fig pageFigures
	for _, re := range premiumPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil && v < 100 && v > fig.premiumPct {
				fig.premiumPct = v
			}
		}
	}
	for _, m := range dayRatePattern.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "k") || m[2] == ",000" {
			v *= 1000
		}
		if v > fig.dayRateUSD {
			fig.dayRateUSD = v
		}
	}
	for _, m := range worldscalePattern.FindAllStringSubmatch(text, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > fig.worldscale {
			fig.worldscale = v
		}
	}
	fig.mentions = len(warRiskMention.FindAllStringIndex(text, -1))
	return fig
}

// InsuranceProxyScore maps the largest war-risk premium (% of hull value) and
// the mention count to a 1-10 score.
func InsuranceProxyScore(premiumPct float64, mentions int) int {
	base := 1
	switch {
	case premiumPct >= 1.0:
		base = 8
	case premiumPct >= 0.5:
		base = 6
	case premiumPct >= 0.25:
		base = 4
	case premiumPct >= 0.1:
		base = 3
	case premiumPct > 0:
		base = 2
	}
	bonus := mentions / 3
	if bonus > 2 {
		bonus = 2
	}
	score := base + bonus
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func visibleText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, nav, footer").Remove()
	return collapseSpace(doc.Find("body").Text()), nil
}

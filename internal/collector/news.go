package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"straitwatch/internal/classify"
	"straitwatch/internal/config"
	"straitwatch/internal/dedup"
	"straitwatch/internal/models"
)

// NewsCollector merges a keyword search API with a fixed RSS list. Search
// results come first so they win the URL dedup.
type NewsCollector struct {
	HTTP   *http.Client
	Config config.NewsConfig
	Logger *zap.Logger

	now clock
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

type rawNews struct {
	title, summary, url, source, sourceType string
	published                               *time.Time
}

func (c *NewsCollector) Name() string { return NameNews }

func (c *NewsCollector) SourceInfo() SourceInfo {
	return SourceInfo{Kind: "api_poll+rss", Endpoint: c.Config.SearchEndpoint}
}

func (c *NewsCollector) Collect(ctx context.Context) (Batch, error) {
	if c == nil {
		return Batch{}, ErrNotConfigured
	}
	hasAPI := strings.TrimSpace(c.Config.APIKey) != "" && strings.TrimSpace(c.Config.SearchEndpoint) != ""
	if !hasAPI && len(c.Config.Feeds) == 0 {
		return Batch{}, ErrNotConfigured
	}
	client := httpClient(c.HTTP, c.Config.Timeout)

	var raw []rawNews
	var errs []error
	sources := 0
	if hasAPI {
		sources++
		items, err := c.search(ctx, client)
		if err != nil {
			errs = append(errs, err)
		}
		raw = append(raw, items...)
	}
	parser := gofeed.NewParser()
	parser.Client = client
	for _, feed := range c.Config.Feeds {
		sources++
		items, err := c.fetchFeed(ctx, parser, feed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		raw = append(raw, items...)
	}
	if len(errs) == sources {
		return Batch{}, joinErrors("news", errs)
	}
	if len(errs) > 0 && c.Logger != nil {
		c.Logger.Warn("some news sources failed", zap.Int("failed", len(errs)), zap.Error(joinErrors("news", errs)))
	}

	now := c.now.now()
	items := make([]models.WarNewsItem, 0, len(raw))
	for _, r := range raw {
		if r.title == "" {
			continue
		}
		items = append(items, c.toItem(r, now))
	}
	items = dedup.ByKey(items, func(n models.WarNewsItem) string {
		if n.URL != "" {
			return dedup.CanonicalURL(n.URL)
		}
		return n.ID
	})
	return Batch{News: items}, nil
}

func (c *NewsCollector) search(ctx context.Context, client *http.Client) ([]rawNews, error) {
	vals := url.Values{}
	vals.Set("q", c.Config.Query)
	vals.Set("language", "en")
	vals.Set("sortBy", "publishedAt")
	if c.Config.PageSize > 0 {
		vals.Set("pageSize", strconv.Itoa(c.Config.PageSize))
	}
	var resp newsAPIResponse
	err := getJSON(ctx, client, c.Config.SearchEndpoint+"?"+vals.Encode(), map[string]string{"X-Api-Key": c.Config.APIKey}, &resp)
	if err != nil {
		return nil, err
	}
	out := make([]rawNews, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		r := rawNews{
			title:      collapseSpace(a.Title),
			summary:    cleanHTML(a.Description),
			url:        strings.TrimSpace(a.URL),
			source:     a.Source.Name,
			sourceType: "api",
		}
		if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
			t = t.UTC()
			r.published = &t
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *NewsCollector) fetchFeed(ctx context.Context, parser *gofeed.Parser, feed config.FeedConfig) ([]rawNews, error) {
	parsed, err := parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, err
	}
	out := make([]rawNews, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		title := collapseSpace(item.Title)
		summary := cleanHTML(item.Description)
		if !classify.IsRelevant(title + " " + summary) {
			continue
		}
		r := rawNews{
			title:      title,
			summary:    summary,
			url:        strings.TrimSpace(item.Link),
			source:     feed.Name,
			sourceType: "rss",
		}
		if item.PublishedParsed != nil {
			t := item.PublishedParsed.UTC()
			r.published = &t
		}
		out = append(out, r)
	}
	return out, nil
}

func (c *NewsCollector) toItem(r rawNews, now time.Time) models.WarNewsItem {
	text := r.title + " " + r.summary
	// Keyed like the in-batch dedup so tracking params never split an article.
	id := ""
	if r.url != "" {
		id = dedup.CanonicalURL(r.url)
	}
	switch {
	case id == "":
		id = "gen:" + dedup.Fingerprint(r.source, r.title)
	case len(id) > 512:
		id = "url:" + dedup.Fingerprint(id)
	}
	kw, _ := json.Marshal(classify.Keywords(text))
	return models.WarNewsItem{
		ID:          id,
		Title:       r.title,
		Summary:     truncate(r.summary, 2000),
		URL:         r.url,
		SourceName:  r.source,
		SourceType:  r.sourceType,
		Category:    classify.Category(text),
		Severity:    classify.Severity(text),
		Keywords:    datatypes.JSON(kw),
		Verified:    containsFold(c.Config.TrustedSources, r.source),
		PublishedAt: r.published,
		FetchedAt:   now,
	}
}

// cleanHTML strips tags from a feed summary.
func cleanHTML(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return collapseSpace(s)
	}
	return collapseSpace(doc.Text())
}

package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

// ReadStore is the presentation read side.
type ReadStore interface {
	repository.SignalRepository
	GetScenarioState(ctx context.Context) (*models.ScenarioState, error)
	ListScenarioTransitions(ctx context.Context, params repository.ListScenarioTransitionsParams) ([]models.ScenarioTransition, error)
	ListAnalysisLogs(ctx context.Context, params repository.ListAnalysisLogsParams) ([]models.AnalysisLog, error)
}

type ReadHandler struct {
	Repo   ReadStore
	Logger *zap.Logger

	now func() time.Time
}

func (h *ReadHandler) Register(g *gin.RouterGroup) {
	g.GET("/vessels", h.listVessels)
	g.GET("/events", h.listEvents)
	g.GET("/alerts", h.listAlerts)
	g.GET("/news", h.listNews)
	g.GET("/prices", h.listPrices)
	g.GET("/prices/latest", h.latestPrices)
	g.GET("/indicators", h.listIndicators)
	g.GET("/indicators/latest", h.latestIndicators)
	g.GET("/traffic", h.listTraffic)
	g.GET("/traffic/latest", h.latestTraffic)
	g.GET("/scenario", h.getScenario)
	g.GET("/scenario/history", h.scenarioHistory)
	g.GET("/analysis", h.listAnalysis)
	g.GET("/sources", h.listSources)
}

func (h *ReadHandler) clock() time.Time {
	if h.now != nil {
		return h.now().UTC()
	}
	return time.Now().UTC()
}

type page struct {
	limit   int
	offset  int
	since   *time.Time
	orderBy string
	asc     *bool
}

func (h *ReadHandler) page(c *gin.Context) page {
	return page{
		limit:   intQuery(c, "limit", 50),
		offset:  intQuery(c, "offset", 0),
		since:   sinceQuery(c, h.clock()),
		orderBy: strings.TrimSpace(c.Query("order_by")),
		asc:     boolQueryPtr(c, "asc"),
	}
}

// reply writes a list result with paging meta, or the store error.
func reply[T any](h *ReadHandler, c *gin.Context, p page, items []T, err error) {
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("read failed", zap.String("path", c.FullPath()), zap.Error(err))
		}
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []T{}
	}
	Ok(c, items, listMeta(p.limit, p.offset, len(items)))
}

func (h *ReadHandler) ready(c *gin.Context) bool {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return false
	}
	return true
}

func (h *ReadHandler) listVessels(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListVesselPositions(c.Request.Context(), repository.ListVesselPositionsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Zone:       strQueryPtr(c, "zone"),
		Status:     strQueryPtr(c, "status"),
		VesselType: strQueryPtr(c, "vessel_type"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listEvents(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListMapEvents(c.Request.Context(), repository.ListMapEventsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		EventType: strQueryPtr(c, "event_type"),
		Severity:  strQueryPtr(c, "severity"),
		Region:    strQueryPtr(c, "region"),
		Active:    boolQueryPtr(c, "active"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listAlerts(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListMaritimeAlerts(c.Request.Context(), repository.ListMaritimeAlertsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Source:        strQueryPtr(c, "source"),
		ThreatLevel:   strQueryPtr(c, "threat_level"),
		AffectsStrait: boolQueryPtr(c, "affects_strait"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listNews(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListWarNews(c.Request.Context(), repository.ListWarNewsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Category:   strQueryPtr(c, "category"),
		Severity:   strQueryPtr(c, "severity"),
		SourceType: strQueryPtr(c, "source_type"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listPrices(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListOilPrices(c.Request.Context(), repository.ListOilPricesParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Benchmark: strQueryPtr(c, "benchmark"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) latestPrices(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.Repo.ListLatestOilPrices(c.Request.Context())
	reply(h, c, page{}, items, err)
}

func (h *ReadHandler) listIndicators(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListShippingIndicators(c.Request.Context(), repository.ListShippingIndicatorsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		IndicatorType: strQueryPtr(c, "indicator_type"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) latestIndicators(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.Repo.ListLatestShippingIndicators(c.Request.Context())
	reply(h, c, page{}, items, err)
}

func (h *ReadHandler) listTraffic(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListTrafficSummaries(c.Request.Context(), repository.ListTrafficSummariesParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Zone:       strQueryPtr(c, "zone"),
		PeriodType: strQueryPtr(c, "period_type"),
		Anomaly:    boolQueryPtr(c, "anomaly"),
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) latestTraffic(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	zone := strings.TrimSpace(c.DefaultQuery("zone", models.ZoneAll))
	item, err := h.Repo.GetLatestTrafficSummary(c.Request.Context(), zone)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "no traffic summary", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ReadHandler) getScenario(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	item, err := h.Repo.GetScenarioState(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "scenario not initialised", nil)
		return
	}
	Ok(c, item, nil)
}

func (h *ReadHandler) scenarioHistory(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	items, err := h.Repo.ListScenarioTransitions(c.Request.Context(), repository.ListScenarioTransitionsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listAnalysis(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	p := h.page(c)
	var level *string
	if v := strQueryPtr(c, "alert_level"); v != nil {
		upper := strings.ToUpper(*v)
		level = &upper
	}
	items, err := h.Repo.ListAnalysisLogs(c.Request.Context(), repository.ListAnalysisLogsParams{
		Limit: p.limit, Offset: p.offset, Since: p.since, OrderBy: p.orderBy, Asc: p.asc,
		Status:     strQueryPtr(c, "status"),
		AlertLevel: level,
	})
	reply(h, c, p, items, err)
}

func (h *ReadHandler) listSources(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.Repo.ListSourceHealth(c.Request.Context())
	reply(h, c, page{}, items, err)
}

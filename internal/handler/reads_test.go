package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/models"
	"straitwatch/internal/repository"
)

// stubReads implements the handful of reads exercised here; anything else
// panics through the nil embedded interface.
type stubReads struct {
	repository.SignalRepository
	newsParams repository.ListWarNewsParams
	news       []models.WarNewsItem
	state      *models.ScenarioState
	logParams  repository.ListAnalysisLogsParams
}

func (s *stubReads) ListWarNews(_ context.Context, p repository.ListWarNewsParams) ([]models.WarNewsItem, error) {
	s.newsParams = p
	return s.news, nil
}

func (s *stubReads) GetScenarioState(context.Context) (*models.ScenarioState, error) {
	return s.state, nil
}

func (s *stubReads) ListScenarioTransitions(context.Context, repository.ListScenarioTransitionsParams) ([]models.ScenarioTransition, error) {
	return nil, nil
}

func (s *stubReads) ListAnalysisLogs(_ context.Context, p repository.ListAnalysisLogsParams) ([]models.AnalysisLog, error) {
	s.logParams = p
	return nil, nil
}

func readEngine(repo ReadStore, now time.Time) *gin.Engine {
	r := gin.New()
	(&ReadHandler{Repo: repo, now: func() time.Time { return now }}).Register(r.Group("/api/v1"))
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestListNewsPassesFilters(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	repo := &stubReads{news: []models.WarNewsItem{{ID: "n1", Title: "Tanker seized", Severity: "critical"}}}

	rec := get(readEngine(repo, now), "/api/v1/news?severity=critical&since=6h&limit=10&offset=5")
	require.Equal(t, http.StatusOK, rec.Code)

	p := repo.newsParams
	require.NotNil(t, p.Severity)
	assert.Equal(t, "critical", *p.Severity)
	assert.Nil(t, p.Category)
	require.NotNil(t, p.Since)
	assert.Equal(t, now.Add(-6*time.Hour), *p.Since)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, 5, p.Offset)

	var body struct {
		Data []map[string]any `json:"data"`
		Meta map[string]any   `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, float64(1), body.Meta["count"])
}

func TestSinceAcceptsTimestamp(t *testing.T) {
	repo := &stubReads{}
	rec := get(readEngine(repo, time.Now()), "/api/v1/news?since=2026-03-01T00:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.newsParams.Since)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), *repo.newsParams.Since)
	assert.JSONEq(t, `[]`, string(mustData(t, rec)))
}

func TestScenarioNotInitialised(t *testing.T) {
	rec := get(readEngine(&stubReads{}, time.Now()), "/api/v1/scenario")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo := &stubReads{state: &models.ScenarioState{ID: models.CurrentScenarioID, AlertLevel: models.LevelHigh, Version: 3}}
	rec = get(readEngine(repo, time.Now()), "/api/v1/scenario")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAnalysisLevelFilterIsUppercased(t *testing.T) {
	repo := &stubReads{}
	rec := get(readEngine(repo, time.Now()), "/api/v1/analysis?alert_level=high")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, repo.logParams.AlertLevel)
	assert.Equal(t, models.LevelHigh, *repo.logParams.AlertLevel)
}

func mustData(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var body struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Data
}

package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"straitwatch/internal/collector"
	"straitwatch/internal/models"
)

type fakeCollector struct {
	name  string
	batch collector.Batch
	err   error
	panic bool
	delay time.Duration
}

func (f *fakeCollector) Name() string { return f.name }

func (f *fakeCollector) Collect(ctx context.Context) (collector.Batch, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return collector.Batch{}, ctx.Err()
		}
	}
	if f.panic {
		panic("boom")
	}
	return f.batch, f.err
}

type fakeRepo struct {
	mu      sync.Mutex
	seen    map[string]bool
	failKey string
	health  map[string]models.SourceHealth
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{seen: map[string]bool{}, health: map[string]models.SourceHealth{}}
}

func (r *fakeRepo) upsert(key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if key == r.failKey {
		return false, errors.New("write failed")
	}
	if r.seen[key] {
		return false, nil
	}
	r.seen[key] = true
	return true, nil
}

func (r *fakeRepo) UpsertVesselPosition(_ context.Context, item *models.VesselPosition) (bool, error) {
	return r.upsert("vessel:" + item.MMSI)
}

func (r *fakeRepo) UpsertMapEvent(_ context.Context, item *models.MapEvent) (bool, error) {
	return r.upsert("event:" + item.Fingerprint)
}

func (r *fakeRepo) UpsertMaritimeAlert(_ context.Context, item *models.MaritimeAlert) (bool, error) {
	return r.upsert("alert:" + item.Fingerprint)
}

func (r *fakeRepo) UpsertWarNews(_ context.Context, item *models.WarNewsItem) (bool, error) {
	return r.upsert("news:" + item.ID)
}

func (r *fakeRepo) UpsertOilPrice(_ context.Context, item *models.OilPrice) (bool, error) {
	return r.upsert("price:" + item.Benchmark + item.BucketAt.String())
}

func (r *fakeRepo) UpsertShippingIndicator(_ context.Context, item *models.ShippingIndicator) (bool, error) {
	return r.upsert("ind:" + item.IndicatorType + item.BucketAt.String())
}

func (r *fakeRepo) UpsertTrafficSummary(_ context.Context, item *models.TrafficSummary) (bool, error) {
	return r.upsert("traffic:" + item.PeriodType + item.PeriodStart.String() + item.Zone)
}

func (r *fakeRepo) GetPreviousTrafficSummary(context.Context, string, string, time.Time) (*models.TrafficSummary, error) {
	return nil, nil
}

func (r *fakeRepo) UpsertSourceHealth(_ context.Context, item *models.SourceHealth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health[item.Name] = *item
	return nil
}

type switches map[string]bool

func (s switches) IsEnabled(_ context.Context, key string, fallback bool) bool {
	if v, ok := s[key]; ok {
		return v
	}
	return fallback
}

func newsBatch(ids ...string) collector.Batch {
	var b collector.Batch
	for _, id := range ids {
		b.News = append(b.News, models.WarNewsItem{ID: id, Title: id})
	}
	return b
}

func TestRunIsolatesFailures(t *testing.T) {
	repo := newFakeRepo()
	r := &Runner{
		Collectors: []collector.Collector{
			&fakeCollector{name: "news", batch: newsBatch("a", "b")},
			&fakeCollector{name: "prices", err: errors.New("upstream 503")},
			&fakeCollector{name: "events", panic: true},
			&fakeCollector{name: "advisories", batch: collector.Batch{Alerts: []models.MaritimeAlert{{Fingerprint: "x"}}}, delay: 20 * time.Millisecond},
		},
		Repo: repo,
	}
	report := r.Run(context.Background())

	require.Len(t, report.Outcomes, 4)
	assert.Equal(t, []string{"prices", "events"}, report.Failed())
	assert.Equal(t, Persisted{Inserted: 3}, report.Persisted)
	assert.Contains(t, report.Outcomes[2].Err.Error(), "panicked")

	assert.Equal(t, HealthHealthy, repo.health["news"].Status)
	assert.Equal(t, 2, repo.health["news"].LastCount)
	assert.Equal(t, HealthDown, repo.health["prices"].Status)
	require.NotNil(t, repo.health["prices"].LastError)
	assert.Equal(t, HealthDown, repo.health["events"].Status)
	assert.Equal(t, HealthHealthy, repo.health["advisories"].Status)
}

func TestRunReingestInsertsNothing(t *testing.T) {
	repo := newFakeRepo()
	r := &Runner{Collectors: []collector.Collector{&fakeCollector{name: "news", batch: newsBatch("a", "b")}}, Repo: repo}

	first := r.Run(context.Background())
	second := r.Run(context.Background())
	assert.Equal(t, Persisted{Inserted: 2}, first.Persisted)
	assert.Equal(t, Persisted{Updated: 2}, second.Persisted)
}

func TestRunSelectsAndSwitches(t *testing.T) {
	repo := newFakeRepo()
	r := &Runner{
		Collectors: []collector.Collector{
			&fakeCollector{name: "news", batch: newsBatch("a")},
			&fakeCollector{name: "prices", batch: collector.Batch{Prices: []models.OilPrice{{Benchmark: "brent"}}}},
			&fakeCollector{name: "shipping"},
		},
		Repo:     repo,
		Switches: switches{SwitchKey("prices"): false},
	}
	report := r.Run(context.Background(), "news", "prices")

	require.Len(t, report.Outcomes, 2)
	assert.True(t, report.Outcomes[1].Disabled)
	assert.Equal(t, Persisted{Inserted: 1}, report.Persisted)
	assert.Equal(t, HealthDisabled, repo.health["prices"].Status)
	assert.NotContains(t, repo.health, "shipping")
}

func TestRunNotConfiguredIsDisabled(t *testing.T) {
	repo := newFakeRepo()
	r := &Runner{Collectors: []collector.Collector{&fakeCollector{name: "vessels", err: collector.ErrNotConfigured}}, Repo: repo}
	r.Run(context.Background())
	assert.Equal(t, HealthDisabled, repo.health["vessels"].Status)
}

func TestPersistCountsFailuresAndContinues(t *testing.T) {
	repo := newFakeRepo()
	repo.failKey = "news:b"
	r := &Runner{Repo: repo}
	p := r.Persist(context.Background(), newsBatch("a", "b", "c"))
	assert.Equal(t, Persisted{Inserted: 2, Failed: 1}, p)
}

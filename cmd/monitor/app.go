package main

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"straitwatch/internal/alert"
	"straitwatch/internal/analyzer"
	"straitwatch/internal/cache"
	"straitwatch/internal/client/llm"
	"straitwatch/internal/collector"
	"straitwatch/internal/config"
	"straitwatch/internal/db"
	"straitwatch/internal/ingest"
	"straitwatch/internal/logger"
	"straitwatch/internal/notification"
	"straitwatch/internal/orchestrator"
	gormrepository "straitwatch/internal/repository/gorm"
	"straitwatch/internal/scenario"
	"straitwatch/internal/service"
)

// app holds everything both subcommands share.
type app struct {
	cfg      config.Config
	logger   *zap.Logger
	db       *db.DB
	store    *gormrepository.Store
	cache    cache.Store
	settings *service.SystemSettingsService
	jobs     *service.Jobs

	closers []io.Closer
}

func newApp(cfgPath string, envOnly bool) (*app, error) {
	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: log}

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		return nil, err
	}
	a.db = dbConn
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		log.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		a.close()
		return nil, err
	}

	a.store = gormrepository.New(dbConn.Gorm)
	a.settings = &service.SystemSettingsService{Repo: a.store}
	if err := a.settings.EnsureDefaultSwitches(context.Background()); err != nil {
		log.Warn("init default feature switches failed", zap.Error(err))
	}
	a.cache = a.openCache()

	runner := &ingest.Runner{
		Collectors: a.collectors(),
		Repo:       a.store,
		Switches:   a.settings,
		Logger:     logger.Named(log, "ingest"),
	}
	orch := &orchestrator.Orchestrator{
		Store:      a.store,
		Lock:       a.cache,
		Ingest:     runner,
		Analyzer:   &analyzer.Analyzer{Client: a.completer(), Config: cfg.Analyzer},
		Machine:    &scenario.Machine{Store: a.store, Logger: logger.Named(log, "scenario")},
		Dispatcher: &alert.Dispatcher{Sender: a.sender(), Store: a.store, Logger: logger.Named(log, "alert")},
		Switches:   a.settings,
		Config:     cfg,
		Logger:     logger.Named(log, "orchestrator"),
	}
	a.jobs = &service.Jobs{
		Ingest: runner,
		Cycle:  orch,
		Maintenance: &service.MaintenanceService{
			Repo:      a.store,
			DarkAfter: cfg.Traffic.DarkAfter,
			Logger:    logger.Named(log, "cleanup"),
		},
		Switches:   a.settings,
		Collectors: cfg.Scenario.Collectors,
		Logger:     logger.Named(log, "jobs"),
	}
	return a, nil
}

func (a *app) openCache() cache.Store {
	var base cache.Store
	if a.cfg.Cache.RedisAddr != "" {
		rs := cache.NewRedisStore(&redis.Options{
			Addr:     a.cfg.Cache.RedisAddr,
			Password: a.cfg.Cache.RedisPassword,
			DB:       a.cfg.Cache.RedisDB,
		})
		a.closers = append(a.closers, rs)
		base = rs
		a.logger.Info("cache: redis", zap.String("addr", a.cfg.Cache.RedisAddr))
	} else {
		base = cache.NewMemoryStore()
		a.logger.Info("cache: in-memory (locks are per process)")
	}
	return cache.Prefixed{Store: base, Prefix: a.cfg.Cache.KeyPrefix}
}

func (a *app) collectors() []collector.Collector {
	c := a.cfg.Collectors
	named := func(n string) *zap.Logger { return logger.Named(a.logger, "collector."+n) }
	return []collector.Collector{
		&collector.VesselCollector{Config: c.Vessels, Traffic: a.cfg.Traffic, History: a.store, Logger: named(collector.NameVessels)},
		&collector.EventCollector{HTTP: &http.Client{Timeout: c.Events.Timeout}, Config: c.Events, Logger: named(collector.NameEvents)},
		&collector.NewsCollector{HTTP: &http.Client{Timeout: c.News.Timeout}, Config: c.News, Logger: named(collector.NameNews)},
		&collector.PriceCollector{HTTP: &http.Client{Timeout: c.Prices.Timeout}, Config: c.Prices, Logger: named(collector.NamePrices)},
		&collector.AdvisoryCollector{HTTP: &http.Client{Timeout: c.Advisories.Timeout}, Config: c.Advisories, Logger: named(collector.NameAdvisories)},
		&collector.ShippingCollector{HTTP: &http.Client{Timeout: c.Shipping.Timeout}, Config: c.Shipping, Logger: named(collector.NameShipping)},
	}
}

// completer returns nil when no key is configured; cycles then fail at the
// analysis step and spend nothing.
func (a *app) completer() analyzer.Completer {
	ac := a.cfg.Analyzer
	client, err := llm.NewAnthropicClient(ac.APIKey,
		llm.WithBaseURL(ac.BaseURL),
		llm.WithModel(ac.Model),
		llm.WithMaxTokens(ac.MaxTokens),
		llm.WithTimeout(ac.Timeout),
	)
	if err != nil {
		a.logger.Warn("reasoning client disabled", zap.Error(err))
		return nil
	}
	return client
}

func (a *app) sender() notification.Sender {
	sender, err := notification.New(a.cfg.Notify)
	if errors.Is(err, notification.ErrNotConfigured) {
		a.logger.Info("alerts disabled", zap.Error(err))
		return nil
	}
	if err != nil {
		a.logger.Warn("notification channel invalid", zap.Error(err))
		return nil
	}
	if c, ok := sender.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	return sender
}

func (a *app) close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("close failed", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = db.Close(a.db)
	}
	_ = a.logger.Sync()
}

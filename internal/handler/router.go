package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"straitwatch/internal/cache"
	"straitwatch/internal/service"
)

type RouterDeps struct {
	DB             *gorm.DB
	Repo           ReadStore
	Jobs           JobRunner
	Settings       *service.SystemSettingsService
	Cache          cache.Store
	TriggerSecret  string
	IdempotencyTTL time.Duration
	Prod           bool
	Logger         *zap.Logger
}

// NewRouter mounts health checks openly and everything under /api/v1 behind
// TriggerAuth.
func NewRouter(d RouterDeps) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	health := &HealthHandler{DB: d.DB, Cache: d.Cache}
	health.Register(engine)

	api := engine.Group("/api/v1", TriggerAuth(d.TriggerSecret, d.Prod))
	(&JobsHandler{Jobs: d.Jobs, Cache: d.Cache, IdempotencyTTL: d.IdempotencyTTL, Logger: d.Logger}).Register(api)
	(&ReadHandler{Repo: d.Repo, Logger: d.Logger}).Register(api)
	(&SettingsHandler{Settings: d.Settings}).Register(api)
	return engine
}

package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"straitwatch/internal/cache"
	"straitwatch/internal/service"
)

const (
	idempotencyHeader = "Idempotency-Key"
	statusDuplicate   = "duplicate"
)

type JobRunner interface {
	Run(ctx context.Context, name string) (service.JobResult, error)
}

type JobsHandler struct {
	Jobs           JobRunner
	Cache          cache.Store
	IdempotencyTTL time.Duration
	Logger         *zap.Logger
}

func (h *JobsHandler) Register(g *gin.RouterGroup) {
	g.GET("/jobs", h.list)
	g.POST("/jobs/:job", h.run)
}

func (h *JobsHandler) list(c *gin.Context) {
	Ok(c, service.JobNames(), nil)
}

func (h *JobsHandler) run(c *gin.Context) {
	if h.Jobs == nil {
		Error(c, http.StatusInternalServerError, "jobs unavailable", nil)
		return
	}
	job := strings.TrimSpace(c.Param("job"))
	if key := strings.TrimSpace(c.GetHeader(idempotencyHeader)); key != "" && h.Cache != nil {
		ttl := h.IdempotencyTTL
		if ttl <= 0 {
			ttl = 10 * time.Minute
		}
		fresh, err := h.Cache.SetNX(c.Request.Context(), "idem:"+job+":"+key, []byte(time.Now().UTC().Format(time.RFC3339)), ttl)
		switch {
		case err != nil:
			if h.Logger != nil {
				h.Logger.Warn("idempotency check failed", zap.String("job", job), zap.Error(err))
			}
		case !fresh:
			Ok(c, service.JobResult{Job: job, Status: statusDuplicate}, map[string]any{"idempotency_key": key})
			return
		}
	}

	// the job outlives a caller that hangs up
	ctx := context.WithoutCancel(c.Request.Context())
	res, err := h.Jobs.Run(ctx, job)
	if errors.Is(err, service.ErrUnknownJob) {
		Error(c, http.StatusNotFound, err.Error(), map[string]any{"jobs": service.JobNames()})
		return
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, apiResponse{Code: http.StatusBadGateway, Message: err.Error(), Data: res})
		return
	}
	Ok(c, res, nil)
}

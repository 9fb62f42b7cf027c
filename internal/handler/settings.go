package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"straitwatch/internal/service"
)

type SettingsHandler struct {
	Settings *service.SystemSettingsService
}

func (h *SettingsHandler) Register(g *gin.RouterGroup) {
	g.GET("/settings/switches", h.listSwitches)
	g.PUT("/settings/switches", h.putSwitches)
	g.PUT("/settings/switches/:name", h.putSwitch)
}

func (h *SettingsHandler) listSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	items, err := h.Settings.ListSwitches(c.Request.Context())
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, items, nil)
}

// putSwitches takes {"feature.notify": false, "collector.news": true}.
func (h *SettingsHandler) putSwitches(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	var req map[string]bool
	if err := c.ShouldBindJSON(&req); err != nil || len(req) == 0 {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	for name := range req {
		key := service.NormalizeSwitchKey(name)
		if _, ok := service.DefaultFeatureSwitches()[key]; !ok {
			Error(c, http.StatusBadRequest, "unknown switch: "+name, nil)
			return
		}
	}
	for name, enabled := range req {
		if _, err := h.Settings.SetEnabled(c.Request.Context(), name, enabled); err != nil {
			Error(c, http.StatusBadGateway, err.Error(), nil)
			return
		}
	}
	h.listSwitches(c)
}

type putSwitchRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *SettingsHandler) putSwitch(c *gin.Context) {
	if h.Settings == nil {
		Error(c, http.StatusInternalServerError, "settings service unavailable", nil)
		return
	}
	name := strings.TrimSpace(c.Param("name"))
	var req putSwitchRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		Error(c, http.StatusBadRequest, "invalid body", nil)
		return
	}
	key, err := h.Settings.SetEnabled(c.Request.Context(), name, *req.Enabled)
	if errors.Is(err, service.ErrUnknownSwitch) {
		Error(c, http.StatusNotFound, err.Error(), nil)
		return
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	Ok(c, map[string]any{
		"name":    strings.TrimPrefix(key, "feature."),
		"key":     key,
		"enabled": *req.Enabled,
	}, nil)
}

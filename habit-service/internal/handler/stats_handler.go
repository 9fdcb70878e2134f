package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler struct {
	svc    Tracker
	logger *zap.Logger
}

func NewStatsHandler(svc Tracker, logger *zap.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger}
}

func (h *StatsHandler) Dashboard(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	d, err := h.svc.Dashboard(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "Dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *StatsHandler) Heatmap(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	year := 0
	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
			return
		}
		year = y
	}

	cells, err := h.svc.Heatmap(c.Request.Context(), userID, year)
	if err != nil {
		respondError(c, h.logger, "Heatmap", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cells": cells})
}

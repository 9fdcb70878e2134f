package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type InsightHandler struct {
	svc    Tracker
	logger *zap.Logger
}

func NewInsightHandler(svc Tracker, logger *zap.Logger) *InsightHandler {
	return &InsightHandler{svc: svc, logger: logger}
}

// RequestInsight 异步生成，结果通过 GET /insights/latest 读取
func (h *InsightHandler) RequestInsight(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	requestID, err := h.svc.RequestInsight(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "RequestInsight", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"request_id": requestID, "status": "queued"})
}

func (h *InsightHandler) LatestInsight(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	in, err := h.svc.LatestInsight(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "LatestInsight", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"insight": in})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zenhabit/habit-service/internal/service"
)

type MilestoneHandler struct {
	svc    Tracker
	logger *zap.Logger
}

func NewMilestoneHandler(svc Tracker, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{svc: svc, logger: logger}
}

func (h *MilestoneHandler) ListMilestones(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	milestones, err := h.svc.ListMilestones(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "ListMilestones", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

func (h *MilestoneHandler) CreateMilestone(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req service.MilestoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	m, err := h.svc.CreateMilestone(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, h.logger, "CreateMilestone", err)
		return
	}

	h.logger.Info("CreateMilestone: success",
		zap.Int("user_id", userID),
		zap.Int("milestone_id", m.ID),
		zap.String("date", m.Date),
	)
	c.JSON(http.StatusCreated, gin.H{"milestone": m})
}

func (h *MilestoneHandler) DeleteMilestone(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteMilestone(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, "DeleteMilestone", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	dbcontracts "zenhabit/contracts/db"
	"zenhabit/habit-service/internal/service"
	"zenhabit/pkg/stats"
)

// Tracker is the service surface used by the HTTP handlers.
type Tracker interface {
	CreateHabit(ctx context.Context, userID int, name, frequency string) (*dbcontracts.Habit, error)
	ListHabits(ctx context.Context, userID int) ([]service.HabitView, error)
	SetHabitActive(ctx context.Context, userID, habitID int, active bool) error
	DeleteHabit(ctx context.Context, userID, habitID int) error
	ToggleCompletion(ctx context.Context, userID, habitID int, date string) (*service.ToggleResult, error)

	CreateMilestone(ctx context.Context, userID int, in service.MilestoneInput) (*dbcontracts.Milestone, error)
	ListMilestones(ctx context.Context, userID int) ([]service.MilestoneView, error)
	DeleteMilestone(ctx context.Context, userID, id int) error

	Dashboard(ctx context.Context, userID int) (*service.Dashboard, error)
	Heatmap(ctx context.Context, userID, year int) ([]stats.HeatmapCell, error)

	RequestInsight(ctx context.Context, userID int) (string, error)
	LatestInsight(ctx context.Context, userID int) (*dbcontracts.Insight, error)
}

type HabitHandler struct {
	svc    Tracker
	logger *zap.Logger
}

func NewHabitHandler(svc Tracker, logger *zap.Logger) *HabitHandler {
	return &HabitHandler{svc: svc, logger: logger}
}

type createHabitRequest struct {
	Name      string `json:"name"`
	Frequency string `json:"frequency"`
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active"`
}

type toggleRequest struct {
	Date string `json:"date"`
}

func (h *HabitHandler) ListHabits(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	habits, err := h.svc.ListHabits(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, "ListHabits", err)
		return
	}

	h.logger.Debug("ListHabits: success",
		zap.Int("user_id", userID),
		zap.Int("habit_count", len(habits)),
	)
	c.JSON(http.StatusOK, gin.H{"habits": habits})
}

func (h *HabitHandler) CreateHabit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	habit, err := h.svc.CreateHabit(c.Request.Context(), userID, req.Name, req.Frequency)
	if err != nil {
		respondError(c, h.logger, "CreateHabit", err)
		return
	}

	h.logger.Info("CreateHabit: success",
		zap.Int("user_id", userID),
		zap.Int("habit_id", habit.ID),
	)
	c.JSON(http.StatusCreated, gin.H{"habit": habit})
}

func (h *HabitHandler) SetActive(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	habitID, ok := pathID(c)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.IsActive == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "is_active required"})
		return
	}

	if err := h.svc.SetHabitActive(c.Request.Context(), userID, habitID, *req.IsActive); err != nil {
		respondError(c, h.logger, "SetActive", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "is_active": *req.IsActive})
}

func (h *HabitHandler) DeleteHabit(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	habitID, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.svc.DeleteHabit(c.Request.Context(), userID, habitID); err != nil {
		respondError(c, h.logger, "DeleteHabit", err)
		return
	}

	h.logger.Info("DeleteHabit: success", zap.Int("user_id", userID), zap.Int("habit_id", habitID))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ToggleCompletion 请求体可省略，默认今天
func (h *HabitHandler) ToggleCompletion(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}
	habitID, ok := pathID(c)
	if !ok {
		return
	}

	var req toggleRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	res, err := h.svc.ToggleCompletion(c.Request.Context(), userID, habitID, req.Date)
	if err != nil {
		respondError(c, h.logger, "ToggleCompletion", err)
		return
	}
	c.JSON(http.StatusOK, res)
}

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"zenhabit/habit-service/internal/handler"
	"zenhabit/pkg/otel"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type ConnChecker interface {
	IsConnected() bool
}

type Handlers struct {
	Auth      *handler.AuthHandler
	Habit     *handler.HabitHandler
	Milestone *handler.MilestoneHandler
	Stats     *handler.StatsHandler
	Insight   *handler.InsightHandler
}

// NewRouter wires routes. db and mq back /readyz; mq may be nil.
func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db Pinger, mq ConnChecker) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(otel.GinMiddleware())
	r.Use(RequestLogger(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if mq != nil && !mq.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/habits", h.Habit.ListHabits)
		auth.POST("/habits", h.Habit.CreateHabit)
		auth.PATCH("/habits/:id/active", h.Habit.SetActive)
		auth.DELETE("/habits/:id", h.Habit.DeleteHabit)
		auth.POST("/habits/:id/toggle", h.Habit.ToggleCompletion)

		auth.GET("/milestones", h.Milestone.ListMilestones)
		auth.POST("/milestones", h.Milestone.CreateMilestone)
		auth.DELETE("/milestones/:id", h.Milestone.DeleteMilestone)

		auth.GET("/stats/dashboard", h.Stats.Dashboard)
		auth.GET("/stats/heatmap", h.Stats.Heatmap)

		auth.POST("/insights", h.Insight.RequestInsight)
		auth.GET("/insights/latest", h.Insight.LatestInsight)
	}

	return r
}

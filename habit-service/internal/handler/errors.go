package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"zenhabit/habit-service/internal/service"
	"zenhabit/pkg/trace"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrMilestoneDay),
		errors.Is(err, service.ErrNotToday),
		errors.Is(err, service.ErrMilestoneConflict),
		errors.Is(err, service.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoHabits):
		return http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, logger *zap.Logger, op string, err error) {
	status := statusFor(err)
	fields := []zap.Field{
		zap.String("op", op),
		zap.Int("status", status),
		zap.String("trace_id", trace.FromContext(c.Request.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error(op+": failed", fields...)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	logger.Warn(op+": rejected", fields...)
	c.JSON(status, gin.H{"error": err.Error()})
}

// currentUser reads the user id set by the auth middleware.
func currentUser(c *gin.Context) (int, bool) {
	v, ok := c.Get("user_id")
	if !ok {
		return 0, false
	}
	id, ok := v.(int)
	return id, ok
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

func requireUser(c *gin.Context) (int, bool) {
	userID, ok := currentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return userID, true
}

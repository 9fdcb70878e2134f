package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"zenhabit/pkg/metrics"
)

// DashboardCache 按用户缓存当天的仪表盘结果；跨天自动失效
type DashboardCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *zap.Logger
}

type entry struct {
	Day  string          `json:"day"`
	Data json.RawMessage `json:"data"`
}

func NewDashboardCache(rdb redis.Cmdable, ttl time.Duration, logger *zap.Logger) *DashboardCache {
	return &DashboardCache{rdb: rdb, ttl: ttl, logger: logger}
}

func Key(userID int) string {
	return fmt.Sprintf("dashboard:%d", userID)
}

// Get decodes the cached value into out when it was stored for day.
func (c *DashboardCache) Get(ctx context.Context, userID int, day string, out any) bool {
	raw, err := c.rdb.Get(ctx, Key(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("Dashboard cache read failed", zap.Int("user_id", userID), zap.Error(err))
			metrics.IncrementDashboardCache("error")
			return false
		}
		metrics.IncrementDashboardCache("miss")
		return false
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Day != day {
		metrics.IncrementDashboardCache("miss")
		return false
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		c.logger.Warn("Dashboard cache decode failed", zap.Int("user_id", userID), zap.Error(err))
		metrics.IncrementDashboardCache("error")
		return false
	}

	metrics.IncrementDashboardCache("hit")
	return true
}

func (c *DashboardCache) Set(ctx context.Context, userID int, day string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Dashboard cache encode failed", zap.Int("user_id", userID), zap.Error(err))
		return
	}
	raw, err := json.Marshal(entry{Day: day, Data: data})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(userID), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("Dashboard cache write failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

func (c *DashboardCache) Invalidate(ctx context.Context, userID int) {
	if err := c.rdb.Del(ctx, Key(userID)).Err(); err != nil {
		c.logger.Warn("Dashboard cache invalidation failed", zap.Int("user_id", userID), zap.Error(err))
	}
}

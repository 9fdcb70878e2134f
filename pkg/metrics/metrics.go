package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MQ 消费延迟（毫秒）
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue", "result"},
	)

	// 教练（LLM）调用延迟（毫秒）
	CoachCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coach_call_latency_ms",
			Help:    "Coaching model call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"model", "status"},
	)

	// 数据库查询延迟（秒）
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"operation"},
	)

	SlowQueryCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "db_slow_query_count",
			Help: "Total number of queries slower than the configured threshold",
		},
		[]string{"operation"},
	)

	// HTTP 请求延迟（秒）
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// 打卡切换计数
	CompletionToggleCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habit_completion_toggle_count",
			Help: "Total number of completion toggles",
		},
		[]string{"result"}, // result: done, undone, milestone_day, not_today
	)

	// 连续天数分布
	StreakLength = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "habit_streak_length_days",
			Help:    "Current streak length observed after a completion toggle",
			Buckets: []float64{0, 1, 3, 7, 14, 30, 60, 100, 200, 366},
		},
	)

	// 洞察生成计数
	InsightGeneratedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_generated_count",
			Help: "Total number of coaching insights stored",
		},
		[]string{"source"}, // source: model, fallback
	)

	DashboardCacheCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dashboard_cache_count",
			Help: "Dashboard cache lookups",
		},
		[]string{"result"}, // result: hit, miss, error
	)
)

// RecordMQConsumeLatency 记录 MQ 消费延迟
func RecordMQConsumeLatency(routingKey, queue, result string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue, result).Observe(float64(duration.Milliseconds()))
}

// RecordCoachCallLatency 记录教练模型调用延迟
func RecordCoachCallLatency(model, status string, duration time.Duration) {
	CoachCallLatency.WithLabelValues(model, status).Observe(float64(duration.Milliseconds()))
}

// RecordDBQueryDuration 记录数据库查询延迟
func RecordDBQueryDuration(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncrementSlowQuery 增加慢查询计数
func IncrementSlowQuery(operation string) {
	SlowQueryCount.WithLabelValues(operation).Inc()
}

// RecordHTTPRequestDuration 记录 HTTP 请求延迟
func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementCompletionToggle(result string) {
	CompletionToggleCount.WithLabelValues(result).Inc()
}

func ObserveStreak(days int) {
	StreakLength.Observe(float64(days))
}

func IncrementInsightGenerated(source string) {
	InsightGeneratedCount.WithLabelValues(source).Inc()
}

func IncrementDashboardCache(result string) {
	DashboardCacheCount.WithLabelValues(result).Inc()
}

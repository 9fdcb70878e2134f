package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	mqcontracts "zenhabit/contracts/mq"
	"zenhabit/insight-worker/internal/coach"
	"zenhabit/insight-worker/internal/config"
	"zenhabit/insight-worker/internal/mqhandler"
	"zenhabit/insight-worker/internal/repository"
	pkgconfig "zenhabit/pkg/config"
	"zenhabit/pkg/db"
	"zenhabit/pkg/logger"
	"zenhabit/pkg/mq"
	"zenhabit/pkg/otel"
	"zenhabit/pkg/redis"
	"zenhabit/pkg/util"
)

const insightQueue = "insight.requested.q"

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting insight-worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("model", cfg.Coach.Model),
		zap.Bool("api_key_set", cfg.Coach.APIKey != ""),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "insight-worker",
		ServiceVersion: "1.0.0",
		Environment:    pkgconfig.GetConfigEnv(),
		Endpoint:       cfg.Otel.Endpoint,
		SampleRatio:    cfg.Otel.SampleRatio,
		Enabled:        cfg.Otel.Enabled,
	}, log)
	if err != nil {
		log.Warn("Failed to init OpenTelemetry, continuing without tracing", zap.Error(err))
		shutdownTracing = func() {}
	}
	defer shutdownTracing()

	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	habitRepo := repository.NewHabitRepository(dbConn, log)
	insightRepo := repository.NewInsightRepository(dbConn, log)
	coachClient := coach.NewClient(coach.Options{
		BaseURL: cfg.Coach.BaseURL,
		APIKey:  cfg.Coach.APIKey,
		Model:   cfg.Coach.Model,
		Timeout: cfg.Coach.Timeout,
	}, log)
	deduper := util.NewDeduper(rdb, cfg.DedupTTL, log)

	insightHandler := mqhandler.NewInsightRequestedHandler(habitRepo, insightRepo, coachClient, deduper, log)

	log.Info("Initializing MQ consumer for insight.requested...",
		zap.String("queue", insightQueue),
		zap.String("routing_key", mqcontracts.RoutingInsightRequested),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, insightQueue, mqcontracts.RoutingInsightRequested, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()
	consumer.SetHandler(insightHandler.Handle)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Insight consumer failed", zap.Error(err))
		}
	}()

	// 健康检查与指标
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()
		if err := dbConn.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		if !consumer.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("insight-worker is running", zap.String("http_port", cfg.Server.Port))

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down insight-worker gracefully...")
	consumer.Stop()

	select {
	case <-done:
		log.Info("Consumer drained")
	case <-time.After(30 * time.Second):
		log.Warn("Timed out waiting for in-flight message")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	log.Info("insight-worker shutdown complete")
}

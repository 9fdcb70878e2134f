package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"zenhabit/habit-service/internal/cache"
	"zenhabit/habit-service/internal/config"
	"zenhabit/habit-service/internal/handler"
	"zenhabit/habit-service/internal/httpserver"
	"zenhabit/habit-service/internal/repository"
	"zenhabit/habit-service/internal/service"
	pkgconfig "zenhabit/pkg/config"
	"zenhabit/pkg/db"
	"zenhabit/pkg/logger"
	"zenhabit/pkg/mq"
	"zenhabit/pkg/otel"
	"zenhabit/pkg/outbox"
	"zenhabit/pkg/redis"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting habit-service...",
		zap.String("db_host", cfg.DB.Host),
		zap.Int("db_port", cfg.DB.Port),
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("timezone", cfg.App.Location().String()),
	)

	shutdownTracing, err := otel.Init(otel.Config{
		ServiceName:    "habit-service",
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

	// DB
	log.Info("Initializing database connection...")
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.Migrate(migrateCtx, dbConn, log); err != nil {
		migrateCancel()
		log.Fatal("Failed to apply schema", zap.Error(err))
	}
	migrateCancel()
	log.Info("Database connection established successfully")

	// MQ
	log.Info("Initializing MQ publisher...")
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Broker 暂时不可用时事件落库，由 dispatcher 补发
	outboxRepo := outbox.NewRepository(dbConn)
	eventPublisher := outbox.NewPublisher(publisher, outboxRepo, log)
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		outbox.NewDispatcher(outboxRepo, publisher, log).WithInterval(cfg.OutboxInterval).Start(dispatchCtx)
	}()

	habitRepo := repository.NewHabitRepository(dbConn, log)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, log)
	insightRepo := repository.NewInsightRepository(dbConn, log)
	userRepo := repository.NewUserRepository(dbConn)

	var opts []service.Option
	// Redis 不可用时降级为无缓存
	rdb, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, dashboard cache disabled", zap.Error(err))
	} else {
		defer rdb.Close()
		opts = append(opts, service.WithCache(cache.NewDashboardCache(rdb, cfg.DashboardCacheTTL, log)))
	}

	svc := service.NewService(habitRepo, milestoneRepo, insightRepo, eventPublisher, cfg.App.Location(), log, opts...)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret)

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:      handler.NewAuthHandler(authSvc, log),
		Habit:     handler.NewHabitHandler(svc, log),
		Milestone: handler.NewMilestoneHandler(svc, log),
		Stats:     handler.NewStatsHandler(svc, log),
		Insight:   handler.NewInsightHandler(svc, log),
	}, cfg.JWT.Secret, log, dbConn, publisher)

	srv := &http.Server{
		Addr:              cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("habit-service is fully initialized and running", zap.String("http_port", cfg.Server.Port))

	// 优雅退出处理
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down habit-service gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	stopDispatch()
	<-dispatchDone

	log.Info("habit-service shutdown complete")
}

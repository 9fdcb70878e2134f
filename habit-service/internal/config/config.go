package config

import (
	"log"
	"time"

	"zenhabit/pkg/config"
)

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	JWT    config.JWTConfig    `yaml:"jwt"`
	Server config.ServerConfig `yaml:"server"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	App    config.AppConfig    `yaml:"app"`
	Otel   config.OtelConfig   `yaml:"otel"`

	// 仪表盘缓存时长，0 表示使用默认值
	DashboardCacheTTL time.Duration `yaml:"dashboard_cache_ttl"`
	// outbox 补发扫描间隔
	OutboxInterval time.Duration `yaml:"outbox_interval"`
}

func Load() *Config {
	var cfg Config
	env := config.GetConfigEnv()
	dir := config.GetEnv("CONFIG_DIR", "config")
	if err := config.Decode(env, dir, &cfg); err != nil {
		log.Fatalf("failed to load config (env=%s, dir=%s): %v", env, dir, err)
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideAppFromEnv(&cfg.App)
	config.OverrideOtelFromEnv(&cfg.Otel)

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.DashboardCacheTTL <= 0 {
		cfg.DashboardCacheTTL = 10 * time.Minute
	}
	if cfg.OutboxInterval <= 0 {
		cfg.OutboxInterval = 5 * time.Second
	}
	return &cfg
}

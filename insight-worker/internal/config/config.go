package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"

	"zenhabit/pkg/config"
)

// CoachConfig 教练模型配置，只从环境变量读取（API key 不进 yaml）
type CoachConfig struct {
	APIKey  string        `env:"GEMINI_API_KEY"`
	Model   string        `env:"GEMINI_MODEL"    envDefault:"gemini-3-flash-preview"`
	BaseURL string        `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	Timeout time.Duration `env:"GEMINI_TIMEOUT"  envDefault:"15s"`
}

type Config struct {
	DB     config.DBConfig     `yaml:"db"`
	MQ     config.MQConfig     `yaml:"mq"`
	Redis  config.RedisConfig  `yaml:"redis"`
	Server config.ServerConfig `yaml:"server"`
	Otel   config.OtelConfig   `yaml:"otel"`

	DedupTTL time.Duration `yaml:"dedup_ttl"`

	Coach CoachConfig `yaml:"-"`
}

func Load() *Config {
	var cfg Config
	envName := config.GetConfigEnv()
	dir := config.GetEnv("CONFIG_DIR", "config")
	if err := config.Decode(envName, dir, &cfg); err != nil {
		log.Fatalf("failed to load config (env=%s, dir=%s): %v", envName, dir, err)
	}

	// 环境变量覆盖
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOtelFromEnv(&cfg.Otel)

	coach, err := LoadCoachFromEnv()
	if err != nil {
		log.Fatalf("failed to parse coach env: %v", err)
	}
	cfg.Coach = coach

	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8081"
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &cfg
}

func LoadCoachFromEnv() (CoachConfig, error) {
	var c CoachConfig
	if err := env.Parse(&c); err != nil {
		return CoachConfig{}, err
	}
	return c, nil
}

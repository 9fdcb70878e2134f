package main

import (
	"fmt"

	"zenhabit/pkg/config"
)

type ctlConfig struct {
	DB  config.DBConfig  `yaml:"db"`
	App config.AppConfig `yaml:"app"`
}

func loadConfig() (*ctlConfig, error) {
	env := configEnv
	if env == "" {
		env = config.GetConfigEnv()
	}
	dir := configDir
	if dir == "" {
		dir = config.GetEnv("CONFIG_DIR", "config")
	}

	var cfg ctlConfig
	if err := config.Decode(env, dir, &cfg); err != nil {
		return nil, fmt.Errorf("load config (env=%s, dir=%s): %w", env, dir, err)
	}
	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideAppFromEnv(&cfg.App)
	return &cfg, nil
}

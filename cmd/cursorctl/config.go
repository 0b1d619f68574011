package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/stephenafamo/cursor/internal/logger"
)

type config struct {
	Backend     string        `mapstructure:"backend"`
	DSN         string        `mapstructure:"dsn"`
	Format      string        `mapstructure:"format"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	Log         logger.Config `mapstructure:"log"`
}

// newViper reads CURSOR_* environment variables, e.g. CURSOR_DSN or
// CURSOR_LOG_LEVEL. Flags and the config file are bound by the commands.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("CURSOR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("format", "tsv")
	v.SetDefault("timeout", time.Duration(0))
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.add_source", false)

	return v
}

func loadConfig(v *viper.Viper) (config, error) {
	var cfg config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	switch {
	case cfg.Backend == "":
		return cfg, fmt.Errorf("no backend configured")
	case cfg.DSN == "":
		return cfg, fmt.Errorf("no dsn configured")
	}

	switch cfg.Format {
	case "tsv", "json":
	default:
		return cfg, fmt.Errorf("unknown output format %q", cfg.Format)
	}

	return cfg, nil
}

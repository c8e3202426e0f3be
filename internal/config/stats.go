package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// StatsConfig holds configuration for the stats command.
type StatsConfig struct {
	Config

	// In is the swap log to aggregate, defaulting to the configured swap log.
	In     string
	Window time.Duration
	Output string
}

// LoadStats merges config file, environment variables, and flags into StatsConfig.
func LoadStats(cfgFile string, flags *pflag.FlagSet) (StatsConfig, error) {
	v, err := open(cfgFile, flags)
	if err != nil {
		return StatsConfig{}, err
	}
	v.SetDefault("window", time.Hour)
	v.SetDefault("output", "json")

	cfg := StatsConfig{
		Config: base(v),
		In:     v.GetString("in"),
		Window: v.GetDuration("window"),
		Output: v.GetString("output"),
	}
	if cfg.In == "" {
		cfg.In = cfg.SwapLog
	}
	if cfg.Window < time.Second {
		return StatsConfig{}, fmt.Errorf("window must be at least 1s")
	}
	return cfg, nil
}

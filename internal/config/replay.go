package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Config

	In      string
	Workers int
	// Persist saves the resulting state; false makes the replay a dry run.
	Persist bool
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := open(cfgFile, flags)
	if err != nil {
		return ReplayConfig{}, err
	}
	v.SetDefault("workers", 4)
	v.SetDefault("persist", true)

	cfg := ReplayConfig{
		Config:  base(v),
		In:      v.GetString("in"),
		Workers: v.GetInt("workers"),
		Persist: v.GetBool("persist"),
	}
	if cfg.In == "" {
		return ReplayConfig{}, fmt.Errorf("in is required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ammEngine/internal/curve"
	"ammEngine/internal/fees"
)

// PoolConfig holds configuration for pool initialization.
type PoolConfig struct {
	Config

	Fees  fees.Schedule
	Curve curve.Type

	// RPCURL and Pair seed reserves and mints from an on-chain pair.
	RPCURL       string
	Pair         string
	Block        uint64
	MaxRetries   int
	RetryBackoff time.Duration
}

// LoadPool merges config file, environment variables, and flags into PoolConfig.
func LoadPool(cfgFile string, flags *pflag.FlagSet) (PoolConfig, error) {
	v, err := open(cfgFile, flags)
	if err != nil {
		return PoolConfig{}, err
	}

	def := fees.DefaultSchedule()
	v.SetDefault("trade-fee", def.Trade.String())
	v.SetDefault("owner-trade-fee", def.OwnerTrade.String())
	v.SetDefault("owner-withdraw-fee", def.OwnerWithdraw.String())
	v.SetDefault("host-fee", def.Host.String())
	v.SetDefault("curve", curve.ConstantProduct.String())
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)

	schedule, err := loadSchedule(v)
	if err != nil {
		return PoolConfig{}, err
	}
	curveType, err := curve.ParseType(v.GetString("curve"))
	if err != nil {
		return PoolConfig{}, fmt.Errorf("curve: %w", err)
	}

	return PoolConfig{
		Config:       base(v),
		Fees:         schedule,
		Curve:        curveType,
		RPCURL:       v.GetString("rpc"),
		Pair:         v.GetString("pair"),
		Block:        v.GetUint64("block"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}, nil
}

func loadSchedule(v *viper.Viper) (fees.Schedule, error) {
	var schedule fees.Schedule
	rates := []struct {
		key  string
		dest *fees.Rate
	}{
		{"trade-fee", &schedule.Trade},
		{"owner-trade-fee", &schedule.OwnerTrade},
		{"owner-withdraw-fee", &schedule.OwnerWithdraw},
		{"host-fee", &schedule.Host},
	}
	for _, r := range rates {
		rate, err := fees.ParseRate(v.GetString(r.key))
		if err != nil {
			return fees.Schedule{}, fmt.Errorf("%s: %w", r.key, err)
		}
		*r.dest = rate
	}
	if err := schedule.Validate(); err != nil {
		return fees.Schedule{}, fmt.Errorf("fee schedule: %w", err)
	}
	return schedule, nil
}

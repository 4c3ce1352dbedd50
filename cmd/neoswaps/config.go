// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/neoswaps/neoswaps"
)

// loadConfig merges defaults, config file, environment and flags, in
// increasing order of precedence
func loadConfig(cfgFile string, flags *pflag.FlagSet) (neoswaps.Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NEOSWAPS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	defaults := neoswaps.DefaultConfig()
	v.SetDefault("max-swap-fee", defaults.MaxSwapFee)
	v.SetDefault("max-liquidity-tree-depth", defaults.MaxLiquidityTreeDepth)
	v.SetDefault("max-splits", defaults.MaxSplits)
	v.SetDefault("fuel", defaults.Fuel)
	v.SetDefault("existential-deposit", defaults.ExistentialDeposit)

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return neoswaps.Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return neoswaps.Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := neoswaps.Config{
		MaxSwapFee:            v.GetUint64("max-swap-fee"),
		MaxLiquidityTreeDepth: v.GetUint32("max-liquidity-tree-depth"),
		MaxSplits:             v.GetUint32("max-splits"),
		Fuel:                  v.GetUint32("fuel"),
		ExistentialDeposit:    v.GetUint64("existential-deposit"),
	}
	if err := cfg.Verify(); err != nil {
		return neoswaps.Config{}, err
	}
	return cfg, nil
}

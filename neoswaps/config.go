// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"fmt"

	"github.com/luxfi/neoswaps/combinatorial"
	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/liquidity"
)

// Pool limits
const (
	// MaxAssets is the largest number of outcomes a pool trades
	MaxAssets = 128
	// MinSwapFee is the smallest swap fee a pool may charge (0.1%)
	MinSwapFee = fixed.Base / 1000
	// MinSpotPrice is the lowest price at deployment and after a sell
	MinSpotPrice = fixed.Cent / 2
	// MaxSpotPrice is the highest price at deployment and after a buy
	MaxSpotPrice = fixed.Base - fixed.Cent/2
	// MinLiquidity is the smallest liquidity parameter a pool keeps
	MinLiquidity = fixed.Base
	// MinRelativeLiquidity is the smallest share of the pool a join may add
	MinRelativeLiquidity = fixed.Base / 10_000
)

// Config of the pool module
type Config struct {
	// MaxSwapFee is the highest swap fee a pool may charge
	MaxSwapFee uint64 `mapstructure:"max-swap-fee" yaml:"max-swap-fee"`
	// MaxLiquidityTreeDepth bounds the number of liquidity providers per
	// pool to 2^(depth+1) - 1
	MaxLiquidityTreeDepth uint32 `mapstructure:"max-liquidity-tree-depth" yaml:"max-liquidity-tree-depth"`
	// MaxSplits bounds the split operations needed to deploy a
	// combinatorial pool
	MaxSplits uint32 `mapstructure:"max-splits" yaml:"max-splits"`
	// Fuel bounds the curve point search of collection ids
	Fuel uint32 `mapstructure:"fuel" yaml:"fuel"`
	// ExistentialDeposit is the minimum balance of native collateral. Pools
	// in native collateral hold it as a buffer.
	ExistentialDeposit uint64 `mapstructure:"existential-deposit" yaml:"existential-deposit"`
}

// DefaultConfig returns the production configuration
func DefaultConfig() Config {
	return Config{
		MaxSwapFee:            fixed.Base / 10,
		MaxLiquidityTreeDepth: 9,
		MaxSplits:             16,
		Fuel:                  combinatorial.DefaultFuel,
		ExistentialDeposit:    fixed.Cent / 2,
	}
}

// Verify checks the configuration
func (c Config) Verify() error {
	if c.MaxSwapFee < MinSwapFee || c.MaxSwapFee > fixed.Base {
		return fmt.Errorf("%w: max swap fee %d", ErrInvalidConfig, c.MaxSwapFee)
	}
	if err := (liquidity.Config{MaxDepth: c.MaxLiquidityTreeDepth}).Verify(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.MaxSplits == 0 {
		return fmt.Errorf("%w: max splits is zero", ErrInvalidConfig)
	}
	if c.Fuel == 0 {
		return fmt.Errorf("%w: fuel is zero", ErrInvalidConfig)
	}
	return nil
}

func (c Config) treeConfig() liquidity.Config {
	return liquidity.Config{MaxDepth: c.MaxLiquidityTreeDepth}
}

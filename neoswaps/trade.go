// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/lmsr"
	"github.com/luxfi/neoswaps/market"
)

// ============================================================================
// Trading
// ============================================================================

// tradingPool loads an active pool and checks the asset count the caller
// expects
func (s *state) tradingPool(poolID PoolID, assetCount uint16) (*Pool, error) {
	pool, err := s.pools.get(poolID)
	if err != nil {
		return nil, err
	}
	if len(pool.Assets) != int(assetCount) {
		return nil, fmt.Errorf("%w: pool has %d assets, got %d", ErrIncorrectAssetCount, len(pool.Assets), assetCount)
	}
	status, err := s.poolStatus(pool)
	if err != nil {
		return nil, err
	}
	if status != PoolActive {
		return nil, fmt.Errorf("%w: pool %d", ErrMarketNotActive, poolID)
	}
	return pool, nil
}

// Buy spends amountIn of collateral on assetOut. The pool buys complete sets
// with the collateral left after fees and pays out all units of assetOut
// except those the LMSR keeps. Returns the amount of assetOut received.
func (m *Module) Buy(
	db database.Database,
	who common.Address,
	poolID PoolID,
	assetCount uint16,
	assetOut market.Asset,
	amountIn *uint256.Int,
	minAmountOut *uint256.Int,
) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	var amountOut *uint256.Int
	err := m.atomic(db, func(s *state) error {
		pool, err := s.tradingPool(poolID, assetCount)
		if err != nil {
			return err
		}
		if !pool.Contains(assetOut) {
			return fmt.Errorf("%w: %s", ErrAssetNotFound, assetOut)
		}
		price, err := pool.SpotPrice(assetOut)
		if err != nil {
			return err
		}
		if price.Gt(fixed.New(MaxSpotPrice)) {
			return fmt.Errorf("%w: price of %s above max before buy", ErrUnexpected, assetOut)
		}
		if amountIn.Gt(pool.MaxAmountIn()) {
			return numericalLimits(MaxAmountExceeded)
		}
		if err := s.ledger.Transfer(pool.Collateral, who, pool.AccountID, amountIn); err != nil {
			return err
		}
		fees, err := m.distributeFees(s, pool, amountIn)
		if err != nil {
			return err
		}
		reserve, err := pool.ReserveOf(assetOut)
		if err != nil {
			return err
		}
		lnArg, err := lmsr.CalculateBuyLnArgument(reserve, fees.remaining, pool.LiquidityParameter)
		if err != nil {
			return mathError(err)
		}
		if lnArg.Lt(fixed.New(lmsr.LnNumericalLimit)) {
			return numericalLimits(MinAmountNotMet)
		}
		swapOut, err := pool.swapAmountOutForBuy(assetOut, fees.remaining)
		if err != nil {
			return err
		}
		amountOut, err = fixed.CheckedAdd(swapOut, fees.remaining)
		if err != nil {
			return mathError(err)
		}
		if amountOut.Lt(minAmountOut) {
			return fmt.Errorf("%w: %s < %s", ErrAmountOutBelowMin, amountOut, minAmountOut)
		}
		if err := s.buyCompleteSet(pool, fees.remaining); err != nil {
			return err
		}
		if err := s.ledger.Transfer(assetOut, pool.AccountID, who, amountOut); err != nil {
			return err
		}
		for _, asset := range pool.Assets {
			if err := pool.increaseReserve(asset, fees.remaining); err != nil {
				return err
			}
		}
		if err := pool.decreaseReserve(assetOut, amountOut); err != nil {
			return err
		}
		newPrice, err := pool.SpotPrice(assetOut)
		if err != nil {
			return err
		}
		if newPrice.Gt(fixed.New(MaxSpotPrice)) {
			return fmt.Errorf("%w: %s", ErrSpotPriceAboveMax, newPrice)
		}
		if err := s.pools.put(pool); err != nil {
			return err
		}
		s.emit(&BuyExecuted{
			Who:               who,
			PoolID:            poolID,
			AssetOut:          assetOut,
			AmountIn:          new(uint256.Int).Set(amountIn),
			AmountOut:         new(uint256.Int).Set(amountOut),
			SwapFeeAmount:     fees.swapFees,
			ExternalFeeAmount: fees.externalFees,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amountOut, nil
}

// Sell swaps amountIn of assetIn for collateral. The pool sells complete sets
// and pays out the collateral left after fees. Returns the collateral
// received.
func (m *Module) Sell(
	db database.Database,
	who common.Address,
	poolID PoolID,
	assetCount uint16,
	assetIn market.Asset,
	amountIn *uint256.Int,
	minAmountOut *uint256.Int,
) (*uint256.Int, error) {
	if amountIn.IsZero() {
		return nil, ErrZeroAmount
	}
	var received *uint256.Int
	err := m.atomic(db, func(s *state) error {
		pool, err := s.tradingPool(poolID, assetCount)
		if err != nil {
			return err
		}
		reserve, err := pool.ReserveOf(assetIn)
		if err != nil {
			return err
		}
		if pool.beyondExpLimit(reserve) {
			return numericalLimits(SpotPriceTooLow)
		}
		if amountIn.Gt(pool.MaxAmountIn()) {
			return numericalLimits(MaxAmountExceeded)
		}
		amountOut, err := pool.swapAmountOutForSell(assetIn, amountIn)
		if err != nil {
			return err
		}
		// The outcome moves to the pool before it sells the complete sets.
		if err := s.ledger.Transfer(assetIn, who, pool.AccountID, amountIn); err != nil {
			return err
		}
		if err := s.sellCompleteSet(pool, amountOut); err != nil {
			return err
		}
		fees, err := m.distributeFees(s, pool, amountOut)
		if err != nil {
			return err
		}
		if fees.remaining.Lt(minAmountOut) {
			return fmt.Errorf("%w: %s < %s", ErrAmountOutBelowMin, fees.remaining, minAmountOut)
		}
		if err := s.ledger.Transfer(pool.Collateral, pool.AccountID, who, fees.remaining); err != nil {
			return err
		}
		if err := pool.increaseReserve(assetIn, amountIn); err != nil {
			return err
		}
		for _, asset := range pool.Assets {
			if err := pool.decreaseReserve(asset, amountOut); err != nil {
				return err
			}
		}
		newReserve, err := pool.ReserveOf(assetIn)
		if err != nil {
			return err
		}
		if pool.beyondExpLimit(newReserve) {
			return numericalLimits(SpotPriceSlippedTooLow)
		}
		newPrice, err := pool.SpotPrice(assetIn)
		if err != nil {
			return err
		}
		if newPrice.Lt(fixed.New(MinSpotPrice)) {
			return fmt.Errorf("%w: %s", ErrSpotPriceBelowMin, newPrice)
		}
		if err := s.pools.put(pool); err != nil {
			return err
		}
		received = fees.remaining
		s.emit(&SellExecuted{
			Who:               who,
			PoolID:            poolID,
			AssetIn:           assetIn,
			AmountIn:          new(uint256.Int).Set(amountIn),
			AmountOut:         new(uint256.Int).Set(fees.remaining),
			SwapFeeAmount:     fees.swapFees,
			ExternalFeeAmount: fees.externalFees,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return received, nil
}

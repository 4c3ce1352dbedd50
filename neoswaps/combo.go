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
// Basket trading
// ============================================================================

// disjoint reports whether the groups share no asset and contain no
// duplicate
func disjoint(groups ...[]market.Asset) bool {
	seen := make(map[market.Asset]struct{})
	for _, group := range groups {
		for _, asset := range group {
			if _, ok := seen[asset]; ok {
				return false
			}
			seen[asset] = struct{}{}
		}
	}
	return true
}

// complementOf returns the pool assets in none of the groups, in pool order
func (p *Pool) complementOf(groups ...[]market.Asset) []market.Asset {
	listed := make(map[market.Asset]struct{})
	for _, group := range groups {
		for _, asset := range group {
			listed[asset] = struct{}{}
		}
	}
	var out []market.Asset
	for _, asset := range p.Assets {
		if _, ok := listed[asset]; !ok {
			out = append(out, asset)
		}
	}
	return out
}

// comboBuyPartition checks a buy/sell split of the pool and returns the
// assets kept unchanged
func (p *Pool) comboBuyPartition(buy, sell []market.Asset) ([]market.Asset, error) {
	if len(buy) == 0 || len(sell) == 0 {
		return nil, fmt.Errorf("%w: empty basket", ErrInvalidPartition)
	}
	for _, asset := range append(append([]market.Asset(nil), buy...), sell...) {
		if !p.Contains(asset) {
			return nil, fmt.Errorf("%w: %s not in pool", ErrInvalidPartition, asset)
		}
	}
	if !disjoint(buy, sell) {
		return nil, fmt.Errorf("%w: baskets overlap", ErrInvalidPartition)
	}
	return p.complementOf(buy, sell), nil
}

// comboSellPartition checks a buy/keep/sell split covering the whole pool
func (p *Pool) comboSellPartition(buy, keep, sell []market.Asset) error {
	for _, group := range [][]market.Asset{buy, keep, sell} {
		for _, asset := range group {
			if !p.Contains(asset) {
				return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
			}
		}
	}
	if len(buy) == 0 || len(sell) == 0 {
		return fmt.Errorf("%w: empty basket", ErrInvalidPartition)
	}
	if !disjoint(buy, keep, sell) {
		return fmt.Errorf("%w: baskets overlap", ErrInvalidPartition)
	}
	if len(buy)+len(keep)+len(sell) != len(p.Assets) {
		return fmt.Errorf("%w: baskets do not cover the pool", ErrInvalidPartition)
	}
	return nil
}

// checkPrices fails with limit if any asset price is above max (or below
// min when above is false)
func (p *Pool) checkPrices(assets []market.Asset, bound uint64, above bool, limit NumericalLimit) error {
	for _, asset := range assets {
		price, err := p.SpotPrice(asset)
		if err != nil {
			return err
		}
		if (above && price.Gt(fixed.New(bound))) || (!above && price.Lt(fixed.New(bound))) {
			return numericalLimits(limit)
		}
	}
	return nil
}

// ComboBuy spends amountIn of collateral on the buy basket, paid for by the
// sell basket. Every pool asset in neither basket is returned to who in the
// amount of collateral left after fees. Returns the amount of every buy
// asset received.
func (m *Module) ComboBuy(
	db database.Database,
	who common.Address,
	poolID PoolID,
	assetCount uint16,
	buy []market.Asset,
	sell []market.Asset,
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
		keep, err := pool.comboBuyPartition(buy, sell)
		if err != nil {
			return err
		}
		if err := s.ledger.Transfer(pool.Collateral, who, pool.AccountID, amountIn); err != nil {
			return err
		}
		fees, err := m.distributeFees(s, pool, amountIn)
		if err != nil {
			return err
		}
		buyReserves, err := pool.reservesOf(buy)
		if err != nil {
			return err
		}
		sellReserves, err := pool.reservesOf(sell)
		if err != nil {
			return err
		}
		swapOut, err := lmsr.ComboSwapAmountOutForBuy(buyReserves, sellReserves, fees.remaining, pool.LiquidityParameter)
		if err != nil {
			return mathError(err)
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
		for _, asset := range buy {
			if err := s.ledger.Transfer(asset, pool.AccountID, who, amountOut); err != nil {
				return err
			}
			if err := pool.decreaseReserve(asset, swapOut); err != nil {
				return err
			}
		}
		for _, asset := range keep {
			if err := s.ledger.Transfer(asset, pool.AccountID, who, fees.remaining); err != nil {
				return err
			}
		}
		for _, asset := range sell {
			if err := pool.increaseReserve(asset, fees.remaining); err != nil {
				return err
			}
		}
		if err := pool.checkPrices(buy, MaxSpotPrice, true, SpotPriceSlippedTooHigh); err != nil {
			return err
		}
		if err := pool.checkPrices(sell, MinSpotPrice, false, SpotPriceSlippedTooLow); err != nil {
			return err
		}
		if err := s.pools.put(pool); err != nil {
			return err
		}
		s.emit(&ComboBuyExecuted{
			Who:               who,
			PoolID:            poolID,
			Buy:               append([]market.Asset(nil), buy...),
			Sell:              append([]market.Asset(nil), sell...),
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

// ComboSell sells amountBuy of every buy asset and amountKeep of every keep
// asset for collateral. Returns the collateral received after fees.
func (m *Module) ComboSell(
	db database.Database,
	who common.Address,
	poolID PoolID,
	assetCount uint16,
	buy []market.Asset,
	keep []market.Asset,
	sell []market.Asset,
	amountBuy *uint256.Int,
	amountKeep *uint256.Int,
	minAmountOut *uint256.Int,
) (*uint256.Int, error) {
	if amountBuy.IsZero() {
		return nil, ErrZeroAmount
	}
	var received *uint256.Int
	err := m.atomic(db, func(s *state) error {
		pool, err := s.tradingPool(poolID, assetCount)
		if err != nil {
			return err
		}
		if err := pool.comboSellPartition(buy, keep, sell); err != nil {
			return err
		}
		if len(keep) == 0 && !amountKeep.IsZero() {
			return fmt.Errorf("%w: keep amount without keep assets", ErrInvalidPartition)
		}
		buyReserves, err := pool.reservesOf(buy)
		if err != nil {
			return err
		}
		keepReserves, err := pool.reservesOf(keep)
		if err != nil {
			return err
		}
		sellReserves, err := pool.reservesOf(sell)
		if err != nil {
			return err
		}
		amountOut, err := lmsr.ComboSwapAmountOutForSell(buyReserves, keepReserves, sellReserves, amountBuy, amountKeep, pool.LiquidityParameter)
		if err != nil {
			return mathError(err)
		}
		for _, asset := range buy {
			if err := s.ledger.Transfer(asset, who, pool.AccountID, amountBuy); err != nil {
				return err
			}
		}
		for _, asset := range keep {
			if err := s.ledger.Transfer(asset, who, pool.AccountID, amountKeep); err != nil {
				return err
			}
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
		for _, asset := range buy {
			if err := pool.increaseReserve(asset, amountBuy); err != nil {
				return err
			}
		}
		for _, asset := range keep {
			if err := pool.increaseReserve(asset, amountKeep); err != nil {
				return err
			}
		}
		for _, asset := range pool.Assets {
			if err := pool.decreaseReserve(asset, amountOut); err != nil {
				return err
			}
		}
		if err := pool.checkPrices(sell, MaxSpotPrice, true, SpotPriceSlippedTooHigh); err != nil {
			return err
		}
		if err := pool.checkPrices(buy, MinSpotPrice, false, SpotPriceSlippedTooLow); err != nil {
			return err
		}
		if err := pool.checkPrices(keep, MinSpotPrice, false, SpotPriceSlippedTooLow); err != nil {
			return err
		}
		if err := s.pools.put(pool); err != nil {
			return err
		}
		received = fees.remaining
		s.emit(&ComboSellExecuted{
			Who:               who,
			PoolID:            poolID,
			Buy:               append([]market.Asset(nil), buy...),
			Keep:              append([]market.Asset(nil), keep...),
			Sell:              append([]market.Asset(nil), sell...),
			AmountBuy:         new(uint256.Int).Set(amountBuy),
			AmountKeep:        new(uint256.Int).Set(amountKeep),
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

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/fixed"
)

// ============================================================================
// Liquidity provision
// ============================================================================

// Join adds poolSharesAmount shares for who. who deposits the same fraction
// of every reserve, rounded up in favor of the pool, and the liquidity
// parameter grows by that fraction.
func (m *Module) Join(
	db database.Database,
	who common.Address,
	poolID PoolID,
	poolSharesAmount *uint256.Int,
	maxAmountsIn []*uint256.Int,
) error {
	if poolSharesAmount.IsZero() {
		return ErrZeroAmount
	}
	return m.atomic(db, func(s *state) error {
		pool, err := s.activePool(poolID)
		if err != nil {
			return err
		}
		if len(maxAmountsIn) != len(pool.Assets) {
			return fmt.Errorf("%w: %d limits for %d assets", ErrIncorrectVecLen, len(maxAmountsIn), len(pool.Assets))
		}
		total, err := pool.Tree.TotalShares()
		if err != nil {
			return treeError(err)
		}
		ratio, err := fixed.BdivCeil(poolSharesAmount, total)
		if err != nil {
			return mathError(err)
		}
		if ratio.Lt(fixed.New(MinRelativeLiquidity)) {
			return fmt.Errorf("%w: ratio %s", ErrMinRelativeLiquidity, ratio)
		}
		amountsIn := make([]*uint256.Int, len(pool.Assets))
		for i, asset := range pool.Assets {
			amountIn, err := fixed.BmulCeil(ratio, pool.Reserves[i])
			if err != nil {
				return mathError(err)
			}
			if amountIn.Gt(maxAmountsIn[i]) {
				return fmt.Errorf("%w: %s > %s", ErrAmountInAboveMax, amountIn, maxAmountsIn[i])
			}
			if err := s.ledger.Transfer(asset, who, pool.AccountID, amountIn); err != nil {
				return err
			}
			amountsIn[i] = amountIn
		}
		for i, asset := range pool.Assets {
			if err := pool.increaseReserve(asset, amountsIn[i]); err != nil {
				return err
			}
		}
		if err := pool.Tree.Join(who, poolSharesAmount); err != nil {
			return treeError(err)
		}
		delta, err := fixed.Bmul(ratio, pool.LiquidityParameter)
		if err != nil {
			return mathError(err)
		}
		b, err := fixed.CheckedAdd(pool.LiquidityParameter, delta)
		if err != nil {
			return mathError(err)
		}
		pool.LiquidityParameter = b
		if err := s.pools.put(pool); err != nil {
			return err
		}
		s.emit(&JoinExecuted{
			Who:                   who,
			PoolID:                poolID,
			PoolSharesAmount:      new(uint256.Int).Set(poolSharesAmount),
			AmountsIn:             amountsIn,
			NewLiquidityParameter: new(uint256.Int).Set(b),
		})
		return nil
	})
}

// Exit burns poolSharesAmount shares of who and pays out the same fraction
// of every reserve, rounded down. Exit works on closed pools. The last
// provider to leave destroys the pool.
func (m *Module) Exit(
	db database.Database,
	who common.Address,
	poolID PoolID,
	poolSharesAmount *uint256.Int,
	minAmountsOut []*uint256.Int,
) error {
	if poolSharesAmount.IsZero() {
		return ErrZeroAmount
	}
	return m.atomic(db, func(s *state) error {
		pool, err := s.pools.get(poolID)
		if err != nil {
			return err
		}
		for _, id := range pool.Type.MarketIDs {
			if _, err := s.markets.Market(id); err != nil {
				return err
			}
		}
		if len(minAmountsOut) != len(pool.Assets) {
			return fmt.Errorf("%w: %d limits for %d assets", ErrIncorrectVecLen, len(minAmountsOut), len(pool.Assets))
		}
		shares, err := pool.Tree.SharesOf(who)
		if err != nil {
			return treeError(err)
		}
		if shares.Lt(poolSharesAmount) {
			return fmt.Errorf("%w: %s < %s", ErrInsufficientPoolShares, shares, poolSharesAmount)
		}
		fees, err := pool.Tree.FeesOf(who)
		if err != nil {
			return treeError(err)
		}
		if !fees.IsZero() {
			return fmt.Errorf("%w: %s unwithdrawn", ErrOutstandingFees, fees)
		}
		total, err := pool.Tree.TotalShares()
		if err != nil {
			return treeError(err)
		}
		ratio, err := fixed.BdivFloor(poolSharesAmount, total)
		if err != nil {
			return mathError(err)
		}
		amountsOut := make([]*uint256.Int, len(pool.Assets))
		for i, asset := range pool.Assets {
			amountOut, err := fixed.BmulFloor(ratio, pool.Reserves[i])
			if err != nil {
				return mathError(err)
			}
			if amountOut.Lt(minAmountsOut[i]) {
				return fmt.Errorf("%w: %s < %s", ErrAmountOutBelowMin, amountOut, minAmountsOut[i])
			}
			if err := s.ledger.Transfer(asset, pool.AccountID, who, amountOut); err != nil {
				return err
			}
			amountsOut[i] = amountOut
		}
		for i, asset := range pool.Assets {
			if err := pool.decreaseReserve(asset, amountsOut[i]); err != nil {
				return err
			}
		}
		if err := pool.Tree.Exit(who, poolSharesAmount); err != nil {
			return treeError(err)
		}
		remaining, err := pool.Tree.TotalShares()
		if err != nil {
			return treeError(err)
		}
		if remaining.IsZero() {
			// The buffer deposited at deployment has no owner left.
			buffer, err := s.ledger.FreeBalance(pool.Collateral, pool.AccountID)
			if err != nil {
				return err
			}
			if err := s.ledger.Withdraw(pool.Collateral, pool.AccountID, buffer); err != nil {
				return err
			}
			if err := s.pools.delete(pool); err != nil {
				return err
			}
			s.emit(&PoolDestroyed{
				Who:              who,
				PoolID:           poolID,
				PoolSharesAmount: new(uint256.Int).Set(poolSharesAmount),
				AmountsOut:       amountsOut,
			})
			return nil
		}
		delta, err := fixed.Bmul(ratio, pool.LiquidityParameter)
		if err != nil {
			return mathError(err)
		}
		b, err := fixed.CheckedSub(pool.LiquidityParameter, delta)
		if err != nil {
			return mathError(err)
		}
		if b.Lt(fixed.New(MinLiquidity)) {
			return fmt.Errorf("%w: %s", ErrLiquidityTooLow, b)
		}
		pool.LiquidityParameter = b
		if err := s.pools.put(pool); err != nil {
			return err
		}
		s.emit(&ExitExecuted{
			Who:                   who,
			PoolID:                poolID,
			PoolSharesAmount:      new(uint256.Int).Set(poolSharesAmount),
			AmountsOut:            amountsOut,
			NewLiquidityParameter: new(uint256.Int).Set(b),
		})
		return nil
	})
}

// WithdrawFees pays out the swap fees accrued to who
func (m *Module) WithdrawFees(db database.Database, who common.Address, poolID PoolID) (*uint256.Int, error) {
	var amount *uint256.Int
	err := m.atomic(db, func(s *state) error {
		pool, err := s.pools.get(poolID)
		if err != nil {
			return err
		}
		amount, err = pool.Tree.WithdrawFees(who)
		if err != nil {
			return treeError(err)
		}
		if err := s.ledger.Transfer(pool.Collateral, pool.AccountID, who, amount); err != nil {
			return err
		}
		if err := s.pools.put(pool); err != nil {
			return err
		}
		s.emit(&FeesWithdrawn{
			Who:    who,
			PoolID: poolID,
			Amount: new(uint256.Int).Set(amount),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return amount, nil
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package cpmm implements the weighted constant-product pricing of the
// legacy swaps pools (Balancer whitepaper, 2019-09-19).
//
// All balances, weights and fees are base-scaled. Every function fails with
// ErrSwapFeeTooHigh when swapFee >= BASE and otherwise surfaces the fixed
// package's arithmetic and power-approximation errors.
package cpmm

import (
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/neoswaps/fixed"
)

var (
	ErrSwapFeeTooHigh = errors.New("swap fee must be below one")
	ErrExitFeeTooHigh = errors.New("exit fee must be below one")
)

// oneMinus returns BASE - fee
func oneMinus(fee *uint256.Int, tooHigh error) (*uint256.Int, error) {
	if !fee.Lt(fixed.One()) {
		return nil, tooHigh
	}
	return new(uint256.Int).Sub(fixed.One(), fee), nil
}

// SpotPrice returns the price of the outgoing asset in units of the
// ingoing asset, fees included:
// (balanceIn/weightIn) / (balanceOut/weightOut) / (1 - swapFee)
func SpotPrice(balanceIn, weightIn, balanceOut, weightOut, swapFee *uint256.Int) (*uint256.Int, error) {
	numer, err := fixed.Bdiv(balanceIn, weightIn)
	if err != nil {
		return nil, err
	}
	denom, err := fixed.Bdiv(balanceOut, weightOut)
	if err != nil {
		return nil, err
	}
	ratio, err := fixed.Bdiv(numer, denom)
	if err != nil {
		return nil, err
	}
	feeless, err := oneMinus(swapFee, ErrSwapFeeTooHigh)
	if err != nil {
		return nil, err
	}
	scale, err := fixed.Bdiv(fixed.One(), feeless)
	if err != nil {
		return nil, err
	}
	return fixed.Bmul(ratio, scale)
}

// OutGivenIn returns the amount of the outgoing asset received for
// amountIn of the ingoing asset:
// balanceOut * (1 - (balanceIn / (balanceIn + amountIn*(1-swapFee)))^(weightIn/weightOut))
func OutGivenIn(balanceIn, weightIn, balanceOut, weightOut, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	weightRatio, err := fixed.Bdiv(weightIn, weightOut)
	if err != nil {
		return nil, err
	}
	feeless, err := oneMinus(swapFee, ErrSwapFeeTooHigh)
	if err != nil {
		return nil, err
	}
	adjustedIn, err := fixed.Bmul(feeless, amountIn)
	if err != nil {
		return nil, err
	}
	newBalanceIn, err := fixed.CheckedAdd(balanceIn, adjustedIn)
	if err != nil {
		return nil, err
	}
	y, err := fixed.Bdiv(balanceIn, newBalanceIn)
	if err != nil {
		return nil, err
	}
	pow, err := fixed.Bpow(y, weightRatio)
	if err != nil {
		return nil, err
	}
	bar, err := fixed.CheckedSub(fixed.One(), pow)
	if err != nil {
		return nil, err
	}
	return fixed.Bmul(balanceOut, bar)
}

// InGivenOut returns the amount of the ingoing asset needed to receive
// amountOut of the outgoing asset:
// balanceIn * ((balanceOut / (balanceOut - amountOut))^(weightOut/weightIn) - 1) / (1 - swapFee)
func InGivenOut(balanceIn, weightIn, balanceOut, weightOut, amountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	weightRatio, err := fixed.Bdiv(weightOut, weightIn)
	if err != nil {
		return nil, err
	}
	diff, err := fixed.CheckedSub(balanceOut, amountOut)
	if err != nil {
		return nil, err
	}
	y, err := fixed.Bdiv(balanceOut, diff)
	if err != nil {
		return nil, err
	}
	pow, err := fixed.Bpow(y, weightRatio)
	if err != nil {
		return nil, err
	}
	if pow, err = fixed.CheckedSub(pow, fixed.One()); err != nil {
		return nil, err
	}
	scaled, err := fixed.Bmul(balanceIn, pow)
	if err != nil {
		return nil, err
	}
	feeless, err := oneMinus(swapFee, ErrSwapFeeTooHigh)
	if err != nil {
		return nil, err
	}
	return fixed.Bdiv(scaled, feeless)
}

// PoolOutGivenSingleIn returns the pool shares minted for depositing
// amountIn of a single asset. The share of amountIn that is implicitly
// traded into the other assets, (1 - weightIn/totalWeight), pays the swap
// fee.
func PoolOutGivenSingleIn(balanceIn, weightIn, poolSupply, totalWeight, amountIn, swapFee *uint256.Int) (*uint256.Int, error) {
	if _, err := oneMinus(swapFee, ErrSwapFeeTooHigh); err != nil {
		return nil, err
	}
	normalizedWeight, err := fixed.Bdiv(weightIn, totalWeight)
	if err != nil {
		return nil, err
	}
	traded, err := fixed.CheckedSub(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	fee, err := fixed.Bmul(traded, swapFee)
	if err != nil {
		return nil, err
	}
	amountInAfterFee, err := fixed.Bmul(amountIn, new(uint256.Int).Sub(fixed.One(), fee))
	if err != nil {
		return nil, err
	}
	newBalanceIn, err := fixed.CheckedAdd(balanceIn, amountInAfterFee)
	if err != nil {
		return nil, err
	}
	ratio, err := fixed.Bdiv(newBalanceIn, balanceIn)
	if err != nil {
		return nil, err
	}
	poolRatio, err := fixed.Bpow(ratio, normalizedWeight)
	if err != nil {
		return nil, err
	}
	newSupply, err := fixed.Bmul(poolRatio, poolSupply)
	if err != nil {
		return nil, err
	}
	return fixed.CheckedSub(newSupply, poolSupply)
}

// SingleInGivenPoolOut returns the amount of a single asset to deposit for
// poolAmountOut new pool shares
func SingleInGivenPoolOut(balanceIn, weightIn, poolSupply, totalWeight, poolAmountOut, swapFee *uint256.Int) (*uint256.Int, error) {
	if _, err := oneMinus(swapFee, ErrSwapFeeTooHigh); err != nil {
		return nil, err
	}
	normalizedWeight, err := fixed.Bdiv(weightIn, totalWeight)
	if err != nil {
		return nil, err
	}
	newSupply, err := fixed.CheckedAdd(poolSupply, poolAmountOut)
	if err != nil {
		return nil, err
	}
	poolRatio, err := fixed.Bdiv(newSupply, poolSupply)
	if err != nil {
		return nil, err
	}
	exp, err := fixed.Bdiv(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	ratio, err := fixed.Bpow(poolRatio, exp)
	if err != nil {
		return nil, err
	}
	newBalanceIn, err := fixed.Bmul(ratio, balanceIn)
	if err != nil {
		return nil, err
	}
	amountInAfterFee, err := fixed.CheckedSub(newBalanceIn, balanceIn)
	if err != nil {
		return nil, err
	}
	traded, err := fixed.CheckedSub(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	fee, err := fixed.Bmul(traded, swapFee)
	if err != nil {
		return nil, err
	}
	return fixed.Bdiv(amountInAfterFee, new(uint256.Int).Sub(fixed.One(), fee))
}

// SingleOutGivenPoolIn returns the amount of a single asset withdrawn for
// burning poolAmountIn shares. The exit fee is taken from the shares
// before the withdrawal is priced.
func SingleOutGivenPoolIn(balanceOut, weightOut, poolSupply, totalWeight, poolAmountIn, swapFee, exitFee *uint256.Int) (*uint256.Int, error) {
	if _, err := oneMinus(swapFee, ErrSwapFeeTooHigh); err != nil {
		return nil, err
	}
	normalizedWeight, err := fixed.Bdiv(weightOut, totalWeight)
	if err != nil {
		return nil, err
	}
	keep, err := oneMinus(exitFee, ErrExitFeeTooHigh)
	if err != nil {
		return nil, err
	}
	poolAmountInAfterExitFee, err := fixed.Bmul(poolAmountIn, keep)
	if err != nil {
		return nil, err
	}
	newSupply, err := fixed.CheckedSub(poolSupply, poolAmountInAfterExitFee)
	if err != nil {
		return nil, err
	}
	poolRatio, err := fixed.Bdiv(newSupply, poolSupply)
	if err != nil {
		return nil, err
	}
	exp, err := fixed.Bdiv(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	ratio, err := fixed.Bpow(poolRatio, exp)
	if err != nil {
		return nil, err
	}
	newBalanceOut, err := fixed.Bmul(ratio, balanceOut)
	if err != nil {
		return nil, err
	}
	beforeSwapFee, err := fixed.CheckedSub(balanceOut, newBalanceOut)
	if err != nil {
		return nil, err
	}
	traded, err := fixed.CheckedSub(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	fee, err := fixed.Bmul(traded, swapFee)
	if err != nil {
		return nil, err
	}
	return fixed.Bmul(beforeSwapFee, new(uint256.Int).Sub(fixed.One(), fee))
}

// PoolInGivenSingleOut returns the pool shares to burn to withdraw
// amountOut of a single asset
func PoolInGivenSingleOut(balanceOut, weightOut, poolSupply, totalWeight, amountOut, swapFee, exitFee *uint256.Int) (*uint256.Int, error) {
	if _, err := oneMinus(swapFee, ErrSwapFeeTooHigh); err != nil {
		return nil, err
	}
	normalizedWeight, err := fixed.Bdiv(weightOut, totalWeight)
	if err != nil {
		return nil, err
	}
	traded, err := fixed.CheckedSub(fixed.One(), normalizedWeight)
	if err != nil {
		return nil, err
	}
	fee, err := fixed.Bmul(traded, swapFee)
	if err != nil {
		return nil, err
	}
	beforeSwapFee, err := fixed.Bdiv(amountOut, new(uint256.Int).Sub(fixed.One(), fee))
	if err != nil {
		return nil, err
	}
	newBalanceOut, err := fixed.CheckedSub(balanceOut, beforeSwapFee)
	if err != nil {
		return nil, err
	}
	ratio, err := fixed.Bdiv(newBalanceOut, balanceOut)
	if err != nil {
		return nil, err
	}
	poolRatio, err := fixed.Bpow(ratio, normalizedWeight)
	if err != nil {
		return nil, err
	}
	newSupply, err := fixed.Bmul(poolRatio, poolSupply)
	if err != nil {
		return nil, err
	}
	afterExitFee, err := fixed.CheckedSub(poolSupply, newSupply)
	if err != nil {
		return nil, err
	}
	keep, err := oneMinus(exitFee, ErrExitFeeTooHigh)
	if err != nil {
		return nil, err
	}
	return fixed.Bdiv(afterExitFee, keep)
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lmsr implements the logarithmic market scoring rule used to price
// outcome tokens in neo-swaps pools.
//
// All inputs and outputs are base-scaled balances. Notation: b is the
// liquidity parameter, r a reserve, x an amount and p a spot price.
package lmsr

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/luxfi/neoswaps/fixed"
)

// Numerical limits of the trading functions
const (
	// ExpNumericalLimit bounds x/b for trades: amounts above
	// ExpNumericalLimit * b are rejected by the pool
	ExpNumericalLimit uint64 = 10
	// LnNumericalLimit is the smallest buy ln argument a pool accepts
	LnNumericalLimit uint64 = fixed.Base / 10
)

// CalculateSpotPrice returns e^{-r/b}
func CalculateSpotPrice(reserve, liquidity *uint256.Int) (*uint256.Int, error) {
	rb, err := div(toDecimal(reserve), toDecimal(liquidity))
	if err != nil {
		return nil, err
	}
	p, err := exp(rb, true)
	if err != nil {
		return nil, err
	}
	return fromDecimal(p)
}

// CalculateSwapAmountOutForBuy returns the amount of outcome received when
// buying with x units of collateral: b*ln(e^{x/b} - 1 + e^{-r/b}) + r - x.
// The x complete sets bought with the collateral are not included.
func CalculateSwapAmountOutForBuy(reserve, amountIn, liquidity *uint256.Int) (*uint256.Int, error) {
	arg, err := buyLnArgument(reserve, amountIn, liquidity)
	if err != nil {
		return nil, err
	}
	l, err := ln(arg)
	if err != nil {
		return nil, err
	}
	y := toDecimal(liquidity).Mul(l).Add(toDecimal(reserve)).Sub(toDecimal(amountIn))
	return fromDecimal(y)
}

// CalculateSwapAmountOutForSell returns the collateral received when selling
// x units of outcome: -b*ln(e^{-x/b} - 1 + e^{r/b}) + r
func CalculateSwapAmountOutForSell(reserve, amountIn, liquidity *uint256.Int) (*uint256.Int, error) {
	if reserve.IsZero() {
		return nil, fmt.Errorf("%w: zero reserve", ErrInvalidInput)
	}
	b := toDecimal(liquidity)
	r := toDecimal(reserve)
	xb, err := div(toDecimal(amountIn), b)
	if err != nil {
		return nil, err
	}
	rb, err := div(r, b)
	if err != nil {
		return nil, err
	}
	expNegX, err := exp(xb, true)
	if err != nil {
		return nil, err
	}
	expR, err := exp(rb, false)
	if err != nil {
		return nil, err
	}
	l, err := ln(expNegX.Add(expR).Sub(one))
	if err != nil {
		return nil, err
	}
	return fromDecimal(r.Sub(b.Mul(l)))
}

// CalculateBuyLnArgument returns e^{x/b} - 1 + e^{-r/b}. An underflow of
// e^{-r/b} rounds to zero.
func CalculateBuyLnArgument(reserve, amountIn, liquidity *uint256.Int) (*uint256.Int, error) {
	arg, err := buyLnArgument(reserve, amountIn, liquidity)
	if err != nil {
		return nil, err
	}
	return fromDecimal(arg)
}

func buyLnArgument(reserve, amountIn, liquidity *uint256.Int) (decimal.Decimal, error) {
	b := toDecimal(liquidity)
	xb, err := div(toDecimal(amountIn), b)
	if err != nil {
		return zero, err
	}
	rb, err := div(toDecimal(reserve), b)
	if err != nil {
		return zero, err
	}
	expX, err := exp(xb, false)
	if err != nil {
		return zero, err
	}
	expNegR, err := exp(rb, true)
	if err != nil {
		return zero, err
	}
	return expX.Add(expNegR).Sub(one), nil
}

// CalculateReservesFromSpotPrices returns the liquidity parameter and the
// reserves of a pool funded with amount complete sets whose outcomes trade
// at the given spot prices. The least likely outcome ends up with a reserve
// of exactly amount.
func CalculateReservesFromSpotPrices(amount *uint256.Int, spotPrices []*uint256.Int) (*uint256.Int, []*uint256.Int, error) {
	if amount.IsZero() {
		return nil, nil, fmt.Errorf("%w: zero amount", ErrInvalidInput)
	}
	if len(spotPrices) == 0 {
		return nil, nil, fmt.Errorf("%w: no spot prices", ErrInvalidInput)
	}
	logs := make([]decimal.Decimal, len(spotPrices))
	maxLog := zero
	for i, p := range spotPrices {
		l, err := ln(toDecimal(p))
		if err != nil {
			return nil, nil, err
		}
		logs[i] = l.Abs()
		if logs[i].GreaterThan(maxLog) {
			maxLog = logs[i]
		}
	}
	b, err := div(toDecimal(amount), maxLog)
	if err != nil {
		return nil, nil, err
	}
	reserves := make([]*uint256.Int, len(logs))
	for i, l := range logs {
		if reserves[i], err = fromDecimal(l.Mul(b)); err != nil {
			return nil, nil, err
		}
	}
	liquidity, err := fromDecimal(b)
	if err != nil {
		return nil, nil, err
	}
	return liquidity, reserves, nil
}

// CalculateBuyAmountUntil returns the collateral that moves the price of an
// outcome from p up to until: -b*ln((1-until)/(1-p)). Zero if the price is
// already at or above until.
func CalculateBuyAmountUntil(until, liquidity, spotPrice *uint256.Int) (*uint256.Int, error) {
	q, p := toDecimal(until), toDecimal(spotPrice)
	if q.GreaterThan(one) || p.GreaterThan(one) {
		return nil, fmt.Errorf("%w: price above one", ErrInvalidInput)
	}
	arg, err := div(one.Sub(q), one.Sub(p))
	if err != nil {
		return nil, err
	}
	l, err := ln(arg)
	if err != nil {
		return nil, err
	}
	if !l.IsNegative() {
		return fixed.Zero(), nil
	}
	return fromDecimal(toDecimal(liquidity).Mul(l.Neg()))
}

// CalculateSellAmountUntil returns the outcome amount that moves the price
// of an outcome from p down to until: b*ln(1/(until*(1/p-1)) - 1/(1/p-1)).
// Zero if the price is already at or below until.
func CalculateSellAmountUntil(until, liquidity, spotPrice *uint256.Int) (*uint256.Int, error) {
	q, p := toDecimal(until), toDecimal(spotPrice)
	inv, err := div(one, p)
	if err != nil {
		return nil, err
	}
	k := inv.Sub(one)
	if k.IsNegative() {
		return nil, fmt.Errorf("%w: price above one", ErrInvalidInput)
	}
	first, err := div(one, k)
	if err != nil {
		return nil, err
	}
	second, err := div(one, q.Mul(k))
	if err != nil {
		return nil, err
	}
	l, err := ln(second.Sub(first))
	if err != nil {
		return nil, err
	}
	if l.IsNegative() {
		return fixed.Zero(), nil
	}
	return fromDecimal(toDecimal(liquidity).Mul(l))
}

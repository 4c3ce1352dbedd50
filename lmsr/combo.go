// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lmsr

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// =========================================================================
// Exp sums
// =========================================================================

// ExpSumStrategy selects how the sums E_X = sum_{r in X} e^{-r/b} of a
// combinatorial trade are evaluated
type ExpSumStrategy uint8

const (
	// ExpSumDefault evaluates every term directly
	ExpSumDefault ExpSumStrategy = iota
	// ExpSumOptimized shifts every exponent by the largest one so that the
	// dominant term is e^0. All sums of one call then carry the same
	// positive factor, which cancels in every combinatorial formula.
	ExpSumOptimized
)

func (s ExpSumStrategy) String() string {
	switch s {
	case ExpSumDefault:
		return "default"
	case ExpSumOptimized:
		return "optimized"
	default:
		return fmt.Sprintf("ExpSumStrategy(%d)", uint8(s))
	}
}

// selectStrategy picks the optimized strategy as soon as one exponent
// leaves the numerically safe range
func selectStrategy(liquidity decimal.Decimal, groups ...[]*uint256.Int) ExpSumStrategy {
	limit := liquidity.Mul(decimal.NewFromInt(int64(ExpNumericalLimit)))
	for _, group := range groups {
		for _, r := range group {
			if toDecimal(r).GreaterThan(limit) {
				return ExpSumOptimized
			}
		}
	}
	return ExpSumDefault
}

// expSums returns E_X for every group. With ExpSumOptimized all results are
// scaled by e^{r_min/b}.
func expSums(strategy ExpSumStrategy, liquidity decimal.Decimal, groups ...[]*uint256.Int) ([]decimal.Decimal, error) {
	shift := zero
	if strategy == ExpSumOptimized {
		first := true
		for _, group := range groups {
			for _, r := range group {
				if d := toDecimal(r); first || d.LessThan(shift) {
					shift, first = d, false
				}
			}
		}
	}
	sums := make([]decimal.Decimal, len(groups))
	for i, group := range groups {
		sum := zero
		for _, r := range group {
			rb, err := div(toDecimal(r).Sub(shift), liquidity)
			if err != nil {
				return nil, err
			}
			e, err := exp(rb, true)
			if err != nil {
				return nil, err
			}
			sum = sum.Add(e)
		}
		sums[i] = sum
	}
	return sums, nil
}

// =========================================================================
// Combinatorial trades
// =========================================================================

// ComboSwapAmountOutForBuy returns the amount of every buy outcome received
// when buying the buy basket with x units of collateral against the sell
// basket: b*ln((E_buy + E_sell - e^{-x/b}*E_sell) / E_buy)
func ComboSwapAmountOutForBuy(buy, sell []*uint256.Int, amountIn, liquidity *uint256.Int) (*uint256.Int, error) {
	b := toDecimal(liquidity)
	if b.IsZero() {
		return nil, errDivisionByZero()
	}
	y, err := comboBuy(selectStrategy(b, buy, sell), buy, sell, toDecimal(amountIn), b)
	if err != nil {
		return nil, err
	}
	return fromDecimal(y)
}

func comboBuy(strategy ExpSumStrategy, buy, sell []*uint256.Int, x, b decimal.Decimal) (decimal.Decimal, error) {
	sums, err := expSums(strategy, b, buy, sell)
	if err != nil {
		return zero, err
	}
	eBuy, eSell := sums[0], sums[1]
	xb, err := div(x, b)
	if err != nil {
		return zero, err
	}
	// e^{x/b} must be representable, huge trades are rejected instead of
	// letting e^{-x/b} vanish
	expX, err := exp(xb, false)
	if err != nil {
		return zero, err
	}
	expNegX, err := div(one, expX)
	if err != nil {
		return zero, err
	}
	arg, err := div(eBuy.Add(eSell).Sub(expNegX.Mul(eSell)), eBuy)
	if err != nil {
		return zero, err
	}
	l, err := ln(arg)
	if err != nil {
		return zero, err
	}
	return b.Mul(l), nil
}

// CalculateEqualizeAmount returns the amount of the buy basket that has to
// be sold so that a position holding amountBuy of every buy outcome and
// amountSell of every sell outcome ends up holding equal amounts:
// b*ln((E_buy + E_sell) / (E_buy + e^{(amountBuy-amountSell)/b}*E_sell))
func CalculateEqualizeAmount(buy, sell []*uint256.Int, amountBuy, amountSell, liquidity *uint256.Int) (*uint256.Int, error) {
	b := toDecimal(liquidity)
	if b.IsZero() {
		return nil, errDivisionByZero()
	}
	y, err := equalize(selectStrategy(b, buy, sell), buy, sell, toDecimal(amountBuy), toDecimal(amountSell), b)
	if err != nil {
		return nil, err
	}
	return fromDecimal(y)
}

func equalize(strategy ExpSumStrategy, buy, sell []*uint256.Int, amountBuy, amountSell, b decimal.Decimal) (decimal.Decimal, error) {
	delta := amountBuy.Sub(amountSell)
	if delta.IsNegative() {
		return zero, fmt.Errorf("%w: sell amount exceeds buy amount", ErrInvalidInput)
	}
	sums, err := expSums(strategy, b, buy, sell)
	if err != nil {
		return zero, err
	}
	eBuy, eSell := sums[0], sums[1]
	db, err := div(delta, b)
	if err != nil {
		return zero, err
	}
	expDelta, err := exp(db, false)
	if err != nil {
		return zero, err
	}
	arg, err := div(eBuy.Add(eSell), eBuy.Add(expDelta.Mul(eSell)))
	if err != nil {
		return zero, err
	}
	l, err := ln(arg)
	if err != nil {
		return zero, err
	}
	return b.Mul(l), nil
}

// ComboSwapAmountOutForSell returns the collateral received when selling
// amountBuy of every buy outcome and amountKeep of every keep outcome. The
// position is first equalized across buy and keep, then across buy+keep and
// sell; what remains is the payout.
func ComboSwapAmountOutForSell(buy, keep, sell []*uint256.Int, amountBuy, amountKeep, liquidity *uint256.Int) (*uint256.Int, error) {
	b := toDecimal(liquidity)
	if b.IsZero() {
		return nil, errDivisionByZero()
	}
	strategy := selectStrategy(b, buy, keep, sell)
	y, err := comboSell(strategy, buy, keep, sell, toDecimal(amountBuy), toDecimal(amountKeep), b)
	if err != nil {
		return nil, err
	}
	return fromDecimal(y)
}

func comboSell(strategy ExpSumStrategy, buy, keep, sell []*uint256.Int, amountBuy, amountKeep, b decimal.Decimal) (decimal.Decimal, error) {
	amountBuyKeep := amountBuy
	if len(keep) != 0 {
		deltaBuy, err := equalize(strategy, buy, sell, amountBuy, amountKeep, b)
		if err != nil {
			return zero, err
		}
		amountBuyKeep = amountBuy.Sub(deltaBuy)
		if amountBuyKeep.IsNegative() {
			return zero, fmt.Errorf("%w: equalized amount", ErrNegativeResult)
		}
	}
	buyKeep := make([]*uint256.Int, 0, len(buy)+len(keep))
	buyKeep = append(append(buyKeep, buy...), keep...)
	deltaBuyKeep, err := equalize(strategy, buyKeep, sell, amountBuyKeep, zero, b)
	if err != nil {
		return zero, err
	}
	return amountBuyKeep.Sub(deltaBuyKeep), nil
}

// ComboSpotPrice returns the price of the buy basket: E_buy / (E_buy + E_sell)
func ComboSpotPrice(buy, sell []*uint256.Int, liquidity *uint256.Int) (*uint256.Int, error) {
	b := toDecimal(liquidity)
	if b.IsZero() {
		return nil, errDivisionByZero()
	}
	p, err := comboSpotPrice(selectStrategy(b, buy, sell), buy, sell, b)
	if err != nil {
		return nil, err
	}
	return fromDecimal(p)
}

func comboSpotPrice(strategy ExpSumStrategy, buy, sell []*uint256.Int, b decimal.Decimal) (decimal.Decimal, error) {
	sums, err := expSums(strategy, b, buy, sell)
	if err != nil {
		return zero, err
	}
	return div(sums[0], sums[0].Add(sums[1]))
}

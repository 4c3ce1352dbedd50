// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lmsr

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/luxfi/neoswaps/fixed"
)

// Precision is the number of decimal places carried by intermediate
// transcendental results
const Precision int32 = 30

// decimals of a base-scaled balance
const balanceDecimals int32 = 10

var (
	one  = decimal.NewFromInt(1)
	zero = decimal.Zero

	// ExpOverflowThreshold is the largest x for which e^x is evaluated.
	// For e^{-x} with x above the threshold the result underflows to zero.
	ExpOverflowThreshold = decimal.RequireFromString("32.44892769177272")

	maxBalance = toDecimal(fixed.MaxBalance)
)

// Math errors
var (
	ErrExpOverflow    = errors.New("exp overflow")
	ErrLnDomain       = errors.New("ln of non-positive value")
	ErrNegativeResult = errors.New("negative result")
	ErrInvalidInput   = errors.New("invalid input")
)

// toDecimal converts a base-scaled balance into a decimal
func toDecimal(x *uint256.Int) decimal.Decimal {
	return decimal.NewFromBigInt(x.ToBig(), -balanceDecimals)
}

// fromDecimal rounds d to the nearest base unit. Values that round to a
// negative number or beyond 128 bits are rejected.
func fromDecimal(d decimal.Decimal) (*uint256.Int, error) {
	d = d.Round(balanceDecimals)
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %s", ErrNegativeResult, d)
	}
	if d.GreaterThan(maxBalance) {
		return nil, fixed.ErrOverflow
	}
	z, overflow := uint256.FromBig(d.Shift(balanceDecimals).BigInt())
	if overflow {
		return nil, fixed.ErrOverflow
	}
	return z, nil
}

func div(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return zero, fixed.ErrDivisionByZero
	}
	return a.DivRound(b, Precision), nil
}

// exp returns e^x, or e^{-x} if neg is set. x must not be negative.
func exp(x decimal.Decimal, neg bool) (decimal.Decimal, error) {
	if x.GreaterThan(ExpOverflowThreshold) {
		if neg {
			return zero, nil
		}
		return zero, fmt.Errorf("%w: e^%s", ErrExpOverflow, x)
	}
	e, err := x.ExpTaylor(Precision)
	if err != nil {
		return zero, err
	}
	if neg {
		return div(one, e)
	}
	return e, nil
}

// ln returns the natural logarithm of x
func ln(x decimal.Decimal) (decimal.Decimal, error) {
	if !x.IsPositive() {
		return zero, fmt.Errorf("%w: ln(%s)", ErrLnDomain, x)
	}
	if x.Equal(one) {
		return zero, nil
	}
	return x.Ln(Precision)
}

func errDivisionByZero() error {
	return fmt.Errorf("liquidity: %w", fixed.ErrDivisionByZero)
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fixed implements checked u128 arithmetic and base-scaled
// fixed-point multiplication and division.
//
// Balances are carried as *uint256.Int, but every operation enforces the
// 128-bit width of on-chain balances: a result that does not fit into 128
// bits is reported as ErrOverflow.
package fixed

import (
	"errors"

	"github.com/holiman/uint256"
)

// BalanceBits is the width of a balance
const BalanceBits = 128

// Arithmetic errors
var (
	ErrOverflow       = errors.New("arithmetic overflow")
	ErrUnderflow      = errors.New("arithmetic underflow")
	ErrDivisionByZero = errors.New("division by zero")
)

// MaxBalance is the largest representable balance (2^128 - 1)
var MaxBalance = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), BalanceBits), uint256.NewInt(1))

// Zero returns a new zero balance
func Zero() *uint256.Int {
	return new(uint256.Int)
}

// New returns a new balance holding v
func New(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// fits reports whether z is a valid balance
func fits(z *uint256.Int) bool {
	return z.BitLen() <= BalanceBits
}

// CheckedAdd returns a + b
func CheckedAdd(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow || !fits(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// CheckedSub returns a - b
func CheckedSub(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Lt(b) {
		return nil, ErrUnderflow
	}
	return new(uint256.Int).Sub(a, b), nil
}

// CheckedMul returns a * b
func CheckedMul(a, b *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(a, b)
	if overflow || !fits(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

// CheckedDiv returns a / b, rounded down
func CheckedDiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Div(a, b), nil
}

// CheckedRem returns a % b
func CheckedRem(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	return new(uint256.Int).Mod(a, b), nil
}

// CheckedPow returns a^exp using square and multiply
func CheckedPow(a *uint256.Int, exp uint32) (*uint256.Int, error) {
	result := uint256.NewInt(1)
	if exp == 0 {
		return result, nil
	}
	b := new(uint256.Int).Set(a)
	var err error
	for {
		if exp&1 == 1 {
			if result, err = CheckedMul(result, b); err != nil {
				return nil, err
			}
		}
		exp >>= 1
		if exp == 0 {
			return result, nil
		}
		if b, err = CheckedMul(b, b); err != nil {
			return nil, err
		}
	}
}

// SaturatingAdd returns a + b, clamped to MaxBalance
func SaturatingAdd(a, b *uint256.Int) *uint256.Int {
	z, err := CheckedAdd(a, b)
	if err != nil {
		return new(uint256.Int).Set(MaxBalance)
	}
	return z
}

// SaturatingSub returns a - b, clamped to zero
func SaturatingSub(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}

// SaturatingMul returns a * b, clamped to MaxBalance
func SaturatingMul(a, b *uint256.Int) *uint256.Int {
	z, err := CheckedMul(a, b)
	if err != nil {
		return new(uint256.Int).Set(MaxBalance)
	}
	return z
}

// Sum adds up all values with overflow checks
func Sum(values []*uint256.Int) (*uint256.Int, error) {
	total := new(uint256.Int)
	var err error
	for _, v := range values {
		if total, err = CheckedAdd(total, v); err != nil {
			return nil, err
		}
	}
	return total, nil
}

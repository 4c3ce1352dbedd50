// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fixed

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Fixed-point scale
const (
	Base  uint64 = 10_000_000_000 // 1.0
	Cent  uint64 = Base / 100     // 0.01
	Milli uint64 = Cent / 10      // 0.001
	Micro uint64 = Milli / 1000   // 0.000001
)

// Binomial power approximation limits
const (
	BpowPrecision           uint64 = 10
	BpowApproxBaseMin       uint64 = Base / 4
	BpowApproxBaseMax       uint64 = 7 * Base / 4
	BpowApproxMaxIterations        = 100
)

// Power approximation errors
var (
	ErrBpowExponentTooLarge = errors.New("bpow_approx: expected exp <= BASE")
	ErrBpowBaseTooSmall     = errors.New("bpow_approx: expected base >= BASE / 4")
	ErrBpowBaseTooLarge     = errors.New("bpow_approx: expected base <= 7 * BASE / 4")
	ErrBpowMaxIterations    = errors.New("bpow_approx: maximum number of iterations exceeded")
)

var (
	base     = uint256.NewInt(Base)
	halfBase = uint256.NewInt(Base / 2)
)

// One returns BASE as a new balance
func One() *uint256.Int {
	return uint256.NewInt(Base)
}

// Units returns n * BASE
func Units(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), base)
}

// Fraction returns num * BASE / den, rounded down (e.g. Fraction(1, 2) is 0.5)
func Fraction(num, den uint64) *uint256.Int {
	z := new(uint256.Int).Mul(uint256.NewInt(num), base)
	return z.Div(z, uint256.NewInt(den))
}

// =========================================================================
// Base-scaled multiplication and division
// =========================================================================

// Bmul returns round(a * b / BASE)
func Bmul(a, b *uint256.Int) (*uint256.Int, error) {
	c0, err := CheckedMul(a, b)
	if err != nil {
		return nil, err
	}
	c1, err := CheckedAdd(c0, halfBase)
	if err != nil {
		return nil, err
	}
	return CheckedDiv(c1, base)
}

// BmulFloor returns floor(a * b / BASE)
func BmulFloor(a, b *uint256.Int) (*uint256.Int, error) {
	c0, err := CheckedMul(a, b)
	if err != nil {
		return nil, err
	}
	return CheckedDiv(c0, base)
}

// BmulCeil returns ceil(a * b / BASE)
func BmulCeil(a, b *uint256.Int) (*uint256.Int, error) {
	c0, err := CheckedMul(a, b)
	if err != nil {
		return nil, err
	}
	return divCeil(c0, base)
}

// Bdiv returns round(a * BASE / b)
func Bdiv(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	c0, err := CheckedMul(a, base)
	if err != nil {
		return nil, err
	}
	c1, err := CheckedAdd(c0, new(uint256.Int).Rsh(b, 1))
	if err != nil {
		return nil, err
	}
	return CheckedDiv(c1, b)
}

// BdivFloor returns floor(a * BASE / b)
func BdivFloor(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	c0, err := CheckedMul(a, base)
	if err != nil {
		return nil, err
	}
	return CheckedDiv(c0, b)
}

// BdivCeil returns ceil(a * BASE / b)
func BdivCeil(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	c0, err := CheckedMul(a, base)
	if err != nil {
		return nil, err
	}
	return divCeil(c0, b)
}

// BmulBdiv returns round(a * b / c). The product is kept at full 256-bit
// width so that no intermediate rounding happens.
func BmulBdiv(a, b, c *uint256.Int) (*uint256.Int, error) {
	prod, err := wideMul(a, b)
	if err != nil {
		return nil, err
	}
	if c.IsZero() {
		return nil, ErrDivisionByZero
	}
	prod, overflow := prod.AddOverflow(prod, new(uint256.Int).Rsh(c, 1))
	if overflow {
		return nil, ErrOverflow
	}
	return narrow(prod.Div(prod, c))
}

// BmulBdivFloor returns floor(a * b / c)
func BmulBdivFloor(a, b, c *uint256.Int) (*uint256.Int, error) {
	prod, err := wideMul(a, b)
	if err != nil {
		return nil, err
	}
	if c.IsZero() {
		return nil, ErrDivisionByZero
	}
	return narrow(prod.Div(prod, c))
}

// BmulBdivCeil returns ceil(a * b / c)
func BmulBdivCeil(a, b, c *uint256.Int) (*uint256.Int, error) {
	prod, err := wideMul(a, b)
	if err != nil {
		return nil, err
	}
	if c.IsZero() {
		return nil, ErrDivisionByZero
	}
	q, r := new(uint256.Int).DivMod(prod, c, new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return narrow(q)
}

func wideMul(a, b *uint256.Int) (*uint256.Int, error) {
	if !fits(a) || !fits(b) {
		return nil, ErrOverflow
	}
	// Two 128-bit factors never overflow 256 bits.
	return new(uint256.Int).Mul(a, b), nil
}

func narrow(z *uint256.Int) (*uint256.Int, error) {
	if !fits(z) {
		return nil, ErrOverflow
	}
	return z, nil
}

func divCeil(a, b *uint256.Int) (*uint256.Int, error) {
	if b.IsZero() {
		return nil, ErrDivisionByZero
	}
	q, r := new(uint256.Int).DivMod(a, b, new(uint256.Int))
	if !r.IsZero() {
		return CheckedAdd(q, uint256.NewInt(1))
	}
	return q, nil
}

// =========================================================================
// Integer parts and powers
// =========================================================================

// Btoi returns the integer part of a base-scaled number
func Btoi(a *uint256.Int) *uint256.Int {
	return new(uint256.Int).Div(a, base)
}

// Bfloor rounds a base-scaled number down to a whole number of units
func Bfloor(a *uint256.Int) *uint256.Int {
	z := Btoi(a)
	return z.Mul(z, base)
}

// BsubSign returns |a - b| and whether the difference is negative
func BsubSign(a, b *uint256.Int) (*uint256.Int, bool) {
	if a.Cmp(b) >= 0 {
		return new(uint256.Int).Sub(a, b), false
	}
	return new(uint256.Int).Sub(b, a), true
}

// Bpowi raises a base-scaled number to a whole power
func Bpowi(a *uint256.Int, n uint64) (*uint256.Int, error) {
	var z *uint256.Int
	if n%2 != 0 {
		z = new(uint256.Int).Set(a)
	} else {
		z = One()
	}
	b := new(uint256.Int).Set(a)
	var err error
	for m := n / 2; m != 0; m /= 2 {
		if b, err = Bmul(b, b); err != nil {
			return nil, err
		}
		if m%2 != 0 {
			if z, err = Bmul(z, b); err != nil {
				return nil, err
			}
		}
	}
	return z, nil
}

// Bpow raises a base-scaled number to a base-scaled power
func Bpow(b, exp *uint256.Int) (*uint256.Int, error) {
	whole := Bfloor(exp)
	remain := new(uint256.Int).Sub(exp, whole)
	wholePow, err := Bpowi(b, Btoi(whole).Uint64())
	if err != nil {
		return nil, err
	}
	if remain.IsZero() {
		return wholePow, nil
	}
	partial, err := BpowApprox(b, remain)
	if err != nil {
		return nil, err
	}
	return Bmul(wholePow, partial)
}

// BpowApprox evaluates b^exp for exp <= 1 with the binomial series. Terms
// are added until one drops below BpowPrecision.
func BpowApprox(b, exp *uint256.Int) (*uint256.Int, error) {
	if exp.Cmp(base) > 0 {
		return nil, ErrBpowExponentTooLarge
	}
	if b.Lt(uint256.NewInt(BpowApproxBaseMin)) {
		return nil, ErrBpowBaseTooSmall
	}
	if b.Gt(uint256.NewInt(BpowApproxBaseMax)) {
		return nil, ErrBpowBaseTooLarge
	}

	precision := uint256.NewInt(BpowPrecision)
	x, xneg := BsubSign(b, base)
	term := One()
	sum := One()
	negative := false

	for i := uint64(1); i <= BpowApproxMaxIterations; i++ {
		if term.Lt(precision) {
			break
		}
		bigK := Units(i)
		c, cneg := BsubSign(exp, new(uint256.Int).Sub(bigK, base))
		cx, err := Bmul(c, x)
		if err != nil {
			return nil, err
		}
		if term, err = Bmul(term, cx); err != nil {
			return nil, err
		}
		if term, err = Bdiv(term, bigK); err != nil {
			return nil, err
		}
		if term.IsZero() {
			break
		}
		if xneg {
			negative = !negative
		}
		if cneg {
			negative = !negative
		}
		if negative {
			sum, err = CheckedSub(sum, term)
		} else {
			sum, err = CheckedAdd(sum, term)
		}
		if err != nil {
			return nil, fmt.Errorf("bpow_approx: %w", err)
		}
	}
	if !term.Lt(precision) {
		return nil, ErrBpowMaxIterations
	}
	return sum, nil
}

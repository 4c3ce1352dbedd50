// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"errors"
	"fmt"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/liquidity"
	"github.com/luxfi/neoswaps/lmsr"
)

// Pool errors
var (
	ErrAssetCountAboveMax      = errors.New("asset count above max")
	ErrAmountInAboveMax        = errors.New("amount in above max")
	ErrAmountOutBelowMin       = errors.New("amount out below min")
	ErrAssetNotFound           = errors.New("asset not found in pool")
	ErrDuplicatePool           = errors.New("duplicate pool")
	ErrIncorrectAssetCount     = errors.New("incorrect asset count")
	ErrIncorrectVecLen         = errors.New("incorrect vector length")
	ErrInsufficientPoolShares  = errors.New("insufficient pool shares")
	ErrLiquidityTooLow         = errors.New("liquidity too low")
	ErrInvalidSpotPrices       = errors.New("spot prices do not sum to one")
	ErrInvalidTradingMechanism = errors.New("invalid trading mechanism")
	ErrMarketNotActive         = errors.New("market not active")
	ErrMathError               = errors.New("math error")
	ErrNotAllowed              = errors.New("not allowed")
	ErrNotImplemented          = errors.New("not implemented")
	ErrOutstandingFees         = errors.New("outstanding fees")
	ErrPoolNotFound            = errors.New("pool not found")
	ErrSpotPriceAboveMax       = errors.New("spot price above max")
	ErrSpotPriceBelowMin       = errors.New("spot price below min")
	ErrSwapFeeAboveMax         = errors.New("swap fee above max")
	ErrSwapFeeBelowMin         = errors.New("swap fee below min")
	ErrUnexpected              = errors.New("unexpected")
	ErrZeroAmount              = errors.New("zero amount")
	ErrInvalidPartition        = errors.New("invalid partition")
	ErrMaxSplitsExceeded       = errors.New("max splits exceeded")
	ErrMinRelativeLiquidity    = errors.New("min relative liquidity threshold violated")
	ErrNumericalLimits         = errors.New("numerical limits")
	ErrInvalidConfig           = errors.New("invalid config")
)

// NumericalLimit names the guard that rejected a trade outside the range
// the LMSR math evaluates reliably
type NumericalLimit uint8

const (
	SpotPriceTooLow NumericalLimit = iota
	SpotPriceSlippedTooLow
	SpotPriceSlippedTooHigh
	MaxAmountExceeded
	MinAmountNotMet
)

func (l NumericalLimit) String() string {
	switch l {
	case SpotPriceTooLow:
		return "spot price too low"
	case SpotPriceSlippedTooLow:
		return "spot price slipped too low"
	case SpotPriceSlippedTooHigh:
		return "spot price slipped too high"
	case MaxAmountExceeded:
		return "max amount exceeded"
	case MinAmountNotMet:
		return "min amount not met"
	default:
		return fmt.Sprintf("NumericalLimit(%d)", uint8(l))
	}
}

// NumericalLimitsError wraps ErrNumericalLimits with the failing guard
type NumericalLimitsError struct {
	Limit NumericalLimit
}

func (e *NumericalLimitsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNumericalLimits, e.Limit)
}

func (e *NumericalLimitsError) Unwrap() error {
	return ErrNumericalLimits
}

// Is matches any NumericalLimitsError with the same limit
func (e *NumericalLimitsError) Is(target error) bool {
	t, ok := target.(*NumericalLimitsError)
	return ok && t.Limit == e.Limit
}

func numericalLimits(limit NumericalLimit) error {
	return &NumericalLimitsError{Limit: limit}
}

// mathError tags failures of the fixed-point and LMSR math
func mathError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, fixed.ErrOverflow),
		errors.Is(err, fixed.ErrUnderflow),
		errors.Is(err, fixed.ErrDivisionByZero),
		errors.Is(err, lmsr.ErrExpOverflow),
		errors.Is(err, lmsr.ErrLnDomain),
		errors.Is(err, lmsr.ErrNegativeResult),
		errors.Is(err, lmsr.ErrInvalidInput):
		return fmt.Errorf("%w: %w", ErrMathError, err)
	default:
		return err
	}
}

// treeError maps liquidity tree errors onto pool errors
func treeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, liquidity.ErrAccountNotFound):
		return fmt.Errorf("%w: %w", ErrNotAllowed, err)
	case errors.Is(err, liquidity.ErrUnwithdrawnFees):
		return fmt.Errorf("%w: %w", ErrOutstandingFees, err)
	case errors.Is(err, liquidity.ErrInsufficientStake):
		return fmt.Errorf("%w: %w", ErrInsufficientPoolShares, err)
	case errors.Is(err, liquidity.ErrNotImplemented):
		return fmt.Errorf("%w: %w", ErrNotImplemented, err)
	default:
		return mathError(err)
	}
}

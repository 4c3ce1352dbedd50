// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package market holds the prediction markets the pools trade on: the
// asset union, the market records and their store, and complete-set
// minting against a market's collateral.
package market

import (
	"errors"

	"github.com/luxfi/geth/common"
)

// ID identifies a market
type ID uint64

// TypeKind tags the market type
type TypeKind uint8

const (
	Categorical TypeKind = iota
	Scalar
)

// Type describes the outcome space of a market
type Type struct {
	Kind       TypeKind
	Categories uint16
	// Scalar range, unused for categorical markets
	ScalarLow  uint64
	ScalarHigh uint64
}

// CategoricalType returns a categorical market type with n outcomes
func CategoricalType(n uint16) Type {
	return Type{Kind: Categorical, Categories: n}
}

// ScalarType returns a scalar market type over [low, high]
func ScalarType(low, high uint64) Type {
	return Type{Kind: Scalar, ScalarLow: low, ScalarHigh: high}
}

// Status is the lifecycle stage of a market
type Status uint8

const (
	Proposed Status = iota
	Active
	Closed
	Reported
	Disputed
	Resolved
)

func (s Status) String() string {
	switch s {
	case Proposed:
		return "Proposed"
	case Active:
		return "Active"
	case Closed:
		return "Closed"
	case Reported:
		return "Reported"
	case Disputed:
		return "Disputed"
	case Resolved:
		return "Resolved"
	default:
		return "Unknown"
	}
}

// ScoringRule selects the trading mechanism of a market
type ScoringRule uint8

const (
	Lmsr ScoringRule = iota
	AmmCdaHybrid
	Orderbook
	Parimutuel
)

// TradesOnPools reports whether markets with this rule may be backed by an
// automated market maker
func (r ScoringRule) TradesOnPools() bool {
	return r == Lmsr || r == AmmCdaHybrid
}

// Market is the record the pools read
type Market struct {
	ID      ID
	Creator common.Address
	// CreatorFee is charged on trades in parts per billion
	CreatorFee  uint32
	BaseAsset   Asset
	Type        Type
	Status      Status
	ScoringRule ScoringRule
}

// PerBillion is the denominator of Market.CreatorFee
const PerBillion = 1_000_000_000

var (
	ErrMarketDoesNotExist  = errors.New("market does not exist")
	ErrMarketNotActive     = errors.New("market is not active")
	ErrInvalidMarketType   = errors.New("invalid market type")
	ErrInvalidBaseAsset    = errors.New("invalid base asset")
	ErrInvalidCreatorFee   = errors.New("invalid creator fee")
	ErrZeroAmount          = errors.New("zero amount")
	ErrNotEnoughBalance    = errors.New("not enough balance")
	ErrInsufficientShares  = errors.New("insufficient share balance")
	ErrCorruptMarketRecord = errors.New("corrupt market record")
)

// Outcomes returns the number of outcomes of the market
func (m *Market) Outcomes() uint16 {
	if m.Type.Kind == Scalar {
		return 2
	}
	return m.Type.Categories
}

// OutcomeAssets returns the outcome assets in canonical order
func (m *Market) OutcomeAssets() []Asset {
	if m.Type.Kind == Scalar {
		return []Asset{ScalarOutcome(m.ID, Long), ScalarOutcome(m.ID, Short)}
	}
	assets := make([]Asset, m.Type.Categories)
	for i := range assets {
		assets[i] = CategoricalOutcome(m.ID, uint16(i))
	}
	return assets
}

// Verify checks the static shape of a market record
func (m *Market) Verify() error {
	switch m.Type.Kind {
	case Categorical:
		if m.Type.Categories < 2 {
			return ErrInvalidMarketType
		}
	case Scalar:
		if m.Type.ScalarLow >= m.Type.ScalarHigh {
			return ErrInvalidMarketType
		}
	default:
		return ErrInvalidMarketType
	}
	if !m.BaseAsset.IsCollateral() {
		return ErrInvalidBaseAsset
	}
	if m.CreatorFee > PerBillion {
		return ErrInvalidCreatorFee
	}
	return nil
}

// Commons is the read side of the market registry
type Commons interface {
	Market(id ID) (*Market, error)
}

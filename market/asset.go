// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// AssetKind tags the variant carried by an Asset
type AssetKind uint8

const (
	KindZtg AssetKind = iota
	KindForeignAsset
	KindCategoricalOutcome
	KindScalarOutcome
	KindCombinatorialToken
)

func (k AssetKind) String() string {
	switch k {
	case KindZtg:
		return "Ztg"
	case KindForeignAsset:
		return "ForeignAsset"
	case KindCategoricalOutcome:
		return "CategoricalOutcome"
	case KindScalarOutcome:
		return "ScalarOutcome"
	case KindCombinatorialToken:
		return "CombinatorialToken"
	default:
		return fmt.Sprintf("AssetKind(%d)", uint8(k))
	}
}

// ScalarPosition is the side of a scalar outcome
type ScalarPosition uint8

const (
	Long ScalarPosition = iota
	Short
)

func (p ScalarPosition) String() string {
	if p == Long {
		return "Long"
	}
	return "Short"
}

// Asset is a closed tagged union over every asset the system moves. Only the
// fields of the active Kind are meaningful; constructors leave the others
// zero so that equal assets compare equal and can key maps.
type Asset struct {
	Kind      AssetKind
	ForeignID uint32
	MarketID  ID
	Index     uint16
	Position  ScalarPosition
	TokenID   [32]byte
}

// Ztg is the native collateral asset
func Ztg() Asset { return Asset{Kind: KindZtg} }

// ForeignAsset is a bridged collateral asset
func ForeignAsset(id uint32) Asset {
	return Asset{Kind: KindForeignAsset, ForeignID: id}
}

// CategoricalOutcome is outcome i of a categorical market
func CategoricalOutcome(id ID, i uint16) Asset {
	return Asset{Kind: KindCategoricalOutcome, MarketID: id, Index: i}
}

// ScalarOutcome is one side of a scalar market
func ScalarOutcome(id ID, pos ScalarPosition) Asset {
	return Asset{Kind: KindScalarOutcome, MarketID: id, Position: pos}
}

// CombinatorialToken is a position token identified by its position id
func CombinatorialToken(id [32]byte) Asset {
	return Asset{Kind: KindCombinatorialToken, TokenID: id}
}

// IsCollateral reports whether the asset may back a market
func (a Asset) IsCollateral() bool {
	return a.Kind == KindZtg || a.Kind == KindForeignAsset
}

// IsOutcome reports whether the asset is an outcome of a single market
func (a Asset) IsOutcome() bool {
	return a.Kind == KindCategoricalOutcome || a.Kind == KindScalarOutcome
}

// Valid reports whether the kind is known
func (a Asset) Valid() bool {
	return a.Kind <= KindCombinatorialToken
}

// Bytes is the canonical encoding used for storage keys and hashing
func (a Asset) Bytes() []byte {
	switch a.Kind {
	case KindForeignAsset:
		b := make([]byte, 5)
		b[0] = byte(a.Kind)
		binary.BigEndian.PutUint32(b[1:], a.ForeignID)
		return b
	case KindCategoricalOutcome:
		b := make([]byte, 11)
		b[0] = byte(a.Kind)
		binary.BigEndian.PutUint64(b[1:], uint64(a.MarketID))
		binary.BigEndian.PutUint16(b[9:], a.Index)
		return b
	case KindScalarOutcome:
		b := make([]byte, 10)
		b[0] = byte(a.Kind)
		binary.BigEndian.PutUint64(b[1:], uint64(a.MarketID))
		b[9] = byte(a.Position)
		return b
	case KindCombinatorialToken:
		b := make([]byte, 33)
		b[0] = byte(a.Kind)
		copy(b[1:], a.TokenID[:])
		return b
	default:
		return []byte{byte(a.Kind)}
	}
}

func (a Asset) String() string {
	switch a.Kind {
	case KindZtg:
		return "Ztg"
	case KindForeignAsset:
		return fmt.Sprintf("ForeignAsset(%d)", a.ForeignID)
	case KindCategoricalOutcome:
		return fmt.Sprintf("CategoricalOutcome(%d, %d)", a.MarketID, a.Index)
	case KindScalarOutcome:
		return fmt.Sprintf("ScalarOutcome(%d, %s)", a.MarketID, a.Position)
	case KindCombinatorialToken:
		return fmt.Sprintf("CombinatorialToken(0x%s)", hex.EncodeToString(a.TokenID[:]))
	default:
		return a.Kind.String()
	}
}

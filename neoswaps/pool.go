// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/liquidity"
	"github.com/luxfi/neoswaps/lmsr"
	"github.com/luxfi/neoswaps/market"
)

// PoolID identifies a pool
type PoolID uint64

// PoolKind tells standard pools from combinatorial ones
type PoolKind uint8

const (
	// Standard pools trade the outcomes of a single market
	Standard PoolKind = iota
	// Combinatorial pools trade the atoms of several markets
	Combinatorial
)

// PoolType records the markets a pool trades on
type PoolType struct {
	Kind      PoolKind
	MarketIDs []market.ID
}

// PoolStatus is derived from the status of the pool's markets
type PoolStatus uint8

const (
	PoolActive PoolStatus = iota
	PoolClosed
)

func (s PoolStatus) String() string {
	if s == PoolActive {
		return "Active"
	}
	return "Closed"
}

// Pool is an LMSR market maker over a fixed list of assets. Assets and
// Reserves are parallel and ordered by the outcome order of the markets.
type Pool struct {
	ID                 PoolID
	AccountID          common.Address
	Assets             []market.Asset
	Reserves           []*uint256.Int
	Collateral         market.Asset
	LiquidityParameter *uint256.Int
	Tree               *liquidity.Tree
	SwapFee            *uint256.Int
	Type               PoolType
}

// PoolAccountID derives the account holding the funds of a pool
func PoolAccountID(id PoolID) common.Address {
	h := blake3.New()
	h.Write([]byte("neoswaps/pool"))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	h.Write(buf[:])
	var sum [32]byte
	h.Digest().Read(sum[:])
	return common.BytesToAddress(sum[:common.AddressLength])
}

func (p *Pool) indexOf(asset market.Asset) (int, bool) {
	for i, a := range p.Assets {
		if a == asset {
			return i, true
		}
	}
	return 0, false
}

// Contains reports whether the pool trades asset
func (p *Pool) Contains(asset market.Asset) bool {
	_, ok := p.indexOf(asset)
	return ok
}

// ReserveOf returns the reserve of asset
func (p *Pool) ReserveOf(asset market.Asset) (*uint256.Int, error) {
	i, ok := p.indexOf(asset)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	return new(uint256.Int).Set(p.Reserves[i]), nil
}

func (p *Pool) reservesOf(assets []market.Asset) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(assets))
	for i, a := range assets {
		r, err := p.ReserveOf(a)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func (p *Pool) increaseReserve(asset market.Asset, amount *uint256.Int) error {
	i, ok := p.indexOf(asset)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	r, err := fixed.CheckedAdd(p.Reserves[i], amount)
	if err != nil {
		return mathError(err)
	}
	p.Reserves[i] = r
	return nil
}

func (p *Pool) decreaseReserve(asset market.Asset, amount *uint256.Int) error {
	i, ok := p.indexOf(asset)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAssetNotFound, asset)
	}
	r, err := fixed.CheckedSub(p.Reserves[i], amount)
	if err != nil {
		return mathError(err)
	}
	p.Reserves[i] = r
	return nil
}

// SpotPrice returns the price of asset in units of collateral
func (p *Pool) SpotPrice(asset market.Asset) (*uint256.Int, error) {
	r, err := p.ReserveOf(asset)
	if err != nil {
		return nil, err
	}
	price, err := lmsr.CalculateSpotPrice(r, p.LiquidityParameter)
	return price, mathError(err)
}

// SpotPrices returns the prices of all assets in pool order
func (p *Pool) SpotPrices() ([]*uint256.Int, error) {
	prices := make([]*uint256.Int, len(p.Assets))
	for i, r := range p.Reserves {
		price, err := lmsr.CalculateSpotPrice(r, p.LiquidityParameter)
		if err != nil {
			return nil, mathError(err)
		}
		prices[i] = price
	}
	return prices, nil
}

// MaxAmountIn is the largest trade the math evaluates reliably
func (p *Pool) MaxAmountIn() *uint256.Int {
	return fixed.SaturatingMul(p.LiquidityParameter, fixed.New(lmsr.ExpNumericalLimit))
}

// beyondExpLimit reports whether r/b exceeds the exp limit, which is a
// spot price below e^{-ExpNumericalLimit}
func (p *Pool) beyondExpLimit(reserve *uint256.Int) bool {
	return reserve.Gt(p.MaxAmountIn())
}

func (p *Pool) swapAmountOutForBuy(asset market.Asset, amountIn *uint256.Int) (*uint256.Int, error) {
	r, err := p.ReserveOf(asset)
	if err != nil {
		return nil, err
	}
	out, err := lmsr.CalculateSwapAmountOutForBuy(r, amountIn, p.LiquidityParameter)
	return out, mathError(err)
}

func (p *Pool) swapAmountOutForSell(asset market.Asset, amountIn *uint256.Int) (*uint256.Int, error) {
	r, err := p.ReserveOf(asset)
	if err != nil {
		return nil, err
	}
	out, err := lmsr.CalculateSwapAmountOutForSell(r, amountIn, p.LiquidityParameter)
	return out, mathError(err)
}

// MarketIDs returns the markets the pool trades on
func (p *Pool) MarketIDs() []market.ID {
	return append([]market.ID(nil), p.Type.MarketIDs...)
}

// Clone returns a deep copy of the pool
func (p *Pool) Clone() *Pool {
	c := *p
	c.Assets = append([]market.Asset(nil), p.Assets...)
	c.Reserves = make([]*uint256.Int, len(p.Reserves))
	for i, r := range p.Reserves {
		c.Reserves[i] = new(uint256.Int).Set(r)
	}
	c.LiquidityParameter = new(uint256.Int).Set(p.LiquidityParameter)
	c.SwapFee = new(uint256.Int).Set(p.SwapFee)
	c.Tree = p.Tree.Clone()
	c.Type.MarketIDs = p.MarketIDs()
	return &c
}

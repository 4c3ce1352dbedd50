// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Currency is the part of the multi-currency ledger complete sets need
type Currency interface {
	Deposit(asset Asset, who common.Address, amount *uint256.Int) error
	Withdraw(asset Asset, who common.Address, amount *uint256.Int) error
	Transfer(asset Asset, from, to common.Address, amount *uint256.Int) error
	FreeBalance(asset Asset, who common.Address) (*uint256.Int, error)
}

// ReserveAccount holds the collateral backing the outcome tokens of a market
func ReserveAccount(id ID) common.Address {
	h := blake3.New()
	h.Write([]byte("market/reserve"))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	h.Write(buf[:])
	var sum [32]byte
	h.Digest().Read(sum[:])
	return common.BytesToAddress(sum[:common.AddressLength])
}

// CompleteSets mints and burns complete sets of outcome tokens. A complete
// set is one unit of every outcome of a market and is always worth one unit
// of collateral.
type CompleteSets struct {
	markets  Commons
	currency Currency
}

// NewCompleteSets returns complete-set operations over markets and currency
func NewCompleteSets(markets Commons, currency Currency) *CompleteSets {
	return &CompleteSets{markets: markets, currency: currency}
}

// Buy locks amount of collateral from who and mints amount of every outcome
func (c *CompleteSets) Buy(who common.Address, id ID, amount *uint256.Int) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	m, err := c.markets.Market(id)
	if err != nil {
		return err
	}
	if m.Status != Active {
		return fmt.Errorf("%w: %d is %s", ErrMarketNotActive, id, m.Status)
	}
	free, err := c.currency.FreeBalance(m.BaseAsset, who)
	if err != nil {
		return err
	}
	if free.Lt(amount) {
		return fmt.Errorf("%w: %s < %s", ErrNotEnoughBalance, free, amount)
	}
	if err := c.currency.Transfer(m.BaseAsset, who, ReserveAccount(id), amount); err != nil {
		return err
	}
	for _, asset := range m.OutcomeAssets() {
		if err := c.currency.Deposit(asset, who, amount); err != nil {
			return err
		}
	}
	return nil
}

// Sell burns amount of every outcome held by who and releases the collateral
func (c *CompleteSets) Sell(who common.Address, id ID, amount *uint256.Int) error {
	if amount.IsZero() {
		return ErrZeroAmount
	}
	m, err := c.markets.Market(id)
	if err != nil {
		return err
	}
	if m.Status != Active {
		return fmt.Errorf("%w: %d is %s", ErrMarketNotActive, id, m.Status)
	}
	assets := m.OutcomeAssets()
	for _, asset := range assets {
		free, err := c.currency.FreeBalance(asset, who)
		if err != nil {
			return err
		}
		if free.Lt(amount) {
			return fmt.Errorf("%w: %s", ErrInsufficientShares, asset)
		}
	}
	for _, asset := range assets {
		if err := c.currency.Withdraw(asset, who, amount); err != nil {
			return err
		}
	}
	return c.currency.Transfer(m.BaseAsset, ReserveAccount(id), who, amount)
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package combinatorial splits and merges positions over the outcomes of
// several markets. A position is collateral conditioned on a collection of
// index sets, one per market, and is tracked by the ledger as a
// CombinatorialToken asset.
package combinatorial

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/neoswaps/market"
)

// AccountID holds the collateral locked by first level splits
var AccountID = common.BytesToAddress(func() []byte {
	id := hashTuple([]byte("combinatorial/reserve"))
	return id[:common.AddressLength]
}())

// Tokens implements split and merge of combinatorial positions
type Tokens struct {
	markets  market.Commons
	currency market.Currency
	fuel     uint32
	log      log.Logger
}

// New returns combinatorial token operations. A fuel of zero selects
// DefaultFuel.
func New(markets market.Commons, currency market.Currency, fuel uint32, logger log.Logger) *Tokens {
	if fuel == 0 {
		fuel = DefaultFuel
	}
	return &Tokens{
		markets:  markets,
		currency: currency,
		fuel:     fuel,
		log:      logger,
	}
}

// freeIndexSet returns the outcomes of the market not covered by the
// partition. Every index set must be non-trivial and disjoint from the
// others.
func (t *Tokens) freeIndexSet(m *market.Market, partition [][]bool) ([]bool, error) {
	count := int(m.Outcomes())
	free := make([]bool, count)
	for i := range free {
		free[i] = true
	}
	if len(partition) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidPartition)
	}
	for _, indexSet := range partition {
		if len(indexSet) != count {
			return nil, fmt.Errorf("%w: index set of length %d for %d outcomes", ErrInvalidPartition, len(indexSet), count)
		}
		ones := 0
		for _, v := range indexSet {
			if v {
				ones++
			}
		}
		if ones == 0 || ones >= count {
			return nil, fmt.Errorf("%w: trivial index set", ErrInvalidPartition)
		}
		for i, v := range indexSet {
			if !v {
				continue
			}
			if !free[i] {
				return nil, fmt.Errorf("%w: overlap at outcome %d", ErrInvalidPartition, i)
			}
			free[i] = false
		}
	}
	return free, nil
}

func anyTrue(set []bool) bool {
	for _, v := range set {
		if v {
			return true
		}
	}
	return false
}

func complement(set []bool) []bool {
	out := make([]bool, len(set))
	for i, v := range set {
		out[i] = !v
	}
	return out
}

// Position returns the token of the collection parent conditioned on
// indexSet of the market
func (t *Tokens) Position(parent *ID, id market.ID, indexSet []bool) (market.Asset, error) {
	m, err := t.markets.Market(id)
	if err != nil {
		return market.Asset{}, err
	}
	return t.position(m, parent, indexSet)
}

func (t *Tokens) position(m *market.Market, parent *ID, indexSet []bool) (market.Asset, error) {
	collection, err := CollectionID(parent, m.ID, indexSet, t.fuel)
	if err != nil {
		return market.Asset{}, err
	}
	return market.CombinatorialToken(PositionID(m.BaseAsset, collection)), nil
}

func (t *Tokens) partitionPositions(m *market.Market, parent *ID, partition [][]bool) ([]market.Asset, error) {
	positions := make([]market.Asset, len(partition))
	for i, indexSet := range partition {
		p, err := t.position(m, parent, indexSet)
		if err != nil {
			return nil, err
		}
		positions[i] = p
	}
	return positions, nil
}

// SplitPosition burns amount of the position being split and mints amount
// of every position of the partition. A partition covering every outcome
// splits vertically: the parent position, or collateral at the root. A
// partition covering a subset splits horizontally: the position of the
// covered outcomes.
func (t *Tokens) SplitPosition(who common.Address, parent *ID, id market.ID, partition [][]bool, amount *uint256.Int) error {
	m, err := t.markets.Market(id)
	if err != nil {
		return err
	}
	free, err := t.freeIndexSet(m, partition)
	if err != nil {
		return err
	}
	positions, err := t.partitionPositions(m, parent, partition)
	if err != nil {
		return err
	}

	switch {
	case anyTrue(free):
		source, err := t.position(m, parent, complement(free))
		if err != nil {
			return err
		}
		if err := t.currency.Withdraw(source, who, amount); err != nil {
			return err
		}
	case parent != nil:
		source := market.CombinatorialToken(PositionID(m.BaseAsset, *parent))
		if err := t.currency.Withdraw(source, who, amount); err != nil {
			return err
		}
	default:
		if err := t.currency.Transfer(m.BaseAsset, who, AccountID, amount); err != nil {
			return err
		}
	}

	for _, p := range positions {
		if err := t.currency.Deposit(p, who, amount); err != nil {
			return err
		}
	}
	t.log.Debug("token split", "who", who, "market", id, "parts", len(partition), "amount", amount)
	return nil
}

// MergePosition is the inverse of SplitPosition
func (t *Tokens) MergePosition(who common.Address, parent *ID, id market.ID, partition [][]bool, amount *uint256.Int) error {
	m, err := t.markets.Market(id)
	if err != nil {
		return err
	}
	free, err := t.freeIndexSet(m, partition)
	if err != nil {
		return err
	}
	positions, err := t.partitionPositions(m, parent, partition)
	if err != nil {
		return err
	}
	for _, p := range positions {
		if err := t.currency.Withdraw(p, who, amount); err != nil {
			return err
		}
	}

	switch {
	case anyTrue(free):
		target, err := t.position(m, parent, complement(free))
		if err != nil {
			return err
		}
		if err := t.currency.Deposit(target, who, amount); err != nil {
			return err
		}
	case parent != nil:
		target := market.CombinatorialToken(PositionID(m.BaseAsset, *parent))
		if err := t.currency.Deposit(target, who, amount); err != nil {
			return err
		}
	default:
		if err := t.currency.Transfer(m.BaseAsset, AccountID, who, amount); err != nil {
			return err
		}
	}
	t.log.Debug("token merged", "who", who, "market", id, "parts", len(partition), "amount", amount)
	return nil
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package combinatorial

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/market"
)

// singletons is the partition of n outcomes into one-element index sets
func singletons(n uint16) [][]bool {
	partition := make([][]bool, n)
	for i := range partition {
		partition[i] = make([]bool, n)
		partition[i][i] = true
	}
	return partition
}

func (t *Tokens) loadMarkets(ids []market.ID) ([]*market.Market, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no markets", ErrInvalidPartition)
	}
	markets := make([]*market.Market, len(ids))
	for i, id := range ids {
		m, err := t.markets.Market(id)
		if err != nil {
			return nil, err
		}
		if i > 0 && m.BaseAsset != markets[0].BaseAsset {
			return nil, fmt.Errorf("%w: market %d", market.ErrInvalidBaseAsset, id)
		}
		markets[i] = m
	}
	return markets, nil
}

// Atoms returns the finest positions over the markets: one token per
// combination of a single outcome of every market. The first market varies
// slowest.
func (t *Tokens) Atoms(ids []market.ID) ([]market.Asset, error) {
	markets, err := t.loadMarkets(ids)
	if err != nil {
		return nil, err
	}
	var atoms []market.Asset
	var walk func(parent *ID, depth int) error
	walk = func(parent *ID, depth int) error {
		m := markets[depth]
		for _, indexSet := range singletons(m.Outcomes()) {
			collection, err := CollectionID(parent, m.ID, indexSet, t.fuel)
			if err != nil {
				return err
			}
			if depth == len(markets)-1 {
				atoms = append(atoms, market.CombinatorialToken(PositionID(m.BaseAsset, collection)))
				continue
			}
			if err := walk(&collection, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(nil, 0); err != nil {
		return nil, err
	}
	return atoms, nil
}

// SplitAll turns amount of collateral into amount of every atom
func (t *Tokens) SplitAll(who common.Address, ids []market.ID, amount *uint256.Int) error {
	markets, err := t.loadMarkets(ids)
	if err != nil {
		return err
	}
	var walk func(parent *ID, depth int) error
	walk = func(parent *ID, depth int) error {
		m := markets[depth]
		partition := singletons(m.Outcomes())
		if err := t.SplitPosition(who, parent, m.ID, partition, amount); err != nil {
			return err
		}
		if depth == len(markets)-1 {
			return nil
		}
		for _, indexSet := range partition {
			collection, err := CollectionID(parent, m.ID, indexSet, t.fuel)
			if err != nil {
				return err
			}
			if err := walk(&collection, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(nil, 0)
}

// MergeAll turns amount of every atom back into amount of collateral
func (t *Tokens) MergeAll(who common.Address, ids []market.ID, amount *uint256.Int) error {
	markets, err := t.loadMarkets(ids)
	if err != nil {
		return err
	}
	var walk func(parent *ID, depth int) error
	walk = func(parent *ID, depth int) error {
		m := markets[depth]
		partition := singletons(m.Outcomes())
		if depth < len(markets)-1 {
			for _, indexSet := range partition {
				collection, err := CollectionID(parent, m.ID, indexSet, t.fuel)
				if err != nil {
					return err
				}
				if err := walk(&collection, depth+1); err != nil {
					return err
				}
			}
		}
		return t.MergePosition(who, parent, m.ID, partition, amount)
	}
	return walk(nil, 0)
}

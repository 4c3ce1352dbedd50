// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"

	"github.com/luxfi/neoswaps/lmsr"
	"github.com/luxfi/neoswaps/market"
)

// ============================================================================
// Queries
// ============================================================================

// Pool returns a copy of the pool
func (m *Module) Pool(db database.Database, poolID PoolID) (*Pool, error) {
	var pool *Pool
	err := m.read(db, func(s *state) error {
		var err error
		pool, err = s.pools.get(poolID)
		return err
	})
	return pool, err
}

// PoolByMarkets returns the pool trading exactly the given markets, in order
func (m *Module) PoolByMarkets(db database.Database, marketIDs []market.ID) (*Pool, error) {
	var pool *Pool
	err := m.read(db, func(s *state) error {
		id, ok, err := s.pools.lookup(marketIDs)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: markets %v", ErrPoolNotFound, marketIDs)
		}
		pool, err = s.pools.get(id)
		return err
	})
	return pool, err
}

// PoolStatus returns Active iff every market of the pool is active
func (m *Module) PoolStatus(db database.Database, poolID PoolID) (PoolStatus, error) {
	status := PoolClosed
	err := m.read(db, func(s *state) error {
		pool, err := s.pools.get(poolID)
		if err != nil {
			return err
		}
		status, err = s.poolStatus(pool)
		return err
	})
	return status, err
}

// SpotPrice returns the price of asset in the pool
func (m *Module) SpotPrice(db database.Database, poolID PoolID, asset market.Asset) (*uint256.Int, error) {
	pool, err := m.Pool(db, poolID)
	if err != nil {
		return nil, err
	}
	return pool.SpotPrice(asset)
}

// BuyAmountUntil returns the collateral, before fees, that raises the price
// of asset to until
func (m *Module) BuyAmountUntil(db database.Database, poolID PoolID, asset market.Asset, until *uint256.Int) (*uint256.Int, error) {
	pool, err := m.Pool(db, poolID)
	if err != nil {
		return nil, err
	}
	price, err := pool.SpotPrice(asset)
	if err != nil {
		return nil, err
	}
	amount, err := lmsr.CalculateBuyAmountUntil(until, pool.LiquidityParameter, price)
	return amount, mathError(err)
}

// SellAmountUntil returns the amount of asset whose sale lowers its price to
// until
func (m *Module) SellAmountUntil(db database.Database, poolID PoolID, asset market.Asset, until *uint256.Int) (*uint256.Int, error) {
	pool, err := m.Pool(db, poolID)
	if err != nil {
		return nil, err
	}
	price, err := pool.SpotPrice(asset)
	if err != nil {
		return nil, err
	}
	amount, err := lmsr.CalculateSellAmountUntil(until, pool.LiquidityParameter, price)
	return amount, mathError(err)
}

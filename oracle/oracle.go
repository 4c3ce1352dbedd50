// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/database"

	"github.com/luxfi/neoswaps/market"
	"github.com/luxfi/neoswaps/neoswaps"
)

// Pools reads pools from state
type Pools interface {
	Pool(db database.Database, poolID neoswaps.PoolID) (*neoswaps.Pool, error)
}

var _ Pools = (*neoswaps.Module)(nil)

// DecisionMarketOracle compares the prices of two outcomes of one pool
type DecisionMarketOracle struct {
	PoolID          neoswaps.PoolID
	PositiveOutcome market.Asset
	NegativeOutcome market.Asset
}

// prices returns the current positive and negative outcome prices
func (o DecisionMarketOracle) prices(db database.Database, pools Pools) (positive, negative *uint256.Int, err error) {
	pool, err := pools.Pool(db, o.PoolID)
	if err != nil {
		return nil, nil, err
	}
	if positive, err = pool.SpotPrice(o.PositiveOutcome); err != nil {
		return nil, nil, err
	}
	if negative, err = pool.SpotPrice(o.NegativeOutcome); err != nil {
		return nil, nil, err
	}
	return positive, negative, nil
}

// Evaluate reports whether the positive outcome is priced above the
// negative outcome. A missing pool or asset evaluates to false.
func (o DecisionMarketOracle) Evaluate(db database.Database, pools Pools) bool {
	positive, negative, err := o.prices(db, pools)
	if err != nil {
		return false
	}
	return positive.Gt(negative)
}

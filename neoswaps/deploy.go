// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/liquidity"
	"github.com/luxfi/neoswaps/lmsr"
	"github.com/luxfi/neoswaps/market"
)

// ============================================================================
// Deployment
// ============================================================================

// deployment is a validated pool proposal
type deployment struct {
	who        common.Address
	kind       PoolKind
	marketIDs  []market.ID
	collateral market.Asset
	assets     []market.Asset
	amount     *uint256.Int
	spotPrices []*uint256.Int
	swapFee    *uint256.Int
}

// DeployPool creates a pool for a single market. Only the market creator may
// deploy it. The creator buys amount complete sets, seeds the pool with the
// reserves matching spotPrices and keeps the remaining outcomes.
func (m *Module) DeployPool(
	db database.Database,
	who common.Address,
	marketID market.ID,
	amount *uint256.Int,
	spotPrices []*uint256.Int,
	swapFee *uint256.Int,
) (PoolID, error) {
	var id PoolID
	err := m.atomic(db, func(s *state) error {
		ids := []market.ID{marketID}
		if err := s.ensureNoPool(ids); err != nil {
			return err
		}
		mkt, err := s.markets.Market(marketID)
		if err != nil {
			return err
		}
		if mkt.Creator != who {
			return fmt.Errorf("%w: only the creator of market %d may deploy", ErrNotAllowed, marketID)
		}
		if err := checkTradable(mkt); err != nil {
			return err
		}
		assets := mkt.OutcomeAssets()
		if len(spotPrices) != len(assets) {
			return fmt.Errorf("%w: %d spot prices for %d outcomes", ErrIncorrectVecLen, len(spotPrices), len(assets))
		}
		id, err = m.deploy(s, &deployment{
			who:        who,
			kind:       Standard,
			marketIDs:  ids,
			collateral: mkt.BaseAsset,
			assets:     assets,
			amount:     amount,
			spotPrices: spotPrices,
			swapFee:    swapFee,
		})
		return err
	})
	return id, err
}

// DeployCombinatorialPool creates a pool trading every combination of one
// outcome per market. assetCount must equal the product of the outcome
// counts. Anyone may deploy.
func (m *Module) DeployCombinatorialPool(
	db database.Database,
	who common.Address,
	assetCount uint16,
	marketIDs []market.ID,
	amount *uint256.Int,
	spotPrices []*uint256.Int,
	swapFee *uint256.Int,
) (PoolID, error) {
	var id PoolID
	err := m.atomic(db, func(s *state) error {
		if len(marketIDs) == 0 {
			return fmt.Errorf("%w: no markets", ErrIncorrectAssetCount)
		}
		if err := s.ensureNoPool(marketIDs); err != nil {
			return err
		}
		var (
			collateral market.Asset
			product    uint64 = 1
			splits     uint64
			seen       = make(map[market.ID]struct{}, len(marketIDs))
		)
		for i, marketID := range marketIDs {
			if _, ok := seen[marketID]; ok {
				return fmt.Errorf("%w: market %d listed twice", ErrNotAllowed, marketID)
			}
			seen[marketID] = struct{}{}
			mkt, err := s.markets.Market(marketID)
			if err != nil {
				return err
			}
			if err := checkTradable(mkt); err != nil {
				return err
			}
			if i == 0 {
				collateral = mkt.BaseAsset
			} else if mkt.BaseAsset != collateral {
				return fmt.Errorf("%w: market %d", market.ErrInvalidBaseAsset, marketID)
			}
			// Every collection of the previous markets is split once more.
			splits = saturatingAdd(splits, product)
			product = saturatingMul(product, uint64(mkt.Outcomes()))
		}
		if product != uint64(assetCount) {
			return fmt.Errorf("%w: %d outcome combinations, expected %d", ErrIncorrectAssetCount, product, assetCount)
		}
		if splits > uint64(m.config.MaxSplits) {
			return fmt.Errorf("%w: %d > %d", ErrMaxSplitsExceeded, splits, m.config.MaxSplits)
		}
		if len(spotPrices) != int(assetCount) {
			return fmt.Errorf("%w: %d spot prices for %d assets", ErrIncorrectVecLen, len(spotPrices), assetCount)
		}
		assets, err := s.tokens.Atoms(marketIDs)
		if err != nil {
			return err
		}
		id, err = m.deploy(s, &deployment{
			who:        who,
			kind:       Combinatorial,
			marketIDs:  append([]market.ID(nil), marketIDs...),
			collateral: collateral,
			assets:     assets,
			amount:     amount,
			spotPrices: spotPrices,
			swapFee:    swapFee,
		})
		return err
	})
	return id, err
}

func (s *state) ensureNoPool(ids []market.ID) error {
	existing, ok, err := s.pools.lookup(ids)
	if err != nil {
		return err
	}
	if ok {
		return fmt.Errorf("%w: pool %d", ErrDuplicatePool, existing)
	}
	return nil
}

// checkTradable requires an active market whose scoring rule allows pools
func checkTradable(mkt *market.Market) error {
	if mkt.Status != market.Active {
		return fmt.Errorf("%w: market %d is %s", ErrMarketNotActive, mkt.ID, mkt.Status)
	}
	if !mkt.ScoringRule.TradesOnPools() {
		return fmt.Errorf("%w: market %d", ErrInvalidTradingMechanism, mkt.ID)
	}
	return nil
}

// deploy validates the economics of d and funds the pool
func (m *Module) deploy(s *state, d *deployment) (PoolID, error) {
	if len(d.assets) > MaxAssets {
		return 0, fmt.Errorf("%w: %d", ErrAssetCountAboveMax, len(d.assets))
	}
	if d.swapFee.Lt(fixed.New(MinSwapFee)) {
		return 0, fmt.Errorf("%w: %s", ErrSwapFeeBelowMin, d.swapFee)
	}
	if d.swapFee.Gt(fixed.New(m.config.MaxSwapFee)) {
		return 0, fmt.Errorf("%w: %s", ErrSwapFeeAboveMax, d.swapFee)
	}
	total := fixed.Zero()
	for _, p := range d.spotPrices {
		total = fixed.SaturatingAdd(total, p)
	}
	if !total.Eq(fixed.One()) {
		return 0, fmt.Errorf("%w: sum %s", ErrInvalidSpotPrices, total)
	}
	for _, p := range d.spotPrices {
		if p.Lt(fixed.New(MinSpotPrice)) {
			return 0, fmt.Errorf("%w: %s", ErrSpotPriceBelowMin, p)
		}
		if p.Gt(fixed.New(MaxSpotPrice)) {
			return 0, fmt.Errorf("%w: %s", ErrSpotPriceAboveMax, p)
		}
	}
	b, reserves, err := lmsr.CalculateReservesFromSpotPrices(d.amount, d.spotPrices)
	if err != nil {
		return 0, mathError(err)
	}
	if b.Lt(fixed.New(MinLiquidity)) {
		return 0, fmt.Errorf("%w: %s", ErrLiquidityTooLow, b)
	}

	id, err := s.pools.nextID()
	if err != nil {
		return 0, err
	}
	account := PoolAccountID(id)
	switch d.kind {
	case Combinatorial:
		err = s.tokens.SplitAll(d.who, d.marketIDs, d.amount)
	default:
		err = s.sets.Buy(d.who, d.marketIDs[0], d.amount)
	}
	if err != nil {
		return 0, err
	}
	for i, asset := range d.assets {
		if err := s.ledger.Transfer(asset, d.who, account, reserves[i]); err != nil {
			return 0, err
		}
	}
	tree, err := liquidity.New(m.config.treeConfig(), d.who, d.amount)
	if err != nil {
		return 0, treeError(err)
	}
	// The pool account keeps a collateral buffer so that it never drops
	// below the existential deposit while paying out fees.
	buffer := s.ledger.MinimumBalance(d.collateral)
	if err := s.ledger.Transfer(d.collateral, d.who, account, buffer); err != nil {
		return 0, err
	}

	pool := &Pool{
		ID:                 id,
		AccountID:          account,
		Assets:             d.assets,
		Reserves:           reserves,
		Collateral:         d.collateral,
		LiquidityParameter: b,
		Tree:               tree,
		SwapFee:            new(uint256.Int).Set(d.swapFee),
		Type:               PoolType{Kind: d.kind, MarketIDs: d.marketIDs},
	}
	if err := s.pools.insert(pool); err != nil {
		return 0, err
	}
	s.emit(&PoolDeployed{
		Who:                d.who,
		PoolID:             id,
		MarketIDs:          pool.MarketIDs(),
		AccountID:          account,
		Assets:             append([]market.Asset(nil), pool.Assets...),
		Reserves:           cloneAll(pool.Reserves),
		Collateral:         pool.Collateral,
		LiquidityParameter: new(uint256.Int).Set(b),
		PoolSharesAmount:   new(uint256.Int).Set(d.amount),
		SwapFee:            new(uint256.Int).Set(d.swapFee),
	})
	return id, nil
}

func cloneAll(values []*uint256.Int) []*uint256.Int {
	out := make([]*uint256.Int, len(values))
	for i, v := range values {
		out[i] = new(uint256.Int).Set(v)
	}
	return out
}

func saturatingAdd(a, b uint64) uint64 {
	if c := a + b; c >= a {
		return c
	}
	return ^uint64(0)
}

func saturatingMul(a, b uint64) uint64 {
	if a == 0 || b == 0 {
		return 0
	}
	if c := a * b; c/b == a {
		return c
	}
	return ^uint64(0)
}

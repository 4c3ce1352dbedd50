// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/neoswaps/currency"
	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

// ExternalFees charges fees on top of the swap fee. Distribute moves the fee
// on amount out of account and returns what it actually moved. It never
// fails: any problem distributes nothing.
type ExternalFees interface {
	Distribute(
		markets market.Commons,
		ledger currency.MultiCurrency,
		marketID market.ID,
		asset market.Asset,
		account common.Address,
		amount *uint256.Int,
	) *uint256.Int
}

var (
	_ ExternalFees = NoExternalFees{}
	_ ExternalFees = (*MarketCreatorFee)(nil)
)

// NoExternalFees charges nothing
type NoExternalFees struct{}

func (NoExternalFees) Distribute(market.Commons, currency.MultiCurrency, market.ID, market.Asset, common.Address, *uint256.Int) *uint256.Int {
	return fixed.Zero()
}

// MarketCreatorFee pays the market creator their fee on every trade
type MarketCreatorFee struct {
	log log.Logger
}

// NewMarketCreatorFee returns the creator fee distributor
func NewMarketCreatorFee(logger log.Logger) *MarketCreatorFee {
	return &MarketCreatorFee{log: logger}
}

// Fee returns creatorFee (parts per billion) of amount, rounded down
func (*MarketCreatorFee) Fee(creatorFee uint32, amount *uint256.Int) (*uint256.Int, error) {
	return fixed.BmulBdivFloor(amount, fixed.New(uint64(creatorFee)), fixed.New(market.PerBillion))
}

func (f *MarketCreatorFee) Distribute(
	markets market.Commons,
	ledger currency.MultiCurrency,
	marketID market.ID,
	asset market.Asset,
	account common.Address,
	amount *uint256.Int,
) *uint256.Int {
	m, err := markets.Market(marketID)
	if err != nil {
		f.log.Debug("creator fee skipped", "market", marketID, "err", err)
		return fixed.Zero()
	}
	fee, err := f.Fee(m.CreatorFee, amount)
	if err != nil || fee.IsZero() {
		return fixed.Zero()
	}
	if err := ledger.Transfer(asset, account, m.Creator, fee); err != nil {
		f.log.Debug("creator fee skipped", "market", marketID, "fee", fee, "err", err)
		return fixed.Zero()
	}
	return fee
}

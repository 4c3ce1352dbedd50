// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"

	"github.com/luxfi/neoswaps/market"
)

// Event is emitted after an operation commits
type Event interface {
	Name() string
	Fields() []interface{}
}

// EventSink receives committed events in order
type EventSink interface {
	Emit(Event)
}

// LogSink writes events to a logger
type LogSink struct {
	Log log.Logger
}

func (s LogSink) Emit(e Event) {
	s.Log.Info(e.Name(), e.Fields()...)
}

type BuyExecuted struct {
	Who               common.Address
	PoolID            PoolID
	AssetOut          market.Asset
	AmountIn          *uint256.Int
	AmountOut         *uint256.Int
	SwapFeeAmount     *uint256.Int
	ExternalFeeAmount *uint256.Int
}

func (e *BuyExecuted) Name() string { return "BuyExecuted" }

func (e *BuyExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "assetOut", e.AssetOut,
		"amountIn", e.AmountIn, "amountOut", e.AmountOut,
		"swapFee", e.SwapFeeAmount, "externalFee", e.ExternalFeeAmount,
	}
}

type SellExecuted struct {
	Who               common.Address
	PoolID            PoolID
	AssetIn           market.Asset
	AmountIn          *uint256.Int
	AmountOut         *uint256.Int
	SwapFeeAmount     *uint256.Int
	ExternalFeeAmount *uint256.Int
}

func (e *SellExecuted) Name() string { return "SellExecuted" }

func (e *SellExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "assetIn", e.AssetIn,
		"amountIn", e.AmountIn, "amountOut", e.AmountOut,
		"swapFee", e.SwapFeeAmount, "externalFee", e.ExternalFeeAmount,
	}
}

type ComboBuyExecuted struct {
	Who               common.Address
	PoolID            PoolID
	Buy               []market.Asset
	Sell              []market.Asset
	AmountIn          *uint256.Int
	AmountOut         *uint256.Int
	SwapFeeAmount     *uint256.Int
	ExternalFeeAmount *uint256.Int
}

func (e *ComboBuyExecuted) Name() string { return "ComboBuyExecuted" }

func (e *ComboBuyExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "buy", len(e.Buy), "sell", len(e.Sell),
		"amountIn", e.AmountIn, "amountOut", e.AmountOut,
		"swapFee", e.SwapFeeAmount, "externalFee", e.ExternalFeeAmount,
	}
}

type ComboSellExecuted struct {
	Who               common.Address
	PoolID            PoolID
	Buy               []market.Asset
	Keep              []market.Asset
	Sell              []market.Asset
	AmountBuy         *uint256.Int
	AmountKeep        *uint256.Int
	AmountOut         *uint256.Int
	SwapFeeAmount     *uint256.Int
	ExternalFeeAmount *uint256.Int
}

func (e *ComboSellExecuted) Name() string { return "ComboSellExecuted" }

func (e *ComboSellExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "buy", len(e.Buy), "keep", len(e.Keep), "sell", len(e.Sell),
		"amountBuy", e.AmountBuy, "amountKeep", e.AmountKeep, "amountOut", e.AmountOut,
		"swapFee", e.SwapFeeAmount, "externalFee", e.ExternalFeeAmount,
	}
}

type JoinExecuted struct {
	Who                   common.Address
	PoolID                PoolID
	PoolSharesAmount      *uint256.Int
	AmountsIn             []*uint256.Int
	NewLiquidityParameter *uint256.Int
}

func (e *JoinExecuted) Name() string { return "JoinExecuted" }

func (e *JoinExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "shares", e.PoolSharesAmount,
		"liquidity", e.NewLiquidityParameter,
	}
}

type ExitExecuted struct {
	Who                   common.Address
	PoolID                PoolID
	PoolSharesAmount      *uint256.Int
	AmountsOut            []*uint256.Int
	NewLiquidityParameter *uint256.Int
}

func (e *ExitExecuted) Name() string { return "ExitExecuted" }

func (e *ExitExecuted) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "shares", e.PoolSharesAmount,
		"liquidity", e.NewLiquidityParameter,
	}
}

type FeesWithdrawn struct {
	Who    common.Address
	PoolID PoolID
	Amount *uint256.Int
}

func (e *FeesWithdrawn) Name() string { return "FeesWithdrawn" }

func (e *FeesWithdrawn) Fields() []interface{} {
	return []interface{}{"who", e.Who, "pool", e.PoolID, "amount", e.Amount}
}

type PoolDeployed struct {
	Who                common.Address
	PoolID             PoolID
	MarketIDs          []market.ID
	AccountID          common.Address
	Assets             []market.Asset
	Reserves           []*uint256.Int
	Collateral         market.Asset
	LiquidityParameter *uint256.Int
	PoolSharesAmount   *uint256.Int
	SwapFee            *uint256.Int
}

func (e *PoolDeployed) Name() string { return "PoolDeployed" }

func (e *PoolDeployed) Fields() []interface{} {
	return []interface{}{
		"who", e.Who, "pool", e.PoolID, "markets", e.MarketIDs, "account", e.AccountID,
		"assets", len(e.Assets), "collateral", e.Collateral,
		"liquidity", e.LiquidityParameter, "shares", e.PoolSharesAmount, "swapFee", e.SwapFee,
	}
}

type PoolDestroyed struct {
	Who              common.Address
	PoolID           PoolID
	PoolSharesAmount *uint256.Int
	AmountsOut       []*uint256.Int
}

func (e *PoolDestroyed) Name() string { return "PoolDestroyed" }

func (e *PoolDestroyed) Fields() []interface{} {
	return []interface{}{"who", e.Who, "pool", e.PoolID, "shares", e.PoolSharesAmount}
}

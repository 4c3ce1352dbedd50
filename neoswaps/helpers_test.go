// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

var (
	alice   = common.Address{19: 1}
	bob     = common.Address{19: 2}
	charlie = common.Address{19: 3}
)

// Test amounts
const (
	_1    = fixed.Base
	_2    = 2 * fixed.Base
	_4    = 4 * fixed.Base
	_10   = 10 * fixed.Base
	_14   = 14 * fixed.Base
	_20   = 20 * fixed.Base
	_100  = 100 * fixed.Base
	_1_2  = fixed.Base / 2
	_1_4  = fixed.Base / 4
	_3_4  = 3 * fixed.Base / 4
	_1_5  = fixed.Base / 5
	_1_6  = fixed.Base / 6
	_5_6  = 5 * fixed.Base / 6
	_1_16 = fixed.Base / 16
	_1_32 = fixed.Base / 32

	cent = fixed.Cent
	// creatorFee is 1% in parts per billion
	creatorFee = 10_000_000
	tolerance  = 10
)

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func us(vs ...uint64) []*uint256.Int {
	out := make([]*uint256.Int, len(vs))
	for i, v := range vs {
		out[i] = u(v)
	}
	return out
}

func requireClose(t *testing.T, want uint64, got *uint256.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, got.IsUint64(), msgAndArgs...)
	require.InDelta(t, float64(want), float64(got.Uint64()), tolerance, msgAndArgs...)
}

// recorder keeps every emitted event
type recorder struct {
	events []Event
}

func (r *recorder) Emit(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) last() Event {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type testEnv struct {
	t      *testing.T
	db     database.Database
	module *Module
	events *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithConfig(t, DefaultConfig())
}

func newTestEnvWithConfig(t *testing.T, config Config) *testEnv {
	return newTestEnvWith(t, config, NewMarketCreatorFee(log.NewTestLogger(log.InfoLevel)))
}

func newTestEnvWithFees(t *testing.T, fees ExternalFees) *testEnv {
	return newTestEnvWith(t, DefaultConfig(), fees)
}

func newTestEnvWith(t *testing.T, config Config, fees ExternalFees) *testEnv {
	logger := log.NewTestLogger(log.InfoLevel)
	events := &recorder{}
	module, err := New(config, fees, events, logger)
	require.NoError(t, err)
	return &testEnv{
		t:      t,
		db:     memdb.New(),
		module: module,
		events: events,
	}
}

func (e *testEnv) createMarketWith(creator common.Address, typ market.Type, rule market.ScoringRule, collateral market.Asset) market.ID {
	id, err := e.module.Markets(e.db).Create(&market.Market{
		Creator:     creator,
		CreatorFee:  creatorFee,
		BaseAsset:   collateral,
		Type:        typ,
		Status:      market.Active,
		ScoringRule: rule,
	})
	require.NoError(e.t, err)
	return id
}

func (e *testEnv) createMarket(typ market.Type) market.ID {
	return e.createMarketWith(alice, typ, market.Lmsr, market.Ztg())
}

func (e *testEnv) setStatus(id market.ID, status market.Status) {
	require.NoError(e.t, e.module.Markets(e.db).SetStatus(id, status))
}

func (e *testEnv) deposit(asset market.Asset, who common.Address, amount uint64) {
	require.NoError(e.t, e.module.Ledger(e.db).Deposit(asset, who, u(amount)))
}

func (e *testEnv) balance(asset market.Asset, who common.Address) *uint256.Int {
	b, err := e.module.Ledger(e.db).FreeBalance(asset, who)
	require.NoError(e.t, err)
	return b
}

func (e *testEnv) buyCompleteSet(who common.Address, id market.ID, amount uint64) {
	e.deposit(market.Ztg(), who, amount)
	markets := e.module.Markets(e.db)
	sets := market.NewCompleteSets(markets, e.module.Ledger(e.db))
	require.NoError(e.t, sets.Buy(who, id, u(amount)))
}

func (e *testEnv) pool(id PoolID) *Pool {
	pool, err := e.module.Pool(e.db, id)
	require.NoError(e.t, err)
	return pool
}

// existentialDeposit is the collateral buffer every pool holds
func (e *testEnv) existentialDeposit() uint64 {
	return e.module.Config().ExistentialDeposit
}

// deployPool creates a market owned by alice and deploys a pool on it
func (e *testEnv) deployPool(typ market.Type, amount uint64, spotPrices []uint64, swapFee uint64) (market.ID, PoolID) {
	id := e.createMarket(typ)
	e.deposit(market.Ztg(), alice, amount+e.existentialDeposit())
	poolID, err := e.module.DeployPool(e.db, alice, id, u(amount), us(spotPrices...), u(swapFee))
	require.NoError(e.t, err)
	return id, poolID
}

// fees returns the swap fee and creator fee charged on amount
func fees(t *testing.T, swapFee, amount uint64) (*uint256.Int, *uint256.Int) {
	swap, err := fixed.Bmul(u(swapFee), u(amount))
	require.NoError(t, err)
	external, err := (&MarketCreatorFee{}).Fee(creatorFee, u(amount))
	require.NoError(t, err)
	return swap, external
}

func sub(a *uint256.Int, bs ...*uint256.Int) *uint256.Int {
	out := new(uint256.Int).Set(a)
	for _, b := range bs {
		out.Sub(out, b)
	}
	return out
}

func add(a *uint256.Int, bs ...*uint256.Int) *uint256.Int {
	out := new(uint256.Int).Set(a)
	for _, b := range bs {
		out.Add(out, b)
	}
	return out
}

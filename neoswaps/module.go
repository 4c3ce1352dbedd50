// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package neoswaps implements LMSR liquidity pools for prediction markets.
//
// Every operation takes the state database explicitly and runs inside a
// versiondb overlay: pools, balances and markets are written to the overlay
// and committed only if the whole operation succeeds. Events are emitted
// after the commit.
package neoswaps

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/versiondb"
	"github.com/luxfi/log"

	"github.com/luxfi/neoswaps/combinatorial"
	"github.com/luxfi/neoswaps/currency"
	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

// Module is the pool state machine
type Module struct {
	config Config
	fees   ExternalFees
	events EventSink
	log    log.Logger
}

// New returns a pool module. A nil fees charges no external fees, a nil
// events logs events to logger.
func New(config Config, fees ExternalFees, events EventSink, logger log.Logger) (*Module, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	if fees == nil {
		fees = NoExternalFees{}
	}
	if events == nil {
		events = LogSink{Log: logger}
	}
	return &Module{
		config: config,
		fees:   fees,
		events: events,
		log:    logger,
	}, nil
}

// Config returns the module configuration
func (m *Module) Config() Config {
	return m.config
}

// Ledger returns the currency ledger the module uses over db
func (m *Module) Ledger(db database.Database) *currency.Ledger {
	ed := fixed.New(m.config.ExistentialDeposit)
	return currency.NewLedger(db, map[market.Asset]*uint256.Int{
		market.Ztg(): ed,
	})
}

// Markets returns the market store the module reads over db
func (m *Module) Markets(db database.Database) *market.Store {
	return market.NewStore(db)
}

// state is the view of one operation over its overlay
type state struct {
	markets *market.Store
	ledger  *currency.Ledger
	sets    *market.CompleteSets
	tokens  *combinatorial.Tokens
	pools   *poolStore
	events  []Event
}

func (m *Module) newState(db database.Database) *state {
	markets := m.Markets(db)
	ledger := m.Ledger(db)
	return &state{
		markets: markets,
		ledger:  ledger,
		sets:    market.NewCompleteSets(markets, ledger),
		tokens:  combinatorial.New(markets, ledger, m.config.Fuel, m.log),
		pools:   newPoolStore(db),
	}
}

func (s *state) emit(e Event) {
	s.events = append(s.events, e)
}

// atomic runs f over a versiondb overlay of db and commits only if f
// succeeds
func (m *Module) atomic(db database.Database, f func(s *state) error) error {
	vdb := versiondb.New(db)
	s := m.newState(vdb)
	if err := f(s); err != nil {
		vdb.Abort()
		return err
	}
	if err := vdb.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	for _, e := range s.events {
		m.events.Emit(e)
	}
	return nil
}

// read runs f over db without writing
func (m *Module) read(db database.Database, f func(s *state) error) error {
	vdb := versiondb.New(db)
	defer vdb.Abort()
	return f(m.newState(vdb))
}

// poolStatus is Active iff every market of the pool is active
func (s *state) poolStatus(pool *Pool) (PoolStatus, error) {
	for _, id := range pool.Type.MarketIDs {
		mkt, err := s.markets.Market(id)
		if err != nil {
			return PoolClosed, err
		}
		if mkt.Status != market.Active {
			return PoolClosed, nil
		}
	}
	return PoolActive, nil
}

// activePool loads a pool whose markets are all active
func (s *state) activePool(id PoolID) (*Pool, error) {
	pool, err := s.pools.get(id)
	if err != nil {
		return nil, err
	}
	status, err := s.poolStatus(pool)
	if err != nil {
		return nil, err
	}
	if status != PoolActive {
		return nil, fmt.Errorf("%w: pool %d", ErrMarketNotActive, id)
	}
	return pool, nil
}

// buyCompleteSet mints amount of every pool asset to the pool account
func (s *state) buyCompleteSet(pool *Pool, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if pool.Type.Kind == Combinatorial {
		return s.tokens.SplitAll(pool.AccountID, pool.Type.MarketIDs, amount)
	}
	return s.sets.Buy(pool.AccountID, pool.Type.MarketIDs[0], amount)
}

// sellCompleteSet burns amount of every pool asset held by the pool account
func (s *state) sellCompleteSet(pool *Pool, amount *uint256.Int) error {
	if amount.IsZero() {
		return nil
	}
	if pool.Type.Kind == Combinatorial {
		return s.tokens.MergeAll(pool.AccountID, pool.Type.MarketIDs, amount)
	}
	return s.sets.Sell(pool.AccountID, pool.Type.MarketIDs[0], amount)
}

// feeDistribution is the split of a gross trade amount
type feeDistribution struct {
	remaining    *uint256.Int
	swapFees     *uint256.Int
	externalFees *uint256.Int
}

// distributeFees deposits the swap fee into the liquidity tree, lets the
// external fees take their share out of the pool account and returns the
// rest
func (m *Module) distributeFees(s *state, pool *Pool, amount *uint256.Int) (*feeDistribution, error) {
	swapFees, err := fixed.Bmul(pool.SwapFee, amount)
	if err != nil {
		return nil, mathError(err)
	}
	if err := pool.Tree.DepositFees(swapFees); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	externalFees := fixed.Zero()
	for _, id := range pool.Type.MarketIDs {
		fee := m.fees.Distribute(s.markets, s.ledger, id, pool.Collateral, pool.AccountID, amount)
		externalFees = fixed.SaturatingAdd(externalFees, fee)
	}
	remaining, err := fixed.CheckedSub(amount, fixed.SaturatingAdd(swapFees, externalFees))
	if err != nil {
		return nil, fmt.Errorf("%w: fees exceed amount", ErrUnexpected)
	}
	return &feeDistribution{
		remaining:    remaining,
		swapFees:     swapFees,
		externalFees: externalFees,
	}, nil
}

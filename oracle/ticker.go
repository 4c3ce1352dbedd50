// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package oracle

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/rlp"
	"github.com/luxfi/log"
)

var (
	ErrOracleNotFound  = errors.New("oracle not found")
	ErrDuplicateOracle = errors.New("duplicate oracle")

	storePrefix = []byte("oracle")
	indexKey    = []byte("index")
	entryPrefix = []byte("entry")
)

// entry is the persisted state of one registered oracle
type entry struct {
	Oracle     DecisionMarketOracle
	Scoreboard Scoreboard
}

// Ticker updates the scoreboards of all registered oracles once per block.
// Registered oracles are stored in the state database next to the pools.
type Ticker struct {
	pools Pools
	log   log.Logger

	// serializes ticks and registrations on the same database
	lock sync.Mutex
}

// NewTicker returns a ticker reading prices from pools
func NewTicker(pools Pools, logger log.Logger) *Ticker {
	return &Ticker{
		pools: pools,
		log:   logger,
	}
}

func entryKey(id uint64) []byte {
	key := make([]byte, len(entryPrefix)+8)
	copy(key, entryPrefix)
	binary.BigEndian.PutUint64(key[len(entryPrefix):], id)
	return key
}

func (t *Ticker) ids(db database.Database) ([]uint64, error) {
	data, err := db.Get(indexKey)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []uint64
	if err := rlp.DecodeBytes(data, &ids); err != nil {
		return nil, fmt.Errorf("oracle index: %w", err)
	}
	return ids, nil
}

func (t *Ticker) get(db database.Database, id uint64) (*entry, error) {
	data, err := db.Get(entryKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrOracleNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	e := new(entry)
	if err := rlp.DecodeBytes(data, e); err != nil {
		return nil, fmt.Errorf("oracle %d: %w", id, err)
	}
	return e, nil
}

func (t *Ticker) put(db database.Database, id uint64, e *entry) error {
	data, err := rlp.EncodeToBytes(e)
	if err != nil {
		return err
	}
	return db.Put(entryKey(id), data)
}

// Register starts tracking oracle under id with the given scoreboard
func (t *Ticker) Register(db database.Database, id uint64, oracle DecisionMarketOracle, scoreboard *Scoreboard) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	db = prefixdb.New(storePrefix, db)
	ids, err := t.ids(db)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return fmt.Errorf("%w: %d", ErrDuplicateOracle, id)
		}
	}
	if err := t.put(db, id, &entry{Oracle: oracle, Scoreboard: *scoreboard}); err != nil {
		return err
	}
	data, err := rlp.EncodeToBytes(append(ids, id))
	if err != nil {
		return err
	}
	return db.Put(indexKey, data)
}

// Tick records block now on every scoreboard. An oracle whose prices
// cannot be read scores a point for the negative outcome.
func (t *Ticker) Tick(db database.Database, now uint64) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	store := prefixdb.New(storePrefix, db)
	ids, err := t.ids(store)
	if err != nil {
		return err
	}
	for _, id := range ids {
		e, err := t.get(store, id)
		if err != nil {
			return err
		}
		positive, negative, err := e.Oracle.prices(db, t.pools)
		if err != nil {
			t.log.Debug("skipping oracle update",
				"oracle", id,
				"pool", e.Oracle.PoolID,
				"block", now,
				"err", err,
			)
			e.Scoreboard.SkipUpdate(now)
		} else {
			e.Scoreboard.Update(now, positive, negative)
		}
		if err := t.put(store, id, e); err != nil {
			return err
		}
	}
	return nil
}

// Scoreboard returns the scoreboard of oracle id
func (t *Ticker) Scoreboard(db database.Database, id uint64) (*Scoreboard, error) {
	e, err := t.get(prefixdb.New(storePrefix, db), id)
	if err != nil {
		return nil, err
	}
	return &e.Scoreboard, nil
}

// Evaluate reports whether the proposal behind oracle id passes
func (t *Ticker) Evaluate(db database.Database, id uint64) (bool, error) {
	scoreboard, err := t.Scoreboard(db, id)
	if err != nil {
		return false, err
	}
	passed := scoreboard.Evaluate()
	t.log.Info("oracle evaluated",
		"oracle", id,
		"pass", scoreboard.PassScore,
		"reject", scoreboard.RejectScore,
		"passed", passed,
	)
	return passed, nil
}

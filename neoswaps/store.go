// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/rlp"
	"github.com/zeebo/blake3"

	"github.com/luxfi/neoswaps/market"
)

// Storage key prefixes for pool state
var (
	storePrefix      = []byte("neoswaps")
	poolPrefix       = []byte("pool")
	marketsPrefix    = []byte("mkts")
	poolCounterKey   = []byte("next")
	errCorruptRecord = errors.New("corrupt pool record")
)

// poolStore persists pools by id and indexes them by their market set
type poolStore struct {
	db database.Database
}

func newPoolStore(db database.Database) *poolStore {
	return &poolStore{db: prefixdb.New(storePrefix, db)}
}

func poolKey(id PoolID) []byte {
	key := make([]byte, len(poolPrefix)+8)
	copy(key, poolPrefix)
	binary.BigEndian.PutUint64(key[len(poolPrefix):], uint64(id))
	return key
}

// marketsKey hashes the ordered market list so that each list backs at
// most one pool
func marketsKey(ids []market.ID) []byte {
	h := blake3.New()
	h.Write(marketsPrefix)
	var buf [8]byte
	for _, id := range ids {
		binary.BigEndian.PutUint64(buf[:], uint64(id))
		h.Write(buf[:])
	}
	key := make([]byte, 32)
	h.Digest().Read(key)
	return key
}

func (s *poolStore) get(id PoolID) (*Pool, error) {
	data, err := s.db.Get(poolKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrPoolNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	pool := new(Pool)
	if err := rlp.DecodeBytes(data, pool); err != nil {
		return nil, fmt.Errorf("%w: %d: %v", errCorruptRecord, id, err)
	}
	return pool, nil
}

func (s *poolStore) put(pool *Pool) error {
	data, err := rlp.EncodeToBytes(pool)
	if err != nil {
		return err
	}
	return s.db.Put(poolKey(pool.ID), data)
}

func (s *poolStore) delete(pool *Pool) error {
	if err := s.db.Delete(marketsKey(pool.Type.MarketIDs)); err != nil {
		return err
	}
	return s.db.Delete(poolKey(pool.ID))
}

// lookup returns the pool trading exactly the given markets
func (s *poolStore) lookup(ids []market.ID) (PoolID, bool, error) {
	data, err := s.db.Get(marketsKey(ids))
	if errors.Is(err, database.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("%w: index length %d", errCorruptRecord, len(data))
	}
	return PoolID(binary.BigEndian.Uint64(data)), true, nil
}

// insert stores a pool created with the id returned by nextID together
// with its index entry and advances the counter
func (s *poolStore) insert(pool *Pool) error {
	if err := s.put(pool); err != nil {
		return err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(pool.ID))
	if err := s.db.Put(marketsKey(pool.Type.MarketIDs), buf[:]); err != nil {
		return err
	}
	binary.BigEndian.PutUint64(buf[:], uint64(pool.ID)+1)
	return s.db.Put(poolCounterKey, buf[:])
}

// nextID returns the id the next inserted pool receives
func (s *poolStore) nextID() (PoolID, error) {
	data, err := s.db.Get(poolCounterKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: counter length %d", errCorruptRecord, len(data))
	}
	return PoolID(binary.BigEndian.Uint64(data)), nil
}

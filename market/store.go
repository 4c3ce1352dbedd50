// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/rlp"
)

var _ Commons = (*Store)(nil)

var (
	storePrefix  = []byte("market")
	recordPrefix = []byte("mrec")
	counterKey   = []byte("next")
)

// Store persists markets under the "market" prefix of a database
type Store struct {
	db database.Database
}

// NewStore returns a store over db
func NewStore(db database.Database) *Store {
	return &Store{db: prefixdb.New(storePrefix, db)}
}

func recordKey(id ID) []byte {
	key := make([]byte, len(recordPrefix)+8)
	copy(key, recordPrefix)
	binary.BigEndian.PutUint64(key[len(recordPrefix):], uint64(id))
	return key
}

// Market returns the market with the given id
func (s *Store) Market(id ID) (*Market, error) {
	data, err := s.db.Get(recordKey(id))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrMarketDoesNotExist, id)
	}
	if err != nil {
		return nil, err
	}
	m := new(Market)
	if err := rlp.DecodeBytes(data, m); err != nil {
		return nil, fmt.Errorf("%w: %d: %v", ErrCorruptMarketRecord, id, err)
	}
	return m, nil
}

// Create assigns the next id to m, verifies and stores it
func (s *Store) Create(m *Market) (ID, error) {
	if err := m.Verify(); err != nil {
		return 0, err
	}
	next, err := s.nextID()
	if err != nil {
		return 0, err
	}
	m.ID = next
	if err := s.put(m); err != nil {
		return 0, err
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(next)+1)
	if err := s.db.Put(counterKey, buf[:]); err != nil {
		return 0, err
	}
	return next, nil
}

// SetStatus moves a market to a new lifecycle stage
func (s *Store) SetStatus(id ID, status Status) error {
	m, err := s.Market(id)
	if err != nil {
		return err
	}
	m.Status = status
	return s.put(m)
}

func (s *Store) nextID() (ID, error) {
	data, err := s.db.Get(counterKey)
	if errors.Is(err, database.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("%w: counter length %d", ErrCorruptMarketRecord, len(data))
	}
	return ID(binary.BigEndian.Uint64(data)), nil
}

func (s *Store) put(m *Market) error {
	data, err := rlp.EncodeToBytes(m)
	if err != nil {
		return err
	}
	return s.db.Put(recordKey(m.ID), data)
}

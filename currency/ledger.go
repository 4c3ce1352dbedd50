// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package currency implements the multi-asset balance ledger the pools move
// collateral and outcome tokens through.
package currency

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/prefixdb"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

// balanceSize is the width of a stored balance, a big-endian u128
const balanceSize = 16

var (
	ErrBalanceTooLow = errors.New("balance too low")
	ErrUnsupported   = errors.New("unsupported asset")
	ErrOverflow      = errors.New("balance overflow")
	ErrCorrupt       = errors.New("corrupt balance record")
)

// MultiCurrency is the ledger interface the pools consume
type MultiCurrency interface {
	Deposit(asset market.Asset, who common.Address, amount *uint256.Int) error
	Withdraw(asset market.Asset, who common.Address, amount *uint256.Int) error
	Transfer(asset market.Asset, from, to common.Address, amount *uint256.Int) error
	FreeBalance(asset market.Asset, who common.Address) (*uint256.Int, error)
	TotalIssuance(asset market.Asset) (*uint256.Int, error)
	MinimumBalance(asset market.Asset) *uint256.Int
}

var (
	_ MultiCurrency   = (*Ledger)(nil)
	_ market.Currency = (*Ledger)(nil)
)

var (
	ledgerPrefix   = []byte("currency")
	balancePrefix  = []byte("bal")
	issuancePrefix = []byte("iss")
)

// Ledger keeps balances in a database. Keys are blake3 digests of the
// asset and account so that every record has a fixed-size key.
//
// The ledger never reaps accounts. Minimum balances are reported through
// MinimumBalance but not enforced, so a withdrawal or transfer may leave an
// account with any balance down to zero.
type Ledger struct {
	db              database.Database
	minimumBalances map[market.Asset]*uint256.Int
}

// NewLedger returns a ledger over db. minimumBalances lists the existential
// deposit per asset; unlisted assets have none.
func NewLedger(db database.Database, minimumBalances map[market.Asset]*uint256.Int) *Ledger {
	mins := make(map[market.Asset]*uint256.Int, len(minimumBalances))
	for asset, amount := range minimumBalances {
		mins[asset] = new(uint256.Int).Set(amount)
	}
	return &Ledger{
		db:              prefixdb.New(ledgerPrefix, db),
		minimumBalances: mins,
	}
}

func balanceKey(asset market.Asset, who common.Address) []byte {
	h := blake3.New()
	h.Write(balancePrefix)
	h.Write(asset.Bytes())
	h.Write(who.Bytes())
	key := make([]byte, 32)
	h.Digest().Read(key)
	return key
}

func issuanceKey(asset market.Asset) []byte {
	h := blake3.New()
	h.Write(issuancePrefix)
	h.Write(asset.Bytes())
	key := make([]byte, 32)
	h.Digest().Read(key)
	return key
}

func (l *Ledger) read(key []byte) (*uint256.Int, error) {
	data, err := l.db.Get(key)
	if errors.Is(err, database.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) != balanceSize {
		return nil, fmt.Errorf("%w: length %d", ErrCorrupt, len(data))
	}
	return new(uint256.Int).SetBytes(data), nil
}

func (l *Ledger) write(key []byte, value *uint256.Int) error {
	if value.IsZero() {
		return l.db.Delete(key)
	}
	if value.BitLen() > 128 {
		return ErrOverflow
	}
	full := value.Bytes32()
	return l.db.Put(key, full[32-balanceSize:])
}

func checkAsset(asset market.Asset) error {
	if !asset.Valid() {
		return fmt.Errorf("%w: %s", ErrUnsupported, asset)
	}
	return nil
}

// FreeBalance returns the balance of who in asset
func (l *Ledger) FreeBalance(asset market.Asset, who common.Address) (*uint256.Int, error) {
	if err := checkAsset(asset); err != nil {
		return nil, err
	}
	return l.read(balanceKey(asset, who))
}

// TotalIssuance returns the amount of asset in existence
func (l *Ledger) TotalIssuance(asset market.Asset) (*uint256.Int, error) {
	if err := checkAsset(asset); err != nil {
		return nil, err
	}
	return l.read(issuanceKey(asset))
}

// MinimumBalance returns the existential deposit of asset. Pools hold this
// amount of native collateral as a buffer; the ledger itself does not
// enforce it.
func (l *Ledger) MinimumBalance(asset market.Asset) *uint256.Int {
	if amount, ok := l.minimumBalances[asset]; ok {
		return new(uint256.Int).Set(amount)
	}
	return new(uint256.Int)
}

// Deposit mints amount of asset to who
func (l *Ledger) Deposit(asset market.Asset, who common.Address, amount *uint256.Int) error {
	if err := checkAsset(asset); err != nil {
		return err
	}
	issuance, err := l.read(issuanceKey(asset))
	if err != nil {
		return err
	}
	newIssuance, err := fixed.CheckedAdd(issuance, amount)
	if err != nil {
		return fmt.Errorf("%w: issuance of %s", ErrOverflow, asset)
	}
	key := balanceKey(asset, who)
	balance, err := l.read(key)
	if err != nil {
		return err
	}
	newBalance, err := fixed.CheckedAdd(balance, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s", ErrOverflow, asset)
	}
	if err := l.write(issuanceKey(asset), newIssuance); err != nil {
		return err
	}
	return l.write(key, newBalance)
}

// Withdraw burns amount of asset held by who. The remaining balance may
// fall below the minimum balance.
func (l *Ledger) Withdraw(asset market.Asset, who common.Address, amount *uint256.Int) error {
	if err := checkAsset(asset); err != nil {
		return err
	}
	key := balanceKey(asset, who)
	balance, err := l.read(key)
	if err != nil {
		return err
	}
	if balance.Lt(amount) {
		return fmt.Errorf("%w: %s of %s < %s", ErrBalanceTooLow, asset, who, amount)
	}
	issuance, err := l.read(issuanceKey(asset))
	if err != nil {
		return err
	}
	newIssuance, err := fixed.CheckedSub(issuance, amount)
	if err != nil {
		return fmt.Errorf("%w: issuance of %s below burn", ErrCorrupt, asset)
	}
	if err := l.write(issuanceKey(asset), newIssuance); err != nil {
		return err
	}
	return l.write(key, new(uint256.Int).Sub(balance, amount))
}

// Transfer moves amount of asset from one account to another. Neither
// account is checked against the minimum balance.
func (l *Ledger) Transfer(asset market.Asset, from, to common.Address, amount *uint256.Int) error {
	if err := checkAsset(asset); err != nil {
		return err
	}
	if amount.IsZero() || from == to {
		return nil
	}
	fromKey := balanceKey(asset, from)
	fromBalance, err := l.read(fromKey)
	if err != nil {
		return err
	}
	if fromBalance.Lt(amount) {
		return fmt.Errorf("%w: %s of %s < %s", ErrBalanceTooLow, asset, from, amount)
	}
	toKey := balanceKey(asset, to)
	toBalance, err := l.read(toKey)
	if err != nil {
		return err
	}
	newTo, err := fixed.CheckedAdd(toBalance, amount)
	if err != nil {
		return fmt.Errorf("%w: balance of %s", ErrOverflow, asset)
	}
	if err := l.write(fromKey, new(uint256.Int).Sub(fromBalance, amount)); err != nil {
		return err
	}
	return l.write(toKey, newTo)
}

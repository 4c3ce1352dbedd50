// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package market_test

import (
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/neoswaps/currency"
	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

var (
	alice = common.Address{19: 1}
	bob   = common.Address{19: 2}
)

func testMarket(t market.Type) *market.Market {
	return &market.Market{
		Creator:     alice,
		CreatorFee:  10_000_000,
		BaseAsset:   market.Ztg(),
		Type:        t,
		Status:      market.Active,
		ScoringRule: market.Lmsr,
	}
}

func TestOutcomeAssets(t *testing.T) {
	m := testMarket(market.CategoricalType(3))
	m.ID = 7
	require.Equal(t, uint16(3), m.Outcomes())
	require.Equal(t, []market.Asset{
		market.CategoricalOutcome(7, 0),
		market.CategoricalOutcome(7, 1),
		market.CategoricalOutcome(7, 2),
	}, m.OutcomeAssets())

	s := testMarket(market.ScalarType(0, 100))
	s.ID = 8
	require.Equal(t, uint16(2), s.Outcomes())
	require.Equal(t, []market.Asset{
		market.ScalarOutcome(8, market.Long),
		market.ScalarOutcome(8, market.Short),
	}, s.OutcomeAssets())
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*market.Market)
		err    error
	}{
		{"valid", func(*market.Market) {}, nil},
		{"one category", func(m *market.Market) { m.Type = market.CategoricalType(1) }, market.ErrInvalidMarketType},
		{"empty scalar range", func(m *market.Market) { m.Type = market.ScalarType(5, 5) }, market.ErrInvalidMarketType},
		{"outcome as collateral", func(m *market.Market) { m.BaseAsset = market.CategoricalOutcome(0, 0) }, market.ErrInvalidBaseAsset},
		{"fee above one", func(m *market.Market) { m.CreatorFee = market.PerBillion + 1 }, market.ErrInvalidCreatorFee},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := testMarket(market.CategoricalType(2))
			tt.mutate(m)
			err := m.Verify()
			if tt.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestAssetBytesAreDistinct(t *testing.T) {
	assets := []market.Asset{
		market.Ztg(),
		market.ForeignAsset(0),
		market.ForeignAsset(1),
		market.CategoricalOutcome(0, 0),
		market.CategoricalOutcome(0, 1),
		market.CategoricalOutcome(1, 0),
		market.ScalarOutcome(0, market.Long),
		market.ScalarOutcome(0, market.Short),
		market.CombinatorialToken([32]byte{1}),
	}
	seen := make(map[string]market.Asset)
	for _, a := range assets {
		key := string(a.Bytes())
		prev, ok := seen[key]
		require.False(t, ok, "%s collides with %s", a, prev)
		seen[key] = a
	}
}

func TestStore(t *testing.T) {
	db := memdb.New()
	store := market.NewStore(db)

	_, err := store.Market(0)
	require.ErrorIs(t, err, market.ErrMarketDoesNotExist)

	first, err := store.Create(testMarket(market.CategoricalType(2)))
	require.NoError(t, err)
	second, err := store.Create(testMarket(market.ScalarType(0, 10)))
	require.NoError(t, err)
	require.Equal(t, market.ID(0), first)
	require.Equal(t, market.ID(1), second)

	m, err := market.NewStore(db).Market(second)
	require.NoError(t, err)
	expected := testMarket(market.ScalarType(0, 10))
	expected.ID = second
	require.Equal(t, expected, m)

	require.NoError(t, store.SetStatus(first, market.Closed))
	m, err = store.Market(first)
	require.NoError(t, err)
	require.Equal(t, market.Closed, m.Status)

	_, err = store.Create(testMarket(market.CategoricalType(0)))
	require.ErrorIs(t, err, market.ErrInvalidMarketType)
}

func TestCompleteSets(t *testing.T) {
	db := memdb.New()
	store := market.NewStore(db)
	ledger := currency.NewLedger(db, nil)
	sets := market.NewCompleteSets(store, ledger)

	id, err := store.Create(testMarket(market.CategoricalType(3)))
	require.NoError(t, err)
	require.NoError(t, ledger.Deposit(market.Ztg(), bob, fixed.Units(10)))

	require.NoError(t, sets.Buy(bob, id, fixed.Units(4)))
	free, err := ledger.FreeBalance(market.Ztg(), bob)
	require.NoError(t, err)
	require.Equal(t, fixed.Units(6), free)
	reserve, err := ledger.FreeBalance(market.Ztg(), market.ReserveAccount(id))
	require.NoError(t, err)
	require.Equal(t, fixed.Units(4), reserve)
	for i := uint16(0); i < 3; i++ {
		balance, err := ledger.FreeBalance(market.CategoricalOutcome(id, i), bob)
		require.NoError(t, err)
		require.Equal(t, fixed.Units(4), balance)
	}

	require.ErrorIs(t, sets.Buy(bob, id, fixed.Units(7)), market.ErrNotEnoughBalance)
	require.ErrorIs(t, sets.Buy(bob, id, fixed.Zero()), market.ErrZeroAmount)

	require.NoError(t, ledger.Transfer(market.CategoricalOutcome(id, 2), bob, alice, fixed.Units(1)))
	require.ErrorIs(t, sets.Sell(bob, id, fixed.Units(4)), market.ErrInsufficientShares)

	require.NoError(t, sets.Sell(bob, id, fixed.Units(3)))
	free, err = ledger.FreeBalance(market.Ztg(), bob)
	require.NoError(t, err)
	require.Equal(t, fixed.Units(9), free)

	require.NoError(t, store.SetStatus(id, market.Closed))
	require.ErrorIs(t, sets.Buy(bob, id, fixed.Units(1)), market.ErrMarketNotActive)
}

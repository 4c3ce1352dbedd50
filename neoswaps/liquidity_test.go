// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package neoswaps

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/neoswaps/currency"
	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/liquidity"
	"github.com/luxfi/neoswaps/market"
)

func unlimited(n int) []*uint256.Int {
	out := make([]*uint256.Int, n)
	for i := range out {
		out[i] = u(math.MaxUint64)
	}
	return out
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name   string
		who    common.Address
		shares map[common.Address]uint64
	}{
		{name: "existing provider", who: alice, shares: map[common.Address]uint64{alice: _14}},
		{name: "new provider", who: bob, shares: map[common.Address]uint64{alice: _10, bob: _4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			id, poolID := e.deployPool(market.ScalarType(0, 1), _10, []uint64{_1_6, _5_6 + 1}, cent)
			before := e.pool(poolID)
			e.buyCompleteSet(tt.who, id, _4)

			require.NoError(t, e.module.Join(e.db, tt.who, poolID, u(_4), unlimited(2)))

			after := e.pool(poolID)
			requireNear(t, 140_000_000_000, after.Reserves[0], tolerance)
			requireNear(t, 14_245_783_753, after.Reserves[1], tolerance)
			requireNear(t, 78_135_487_700, after.LiquidityParameter, 100)
			for who, shares := range tt.shares {
				got, err := after.Tree.SharesOf(who)
				require.NoError(t, err)
				require.Equal(t, u(shares), got)
			}
			total, err := after.Tree.TotalShares()
			require.NoError(t, err)
			require.Equal(t, u(_14), total)

			// prices do not move
			prices, err := after.SpotPrices()
			require.NoError(t, err)
			requireInDeltaPrices(t, []uint64{_1_6, _5_6 + 1}, prices, 100)

			executed, ok := e.events.last().(*JoinExecuted)
			require.True(t, ok)
			require.Equal(t, tt.who, executed.Who)
			require.Equal(t, u(_4), executed.PoolSharesAmount)
			requireNear(t, 40_000_000_000, executed.AmountsIn[0], tolerance)
			requireNear(t, 4_070_223_930, executed.AmountsIn[1], tolerance)
			require.Equal(t, sub(after.Reserves[1], before.Reserves[1]), executed.AmountsIn[1])
			require.Equal(t, after.LiquidityParameter, executed.NewLiquidityParameter)
			for i, asset := range after.Assets {
				require.Equal(t, after.Reserves[i], e.balance(asset, after.AccountID))
			}
		})
	}
}

func TestJoinRoundsInFavorOfPool(t *testing.T) {
	e := newTestEnv(t)
	id, poolID := e.deployPool(market.ScalarType(0, 1), _10, []uint64{_1_6, _5_6 + 1}, cent)
	before := e.pool(poolID)
	e.buyCompleteSet(bob, id, _2)

	// _1+1 of _10 shares is a ratio of 0.1000000000|1, rounded up
	shares := u(_1 + 1)
	require.NoError(t, e.module.Join(e.db, bob, poolID, shares, unlimited(2)))

	executed, ok := e.events.last().(*JoinExecuted)
	require.True(t, ok)
	ratio := u(_1/10 + 1)
	nearest, err := fixed.Bdiv(shares, u(_10))
	require.NoError(t, err)
	for i, reserve := range before.Reserves {
		want, err := fixed.BmulCeil(ratio, reserve)
		require.NoError(t, err)
		require.Equal(t, want, executed.AmountsIn[i])

		// rounding to nearest would charge less than the pool is owed
		rounded, err := fixed.Bmul(nearest, reserve)
		require.NoError(t, err)
		require.True(t, executed.AmountsIn[i].Gt(rounded))
	}
}

func TestJoinErrors(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Join(e.db, alice, poolID, u(0), unlimited(2)), ErrZeroAmount)
	})

	t.Run("pool not found", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Join(e.db, alice, poolID+1, u(_1), unlimited(2)), ErrPoolNotFound)
	})

	t.Run("incorrect vec len", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Join(e.db, alice, poolID, u(_1), unlimited(3)), ErrIncorrectVecLen)
	})

	t.Run("market not active", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		e.buyCompleteSet(alice, id, _1)
		e.setStatus(id, market.Proposed)
		require.ErrorIs(t, e.module.Join(e.db, alice, poolID, u(_1), unlimited(2)), ErrMarketNotActive)
	})

	t.Run("insufficient funds", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Join(e.db, bob, poolID, u(_1), unlimited(2)), currency.ErrBalanceTooLow)
	})

	t.Run("amount in above max", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.ScalarType(0, 1), _20, []uint64{_1_2, _1_2}, cent)
		e.buyCompleteSet(alice, id, _10)
		err := e.module.Join(e.db, alice, poolID, u(_10), us(_10-1, _10))
		require.ErrorIs(t, err, ErrAmountInAboveMax)
	})

	t.Run("relative liquidity threshold", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.ScalarType(0, 1), _100, []uint64{_1_2, _1_2}, cent)
		e.buyCompleteSet(bob, id, _1)
		err := e.module.Join(e.db, bob, poolID, u(_100/20_000), unlimited(2))
		require.ErrorIs(t, err, ErrMinRelativeLiquidity)
	})

	t.Run("small amounts", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.ScalarType(0, 1), _100, []uint64{_1_2, _1_2}, cent)
		e.buyCompleteSet(bob, id, cent)
		err := e.module.Join(e.db, bob, poolID, u(1), unlimited(2))
		require.ErrorIs(t, err, ErrMinRelativeLiquidity)
	})

	t.Run("tree is full", func(t *testing.T) {
		config := DefaultConfig()
		config.MaxLiquidityTreeDepth = 1
		e := newTestEnvWithConfig(t, config)
		id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		for _, who := range []common.Address{bob, charlie} {
			e.buyCompleteSet(who, id, _1+cent)
			require.NoError(t, e.module.Join(e.db, who, poolID, u(_1), unlimited(2)))
		}
		dave := common.Address{19: 4}
		e.buyCompleteSet(dave, id, _1+cent)
		err := e.module.Join(e.db, dave, poolID, u(_1), unlimited(2))
		require.ErrorIs(t, err, liquidity.ErrTreeIsFull)
	})
}

func TestExit(t *testing.T) {
	e := newTestEnv(t)
	_, poolID := e.deployPool(market.ScalarType(0, 1), _10, []uint64{_1_6, _5_6 + 1}, cent)
	before := e.pool(poolID)
	assets := before.Assets
	aliceBefore := []*uint256.Int{e.balance(assets[0], alice), e.balance(assets[1], alice)}

	require.NoError(t, e.module.Exit(e.db, alice, poolID, u(_4), us(0, 0)))

	ratio, err := fixed.BdivFloor(u(_4), u(_10))
	require.NoError(t, err)
	after := e.pool(poolID)
	amountsOut := make([]*uint256.Int, 2)
	for i := range assets {
		diff, err := fixed.BmulFloor(ratio, before.Reserves[i])
		require.NoError(t, err)
		amountsOut[i] = diff
		require.Equal(t, sub(before.Reserves[i], diff), after.Reserves[i])
		require.Equal(t, add(aliceBefore[i], diff), e.balance(assets[i], alice))
		require.Equal(t, after.Reserves[i], e.balance(assets[i], after.AccountID))
	}
	delta, err := fixed.Bmul(ratio, before.LiquidityParameter)
	require.NoError(t, err)
	require.Equal(t, sub(before.LiquidityParameter, delta), after.LiquidityParameter)
	shares, err := after.Tree.SharesOf(alice)
	require.NoError(t, err)
	require.Equal(t, u(_10-_4), shares)

	require.Equal(t, &ExitExecuted{
		Who:                   alice,
		PoolID:                poolID,
		PoolSharesAmount:      u(_4),
		AmountsOut:            amountsOut,
		NewLiquidityParameter: after.LiquidityParameter,
	}, e.events.last())
}

func TestExitDestroysPool(t *testing.T) {
	e := newTestEnv(t)
	id, poolID := e.deployPool(market.ScalarType(0, 1), _10, []uint64{_1_6, _5_6 + 1}, cent)
	pool := e.pool(poolID)
	aliceBefore := []*uint256.Int{e.balance(pool.Assets[0], alice), e.balance(pool.Assets[1], alice)}
	issuance, err := e.module.Ledger(e.db).TotalIssuance(market.Ztg())
	require.NoError(t, err)

	require.NoError(t, e.module.Exit(e.db, alice, poolID, u(_10), us(0, 0)))

	_, err = e.module.Pool(e.db, poolID)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, err = e.module.PoolByMarkets(e.db, []market.ID{id})
	require.ErrorIs(t, err, ErrPoolNotFound)
	require.True(t, e.balance(market.Ztg(), pool.AccountID).IsZero())
	for i, asset := range pool.Assets {
		require.True(t, e.balance(asset, pool.AccountID).IsZero())
		require.Equal(t, add(aliceBefore[i], pool.Reserves[i]), e.balance(asset, alice))
	}
	// the collateral buffer is burned
	after, err := e.module.Ledger(e.db).TotalIssuance(market.Ztg())
	require.NoError(t, err)
	require.Equal(t, sub(issuance, u(e.existentialDeposit())), after)

	require.Equal(t, &PoolDestroyed{
		Who:              alice,
		PoolID:           poolID,
		PoolSharesAmount: u(_10),
		AmountsOut:       pool.Reserves,
	}, e.events.last())

	// the market is free for a new pool
	e.deposit(market.Ztg(), alice, _10+e.existentialDeposit())
	redeployed, err := e.module.DeployPool(e.db, alice, id, u(_10), us(_1_2, _1_2), u(cent))
	require.NoError(t, err)
	require.NotEqual(t, poolID, redeployed)
}

func TestExitClosedMarket(t *testing.T) {
	e := newTestEnv(t)
	id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
	e.setStatus(id, market.Closed)
	status, err := e.module.PoolStatus(e.db, poolID)
	require.NoError(t, err)
	require.Equal(t, PoolClosed, status)
	require.NoError(t, e.module.Exit(e.db, alice, poolID, u(_4), us(0, 0)))
}

func TestExitErrors(t *testing.T) {
	t.Run("zero amount", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID, u(0), us(0, 0)), ErrZeroAmount)
	})

	t.Run("pool not found", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID+1, u(_1), us(0, 0)), ErrPoolNotFound)
	})

	t.Run("incorrect vec len", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID, u(_1), us(0)), ErrIncorrectVecLen)
	})

	t.Run("insufficient shares", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID, u(_10+1), us(0, 0)), ErrInsufficientPoolShares)
	})

	t.Run("not allowed", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		require.ErrorIs(t, e.module.Exit(e.db, bob, poolID, u(_1), us(0, 0)), ErrNotAllowed)
	})

	t.Run("amount out below min", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.ScalarType(0, 1), _20, []uint64{_1_2, _1_2}, cent)
		err := e.module.Exit(e.db, alice, poolID, u(_10), us(_10+1, _10))
		require.ErrorIs(t, err, ErrAmountOutBelowMin)
	})

	t.Run("outstanding fees", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		e.deposit(market.Ztg(), bob, _1)
		_, err := e.module.Buy(e.db, bob, poolID, 2, market.CategoricalOutcome(id, 0), u(_1), u(0))
		require.NoError(t, err)
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID, u(_4), us(0, 0)), ErrOutstandingFees)

		_, err = e.module.WithdrawFees(e.db, alice, poolID)
		require.NoError(t, err)
		require.NoError(t, e.module.Exit(e.db, alice, poolID, u(_4), us(0, 0)))
	})

	t.Run("outstanding fees before amount out below min", func(t *testing.T) {
		e := newTestEnv(t)
		id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
		e.deposit(market.Ztg(), bob, _1)
		_, err := e.module.Buy(e.db, bob, poolID, 2, market.CategoricalOutcome(id, 0), u(_1), u(0))
		require.NoError(t, err)
		before := e.pool(poolID)
		err = e.module.Exit(e.db, alice, poolID, u(_4), us(_100, _100))
		require.ErrorIs(t, err, ErrOutstandingFees)
		require.NotErrorIs(t, err, ErrAmountOutBelowMin)
		require.Equal(t, before.Reserves, e.pool(poolID).Reserves)
	})

	t.Run("liquidity too low", func(t *testing.T) {
		e := newTestEnv(t)
		_, poolID := e.deployPool(market.ScalarType(0, 1), _10, []uint64{_1_2, _1_2}, cent)
		before := e.pool(poolID)
		// leaves a liquidity parameter of about 0.72
		require.ErrorIs(t, e.module.Exit(e.db, alice, poolID, u(_10-_1_2), us(0, 0)), ErrLiquidityTooLow)
		require.Equal(t, before, e.pool(poolID))
	})
}

func TestWithdrawFees(t *testing.T) {
	e := newTestEnv(t)
	id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_3_4, _1_4}, cent)
	for who, amount := range map[common.Address]uint64{bob: _10, charlie: _20} {
		e.buyCompleteSet(who, id, amount+cent)
		require.NoError(t, e.module.Join(e.db, who, poolID, u(amount), unlimited(2)))
	}

	// mock up fees worth one unit of collateral
	require.NoError(t, e.module.atomic(e.db, func(s *state) error {
		pool, err := s.pools.get(poolID)
		if err != nil {
			return err
		}
		if err := s.ledger.Deposit(pool.Collateral, pool.AccountID, u(_1)); err != nil {
			return err
		}
		if err := pool.Tree.DepositFees(u(_1)); err != nil {
			return err
		}
		return s.pools.put(pool)
	}))
	before := e.pool(poolID)

	for _, tt := range []struct {
		who  common.Address
		fees uint64
	}{
		{who: alice, fees: _1 / 4},
		{who: bob, fees: _1 / 4},
		{who: charlie, fees: _1 / 2},
	} {
		balance := e.balance(market.Ztg(), tt.who)
		amount, err := e.module.WithdrawFees(e.db, tt.who, poolID)
		require.NoError(t, err)
		require.Equal(t, u(tt.fees), amount)
		require.Equal(t, add(balance, u(tt.fees)), e.balance(market.Ztg(), tt.who))
		require.Equal(t, &FeesWithdrawn{Who: tt.who, PoolID: poolID, Amount: u(tt.fees)}, e.events.last())

		after := e.pool(poolID)
		require.Equal(t, before.Reserves, after.Reserves)
		require.Equal(t, before.LiquidityParameter, after.LiquidityParameter)
	}

	// nothing left to withdraw
	amount, err := e.module.WithdrawFees(e.db, alice, poolID)
	require.NoError(t, err)
	require.True(t, amount.IsZero())
	require.Equal(t, u(e.existentialDeposit()), e.balance(market.Ztg(), before.AccountID))
}

func TestWithdrawFeesAfterTrade(t *testing.T) {
	e := newTestEnv(t)
	id, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)
	e.deposit(market.Ztg(), bob, _1)
	_, err := e.module.Buy(e.db, bob, poolID, 2, market.CategoricalOutcome(id, 1), u(_1), u(0))
	require.NoError(t, err)

	swapFee, _ := fees(t, cent, _1)
	balance := e.balance(market.Ztg(), alice)
	amount, err := e.module.WithdrawFees(e.db, alice, poolID)
	require.NoError(t, err)
	require.Equal(t, swapFee, amount)
	require.Equal(t, add(balance, swapFee), e.balance(market.Ztg(), alice))
}

func TestWithdrawFeesErrors(t *testing.T) {
	e := newTestEnv(t)
	_, poolID := e.deployPool(market.CategoricalType(2), _10, []uint64{_1_2, _1_2}, cent)

	_, err := e.module.WithdrawFees(e.db, alice, poolID+1)
	require.ErrorIs(t, err, ErrPoolNotFound)
	_, err = e.module.WithdrawFees(e.db, bob, poolID)
	require.ErrorIs(t, err, ErrNotAllowed)
}

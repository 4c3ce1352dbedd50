// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package lmsr

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/neoswaps/fixed"
)

// Test helpers
var (
	_1   = fixed.Base
	_2   = 2 * fixed.Base
	_3   = 3 * fixed.Base
	_10  = 10 * fixed.Base
	_20  = 20 * fixed.Base
	_30  = 30 * fixed.Base
	_100 = 100 * fixed.Base
	_444 = 444 * fixed.Base

	_1_10 = fixed.Base / 10
	_2_10 = 2 * fixed.Base / 10
	_3_10 = 3 * fixed.Base / 10
	_4_10 = 4 * fixed.Base / 10
	_9_10 = 9 * fixed.Base / 10
	_1_4  = fixed.Base / 4
	_3_4  = 3 * fixed.Base / 4
	_1_2  = fixed.Base / 2

	minSpotPrice = fixed.Cent / 2
	maxSpotPrice = fixed.Base - fixed.Cent/2
)

// tolerance in base units between the decimal evaluation and the published
// fixed-point results
const tolerance = 10

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

func requireClose(t *testing.T, want uint64, got *uint256.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, got.IsUint64(), msgAndArgs...)
	require.InDelta(t, float64(want), float64(got.Uint64()), tolerance, msgAndArgs...)
}

func TestCalculateSwapAmountOutForBuy(t *testing.T) {
	tests := []struct {
		name                         string
		reserve, amountIn, liquidity uint64
		want                         uint64
	}{
		{"balanced", _10, _10, 144_269_504_088, 58_496_250_072},
		{"unit", _1, _1, _1, 7_353_256_641},
		{"positive ln", _2, _2, _2, 14_706_513_281},
		{"negative ln", _1, _1_10, _3, 386_589_943},
		{"underflow to zero, positive ln", _100, _10, _3, 998_910_224_189},
		{"underflow to zero, negative ln", _100, _1_10, _3, 897_465_467_426},
		{"zero reserve", 0, _1, _1, 0},
		{"zero amount", _1, 0, _1, 0},
		{"steep", _30, _1_10, _1 - 100_000, 276_478_645_689},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSwapAmountOutForBuy(u(tt.reserve), u(tt.amountIn), u(tt.liquidity))
			require.NoError(t, err)
			requireClose(t, tt.want, got)
		})
	}
}

func TestCalculateSwapAmountOutForBuy_Errors(t *testing.T) {
	_, err := CalculateSwapAmountOutForBuy(u(_1), u(_1), u(0))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)

	_, err = CalculateSwapAmountOutForBuy(u(_1), u(1_000*_1), u(_1))
	require.ErrorIs(t, err, ErrExpOverflow)
}

func TestCalculateSwapAmountOutForSell(t *testing.T) {
	tests := []struct {
		name                         string
		reserve, amountIn, liquidity uint64
		want                         uint64
	}{
		{"balanced", _10, _10, 144_269_504_088, 41_503_749_928},
		{"unit", _1, _1, _1, 2_646_743_359},
		{"double", _2, _2, _2, 5_293_486_719},
		{"positive ln", 17 * fixed.Base, 8 * fixed.Base, 7 * fixed.Base, 4_334_780_553},
		{"negative ln", _1, 11 * fixed.Base, 33_000_000_000, 41_104_447_891},
		{"zero amount", _1, 0, _1, 0},
		{"steep", _1_10, _30, _1 - 100_000, 23_521_354_311},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSwapAmountOutForSell(u(tt.reserve), u(tt.amountIn), u(tt.liquidity))
			require.NoError(t, err)
			requireClose(t, tt.want, got)
		})
	}
}

func TestCalculateSwapAmountOutForSell_Errors(t *testing.T) {
	_, err := CalculateSwapAmountOutForSell(u(0), u(_1), u(_1))
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = CalculateSwapAmountOutForSell(u(_1), u(_1), u(0))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)

	_, err = CalculateSwapAmountOutForSell(u(1_000*_1), u(_1), u(_1))
	require.ErrorIs(t, err, ErrExpOverflow)
}

func TestCalculateSpotPrice(t *testing.T) {
	tests := []struct {
		reserve, liquidity, want uint64
	}{
		{_10, 144_269_504_088, _1_2},
		{_10 - 58_496_250_072, 144_269_504_088, _3_4},
		{_20, 144_269_504_088, _1_4},
	}
	for _, tt := range tests {
		got, err := CalculateSpotPrice(u(tt.reserve), u(tt.liquidity))
		require.NoError(t, err)
		requireClose(t, tt.want, got)
	}

	_, err := CalculateSpotPrice(u(_1), u(0))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)

	// Large reserves underflow to a zero price.
	p, err := CalculateSpotPrice(u(1_000*_1), u(_1))
	require.NoError(t, err)
	require.True(t, p.IsZero())
}

func TestCalculateReservesFromSpotPrices(t *testing.T) {
	tests := []struct {
		name          string
		amount        uint64
		prices        []uint64
		wantReserves  []uint64
		wantLiquidity uint64
	}{
		{"even", _10, []uint64{_1_2, _1_2}, []uint64{_10, _10}, 144_269_504_089},
		{"skewed", _20, []uint64{_3_4, _1_4}, []uint64{_10 - 58_496_250_072, _20}, 144_269_504_089},
		{
			"four outcomes", _444, []uint64{_1_10, _2_10, _3_10, _4_10},
			[]uint64{_444, 3_103_426_819_252, 2_321_581_629_045, 1_766_853_638_504},
			1_928_267_499_650,
		},
		{
			"extreme", _100, []uint64{50_000_000, 50_000_000, 50_000_000, 8_500_000_000},
			[]uint64{_100, _100, _100, 30_673_687_183},
			188_739_165_818,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prices := make([]*uint256.Int, len(tt.prices))
			for i, p := range tt.prices {
				prices[i] = u(p)
			}
			liquidity, reserves, err := CalculateReservesFromSpotPrices(u(tt.amount), prices)
			require.NoError(t, err)
			requireClose(t, tt.wantLiquidity, liquidity)
			require.Len(t, reserves, len(tt.wantReserves))
			for i, want := range tt.wantReserves {
				requireClose(t, want, reserves[i], "reserve %d", i)
			}
		})
	}
}

func TestCalculateReservesFromSpotPrices_Errors(t *testing.T) {
	_, _, err := CalculateReservesFromSpotPrices(u(0), []*uint256.Int{u(_1_2), u(_1_2)})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, _, err = CalculateReservesFromSpotPrices(u(_1), []*uint256.Int{u(_1), u(0)})
	require.ErrorIs(t, err, ErrLnDomain)

	_, _, err = CalculateReservesFromSpotPrices(u(_1), []*uint256.Int{u(_1), u(_1)})
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)
}

// Reserves derived from spot prices reproduce the spot prices.
func TestReservesRoundTripSpotPrices(t *testing.T) {
	prices := []*uint256.Int{u(_1_10), u(_2_10), u(_3_10), u(_4_10)}
	liquidity, reserves, err := CalculateReservesFromSpotPrices(u(_444), prices)
	require.NoError(t, err)
	for i, r := range reserves {
		p, err := CalculateSpotPrice(r, liquidity)
		require.NoError(t, err)
		requireClose(t, prices[i].Uint64(), p, "outcome %d", i)
	}
}

func TestCalculateBuyLnArgument(t *testing.T) {
	// e^{10/b} - 1 + e^{-10/b} = 2 - 1 + 1/2
	got, err := CalculateBuyLnArgument(u(_10), u(_10), u(144_269_504_088))
	require.NoError(t, err)
	requireClose(t, 3*_1_2, got)

	_, err = CalculateBuyLnArgument(u(_1), u(_1), u(0))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)
	_, err = CalculateBuyLnArgument(u(_1), u(1_000*_1), u(_1))
	require.ErrorIs(t, err, ErrExpOverflow)
}

func TestCalculateBuyAmountUntil(t *testing.T) {
	tests := []struct {
		name                        string
		until, liquidity, spotPrice uint64
		want                        uint64
	}{
		{"large price shift", _9_10, _10, _1_10, 219_722_457_734},
		{"small price shift", _4_10, _10, _3_10, 15_415_067_983},
		{"below spot", _3_10, _10, _4_10, 0},
		{"at spot", _4_10, _10, _4_10, 0},
		{"leap up", maxSpotPrice, 188_739_165_817, minSpotPrice, 999_053_937_034},
		{"leap down", minSpotPrice, _10, maxSpotPrice, 0},
		{"step up low", minSpotPrice + 100_000, 132_117_416_072, minSpotPrice, 1_327_820},
		{"step up high", maxSpotPrice, 11_324_349_949, maxSpotPrice - 100_000, 22_626_081},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateBuyAmountUntil(u(tt.until), u(tt.liquidity), u(tt.spotPrice))
			require.NoError(t, err)
			requireClose(t, tt.want, got)
		})
	}
}

func TestCalculateBuyAmountUntil_Errors(t *testing.T) {
	_, err := CalculateBuyAmountUntil(u(_1), u(_10), u(_1_2))
	require.ErrorIs(t, err, ErrLnDomain)
	_, err = CalculateBuyAmountUntil(u(_1_2), u(_10), u(_1))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)
	_, err = CalculateBuyAmountUntil(fixed.MaxBalance, u(_10), u(_1_2))
	require.Error(t, err)
	_, err = CalculateBuyAmountUntil(u(_3_4), fixed.MaxBalance, u(_1_2))
	require.ErrorIs(t, err, fixed.ErrOverflow)
}

func TestCalculateSellAmountUntil(t *testing.T) {
	tests := []struct {
		name                        string
		until, liquidity, spotPrice uint64
		want                        uint64
	}{
		{"large price shift", _1_10, _10, _9_10, 439_444_915_467},
		{"small price shift", _1_10, _10, _2_10, 81_093_021_622},
		{"above spot", _2_10, _10, _1_10, 0},
		{"at spot", _1_10, _10, _1_10, 0},
		{"very small until", fixed.Base / 100, _10, _1_2, 459_511_985_013},
		{"very small spot price", 12, _10, 1_100, 451_815_891_780},
		{"leap up", maxSpotPrice, 188_739_165_817, minSpotPrice, 0},
		{"leap down", minSpotPrice, 11_324_349_949, maxSpotPrice, 119_886_472_444},
		{"step down low", minSpotPrice, 186_922_262_798, minSpotPrice + 100_000, 375_349_804},
		{"step down high", maxSpotPrice - 100_000, 43_410_008_138, maxSpotPrice, 87_169_596},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CalculateSellAmountUntil(u(tt.until), u(tt.liquidity), u(tt.spotPrice))
			require.NoError(t, err)
			requireClose(t, tt.want, got)
		})
	}
}

func TestCalculateSellAmountUntil_Errors(t *testing.T) {
	_, err := CalculateSellAmountUntil(u(0), u(_10), u(_1_2))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)
	_, err = CalculateSellAmountUntil(u(_1_2), u(_10), u(_1))
	require.ErrorIs(t, err, fixed.ErrDivisionByZero)
	_, err = CalculateSellAmountUntil(u(_1_2), fixed.MaxBalance, u(_3_4))
	require.ErrorIs(t, err, fixed.ErrOverflow)
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/shopspring/decimal"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"

	"github.com/luxfi/neoswaps/fixed"
	"github.com/luxfi/neoswaps/market"
)

// balanceDecimals is the number of decimals of a fixed-point balance
const balanceDecimals = 10

var (
	errInvalidScenario = errors.New("invalid scenario")
	errInvalidAmount   = errors.New("invalid amount")
)

// Scenario is a replayable list of pool operations
type Scenario struct {
	// Deposits credits collateral to named accounts before the first step
	Deposits map[string]string `yaml:"deposits"`
	Markets  []MarketSpec      `yaml:"markets"`
	Steps    []Step            `yaml:"steps"`
}

// MarketSpec describes a market created before the first step
type MarketSpec struct {
	Name    string `yaml:"name"`
	Creator string `yaml:"creator"`
	// Type is "categorical" or "scalar"
	Type       string `yaml:"type"`
	Categories uint16 `yaml:"categories"`
	Low        uint64 `yaml:"low"`
	High       uint64 `yaml:"high"`
	// CreatorFee is a fraction, 0.01 meaning 1%
	CreatorFee string `yaml:"creator-fee"`
	// Rule is "lmsr" (default) or "amm-cda-hybrid"
	Rule string `yaml:"rule"`
}

// Step is one operation. Assets are referenced by their index in the pool.
type Step struct {
	Op      string   `yaml:"op"`
	Who     string   `yaml:"who"`
	Markets []string `yaml:"markets"`
	Pool    uint64   `yaml:"pool"`

	Asset int   `yaml:"asset"`
	Buy   []int `yaml:"buy"`
	Keep  []int `yaml:"keep"`
	Sell  []int `yaml:"sell"`

	Amount     string   `yaml:"amount"`
	AmountKeep string   `yaml:"amount-keep"`
	Min        string   `yaml:"min"`
	Limits     []string `yaml:"limits"`
	SpotPrices []string `yaml:"spot-prices"`
	SwapFee    string   `yaml:"swap-fee"`
	AssetCount uint16   `yaml:"asset-count"`
	Status     string   `yaml:"status"`

	// Fails marks a step that is expected to be rejected
	Fails bool `yaml:"fails"`
}

func readScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	scenario := new(Scenario)
	if err := yaml.Unmarshal(data, scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidScenario, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: no steps", errInvalidScenario)
	}
	names := make(map[string]struct{}, len(scenario.Markets))
	for _, m := range scenario.Markets {
		if m.Name == "" {
			return nil, fmt.Errorf("%w: unnamed market", errInvalidScenario)
		}
		if _, ok := names[m.Name]; ok {
			return nil, fmt.Errorf("%w: market %q defined twice", errInvalidScenario, m.Name)
		}
		names[m.Name] = struct{}{}
	}
	return scenario, nil
}

func (m MarketSpec) marketType() (market.Type, error) {
	switch m.Type {
	case "", "categorical":
		return market.CategoricalType(m.Categories), nil
	case "scalar":
		return market.ScalarType(m.Low, m.High), nil
	default:
		return market.Type{}, fmt.Errorf("%w: market type %q", errInvalidScenario, m.Type)
	}
}

func (m MarketSpec) scoringRule() (market.ScoringRule, error) {
	switch m.Rule {
	case "", "lmsr":
		return market.Lmsr, nil
	case "amm-cda-hybrid":
		return market.AmmCdaHybrid, nil
	case "orderbook":
		return market.Orderbook, nil
	case "parimutuel":
		return market.Parimutuel, nil
	default:
		return 0, fmt.Errorf("%w: scoring rule %q", errInvalidScenario, m.Rule)
	}
}

// creatorFee converts the fee fraction to parts per billion
func (m MarketSpec) creatorFee() (uint32, error) {
	if m.CreatorFee == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(m.CreatorFee)
	if err != nil {
		return 0, fmt.Errorf("%w: creator fee %q", errInvalidAmount, m.CreatorFee)
	}
	ppb := d.Shift(9).Truncate(0)
	if ppb.IsNegative() || ppb.GreaterThan(decimal.NewFromInt(market.PerBillion)) {
		return 0, fmt.Errorf("%w: creator fee %q", errInvalidAmount, m.CreatorFee)
	}
	return uint32(ppb.IntPart()), nil
}

func parseStatus(s string) (market.Status, error) {
	for status := market.Proposed; status <= market.Resolved; status++ {
		if status.String() == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: market status %q", errInvalidScenario, s)
}

// parseAmount reads a decimal string into a fixed-point balance. Digits
// beyond the tenth decimal are truncated.
func parseAmount(s string) (*uint256.Int, error) {
	if s == "" {
		return fixed.Zero(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", errInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", errInvalidAmount, s)
	}
	v, overflow := uint256.FromBig(d.Shift(balanceDecimals).Truncate(0).BigInt())
	if overflow || v.BitLen() > 128 {
		return nil, fmt.Errorf("%w: %q overflows", errInvalidAmount, s)
	}
	return v, nil
}

func parseAmounts(ss []string) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(ss))
	for i, s := range ss {
		v, err := parseAmount(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// formatAmount renders a fixed-point balance as a decimal string
func formatAmount(v *uint256.Int) string {
	return decimal.NewFromBigInt(v.ToBig(), -balanceDecimals).String()
}

// accountOf derives a stable address for a named account
func accountOf(name string) common.Address {
	sum := blake3.Sum256([]byte("neoswaps/account/" + name))
	return common.BytesToAddress(sum[:common.AddressLength])
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/neoswaps/currency"
	"github.com/luxfi/neoswaps/neoswaps"
)

func newTestSimulator(t *testing.T) (*simulator, *bytes.Buffer) {
	out := new(bytes.Buffer)
	sim, err := newSimulator(neoswaps.DefaultConfig(), out, log.NewTestLogger(log.InfoLevel))
	require.NoError(t, err)
	return sim, out
}

func TestSimulateExample(t *testing.T) {
	out := new(bytes.Buffer)
	root := newRootCommand()
	root.SetOut(out)
	root.SetArgs([]string{"simulate", "testdata/example.yaml"})
	require.NoError(t, root.Execute())

	report := out.String()
	require.Contains(t, report, "pool 0")
	require.Contains(t, report, "pool 1")
	require.Contains(t, report, "pool destroyed")
	require.Equal(t, 2, strings.Count(report, "rejected"))
	// only the combinatorial pool is left
	require.Contains(t, report, "pool 1 (Active)")
	require.NotContains(t, report, "pool 0 (")
}

func TestSimulateBuy(t *testing.T) {
	sim, out := newTestSimulator(t)
	scenario, err := parseScenario([]byte(`
deposits: {alice: "10.005", bob: "1"}
markets: [{name: m, creator: alice, categories: 2}]
steps:
  - {op: deploy, who: alice, markets: [m], amount: "10", spot-prices: ["0.5", "0.5"], swap-fee: "0.01"}
  - {op: buy, who: bob, pool: 0, asset: 0, amount: "1"}
`))
	require.NoError(t, err)
	require.NoError(t, sim.run(scenario))
	require.Contains(t, out.String(), "pool 0")
	require.Contains(t, out.String(), "bob received")

	pool, err := sim.module.Pool(sim.db, 0)
	require.NoError(t, err)
	balance, err := sim.module.Ledger(sim.db).FreeBalance(pool.Assets[0], accountOf("bob"))
	require.NoError(t, err)
	require.False(t, balance.IsZero())
	bob, err := sim.module.Ledger(sim.db).FreeBalance(pool.Collateral, accountOf("bob"))
	require.NoError(t, err)
	require.True(t, bob.IsZero())

	require.NoError(t, sim.report())
	require.Contains(t, out.String(), "pool 0 (Active)")
}

func TestSimulateErrors(t *testing.T) {
	tests := []struct {
		name  string
		steps string
		err   error
	}{
		{
			name:  "unknown op",
			steps: `[{op: swap, pool: 0}]`,
			err:   errInvalidScenario,
		},
		{
			name:  "unknown market",
			steps: `[{op: deploy, who: alice, markets: [x], amount: "10", spot-prices: ["0.5", "0.5"], swap-fee: "0.01"}]`,
			err:   errInvalidScenario,
		},
		{
			name:  "asset index",
			steps: `[{op: buy, who: bob, pool: 0, asset: 2, amount: "1"}]`,
			err:   errInvalidScenario,
		},
		{
			name:  "unexpected success",
			steps: `[{op: withdraw-fees, who: alice, pool: 0, fails: true}]`,
			err:   errExpectedFailure,
		},
		{
			name:  "module error",
			steps: `[{op: buy, who: bob, pool: 0, asset: 0, amount: "5"}]`,
			err:   currency.ErrBalanceTooLow,
		},
		{
			name:  "bad amount",
			steps: `[{op: buy, who: bob, pool: 0, asset: 0, amount: "-1"}]`,
			err:   errInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim, _ := newTestSimulator(t)
			scenario, err := parseScenario([]byte(`
deposits: {alice: "10.005", bob: "1"}
markets: [{name: m, creator: alice, categories: 2}]
steps:
  - {op: deploy, who: alice, markets: [m], amount: "10", spot-prices: ["0.5", "0.5"], swap-fee: "0.01"}
`))
			require.NoError(t, err)
			require.NoError(t, sim.run(scenario))

			scenario, err = parseScenario([]byte("steps: " + tt.steps))
			require.NoError(t, err)
			err = sim.run(scenario)
			require.ErrorIs(t, err, tt.err)
			require.Contains(t, err.Error(), "step 0")
		})
	}
}

func TestSimulateContinueOnError(t *testing.T) {
	sim, out := newTestSimulator(t)
	sim.continueOnError = true
	scenario, err := parseScenario([]byte(`
steps:
  - {op: buy, who: bob, pool: 7, asset: 0, amount: "1"}
  - {op: exit, who: bob, pool: 7, amount: "1"}
`))
	require.NoError(t, err)
	require.NoError(t, sim.run(scenario))
	require.Equal(t, 2, strings.Count(out.String(), "failed"))
}

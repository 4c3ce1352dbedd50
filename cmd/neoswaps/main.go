// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command neoswaps replays pool scenarios against an in-memory state.
package main

import (
	"fmt"
	"os"

	"github.com/luxfi/log"
	"github.com/spf13/cobra"

	"github.com/luxfi/neoswaps/neoswaps"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "neoswaps",
		Short:        "LMSR liquidity pools for prediction markets",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate <scenario.yaml>",
		Short: "Replay a scenario of markets and pool operations",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulate,
	}
	defaults := neoswaps.DefaultConfig()
	simulateCmd.Flags().Uint64("max-swap-fee", defaults.MaxSwapFee, "largest swap fee a pool may charge, in base units")
	simulateCmd.Flags().Uint32("max-liquidity-tree-depth", defaults.MaxLiquidityTreeDepth, "depth of the liquidity provider tree")
	simulateCmd.Flags().Uint32("max-splits", defaults.MaxSplits, "split operations allowed when deploying a combinatorial pool")
	simulateCmd.Flags().Uint32("fuel", defaults.Fuel, "curve point search budget of collection ids")
	simulateCmd.Flags().Uint64("existential-deposit", defaults.ExistentialDeposit, "collateral buffer of every pool, in base units")
	simulateCmd.Flags().Bool("continue-on-error", false, "report failed steps and keep going")
	root.AddCommand(simulateCmd)

	return root
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	scenario, err := readScenario(args[0])
	if err != nil {
		return err
	}
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

	logger := log.NewTestLogger(log.InfoLevel)
	sim, err := newSimulator(cfg, cmd.OutOrStdout(), logger)
	if err != nil {
		return err
	}
	sim.continueOnError = continueOnError
	if err := sim.run(scenario); err != nil {
		return fmt.Errorf("simulate %s: %w", args[0], err)
	}
	return sim.report()
}

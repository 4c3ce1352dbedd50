// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/database/memdb"
	"github.com/luxfi/log"

	"github.com/luxfi/neoswaps/market"
	"github.com/luxfi/neoswaps/neoswaps"
)

var errExpectedFailure = errors.New("step succeeded but was expected to fail")

// simulator replays scenarios against a fresh in-memory state
type simulator struct {
	module  *neoswaps.Module
	db      database.Database
	out     io.Writer
	log     log.Logger
	markets map[string]market.ID
	pools   map[neoswaps.PoolID]struct{}

	continueOnError bool
}

func newSimulator(cfg neoswaps.Config, out io.Writer, logger log.Logger) (*simulator, error) {
	module, err := neoswaps.New(cfg, neoswaps.NewMarketCreatorFee(logger), neoswaps.LogSink{Log: logger}, logger)
	if err != nil {
		return nil, err
	}
	return &simulator{
		module:  module,
		db:      memdb.New(),
		out:     out,
		log:     logger,
		markets: make(map[string]market.ID),
		pools:   make(map[neoswaps.PoolID]struct{}),
	}, nil
}

func (s *simulator) run(scenario *Scenario) error {
	names := make([]string, 0, len(scenario.Deposits))
	for name := range scenario.Deposits {
		names = append(names, name)
	}
	sort.Strings(names)
	ledger := s.module.Ledger(s.db)
	for _, name := range names {
		amount, err := parseAmount(scenario.Deposits[name])
		if err != nil {
			return err
		}
		if err := ledger.Deposit(market.Ztg(), accountOf(name), amount); err != nil {
			return fmt.Errorf("deposit to %s: %w", name, err)
		}
	}
	for _, spec := range scenario.Markets {
		if err := s.createMarket(spec); err != nil {
			return fmt.Errorf("market %s: %w", spec.Name, err)
		}
	}
	for i, step := range scenario.Steps {
		result, err := s.step(step)
		switch {
		case err != nil && step.Fails:
			fmt.Fprintf(s.out, "%3d %-20s rejected: %v\n", i, step.Op, err)
		case err != nil && s.continueOnError:
			fmt.Fprintf(s.out, "%3d %-20s failed: %v\n", i, step.Op, err)
		case err != nil:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		case step.Fails:
			return fmt.Errorf("step %d (%s): %w", i, step.Op, errExpectedFailure)
		default:
			fmt.Fprintf(s.out, "%3d %-20s %s\n", i, step.Op, result)
		}
	}
	return nil
}

func (s *simulator) createMarket(spec MarketSpec) error {
	typ, err := spec.marketType()
	if err != nil {
		return err
	}
	rule, err := spec.scoringRule()
	if err != nil {
		return err
	}
	fee, err := spec.creatorFee()
	if err != nil {
		return err
	}
	id, err := s.module.Markets(s.db).Create(&market.Market{
		Creator:     accountOf(spec.Creator),
		CreatorFee:  fee,
		BaseAsset:   market.Ztg(),
		Type:        typ,
		Status:      market.Active,
		ScoringRule: rule,
	})
	if err != nil {
		return err
	}
	s.markets[spec.Name] = id
	return nil
}

func (s *simulator) marketIDs(names []string) ([]market.ID, error) {
	ids := make([]market.ID, len(names))
	for i, name := range names {
		id, ok := s.markets[name]
		if !ok {
			return nil, fmt.Errorf("%w: unknown market %q", errInvalidScenario, name)
		}
		ids[i] = id
	}
	return ids, nil
}

// assets resolves pool asset indices
func (s *simulator) assets(pool *neoswaps.Pool, indices []int) ([]market.Asset, error) {
	out := make([]market.Asset, len(indices))
	for i, index := range indices {
		if index < 0 || index >= len(pool.Assets) {
			return nil, fmt.Errorf("%w: asset index %d of %d", errInvalidScenario, index, len(pool.Assets))
		}
		out[i] = pool.Assets[index]
	}
	return out, nil
}

// step executes one operation and describes its result
func (s *simulator) step(step Step) (string, error) {
	who := accountOf(step.Who)
	amount, err := parseAmount(step.Amount)
	if err != nil {
		return "", err
	}
	minimum, err := parseAmount(step.Min)
	if err != nil {
		return "", err
	}

	switch step.Op {
	case "deploy", "deploy-combinatorial":
		ids, err := s.marketIDs(step.Markets)
		if err != nil {
			return "", err
		}
		prices, err := parseAmounts(step.SpotPrices)
		if err != nil {
			return "", err
		}
		fee, err := parseAmount(step.SwapFee)
		if err != nil {
			return "", err
		}
		var poolID neoswaps.PoolID
		if step.Op == "deploy" {
			if len(ids) != 1 {
				return "", fmt.Errorf("%w: deploy takes one market", errInvalidScenario)
			}
			poolID, err = s.module.DeployPool(s.db, who, ids[0], amount, prices, fee)
		} else {
			poolID, err = s.module.DeployCombinatorialPool(s.db, who, step.AssetCount, ids, amount, prices, fee)
		}
		if err != nil {
			return "", err
		}
		s.pools[poolID] = struct{}{}
		return fmt.Sprintf("pool %d", poolID), nil

	case "set-status":
		ids, err := s.marketIDs(step.Markets)
		if err != nil {
			return "", err
		}
		status, err := parseStatus(step.Status)
		if err != nil {
			return "", err
		}
		for _, id := range ids {
			if err := s.module.Markets(s.db).SetStatus(id, status); err != nil {
				return "", err
			}
		}
		return status.String(), nil
	}

	poolID := neoswaps.PoolID(step.Pool)
	pool, err := s.module.Pool(s.db, poolID)
	if err != nil {
		return "", err
	}
	assetCount := uint16(len(pool.Assets))

	switch step.Op {
	case "buy", "sell":
		assets, err := s.assets(pool, []int{step.Asset})
		if err != nil {
			return "", err
		}
		var out *uint256.Int
		if step.Op == "buy" {
			out, err = s.module.Buy(s.db, who, poolID, assetCount, assets[0], amount, minimum)
		} else {
			out, err = s.module.Sell(s.db, who, poolID, assetCount, assets[0], amount, minimum)
		}
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s received %s", step.Who, formatAmount(out)), nil

	case "combo-buy":
		buy, err := s.assets(pool, step.Buy)
		if err != nil {
			return "", err
		}
		sell, err := s.assets(pool, step.Sell)
		if err != nil {
			return "", err
		}
		out, err := s.module.ComboBuy(s.db, who, poolID, assetCount, buy, sell, amount, minimum)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s received %s of each bought outcome", step.Who, formatAmount(out)), nil

	case "combo-sell":
		buy, err := s.assets(pool, step.Buy)
		if err != nil {
			return "", err
		}
		keep, err := s.assets(pool, step.Keep)
		if err != nil {
			return "", err
		}
		sell, err := s.assets(pool, step.Sell)
		if err != nil {
			return "", err
		}
		amountKeep, err := parseAmount(step.AmountKeep)
		if err != nil {
			return "", err
		}
		out, err := s.module.ComboSell(s.db, who, poolID, assetCount, buy, keep, sell, amount, amountKeep, minimum)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s received %s", step.Who, formatAmount(out)), nil

	case "buy-complete-set":
		if len(pool.Type.MarketIDs) != 1 {
			return "", fmt.Errorf("%w: complete sets of combinatorial pools", errInvalidScenario)
		}
		sets := market.NewCompleteSets(s.module.Markets(s.db), s.module.Ledger(s.db))
		if err := sets.Buy(who, pool.Type.MarketIDs[0], amount); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s holds %s of every outcome", step.Who, formatAmount(amount)), nil

	case "join", "exit":
		limits, err := parseAmounts(step.Limits)
		if err != nil {
			return "", err
		}
		if len(limits) == 0 && step.Op == "join" {
			for range pool.Assets {
				limits = append(limits, new(uint256.Int).SetAllOne())
			}
		}
		if len(limits) == 0 {
			limits = make([]*uint256.Int, len(pool.Assets))
			for i := range limits {
				limits[i] = new(uint256.Int)
			}
		}
		if step.Op == "join" {
			err = s.module.Join(s.db, who, poolID, amount, limits)
		} else {
			err = s.module.Exit(s.db, who, poolID, amount, limits)
		}
		if err != nil {
			return "", err
		}
		if _, err := s.module.Pool(s.db, poolID); errors.Is(err, neoswaps.ErrPoolNotFound) {
			delete(s.pools, poolID)
			return "pool destroyed", nil
		}
		return fmt.Sprintf("%s shares %s", step.Op, formatAmount(amount)), nil

	case "withdraw-fees":
		out, err := s.module.WithdrawFees(s.db, who, poolID)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s withdrew %s", step.Who, formatAmount(out)), nil

	default:
		return "", fmt.Errorf("%w: unknown op %q", errInvalidScenario, step.Op)
	}
}

// report prints the state of every live pool
func (s *simulator) report() error {
	ids := make([]neoswaps.PoolID, 0, len(s.pools))
	for id := range s.pools {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		pool, err := s.module.Pool(s.db, id)
		if err != nil {
			return err
		}
		status, err := s.module.PoolStatus(s.db, id)
		if err != nil {
			return err
		}
		prices, err := pool.SpotPrices()
		if err != nil {
			return err
		}
		total, err := pool.Tree.TotalShares()
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "\npool %d (%s) b=%s shares=%s fee=%s\n",
			id, status, formatAmount(pool.LiquidityParameter), formatAmount(total), formatAmount(pool.SwapFee))
		for i, asset := range pool.Assets {
			fmt.Fprintf(s.out, "  %-40s reserve=%-20s price=%s\n",
				asset, formatAmount(pool.Reserves[i]), formatAmount(prices[i]))
		}
		fmt.Fprintln(s.out, "  "+strings.Repeat("-", 70))
	}
	return nil
}

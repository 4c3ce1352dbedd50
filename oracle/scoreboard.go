// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package oracle decides futarchy proposals from the prices of a
// decision-market pool.
package oracle

import (
	"math"

	"github.com/holiman/uint256"

	"github.com/luxfi/neoswaps/fixed"
)

// Scoreboard counts the blocks on which the positive outcome led the
// negative outcome by the configured margins
type Scoreboard struct {
	// Start is the first block that counts
	Start uint64
	// VictoryMargin is the lead in points the positive outcome needs
	VictoryMargin uint64
	// PriceMarginAbs is the absolute price lead required for a point
	PriceMarginAbs *uint256.Int
	// PriceMarginRel is the price lead relative to the negative price
	// required for a point, 0.1 meaning 10%
	PriceMarginRel *uint256.Int
	PassScore      uint64
	RejectScore    uint64
}

// NewScoreboard returns an empty scoreboard
func NewScoreboard(start, victoryMargin uint64, priceMarginAbs, priceMarginRel *uint256.Int) *Scoreboard {
	return &Scoreboard{
		Start:          start,
		VictoryMargin:  victoryMargin,
		PriceMarginAbs: new(uint256.Int).Set(priceMarginAbs),
		PriceMarginRel: new(uint256.Int).Set(priceMarginRel),
	}
}

// Update awards a point to the positive outcome if its price leads by both
// margins at block now, and to the negative outcome otherwise. Blocks
// before Start are ignored.
func (s *Scoreboard) Update(now uint64, positive, negative *uint256.Int) {
	if now < s.Start {
		return
	}
	marginAbs := fixed.SaturatingSub(positive, negative)
	marginRel, err := fixed.Bdiv(marginAbs, negative)
	if err != nil {
		marginRel = fixed.Zero()
	}
	if !marginAbs.Lt(s.PriceMarginAbs) && !marginRel.Lt(s.PriceMarginRel) {
		s.PassScore = saturatingInc(s.PassScore)
	} else {
		s.RejectScore = saturatingInc(s.RejectScore)
	}
}

// SkipUpdate awards a point to the negative outcome without reading prices
func (s *Scoreboard) SkipUpdate(now uint64) {
	if now < s.Start {
		return
	}
	s.RejectScore = saturatingInc(s.RejectScore)
}

// Evaluate reports whether the positive outcome leads by VictoryMargin
func (s *Scoreboard) Evaluate() bool {
	var lead uint64
	if s.PassScore > s.RejectScore {
		lead = s.PassScore - s.RejectScore
	}
	return lead >= s.VictoryMargin
}

func saturatingInc(v uint64) uint64 {
	if v == math.MaxUint64 {
		return v
	}
	return v + 1
}

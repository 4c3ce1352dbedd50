// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package liquidity

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/fixed"
)

// Node is a liquidity provider's position in the tree
type Node struct {
	// Account owning the node; nil if the node is abandoned
	Account *common.Address `rlp:"nil"`
	// Stake is the number of pool shares held by the account
	Stake *uint256.Int
	// Fees collected by the account and not yet withdrawn
	Fees *uint256.Int
	// DescendantStake is the sum of the stakes of all descendants
	DescendantStake *uint256.Int
	// LazyFees are fees owed to this node and its descendants that have
	// not been propagated yet
	LazyFees *uint256.Int
}

// NewNode returns a node owned by account with the given stake
func NewNode(account common.Address, stake *uint256.Int) *Node {
	return &Node{
		Account:         &account,
		Stake:           new(uint256.Int).Set(stake),
		Fees:            fixed.Zero(),
		DescendantStake: fixed.Zero(),
		LazyFees:        fixed.Zero(),
	}
}

// TotalStake returns the stake of the node and all its descendants
func (n *Node) TotalStake() (*uint256.Int, error) {
	return fixed.CheckedAdd(n.Stake, n.DescendantStake)
}

// IsWeakLeaf reports whether no descendant of the node holds stake
func (n *Node) IsWeakLeaf() bool {
	return n.DescendantStake.IsZero()
}

// IsAbandoned reports whether the node has no owner
func (n *Node) IsAbandoned() bool {
	return n.Account == nil
}

// Clone returns a deep copy of the node
func (n *Node) Clone() *Node {
	c := &Node{
		Stake:           new(uint256.Int).Set(n.Stake),
		Fees:            new(uint256.Int).Set(n.Fees),
		DescendantStake: new(uint256.Int).Set(n.DescendantStake),
		LazyFees:        new(uint256.Int).Set(n.LazyFees),
	}
	if n.Account != nil {
		account := *n.Account
		c.Account = &account
	}
	return c
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package liquidity implements the liquidity-share tree of a pool.
//
// Liquidity providers occupy the nodes of a complete binary tree stored as a
// flat slice (children of node i are 2i+1 and 2i+2). Fees are deposited at
// the root as lazy fees and pushed down towards a node only when the node
// is touched, so depositing is O(1) and every other operation is
// O(depth).
package liquidity

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"

	"github.com/luxfi/neoswaps/fixed"
)

// MaxSupportedDepth bounds Config.MaxDepth so that node indices fit uint32
const MaxSupportedDepth = 30

// Config of a liquidity tree
type Config struct {
	// MaxDepth is the depth of the deepest leaf, the root has depth 0
	MaxDepth uint32
}

// MaxNodeCount returns 2^(MaxDepth+1) - 1
func (c Config) MaxNodeCount() uint32 {
	return uint32(1)<<(c.MaxDepth+1) - 1
}

// Verify checks the configuration
func (c Config) Verify() error {
	if c.MaxDepth > MaxSupportedDepth {
		return fmt.Errorf("%w: %d > %d", ErrInvalidDepth, c.MaxDepth, MaxSupportedDepth)
	}
	return nil
}

// Tree is the liquidity-share tree of one pool
type Tree struct {
	config         Config
	nodes          []*Node
	accountToIndex map[common.Address]uint32
	abandonedNodes []uint32
}

// New creates a tree whose root is owned by account with the given stake
func New(config Config, account common.Address, stake *uint256.Int) (*Tree, error) {
	if err := config.Verify(); err != nil {
		return nil, err
	}
	return &Tree{
		config:         config,
		nodes:          []*Node{NewNode(account, stake)},
		accountToIndex: map[common.Address]uint32{account: 0},
	}, nil
}

// Config returns the configuration of the tree
func (t *Tree) Config() Config {
	return t.config
}

// Clone returns a deep copy of the tree
func (t *Tree) Clone() *Tree {
	c := &Tree{
		config:         t.config,
		nodes:          make([]*Node, len(t.nodes)),
		accountToIndex: make(map[common.Address]uint32, len(t.accountToIndex)),
		abandonedNodes: append([]uint32(nil), t.abandonedNodes...),
	}
	for i, n := range t.nodes {
		c.nodes[i] = n.Clone()
	}
	for account, index := range t.accountToIndex {
		c.accountToIndex[account] = index
	}
	return c
}

// stage runs f on a copy of the tree and adopts the copy if f succeeds
func (t *Tree) stage(f func(staged *Tree) error) error {
	staged := t.Clone()
	if err := f(staged); err != nil {
		return err
	}
	*t = *staged
	return nil
}

// =========================================================================
// Liquidity shares
// =========================================================================

// Join adds stake to the position of who. New accounts take over the most
// recently abandoned node, or else the next free leaf.
func (t *Tree) Join(who common.Address, stake *uint256.Int) error {
	return t.stage(func(t *Tree) error {
		return t.join(who, stake)
	})
}

func (t *Tree) join(who common.Address, stake *uint256.Int) error {
	index, ok := t.accountToIndex[who]
	if ok {
		if err := t.PropagateFeesToNode(index); err != nil {
			return err
		}
		node := t.nodes[index]
		s, err := fixed.CheckedAdd(node.Stake, stake)
		if err != nil {
			return err
		}
		node.Stake = s
	} else {
		switch next, ok := t.nextFreeLeaf(); {
		case len(t.abandonedNodes) != 0:
			index = t.abandonedNodes[len(t.abandonedNodes)-1]
			t.abandonedNodes = t.abandonedNodes[:len(t.abandonedNodes)-1]
			if err := t.PropagateFeesToNode(index); err != nil {
				return err
			}
			node, err := t.node(index)
			if err != nil {
				return err
			}
			account := who
			node.Account = &account
			node.Stake = new(uint256.Int).Set(stake)
			node.Fees = fixed.Zero()
			node.LazyFees = fixed.Zero()
		case ok:
			index = next
			if parent, ok := parentIndex(index); ok {
				if err := t.PropagateFeesToNode(parent); err != nil {
					return err
				}
			}
			if uint32(len(t.nodes)) >= t.config.MaxNodeCount() {
				return ErrStorageOverflowNodes
			}
			t.nodes = append(t.nodes, NewNode(who, stake))
		default:
			return ErrTreeIsFull
		}
		if uint32(len(t.accountToIndex)) >= t.config.MaxNodeCount() {
			return ErrStorageOverflowAccountToIndex
		}
		t.accountToIndex[who] = index
	}
	if parent, ok := parentIndex(index); ok {
		return t.updateDescendantStakeOfAncestors(parent, stake, true)
	}
	return nil
}

// Exit removes stake from the position of who. A node whose stake drops to
// zero is abandoned and will be reused by the next new account.
func (t *Tree) Exit(who common.Address, stake *uint256.Int) error {
	return t.stage(func(t *Tree) error {
		return t.exit(who, stake)
	})
}

func (t *Tree) exit(who common.Address, stake *uint256.Int) error {
	index, err := t.mapAccountToIndex(who)
	if err != nil {
		return err
	}
	if err := t.PropagateFeesToNode(index); err != nil {
		return err
	}
	node := t.nodes[index]
	if !node.Fees.IsZero() {
		return ErrUnwithdrawnFees
	}
	if node.Stake.Lt(stake) {
		return fmt.Errorf("%w: %s < %s", ErrInsufficientStake, node.Stake, stake)
	}
	node.Stake = new(uint256.Int).Sub(node.Stake, stake)
	if node.Stake.IsZero() {
		if uint32(len(t.abandonedNodes)) >= t.config.MaxNodeCount() {
			return ErrStorageOverflowAbandonedNodes
		}
		node.Account = nil
		t.abandonedNodes = append(t.abandonedNodes, index)
		delete(t.accountToIndex, who)
	}
	if parent, ok := parentIndex(index); ok {
		return t.updateDescendantStakeOfAncestors(parent, stake, false)
	}
	return nil
}

// Split moves shares between accounts. Not supported.
func (t *Tree) Split(from, to common.Address, amount *uint256.Int) error {
	return ErrNotImplemented
}

// DepositFees distributes amount among all liquidity providers pro rata
func (t *Tree) DepositFees(amount *uint256.Int) error {
	root, err := t.node(0)
	if err != nil {
		return err
	}
	lazy, err := fixed.CheckedAdd(root.LazyFees, amount)
	if err != nil {
		return err
	}
	root.LazyFees = lazy
	return nil
}

// WithdrawFees returns the fees owed to who and resets them
func (t *Tree) WithdrawFees(who common.Address) (*uint256.Int, error) {
	var fees *uint256.Int
	err := t.stage(func(t *Tree) error {
		index, err := t.mapAccountToIndex(who)
		if err != nil {
			return err
		}
		if err := t.PropagateFeesToNode(index); err != nil {
			return err
		}
		node := t.nodes[index]
		fees = node.Fees
		node.Fees = fixed.Zero()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fees, nil
}

// SharesOf returns the stake of who
func (t *Tree) SharesOf(who common.Address) (*uint256.Int, error) {
	index, err := t.mapAccountToIndex(who)
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(t.nodes[index].Stake), nil
}

// FeesOf returns the fees owed to who, including lazy fees not yet pushed
// down to its node. The tree is left unchanged.
func (t *Tree) FeesOf(who common.Address) (*uint256.Int, error) {
	staged := t.Clone()
	index, err := staged.mapAccountToIndex(who)
	if err != nil {
		return nil, err
	}
	if err := staged.PropagateFeesToNode(index); err != nil {
		return nil, err
	}
	return new(uint256.Int).Set(staged.nodes[index].Fees), nil
}

// TotalShares returns the sum of all stakes
func (t *Tree) TotalShares() (*uint256.Int, error) {
	root, err := t.node(0)
	if err != nil {
		return nil, err
	}
	return root.TotalStake()
}

// Contains reports whether who holds a position
func (t *Tree) Contains(who common.Address) bool {
	_, ok := t.accountToIndex[who]
	return ok
}

// =========================================================================
// Fee propagation
// =========================================================================

// PropagateFeesToNode pushes lazy fees down along the path from the root
// to index
func (t *Tree) PropagateFeesToNode(index uint32) error {
	path, err := t.pathToNode(index)
	if err != nil {
		return err
	}
	for _, i := range path {
		if err := t.PropagateFees(i); err != nil {
			return err
		}
	}
	return nil
}

// PropagateFees splits the lazy fees of a node between the node itself and
// its children, in proportion to their total stakes
func (t *Tree) PropagateFees(index uint32) error {
	node, err := t.node(index)
	if err != nil {
		return err
	}
	total, err := node.TotalStake()
	if err != nil {
		return err
	}
	if total.IsZero() {
		return nil
	}
	if node.IsWeakLeaf() {
		if node.Fees, err = fixed.CheckedAdd(node.Fees, node.LazyFees); err != nil {
			return err
		}
		node.LazyFees = fixed.Zero()
		return nil
	}

	remaining, err := fixed.BmulBdiv(node.DescendantStake, node.LazyFees, total)
	if err != nil {
		return err
	}
	own, err := fixed.CheckedSub(node.LazyFees, remaining)
	if err != nil {
		return err
	}
	if node.Fees, err = fixed.CheckedAdd(node.Fees, own); err != nil {
		return err
	}
	lhs, rhs := t.children(index)
	if lhs != nil {
		lhsTotal, err := lhs.TotalStake()
		if err != nil {
			return err
		}
		share, err := fixed.BmulBdiv(lhsTotal, remaining, node.DescendantStake)
		if err != nil {
			return err
		}
		if lhs.LazyFees, err = fixed.CheckedAdd(lhs.LazyFees, share); err != nil {
			return err
		}
		if remaining, err = fixed.CheckedSub(remaining, share); err != nil {
			return err
		}
	}
	if rhs != nil {
		if rhs.LazyFees, err = fixed.CheckedAdd(rhs.LazyFees, remaining); err != nil {
			return err
		}
	}
	node.LazyFees = fixed.Zero()
	return nil
}

// =========================================================================
// Navigation
// =========================================================================

func (t *Tree) node(index uint32) (*Node, error) {
	if index >= t.NodeCount() {
		return nil, fmt.Errorf("%w: %d", ErrNodeNotFound, index)
	}
	return t.nodes[index], nil
}

func (t *Tree) mapAccountToIndex(who common.Address) (uint32, error) {
	index, ok := t.accountToIndex[who]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, who)
	}
	return index, nil
}

// NodeCount returns the number of allocated nodes
func (t *Tree) NodeCount() uint32 {
	return uint32(len(t.nodes))
}

func (t *Tree) children(index uint32) (lhs, rhs *Node) {
	l := 2*uint64(index) + 1
	if l < uint64(t.NodeCount()) {
		lhs = t.nodes[l]
	}
	if l+1 < uint64(t.NodeCount()) {
		rhs = t.nodes[l+1]
	}
	return lhs, rhs
}

func parentIndex(index uint32) (uint32, bool) {
	if index == 0 {
		return 0, false
	}
	return (index - 1) / 2, true
}

// pathToNode returns the indices from the root to index, inclusive
func (t *Tree) pathToNode(index uint32) ([]uint32, error) {
	path := []uint32{index}
	for i := uint32(0); ; i++ {
		if i > t.config.MaxDepth {
			return nil, ErrMaxIterationsReached
		}
		parent, ok := parentIndex(index)
		if !ok {
			break
		}
		path = append(path, parent)
		index = parent
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

func (t *Tree) nextFreeLeaf() (uint32, bool) {
	if count := t.NodeCount(); count < t.config.MaxNodeCount() {
		return count, true
	}
	return 0, false
}

func (t *Tree) updateDescendantStakeOfAncestors(index uint32, delta *uint256.Int, add bool) error {
	path, err := t.pathToNode(index)
	if err != nil {
		return err
	}
	for _, i := range path {
		node := t.nodes[i]
		if add {
			node.DescendantStake, err = fixed.CheckedAdd(node.DescendantStake, delta)
		} else {
			node.DescendantStake, err = fixed.CheckedSub(node.DescendantStake, delta)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

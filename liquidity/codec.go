// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package liquidity

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/rlp"
)

// accountIndex is one entry of the account to node index map
type accountIndex struct {
	Account common.Address
	Index   uint32
}

// encodedTree is the RLP layout of a tree. The account map is stored as a
// slice sorted by account so that equal trees encode to equal bytes.
type encodedTree struct {
	MaxDepth       uint32
	Nodes          []*Node
	AccountToIndex []accountIndex
	AbandonedNodes []uint32
}

// EncodeRLP implements rlp.Encoder
func (t *Tree) EncodeRLP(w io.Writer) error {
	enc := encodedTree{
		MaxDepth:       t.config.MaxDepth,
		Nodes:          t.nodes,
		AccountToIndex: make([]accountIndex, 0, len(t.accountToIndex)),
		AbandonedNodes: t.abandonedNodes,
	}
	for account, index := range t.accountToIndex {
		enc.AccountToIndex = append(enc.AccountToIndex, accountIndex{Account: account, Index: index})
	}
	sort.Slice(enc.AccountToIndex, func(i, j int) bool {
		return bytes.Compare(enc.AccountToIndex[i].Account[:], enc.AccountToIndex[j].Account[:]) < 0
	})
	return rlp.Encode(w, &enc)
}

// DecodeRLP implements rlp.Decoder
func (t *Tree) DecodeRLP(s *rlp.Stream) error {
	var enc encodedTree
	if err := s.Decode(&enc); err != nil {
		return err
	}
	config := Config{MaxDepth: enc.MaxDepth}
	if err := config.Verify(); err != nil {
		return err
	}
	limit := uint64(config.MaxNodeCount())
	if uint64(len(enc.Nodes)) > limit {
		return fmt.Errorf("%w: %d > %d", ErrStorageOverflowNodes, len(enc.Nodes), limit)
	}
	if uint64(len(enc.AccountToIndex)) > limit {
		return fmt.Errorf("%w: %d > %d", ErrStorageOverflowAccountToIndex, len(enc.AccountToIndex), limit)
	}
	if uint64(len(enc.AbandonedNodes)) > limit {
		return fmt.Errorf("%w: %d > %d", ErrStorageOverflowAbandonedNodes, len(enc.AbandonedNodes), limit)
	}
	accountToIndex := make(map[common.Address]uint32, len(enc.AccountToIndex))
	for _, entry := range enc.AccountToIndex {
		if entry.Index >= uint32(len(enc.Nodes)) {
			return fmt.Errorf("%w: %d", ErrNodeNotFound, entry.Index)
		}
		accountToIndex[entry.Account] = entry.Index
	}
	for _, index := range enc.AbandonedNodes {
		if index >= uint32(len(enc.Nodes)) {
			return fmt.Errorf("%w: abandoned index %d of %d nodes", ErrStorageOverflowAbandonedNodes, index, len(enc.Nodes))
		}
	}
	*t = Tree{
		config:         config,
		nodes:          enc.Nodes,
		accountToIndex: accountToIndex,
		abandonedNodes: enc.AbandonedNodes,
	}
	return nil
}

// Encode returns the RLP encoding of the tree
func (t *Tree) Encode() ([]byte, error) {
	return rlp.EncodeToBytes(t)
}

// Decode parses an RLP-encoded tree
func Decode(data []byte) (*Tree, error) {
	t := new(Tree)
	if err := rlp.DecodeBytes(data, t); err != nil {
		return nil, fmt.Errorf("failed to decode liquidity tree: %w", err)
	}
	return t, nil
}

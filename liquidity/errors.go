// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package liquidity

import (
	"errors"
	"fmt"
)

// Tree errors
var (
	ErrAccountNotFound      = errors.New("liquidity tree: account not found")
	ErrNodeNotFound         = errors.New("liquidity tree: node not found")
	ErrTreeIsFull           = errors.New("liquidity tree: tree is full")
	ErrUnwithdrawnFees      = errors.New("liquidity tree: account has unwithdrawn fees")
	ErrInsufficientStake    = errors.New("liquidity tree: insufficient stake")
	ErrMaxIterationsReached = errors.New("liquidity tree: maximum number of iterations reached")
	ErrNotImplemented       = errors.New("liquidity tree: not implemented")
	ErrInvalidDepth         = errors.New("liquidity tree: invalid maximum depth")
	ErrStorageOverflow      = errors.New("liquidity tree: storage overflow")
)

// Storage overflow variants, one per bounded collection
var (
	ErrStorageOverflowNodes          = fmt.Errorf("%w: nodes", ErrStorageOverflow)
	ErrStorageOverflowAccountToIndex = fmt.Errorf("%w: account to index", ErrStorageOverflow)
	ErrStorageOverflowAbandonedNodes = fmt.Errorf("%w: abandoned nodes", ErrStorageOverflow)
)

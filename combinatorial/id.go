// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package combinatorial

import (
	"encoding/binary"
	"errors"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
	"github.com/zeebo/blake3"

	"github.com/luxfi/neoswaps/market"
)

// ID is a collection or position id
type ID = [32]byte

// DefaultFuel bounds the search for a curve point when decompressing a
// hash. Each step succeeds with probability about 1/2.
const DefaultFuel uint32 = 32

var (
	ErrPointNotFound           = errors.New("curve point not found within fuel")
	ErrInvalidParentCollection = errors.New("invalid parent collection id")
	ErrCollectionAtInfinity    = errors.New("collection id is the point at infinity")
	ErrInvalidPartition        = errors.New("invalid partition")
)

const (
	msbMask       = 0b1000_0000
	secondMsbMask = 0b0100_0000
	chopMask      = 0b0011_1111
)

var curveB = new(fp.Element).SetUint64(3)

// hashTuple is blake3 over the concatenation of the parts
func hashTuple(parts ...[]byte) ID {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out ID
	h.Digest().Read(out[:])
	return out
}

func indexSetBytes(indexSet []bool) []byte {
	b := make([]byte, len(indexSet))
	for i, v := range indexSet {
		if v {
			b[i] = 1
		}
	}
	return b
}

// CollectionID derives the id of the collection that conditions parent on
// the outcomes of marketID selected by indexSet. A nil parent denotes the
// root collection. Collection ids are compressed points of the BN254 G1
// curve, so combining conditions is point addition and is commutative.
func CollectionID(parent *ID, marketID market.ID, indexSet []bool, fuel uint32) (ID, error) {
	var marketBytes [8]byte
	binary.BigEndian.PutUint64(marketBytes[:], uint64(marketID))
	hash := hashTuple(marketBytes[:], indexSetBytes(indexSet))

	u, err := decompressHash(hash, fuel)
	if err != nil {
		return ID{}, err
	}
	if parent != nil {
		v, err := decompressCollectionID(*parent)
		if err != nil {
			return ID{}, err
		}
		var sum bn254.G1Jac
		sum.FromAffine(&u)
		sum.AddMixed(&v)
		u.FromJacobian(&sum)
		if u.IsInfinity() {
			return ID{}, ErrCollectionAtInfinity
		}
	}
	return compress(&u), nil
}

// PositionID derives the token id of a collection backed by collateral
func PositionID(collateral market.Asset, collectionID ID) ID {
	return hashTuple(collateral.Bytes(), collectionID[:])
}

func isOdd(e *fp.Element) bool {
	b := e.Bytes()
	return b[len(b)-1]&1 == 1
}

// matchingY returns y with (x, y) on y^2 = x^3 + 3, or false if x^3 + 3
// is not a square
func matchingY(x *fp.Element) (fp.Element, bool) {
	var yy fp.Element
	yy.Square(x).Mul(&yy, x).Add(&yy, curveB)
	var y fp.Element
	if y.Sqrt(&yy) == nil {
		return fp.Element{}, false
	}
	return y, true
}

// decompressHash maps a hash onto the curve by stepping x up from the hash
// until x^3 + 3 is a square. The most significant bit of the hash picks the
// parity of y.
func decompressHash(hash ID, fuel uint32) (bn254.G1Affine, error) {
	odd := hash[0]&msbMask != 0
	var x fp.Element
	x.SetBytes(hash[:])
	var one fp.Element
	one.SetOne()
	for i := uint32(0); i < fuel; i++ {
		x.Add(&x, &one)
		y, ok := matchingY(&x)
		if !ok {
			continue
		}
		if odd != isOdd(&y) {
			y.Neg(&y)
		}
		return bn254.G1Affine{X: x, Y: y}, nil
	}
	return bn254.G1Affine{}, ErrPointNotFound
}

// decompressCollectionID inverts compress. The two highest bits carry the
// flag and the parity of y, the remainder must be a canonical x coordinate.
func decompressCollectionID(id ID) (bn254.G1Affine, error) {
	odd := id[0]&secondMsbMask != 0
	chopped := id
	chopped[0] &= chopMask
	var x fp.Element
	if err := x.SetBytesCanonical(chopped[:]); err != nil {
		return bn254.G1Affine{}, ErrInvalidParentCollection
	}
	y, ok := matchingY(&x)
	if !ok {
		return bn254.G1Affine{}, ErrInvalidParentCollection
	}
	if odd != isOdd(&y) {
		y.Neg(&y)
	}
	return bn254.G1Affine{X: x, Y: y}, nil
}

// compress encodes x big-endian and flips the second highest bit when y is
// odd. The modulus is below 2^254 so the top two bits of x are free.
func compress(p *bn254.G1Affine) ID {
	out := p.X.Bytes()
	if isOdd(&p.Y) {
		out[0] ^= secondMsbMask
	}
	return out
}

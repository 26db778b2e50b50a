// Copyright 2025 The gVisor Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bitmap provides a fixed-size bitmap.
package bitmap

import (
	"fmt"
	"math/bits"
)

// Bitmap is a set of integers in [0, size).
type Bitmap struct {
	// size is the number of valid bits.
	size uint64

	// numOnes is the number of ones in the bitmap.
	numOnes uint64

	// bitBlock holds the bits. Each number in bitBlock contains 64 entries.
	// Bits at or above size are never set.
	bitBlock []uint64
}

// New creates a new empty Bitmap holding size bits.
func New(size uint64) Bitmap {
	return Bitmap{
		size:     size,
		bitBlock: make([]uint64, (size+63)/64),
	}
}

// Size returns the total number of bits in the bitmap.
func (b *Bitmap) Size() uint64 {
	return b.size
}

// Count returns the number of set bits.
func (b *Bitmap) Count() uint64 {
	return b.numOnes
}

// IsEmpty verifies whether the Bitmap is empty.
func (b *Bitmap) IsEmpty() bool {
	return b.numOnes == 0
}

func (b *Bitmap) checkRange(i uint64) {
	if i >= b.size {
		panic(fmt.Sprintf("bit %d out of range [0, %d)", i, b.size))
	}
}

// Contains returns true if bit i is set.
func (b *Bitmap) Contains(i uint64) bool {
	b.checkRange(i)
	return b.bitBlock[i/64]&(1<<(i%64)) != 0
}

// Add sets bit i. It returns false if the bit was already set.
func (b *Bitmap) Add(i uint64) bool {
	b.checkRange(i)
	mask := uint64(1) << (i % 64)
	if b.bitBlock[i/64]&mask != 0 {
		return false
	}
	b.bitBlock[i/64] |= mask
	b.numOnes++
	return true
}

// Remove clears bit i. It returns false if the bit was not set.
func (b *Bitmap) Remove(i uint64) bool {
	b.checkRange(i)
	mask := uint64(1) << (i % 64)
	if b.bitBlock[i/64]&mask == 0 {
		return false
	}
	b.bitBlock[i/64] &^= mask
	b.numOnes--
	return true
}

// FirstZero returns the first unset bit in [start, size). ok is false if
// there is none.
func (b *Bitmap) FirstZero(start uint64) (bit uint64, ok bool) {
	if start >= b.size {
		return 0, false
	}
	i, nbit := start/64, start%64
	n := uint64(len(b.bitBlock))
	w := b.bitBlock[i] | ((1 << nbit) - 1)
	for {
		if w != ^uint64(0) {
			r := i*64 + uint64(bits.TrailingZeros64(^w))
			// The tail of the last block is never set.
			return r, r < b.size
		}
		i++
		if i == n {
			return 0, false
		}
		w = b.bitBlock[i]
	}
}

// FirstZeroFrom returns an unset bit, searching [start, size) and then
// [0, start).
func (b *Bitmap) FirstZeroFrom(start uint64) (bit uint64, ok bool) {
	if bit, ok := b.FirstZero(start); ok {
		return bit, true
	}
	if start == 0 {
		return 0, false
	}
	bit, ok = b.FirstZero(0)
	return bit, ok && bit < start
}

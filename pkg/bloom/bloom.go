/*
Copyright 2011 Google Inc.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

     http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package bloom implements the fixed-size probabilistic membership filter
// used as a partition's membership filter.
package bloom

import (
	"math"

	"github.com/spaolacci/murmur3"
	"merkledb.io/pkg/merr"
)

// Filter is a fixed-size bit array of length 2^bits with k hash positions
// per element, derived from murmur3's 128-bit sum via double hashing
// (h1 + i*h2).
type Filter struct {
	bits  int // log2 of the bit-array length
	k     int
	words []uint64 // bit-array, packed 64 bits per word
}

// New creates an empty filter with 2^bits bits and k hash positions per
// inserted element.
func New(bits, k int) *Filter {
	if bits <= 0 || k <= 0 {
		panic("bloom: bits and k must be positive")
	}
	nwords := (1<<uint(bits) + 63) / 64
	return &Filter{bits: bits, k: k, words: make([]uint64, nwords)}
}

// NewWithRate sizes a filter for expectedN inserted elements at the given
// target false-positive rate (default 1% when rate <= 0).
func NewWithRate(expectedN int, falsePositiveRate float64) *Filter {
	if expectedN <= 0 {
		expectedN = 1
	}
	if falsePositiveRate <= 0 {
		falsePositiveRate = 0.01
	}
	// m = -(n * ln(p)) / (ln2)^2 ; k = (m/n) * ln2
	m := -float64(expectedN) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)
	bits := int(math.Ceil(math.Log2(math.Max(m, 2))))
	if bits < 1 {
		bits = 1
	}
	size := float64(uint64(1) << uint(bits))
	k := int(math.Round((size / float64(expectedN)) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return New(bits, k)
}

func (f *Filter) size() uint64 { return 1 << uint(f.bits) }

func (f *Filter) positions(key []byte) []uint64 {
	h1, h2 := murmur3.Sum128(key)
	mask := f.size() - 1
	locs := make([]uint64, f.k)
	for i := 0; i < f.k; i++ {
		locs[i] = (h1 + uint64(i)*h2) & mask
	}
	return locs
}

func (f *Filter) setBit(pos uint64) {
	f.words[pos/64] |= 1 << (pos % 64)
}

func (f *Filter) testBit(pos uint64) bool {
	return f.words[pos/64]&(1<<(pos%64)) != 0
}

// Insert adds key to the filter. Monotonic: it never clears a bit.
func (f *Filter) Insert(key []byte) {
	for _, pos := range f.positions(key) {
		f.setBit(pos)
	}
}

// Contains reports whether key may have been inserted. False positives are
// possible; false negatives are not.
func (f *Filter) Contains(key []byte) bool {
	for _, pos := range f.positions(key) {
		if !f.testBit(pos) {
			return false
		}
	}
	return true
}

// Merge ORs other into f. Both filters must share the same bits and k.
func (f *Filter) Merge(other *Filter) error {
	if f.bits != other.bits || f.k != other.k {
		return merr.InvariantViolationf("bloom: cannot merge filters with bits=%d,k=%d and bits=%d,k=%d", f.bits, f.k, other.bits, other.k)
	}
	for i, w := range other.words {
		f.words[i] |= w
	}
	return nil
}

// MarshalTriple returns the persisted (k, bits, bin-bytes) triple.
func (f *Filter) MarshalTriple() (k, bits int, data []byte) {
	data = make([]byte, len(f.words)*8)
	for i, w := range f.words {
		for b := 0; b < 8; b++ {
			data[i*8+b] = byte(w >> (8 * b))
		}
	}
	return f.k, f.bits, data
}

// UnmarshalTriple reconstructs a filter from a persisted triple.
func UnmarshalTriple(k, bits int, data []byte) (*Filter, error) {
	f := New(bits, k)
	if len(data) != len(f.words)*8 {
		return nil, merr.InvalidArgumentf("bloom: expected %d bytes for bits=%d, got %d", len(f.words)*8, bits, len(data))
	}
	for i := range f.words {
		var w uint64
		for b := 0; b < 8; b++ {
			w |= uint64(data[i*8+b]) << (8 * b)
		}
		f.words[i] = w
	}
	return f, nil
}

// K returns the number of hash positions per element.
func (f *Filter) K() int { return f.k }

// Bits returns log2 of the bit-array length.
func (f *Filter) Bits() int { return f.bits }

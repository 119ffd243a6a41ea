// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import "sync"

// Bloom is an approximate membership filter over 64-bit keys.
//
// Description:
//
//	Sits in front of the exact existence probe as a fast negative
//	filter: MightContain == false means the key was definitely never
//	added; true means "probably added" and the caller falls through to
//	the exact check, so false positives only cost a probe.
//
//	Uses k independent positions derived from two mixes of the key
//	(Kirsch-Mitzenmacher double hashing), which matches the seeded
//	hash-family construction contract with a tunable false-positive
//	rate.
//
// Thread Safety: Safe for concurrent use; a single RWMutex guards the
// bit array. Add is brief, so contention stays on the reader side.
type Bloom struct {
	mu     sync.RWMutex
	bits   []uint64
	nbits  uint64
	hashes int
}

const (
	// DefaultBloomBits sizes the filter for ~10M keys at a few percent
	// false positives.
	DefaultBloomBits = 1 << 26

	// DefaultBloomHashes is the number of probe positions per key.
	DefaultBloomHashes = 3
)

// NewBloom creates a filter with nbits bits (rounded up to a multiple
// of 64) and the given number of hash probes. Non-positive arguments
// fall back to the defaults.
func NewBloom(nbits int, hashes int) *Bloom {
	if nbits <= 0 {
		nbits = DefaultBloomBits
	}
	if hashes <= 0 {
		hashes = DefaultBloomHashes
	}
	words := (nbits + 63) / 64
	return &Bloom{
		bits:   make([]uint64, words),
		nbits:  uint64(words) * 64,
		hashes: hashes,
	}
}

// Add marks key as present.
func (b *Bloom) Add(key uint64) {
	h1, h2 := mix(key)
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := 0; i < b.hashes; i++ {
		pos := (h1 + uint64(i)*h2) % b.nbits
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// MightContain reports whether key may have been added. False is
// definitive; true may be a false positive.
func (b *Bloom) MightContain(key uint64) bool {
	h1, h2 := mix(key)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for i := 0; i < b.hashes; i++ {
		pos := (h1 + uint64(i)*h2) % b.nbits
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// mix derives two independent 64-bit hashes from key using the
// splitmix64 finalizer with distinct increments.
func mix(key uint64) (uint64, uint64) {
	return splitmix64(key + 0x9e3779b97f4a7c15), splitmix64(key + 0xbf58476d1ce4e5b9)
}

func splitmix64(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}

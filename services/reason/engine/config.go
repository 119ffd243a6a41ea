// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"fmt"
	"runtime"

	"github.com/AleutianAI/AleutianReason/services/reason/cache"
)

// Config controls the fixpoint driver's concurrency and caching.
//
// A zero-value Config is usable: every field falls back to its default
// when non-positive.
type Config struct {
	// Workers is the phase-2 worker count. Default: runtime.NumCPU().
	Workers int `yaml:"workers"`

	// ShardCount is the number of predicate shard locks. Default: 24.
	ShardCount int `yaml:"shard_count"`

	// ExistenceCacheSize is the LRU capacity for the existence cache.
	// Default: 100000.
	ExistenceCacheSize int `yaml:"existence_cache_size"`

	// BloomBits is the Bloom filter size in bits. Default: 2^26.
	BloomBits int `yaml:"bloom_bits"`

	// BloomHashes is the number of Bloom probe positions. Default: 3.
	BloomHashes int `yaml:"bloom_hashes"`

	// DisableBloom turns the negative prefilter off entirely. The
	// exact existence check is unaffected.
	DisableBloom bool `yaml:"disable_bloom"`
}

// DefaultShardCount is the recommended predicate shard-lock count.
const DefaultShardCount = 24

// DefaultConfig returns the recommended engine settings.
func DefaultConfig() Config {
	return Config{
		Workers:            runtime.NumCPU(),
		ShardCount:         DefaultShardCount,
		ExistenceCacheSize: cache.DefaultLRUCapacity,
		BloomBits:          cache.DefaultBloomBits,
		BloomHashes:        cache.DefaultBloomHashes,
	}
}

// Validate rejects negative settings. Zero values are allowed and mean
// "use the default".
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must not be negative, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.ShardCount < 0 {
		return fmt.Errorf("%w: shard_count must not be negative, got %d", ErrInvalidConfig, c.ShardCount)
	}
	if c.ExistenceCacheSize < 0 {
		return fmt.Errorf("%w: existence_cache_size must not be negative, got %d", ErrInvalidConfig, c.ExistenceCacheSize)
	}
	if c.BloomBits < 0 {
		return fmt.Errorf("%w: bloom_bits must not be negative, got %d", ErrInvalidConfig, c.BloomBits)
	}
	if c.BloomHashes < 0 {
		return fmt.Errorf("%w: bloom_hashes must not be negative, got %d", ErrInvalidConfig, c.BloomHashes)
	}
	return nil
}

// normalized returns a copy with defaults filled in for zero fields.
func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ShardCount <= 0 {
		c.ShardCount = DefaultShardCount
	}
	if c.ExistenceCacheSize <= 0 {
		c.ExistenceCacheSize = cache.DefaultLRUCapacity
	}
	if c.BloomBits <= 0 {
		c.BloomBits = cache.DefaultBloomBits
	}
	if c.BloomHashes <= 0 {
		c.BloomHashes = cache.DefaultBloomHashes
	}
	return c
}

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
	"hash/fnv"

	"github.com/AleutianAI/AleutianReason/services/reason/cache"
	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// existenceChecker answers "is this triple already stored?" without a
// trie walk on the hot path: a Bloom filter rejects most never-seen
// triples, an LRU remembers recent exact answers, and only misses fall
// through to the store's PSO descent.
//
// The caches are an optimization of the exact check, never a
// replacement: the authoritative dedup decision is always made under
// the predicate's shard lock with the store as ground truth.
type existenceChecker struct {
	store *store.TripleStore
	lru   *cache.LRU[store.Triple, bool]
	bloom *cache.Bloom // nil when disabled
}

func newExistenceChecker(s *store.TripleStore, cfg Config) *existenceChecker {
	e := &existenceChecker{
		store: s,
		lru:   cache.NewLRU[store.Triple, bool](cfg.ExistenceCacheSize),
	}
	if !cfg.DisableBloom {
		e.bloom = cache.NewBloom(cfg.BloomBits, cfg.BloomHashes)
		// Facts already in the store never pass through markInstalled;
		// add them here so the filter only rejects truly absent triples.
		for _, t := range s.Triples() {
			e.bloom.Add(compositeKey(t))
		}
	}
	return e
}

// compositeKey folds the three 32-bit IDs into the 64-bit key the Bloom
// filter probes on. The fold is lossy; the filter tolerates collisions
// because a positive always triggers the exact probe.
func compositeKey(t store.Triple) uint64 {
	return uint64(t.Subject)<<40 ^ uint64(t.Predicate)<<20 ^ uint64(t.Object)
}

// exists reports whether t is in the store. The caller must hold the
// shard lock for t's predicate: the lock is what makes the cached
// negative safe, since no install of this predicate can race it, and
// what keeps exactly one winner between concurrent derivations of the
// same fact.
func (e *existenceChecker) exists(t store.Triple) bool {
	if e.bloom != nil && !e.bloom.MightContain(compositeKey(t)) {
		return false
	}
	if known, ok := e.lru.Get(t); ok {
		return known
	}
	known := e.store.Contains(t)
	e.lru.Set(t, known)
	return known
}

// probe is the lock-free variant used by evaluation pre-checks. It
// caches only positive answers: a positive can never go stale (facts
// are never deleted), while caching a negative here could race an
// install and wrongly reject derivations forever after. A transient
// false answer is healed by the installer's own enqueue.
func (e *existenceChecker) probe(t store.Triple) bool {
	if e.bloom != nil && !e.bloom.MightContain(compositeKey(t)) {
		return false
	}
	if known, ok := e.lru.Get(t); ok {
		return known
	}
	known := e.store.Contains(t)
	if known {
		e.lru.Set(t, true)
	}
	return known
}

// markInstalled records that t is now stored, overwriting any stale
// negative cache entry.
func (e *existenceChecker) markInstalled(t store.Triple) {
	if e.bloom != nil {
		e.bloom.Add(compositeKey(t))
	}
	e.lru.Set(t, true)
}

// stats returns the LRU hit/miss counters for post-run logging.
func (e *existenceChecker) stats() (hits, misses int64) {
	return e.lru.Stats()
}

// shardIndex maps a predicate term to its shard lock slot.
func shardIndex(predicate string, shards int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(predicate))
	return int(h.Sum32() % uint32(shards))
}

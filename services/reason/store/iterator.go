// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"math"
	"sort"
	"sync"
)

// TrieIterator walks one level of a trie in ascending key order with a
// logarithmic lower-bound Seek.
//
// The capability set {Key, AtEnd, Next, Seek, Open} is exactly what
// leapfrog join needs.
//
// Thread Safety:
//
//	Iterators created through the TripleStore share its reader lock:
//	every B-tree access takes the lock, so stepping is safe while the
//	fixpoint driver threads new facts into the live trie. Facts are
//	only ever added, and Seek is monotone, so an insert racing a live
//	join is observed as either present or not-yet-present; the
//	not-yet-present case is re-derived through the propagation queue.
//	Key and AtEnd read cached state and take no lock.
type TrieIterator struct {
	node *TrieNode
	mu   *sync.RWMutex
	cur  trieEntry
	end  bool
}

// NewTrieIterator creates an unsynchronized iterator over node's
// children, positioned at the smallest key. A nil node yields an
// iterator that is already at the end. Callers that iterate while the
// trie may be mutated must construct iterators through the TripleStore
// instead.
func NewTrieIterator(node *TrieNode) *TrieIterator {
	return newTrieIterator(node, nil)
}

func newTrieIterator(node *TrieNode, mu *sync.RWMutex) *TrieIterator {
	it := &TrieIterator{node: node, mu: mu}
	if node == nil {
		it.end = true
		return it
	}
	it.rlock()
	defer it.runlock()
	if min, ok := node.children.Min(); ok {
		it.cur = min
	} else {
		it.end = true
	}
	return it
}

func (it *TrieIterator) rlock() {
	if it.mu != nil {
		it.mu.RLock()
	}
}

func (it *TrieIterator) runlock() {
	if it.mu != nil {
		it.mu.RUnlock()
	}
}

// Key returns the current child key. Only valid while !AtEnd().
func (it *TrieIterator) Key() ID { return it.cur.key }

// AtEnd reports whether the iterator has moved past the last child.
func (it *TrieIterator) AtEnd() bool { return it.end }

// Next advances to the next child in ascending order.
func (it *TrieIterator) Next() {
	if it.end {
		return
	}
	if it.cur.key == math.MaxUint32 {
		it.end = true
		return
	}
	it.Seek(it.cur.key + 1)
}

// Seek positions the iterator at the first child with key >= target.
// If no such child exists the iterator is at the end.
func (it *TrieIterator) Seek(target ID) {
	if it.node == nil {
		it.end = true
		return
	}
	it.rlock()
	defer it.runlock()
	found := false
	it.node.children.AscendGreaterOrEqual(trieEntry{key: target}, func(e trieEntry) bool {
		it.cur = e
		found = true
		return false
	})
	it.end = !found
}

// Open returns an iterator over the current child's children. Only
// valid while !AtEnd().
func (it *TrieIterator) Open() *TrieIterator {
	if it.end {
		return newTrieIterator(nil, it.mu)
	}
	return newTrieIterator(it.cur.node, it.mu)
}

// LeapfrogJoin emits the ascending intersection of the current-level
// keys of a set of trie iterators.
//
// Algorithm: keep the iterators sorted by current key; repeatedly seek
// every iterator whose key trails the maximum forward to it. When all
// keys agree the key is in the intersection; advancing rotates to the
// next iterator round-robin and re-converges. Cost is O(n log m) per
// emitted key for n iterators of cardinality m, independent of the key
// universe.
type LeapfrogJoin struct {
	iters []*TrieIterator
	p     int
	done  bool
}

// NewLeapfrogJoin builds a join over iters. The join is immediately
// positioned at the first intersection key, or at the end when the
// intersection is empty. An empty iterator set yields an empty join.
func NewLeapfrogJoin(iters []*TrieIterator) *LeapfrogJoin {
	lj := &LeapfrogJoin{iters: iters}
	if len(iters) == 0 {
		lj.done = true
		return lj
	}
	for _, it := range iters {
		if it.AtEnd() {
			lj.done = true
			return lj
		}
	}
	sort.Slice(lj.iters, func(i, j int) bool {
		return lj.iters[i].Key() < lj.iters[j].Key()
	})
	lj.search()
	return lj
}

// AtEnd reports whether the intersection is exhausted.
func (lj *LeapfrogJoin) AtEnd() bool { return lj.done }

// Key returns the current intersection key. Only valid while !AtEnd().
func (lj *LeapfrogJoin) Key() ID { return lj.iters[lj.p].Key() }

// Open descends into the subtree of the iterator at the current key.
func (lj *LeapfrogJoin) Open() *TrieIterator { return lj.iters[lj.p].Open() }

// Next advances past the current intersection key.
func (lj *LeapfrogJoin) Next() {
	if lj.done {
		return
	}
	lj.iters[lj.p].Next()
	if lj.iters[lj.p].AtEnd() {
		lj.done = true
		return
	}
	lj.p = (lj.p + 1) % len(lj.iters)
	lj.search()
}

// search converges all iterators on a common key, seeking trailing
// iterators up to the current maximum until all agree or one runs out.
func (lj *LeapfrogJoin) search() {
	for {
		maxKey := lj.iters[0].Key()
		for _, it := range lj.iters {
			if it.Key() > maxKey {
				maxKey = it.Key()
			}
		}
		allEqual := true
		for _, it := range lj.iters {
			if it.Key() < maxKey {
				it.Seek(maxKey)
				if it.AtEnd() {
					lj.done = true
					return
				}
				allEqual = false
			}
		}
		if allEqual {
			return
		}
	}
}

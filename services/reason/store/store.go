// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store implements the dictionary-encoded triple store backing
// the reasoner: a string pool, an append-only fact vector with
// per-component indexes, and dual PSO/POS tries with leapfrog-joinable
// iterators.
package store

import "sync"

// TripleStore is the in-memory fact container.
//
// Description:
//
//	Facts are ID triples appended once and never deleted. Three
//	ID-keyed indexes answer "which facts mention this subject /
//	predicate / object", and two tries (PSO and POS) give the ordered
//	prefix navigation the join engine needs. A fact's presence in both
//	tries is established atomically with respect to readers.
//
// Thread Safety:
//
//	Safe for concurrent use. Add takes the exclusive lock; reads and
//	iterator construction take the shared lock. The fixpoint driver
//	additionally serializes check-then-install sequences per predicate
//	with its shard locks; the store lock only guarantees memory safety
//	of the underlying maps, slices, and trie structure.
type TripleStore struct {
	pool *StringPool

	mu          sync.RWMutex
	facts       []Triple
	bySubject   map[ID][]uint32
	byPredicate map[ID][]uint32
	byObject    map[ID][]uint32
	pso         *Trie
	pos         *Trie
}

// initialFactCapacity pre-reserves the fact vector and indexes so the
// early growth of large loads happens without repeated reallocation.
const initialFactCapacity = 1 << 16

// NewTripleStore creates an empty store over pool.
func NewTripleStore(pool *StringPool) *TripleStore {
	return &TripleStore{
		pool:        pool,
		facts:       make([]Triple, 0, initialFactCapacity),
		bySubject:   make(map[ID][]uint32, initialFactCapacity/4),
		byPredicate: make(map[ID][]uint32, 256),
		byObject:    make(map[ID][]uint32, initialFactCapacity/4),
		pso:         NewTrie(),
		pos:         NewTrie(),
	}
}

// Pool returns the string pool the store interns terms through.
func (s *TripleStore) Pool() *StringPool { return s.pool }

// Add inserts t if not already present and reports whether it was new.
// All three indexes and both tries are updated before the lock is
// released, so a reader that sees the fact's index entry also finds it
// in both tries.
func (s *TripleStore) Add(t Triple) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pso.Insert(t.Predicate, t.Subject, t.Object) {
		return false
	}
	s.pos.Insert(t.Predicate, t.Object, t.Subject)

	idx := uint32(len(s.facts))
	s.facts = append(s.facts, t)
	s.bySubject[t.Subject] = append(s.bySubject[t.Subject], idx)
	s.byPredicate[t.Predicate] = append(s.byPredicate[t.Predicate], idx)
	s.byObject[t.Object] = append(s.byObject[t.Object], idx)
	return true
}

// AddTerms interns the three term strings and inserts the resulting
// triple. This is the loader-facing insert path.
func (s *TripleStore) AddTerms(subject, predicate, object string) (Triple, bool, error) {
	sID, err := s.pool.Intern(subject)
	if err != nil {
		return Triple{}, false, err
	}
	pID, err := s.pool.Intern(predicate)
	if err != nil {
		return Triple{}, false, err
	}
	oID, err := s.pool.Intern(object)
	if err != nil {
		return Triple{}, false, err
	}
	t := Triple{Subject: sID, Predicate: pID, Object: oID}
	return t, s.Add(t), nil
}

// Contains reports whether t is stored, by descending the PSO trie to
// its leaf.
func (s *TripleStore) Contains(t Triple) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	node := s.pso.Descend(t.Predicate, t.Subject, t.Object)
	return node != nil && node.Leaf()
}

// Len returns the number of stored facts.
func (s *TripleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.facts)
}

// TripleByIndex returns the fact at insertion index i.
func (s *TripleStore) TripleByIndex(i uint32) (Triple, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if int(i) >= len(s.facts) {
		return Triple{}, false
	}
	return s.facts[i], true
}

// Triples returns a copy of all stored facts in insertion order.
func (s *TripleStore) Triples() []Triple {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Triple, len(s.facts))
	copy(out, s.facts)
	return out
}

// IndexesBySubjectID returns the insertion indexes of facts with the
// given subject.
func (s *TripleStore) IndexesBySubjectID(id ID) []uint32 {
	return s.copyIndex(s.bySubject, id)
}

// IndexesByPredicateID returns the insertion indexes of facts with the
// given predicate.
func (s *TripleStore) IndexesByPredicateID(id ID) []uint32 {
	return s.copyIndex(s.byPredicate, id)
}

// IndexesByObjectID returns the insertion indexes of facts with the
// given object.
func (s *TripleStore) IndexesByObjectID(id ID) []uint32 {
	return s.copyIndex(s.byObject, id)
}

func (s *TripleStore) copyIndex(index map[ID][]uint32, id ID) []uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := index[id]
	if len(src) == 0 {
		return nil
	}
	out := make([]uint32, len(src))
	copy(out, src)
	return out
}

// PredicateCardinality returns the number of facts carrying the given
// predicate without copying the index. This is the selectivity
// estimator's probe.
func (s *TripleStore) PredicateCardinality(id ID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byPredicate[id])
}

// QueryBySubject materializes all facts whose subject is the given term.
func (s *TripleStore) QueryBySubject(subject string) []Triple {
	return s.queryByTerm(subject, s.IndexesBySubjectID)
}

// QueryByPredicate materializes all facts whose predicate is the given
// term.
func (s *TripleStore) QueryByPredicate(predicate string) []Triple {
	return s.queryByTerm(predicate, s.IndexesByPredicateID)
}

// QueryByObject materializes all facts whose object is the given term.
func (s *TripleStore) QueryByObject(object string) []Triple {
	return s.queryByTerm(object, s.IndexesByObjectID)
}

func (s *TripleStore) queryByTerm(term string, lookup func(ID) []uint32) []Triple {
	id, ok := s.pool.IDOf(term)
	if !ok {
		return nil
	}
	indexes := lookup(id)
	if len(indexes) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Triple, 0, len(indexes))
	for _, i := range indexes {
		out = append(out, s.facts[i])
	}
	return out
}

// PSOIterator returns an iterator over the top (predicate) level of the
// PSO trie. The iterator shares the store's reader lock, so it stays
// safe while concurrent inserts thread new facts.
func (s *TripleStore) PSOIterator() *TrieIterator {
	return newTrieIterator(s.pso.Root(), &s.mu)
}

// POSIterator returns an iterator over the top (predicate) level of the
// POS trie, sharing the store's reader lock like PSOIterator.
func (s *TripleStore) POSIterator() *TrieIterator {
	return newTrieIterator(s.pos.Root(), &s.mu)
}

// PSONode descends the PSO trie along keys under the shared lock and
// returns the reached node, or nil.
func (s *TripleStore) PSONode(keys ...ID) *TrieNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pso.Descend(keys...)
}

// POSNode descends the POS trie along keys under the shared lock and
// returns the reached node, or nil.
func (s *TripleStore) POSNode(keys ...ID) *TrieNode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pos.Descend(keys...)
}

// PoolStats returns string pool occupancy for post-run logging.
func (s *TripleStore) PoolStats() PoolStats {
	return s.pool.Stats()
}

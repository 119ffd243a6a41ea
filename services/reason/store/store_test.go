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
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addTerms(t *testing.T, s *TripleStore, subject, predicate, object string) Triple {
	t.Helper()
	triple, _, err := s.AddTerms(subject, predicate, object)
	require.NoError(t, err)
	return triple
}

func TestTripleStore_Add(t *testing.T) {
	t.Run("insert and contains", func(t *testing.T) {
		s := NewTripleStore(NewStringPool())

		triple := addTerms(t, s, "Alice", "knows", "Bob")

		assert.True(t, s.Contains(triple))
		assert.Equal(t, 1, s.Len())
	})

	t.Run("duplicate insert is dropped", func(t *testing.T) {
		s := NewTripleStore(NewStringPool())

		first := addTerms(t, s, "Alice", "knows", "Bob")
		_, isNew, err := s.AddTerms("Alice", "knows", "Bob")
		require.NoError(t, err)

		assert.False(t, isNew)
		assert.Equal(t, 1, s.Len())
		assert.True(t, s.Contains(first))
	})

	t.Run("reachable through both tries", func(t *testing.T) {
		s := NewTripleStore(NewStringPool())
		triple := addTerms(t, s, "Alice", "knows", "Bob")

		psoLeaf := s.PSONode(triple.Predicate, triple.Subject, triple.Object)
		require.NotNil(t, psoLeaf)
		assert.True(t, psoLeaf.Leaf())

		posLeaf := s.POSNode(triple.Predicate, triple.Object, triple.Subject)
		require.NotNil(t, posLeaf)
		assert.True(t, posLeaf.Leaf())
	})
}

func TestTripleStore_Indexes(t *testing.T) {
	s := NewTripleStore(NewStringPool())

	ab := addTerms(t, s, "A", "knows", "B")
	ac := addTerms(t, s, "A", "likes", "C")
	cb := addTerms(t, s, "C", "knows", "B")

	t.Run("by subject", func(t *testing.T) {
		got := s.QueryBySubject("A")
		assert.ElementsMatch(t, []Triple{ab, ac}, got)
	})

	t.Run("by predicate", func(t *testing.T) {
		got := s.QueryByPredicate("knows")
		assert.ElementsMatch(t, []Triple{ab, cb}, got)
	})

	t.Run("by object", func(t *testing.T) {
		got := s.QueryByObject("B")
		assert.ElementsMatch(t, []Triple{ab, cb}, got)
	})

	t.Run("unknown term", func(t *testing.T) {
		assert.Empty(t, s.QueryBySubject("nobody"))
	})

	t.Run("predicate cardinality", func(t *testing.T) {
		id, ok := s.Pool().IDOf("knows")
		require.True(t, ok)
		assert.Equal(t, 2, s.PredicateCardinality(id))
	})

	t.Run("triple by index", func(t *testing.T) {
		got, ok := s.TripleByIndex(0)
		require.True(t, ok)
		assert.Equal(t, ab, got)

		_, ok = s.TripleByIndex(99)
		assert.False(t, ok)
	})
}

func TestTripleStore_TrieOrdering(t *testing.T) {
	s := NewTripleStore(NewStringPool())

	// Intern the subjects first so their IDs ascend S1 < S2 < S3, then
	// insert the facts out of that order and verify ascending iteration.
	for _, term := range []string{"S1", "S2", "S3"} {
		_, err := s.Pool().Intern(term)
		require.NoError(t, err)
	}
	addTerms(t, s, "S3", "p", "O")
	addTerms(t, s, "S1", "p", "O")
	addTerms(t, s, "S2", "p", "O")

	pID, ok := s.Pool().IDOf("p")
	require.True(t, ok)

	it := s.PSOIterator()
	it.Seek(pID)
	require.False(t, it.AtEnd())
	require.Equal(t, pID, it.Key())

	subjects := it.Open()
	var keys []ID
	for !subjects.AtEnd() {
		keys = append(keys, subjects.Key())
		subjects.Next()
	}
	require.Len(t, keys, 3)
	for i := 1; i < len(keys); i++ {
		assert.Less(t, keys[i-1], keys[i])
	}
}

func TestTripleStore_ConcurrentAdd(t *testing.T) {
	s := NewTripleStore(NewStringPool())

	const goroutines = 8
	const perGoroutine = 300

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				// Every goroutine inserts the same subject/object
				// sequence, forcing duplicate insert races.
				subject := fmt.Sprintf("s%d", i%150)
				object := fmt.Sprintf("o%d", (g*perGoroutine+i)%150)
				if _, _, err := s.AddTerms(subject, "p", object); err != nil {
					t.Error(err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	// Every stored fact must be present in both tries and no fact may
	// appear twice.
	seen := make(map[Triple]struct{})
	for _, triple := range s.Triples() {
		_, dup := seen[triple]
		require.False(t, dup, "duplicate fact %v", triple)
		seen[triple] = struct{}{}
		assert.True(t, s.Contains(triple))
		posLeaf := s.POSNode(triple.Predicate, triple.Object, triple.Subject)
		assert.True(t, posLeaf != nil && posLeaf.Leaf())
	}
}

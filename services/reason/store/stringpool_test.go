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

func TestStringPool_Intern(t *testing.T) {
	t.Run("ids are monotonic from zero", func(t *testing.T) {
		pool := NewStringPool()

		a, err := pool.Intern("http://example.org/Alice")
		require.NoError(t, err)
		b, err := pool.Intern("http://example.org/Bob")
		require.NoError(t, err)

		assert.Equal(t, ID(0), a)
		assert.Equal(t, ID(1), b)
	})

	t.Run("round trip", func(t *testing.T) {
		pool := NewStringPool()

		terms := []string{"alpha", "beta", "gamma", ""}
		for _, term := range terms {
			id, err := pool.Intern(term)
			require.NoError(t, err)
			assert.Equal(t, term, pool.Lookup(id))
		}
	})

	t.Run("intern is stable across calls", func(t *testing.T) {
		pool := NewStringPool()

		first, err := pool.Intern("stable")
		require.NoError(t, err)
		second, err := pool.Intern("stable")
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, 1, pool.Len())
	})

	t.Run("lookup of unissued id is empty", func(t *testing.T) {
		pool := NewStringPool()
		assert.Equal(t, "", pool.Lookup(ID(42)))
	})
}

func TestStringPool_IDOf(t *testing.T) {
	pool := NewStringPool()

	_, ok := pool.IDOf("missing")
	assert.False(t, ok)

	id, err := pool.Intern("present")
	require.NoError(t, err)

	got, ok := pool.IDOf("present")
	assert.True(t, ok)
	assert.Equal(t, id, got)
}

func TestStringPool_ConcurrentIntern(t *testing.T) {
	pool := NewStringPool()

	const goroutines = 16
	const perGoroutine = 200

	var wg sync.WaitGroup
	ids := make([][]ID, goroutines)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			ids[g] = make([]ID, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				// All goroutines intern the same term set so racing
				// inserts must converge on one ID per term.
				id, err := pool.Intern(fmt.Sprintf("term-%d", i))
				if err != nil {
					t.Error(err)
					return
				}
				ids[g][i] = id
			}
		}(g)
	}
	wg.Wait()

	require.Equal(t, perGoroutine, pool.Len())
	for g := 1; g < goroutines; g++ {
		assert.Equal(t, ids[0], ids[g])
	}
}

func TestStringPool_Stats(t *testing.T) {
	pool := NewStringPool()

	_, err := pool.Intern("abcd")
	require.NoError(t, err)
	_, err = pool.Intern("ef")
	require.NoError(t, err)

	stats := pool.Stats()
	assert.Equal(t, 2, stats.UniqueStrings)
	assert.Equal(t, int64(6), stats.TotalStringBytes)
	assert.Greater(t, stats.CompressionRatio, 0.0)
}

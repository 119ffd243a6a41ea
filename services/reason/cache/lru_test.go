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

import (
	"fmt"
	"sync"
	"testing"
)

func TestLRU_Basic(t *testing.T) {
	t.Run("get and set", func(t *testing.T) {
		c := NewLRU[uint64, bool](10)

		c.Set(1, true)
		c.Set(2, false)

		if val, ok := c.Get(1); !ok || !val {
			t.Errorf("expected (true, true), got (%v, %v)", val, ok)
		}
		if val, ok := c.Get(2); !ok || val {
			t.Errorf("expected (false, true), got (%v, %v)", val, ok)
		}
	})

	t.Run("get missing key", func(t *testing.T) {
		c := NewLRU[uint64, bool](10)

		if _, ok := c.Get(99); ok {
			t.Error("expected ok=false for missing key")
		}
	})

	t.Run("update existing key", func(t *testing.T) {
		c := NewLRU[uint64, bool](10)

		c.Set(1, false)
		c.Set(1, true)

		if val, ok := c.Get(1); !ok || !val {
			t.Errorf("expected (true, true), got (%v, %v)", val, ok)
		}
		if c.Len() != 1 {
			t.Errorf("expected len=1, got %d", c.Len())
		}
	})

	t.Run("purge resets entries and stats", func(t *testing.T) {
		c := NewLRU[uint64, bool](10)

		c.Set(1, true)
		c.Get(1)
		c.Purge()

		if c.Len() != 0 {
			t.Errorf("expected len=0 after purge, got %d", c.Len())
		}
		hits, misses := c.Stats()
		if hits != 0 || misses != 0 {
			t.Errorf("expected stats reset, got hits=%d misses=%d", hits, misses)
		}
	})
}

func TestLRU_Eviction(t *testing.T) {
	c := NewLRU[uint64, bool](3)

	c.Set(1, true)
	c.Set(2, true)
	c.Set(3, true)
	c.Set(4, true) // evicts 1

	if _, ok := c.Get(1); ok {
		t.Error("expected key 1 to be evicted")
	}
	if _, ok := c.Get(4); !ok {
		t.Error("expected key 4 to be present")
	}
	if c.Evictions() != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Evictions())
	}

	// Touching 2 makes 3 the oldest; the next insert must evict 3.
	c.Get(2)
	c.Set(5, true)

	if _, ok := c.Get(3); ok {
		t.Error("expected key 3 to be evicted")
	}
	if _, ok := c.Get(2); !ok {
		t.Error("expected key 2 to survive")
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := NewLRU[string, int](100)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", i%150)
				c.Set(key, g)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("cache exceeded capacity: %d", c.Len())
	}
}

func TestBloom(t *testing.T) {
	t.Run("added keys are reported", func(t *testing.T) {
		b := NewBloom(1<<16, 3)

		for key := uint64(0); key < 1000; key++ {
			b.Add(key * 7919)
		}
		for key := uint64(0); key < 1000; key++ {
			if !b.MightContain(key * 7919) {
				t.Fatalf("false negative for key %d", key*7919)
			}
		}
	})

	t.Run("absent keys mostly rejected", func(t *testing.T) {
		b := NewBloom(1<<20, 3)

		for key := uint64(0); key < 1000; key++ {
			b.Add(key)
		}

		falsePositives := 0
		const probes = 10000
		for key := uint64(1 << 32); key < 1<<32+probes; key++ {
			if b.MightContain(key) {
				falsePositives++
			}
		}
		// With a 1M-bit filter and 1k keys the false-positive rate is
		// far below 1%; allow generous slack.
		if falsePositives > probes/100 {
			t.Errorf("false positive rate too high: %d/%d", falsePositives, probes)
		}
	})

	t.Run("concurrent add and probe", func(t *testing.T) {
		b := NewBloom(1<<18, 3)

		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func(g int) {
				defer wg.Done()
				for i := uint64(0); i < 1000; i++ {
					b.Add(i)
					if !b.MightContain(i) {
						t.Errorf("false negative under concurrency for %d", i)
						return
					}
				}
			}(g)
		}
		wg.Wait()
	})
}

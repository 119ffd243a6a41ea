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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

func newTestEngine(t *testing.T, s *store.TripleStore, rules []store.Rule) *Engine {
	t.Helper()
	eng, err := New(s, rules, Config{}, nil)
	require.NoError(t, err)
	return eng
}

// resolveAll renders derived triples as string tuples.
func resolveAll(s *store.TripleStore, derived []store.Triple) [][3]string {
	out := make([][3]string, 0, len(derived))
	for _, d := range derived {
		subj, pred, obj := d.Resolve(s.Pool())
		out = append(out, [3]string{subj, pred, obj})
	}
	return out
}

func TestEvaluateRule_EmptyBinding(t *testing.T) {
	s := newTestStore(t, [][3]string{
		{"Alice", "friendOf", "Bob"},
		{"Bob", "friendOf", "Carol"},
	})
	eng := newTestEngine(t, s, []store.Rule{friendToKnows})

	derived, err := eng.evaluateRule(context.Background(), &eng.rules[0], nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, [][3]string{
		{"Alice", "knows", "Bob"},
		{"Bob", "knows", "Carol"},
	}, resolveAll(s, derived))
}

func TestEvaluateRule_PartialBinding(t *testing.T) {
	s := newTestStore(t, [][3]string{
		{"A", "knows", "B"},
		{"B", "knows", "C"},
		{"B", "knows", "D"},
	})
	eng := newTestEngine(t, s, []store.Rule{transitiveKnows})

	// Bind ?x = A as propagation would after dequeuing (A knows B).
	aID, ok := s.Pool().IDOf("A")
	require.True(t, ok)

	derived, err := eng.evaluateRule(context.Background(), &eng.rules[0],
		map[string]store.ID{"?x": aID})
	require.NoError(t, err)

	assert.ElementsMatch(t, [][3]string{
		{"A", "knows", "C"},
		{"A", "knows", "D"},
	}, resolveAll(s, derived))
}

func TestEvaluateRule_TwoPatternJoin(t *testing.T) {
	// ?y must satisfy both body patterns; only B qualifies.
	s := newTestStore(t, [][3]string{
		{"A", "likes", "B"},
		{"A", "likes", "C"},
		{"B", "works", "X"},
	})
	rule := store.Rule{
		Body: []store.Pattern{
			pattern("?x", "likes", "?y"),
			pattern("?y", "works", "?z"),
		},
		Head: pattern("?x", "connected", "?z"),
	}
	eng := newTestEngine(t, s, []store.Rule{rule})

	derived, err := eng.evaluateRule(context.Background(), &eng.rules[0], nil)
	require.NoError(t, err)

	assert.Equal(t, [][3]string{{"A", "connected", "X"}}, resolveAll(s, derived))
}

func TestEvaluateRule_UnknownPredicate(t *testing.T) {
	s := newTestStore(t, [][3]string{{"A", "knows", "B"}})
	rule := store.Rule{
		Body: []store.Pattern{pattern("?x", "neverSeen", "?y")},
		Head: pattern("?x", "derived", "?y"),
	}
	eng := newTestEngine(t, s, []store.Rule{rule})

	derived, err := eng.evaluateRule(context.Background(), &eng.rules[0], nil)
	require.NoError(t, err)
	assert.Empty(t, derived)
}

func TestEvaluateRule_PredicateVariable(t *testing.T) {
	s := newTestStore(t, [][3]string{{"A", "p", "B"}})

	t.Run("unbound predicate variable yields nothing", func(t *testing.T) {
		rule := store.Rule{
			Body: []store.Pattern{pattern("?x", "?rel", "?y")},
			Head: pattern("?x", "any", "?y"),
		}
		eng := newTestEngine(t, s, []store.Rule{rule})

		derived, err := eng.evaluateRule(context.Background(), &eng.rules[0], nil)
		require.NoError(t, err)
		assert.Empty(t, derived)
	})

	t.Run("bound predicate variable evaluates", func(t *testing.T) {
		rule := store.Rule{
			Body: []store.Pattern{pattern("?x", "?rel", "?y")},
			Head: pattern("?x", "any", "?y"),
		}
		eng := newTestEngine(t, s, []store.Rule{rule})

		pID, ok := s.Pool().IDOf("p")
		require.True(t, ok)

		derived, err := eng.evaluateRule(context.Background(), &eng.rules[0],
			map[string]store.ID{"?rel": pID})
		require.NoError(t, err)
		assert.Equal(t, [][3]string{{"A", "any", "B"}}, resolveAll(s, derived))
	})
}

func TestEvaluateRule_SelfPatternConflict(t *testing.T) {
	// The bound variable occupies both subject and object of one
	// pattern; the grounded pattern must be probed before joining.
	s := newTestStore(t, [][3]string{
		{"A", "linked", "A"},
		{"A", "tagged", "B"},
	})
	rule := store.Rule{
		Body: []store.Pattern{
			pattern("?x", "linked", "?x"),
			pattern("?x", "tagged", "?y"),
		},
		Head: pattern("?x", "selfLinked", "?y"),
	}
	eng := newTestEngine(t, s, []store.Rule{rule})

	aID, ok := s.Pool().IDOf("A")
	require.True(t, ok)
	bID, ok := s.Pool().IDOf("B")
	require.True(t, ok)

	t.Run("present self link passes", func(t *testing.T) {
		derived, err := eng.evaluateRule(context.Background(), &eng.rules[0],
			map[string]store.ID{"?x": aID})
		require.NoError(t, err)
		assert.Equal(t, [][3]string{{"A", "selfLinked", "B"}}, resolveAll(s, derived))
	})

	t.Run("absent self link rejects early", func(t *testing.T) {
		derived, err := eng.evaluateRule(context.Background(), &eng.rules[0],
			map[string]store.ID{"?x": bID})
		require.NoError(t, err)
		assert.Empty(t, derived)
	})
}

func TestUnify(t *testing.T) {
	s := newTestStore(t, [][3]string{{"A", "knows", "B"}})
	eng := newTestEngine(t, s, []store.Rule{transitiveKnows})

	triple := s.Triples()[0]
	aID, _ := s.Pool().IDOf("A")
	bID, _ := s.Pool().IDOf("B")

	t.Run("binds variables to components", func(t *testing.T) {
		binding, ok := eng.unify(triple, pattern("?x", "knows", "?y"))
		require.True(t, ok)
		assert.Equal(t, aID, binding["?x"])
		assert.Equal(t, bID, binding["?y"])
	})

	t.Run("constant mismatch rejects", func(t *testing.T) {
		_, ok := eng.unify(triple, pattern("C", "knows", "?y"))
		assert.False(t, ok)
	})

	t.Run("unknown constant rejects", func(t *testing.T) {
		_, ok := eng.unify(triple, pattern("?x", "unseenPredicate", "?y"))
		assert.False(t, ok)
	})

	t.Run("repeated variable must agree", func(t *testing.T) {
		_, ok := eng.unify(triple, pattern("?x", "knows", "?x"))
		assert.False(t, ok)

		self, _, err := s.AddTerms("A", "knows", "A")
		require.NoError(t, err)
		binding, ok := eng.unify(self, pattern("?x", "knows", "?x"))
		require.True(t, ok)
		assert.Equal(t, aID, binding["?x"])
	})
}

func TestSelectVariable(t *testing.T) {
	// "rare" has 1 fact, "common" has 3; the variable constrained by
	// the rare predicate must be bound first.
	s := newTestStore(t, [][3]string{
		{"A", "rare", "R"},
		{"A", "common", "X"},
		{"B", "common", "Y"},
		{"C", "common", "Z"},
	})
	rule := store.Rule{
		Body: []store.Pattern{
			pattern("?a", "rare", "?r"),
			pattern("?b", "common", "?c"),
		},
		Head: pattern("?a", "out", "?b"),
	}
	eng := newTestEngine(t, s, []store.Rule{rule})

	ev := &evaluation{
		eng:       eng,
		rule:      &eng.rules[0],
		positions: eng.rules[0].Variables(),
		bindings:  map[string]store.ID{},
	}

	first := ev.selectVariable()
	assert.Contains(t, []string{"?a", "?r"}, first)

	// Ties inside the rare pattern break lexicographically.
	assert.Equal(t, "?a", first)

	// Once ?a and ?r are bound the next pick comes from the common
	// pattern, again lexicographically on the tie.
	ev.bindings["?a"] = 0
	ev.bindings["?r"] = 1
	assert.Equal(t, "?b", ev.selectVariable())

	ev.bindings["?b"] = 2
	ev.bindings["?c"] = 3
	assert.Equal(t, "", ev.selectVariable())
}

func TestFactQueue(t *testing.T) {
	t.Run("fifo order", func(t *testing.T) {
		q := newFactQueue()
		q.push(store.Triple{Subject: 1}, store.Triple{Subject: 2})

		first, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, store.ID(1), first.Subject)

		second, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, store.ID(2), second.Subject)
	})

	t.Run("idle requires drained queue and no active workers", func(t *testing.T) {
		q := newFactQueue()
		assert.True(t, q.idle())

		q.push(store.Triple{Subject: 1})
		assert.False(t, q.idle())

		_, ok := q.pop()
		require.True(t, ok)
		assert.False(t, q.idle(), "popped item still active")

		q.finish()
		assert.True(t, q.idle())
	})

	t.Run("close wakes blocked pop", func(t *testing.T) {
		q := newFactQueue()

		done := make(chan bool)
		go func() {
			_, ok := q.pop()
			done <- ok
		}()

		q.close()
		assert.False(t, <-done)
	})

	t.Run("close drains remaining items", func(t *testing.T) {
		q := newFactQueue()
		q.push(store.Triple{Subject: 7})
		q.close()

		got, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, store.ID(7), got.Subject)
		q.finish()

		_, ok = q.pop()
		assert.False(t, ok)
	})

	t.Run("abort discards remaining items", func(t *testing.T) {
		q := newFactQueue()
		q.push(store.Triple{Subject: 7})
		q.abort()

		_, ok := q.pop()
		assert.False(t, ok)
	})
}

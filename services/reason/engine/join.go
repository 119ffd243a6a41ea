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

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// evaluation is the thread-confined state of one rule-body evaluation:
// the variable/position map, the current binding, and the derived
// output. Nothing here is shared across workers.
type evaluation struct {
	eng       *Engine
	rule      *store.Rule
	positions map[string][]store.Occurrence
	bindings  map[string]store.ID
	out       []store.Triple
}

// evaluateRule produces every head instantiation of rule consistent
// with the body under the given partial binding (nil means empty).
//
// Variables are bound one at a time: the selectivity estimator picks
// the next variable, a leapfrog join intersects one trie iterator per
// occurrence of that variable, and each emitted key recurses on the
// remaining variables. With no unbound variables left the head is
// substituted and emitted.
func (e *Engine) evaluateRule(ctx context.Context, rule *store.Rule, binding map[string]store.ID) ([]store.Triple, error) {
	ev := &evaluation{
		eng:       e,
		rule:      rule,
		positions: rule.Variables(),
		bindings:  binding,
	}
	if ev.bindings == nil {
		ev.bindings = make(map[string]store.ID, len(ev.positions))
	}

	ok, err := ev.passesPreCheck()
	if err != nil || !ok {
		return nil, err
	}
	if err := ev.joinVariable(ctx); err != nil {
		return nil, err
	}
	return ev.out, nil
}

// passesPreCheck rejects binding/rule combinations that cannot succeed
// before any join work:
//
//  1. A bound variable occupying both the subject and object position
//     of one body pattern grounds that pattern fully; if the grounded
//     pattern is absent from the store, no extension of the binding
//     can satisfy the body.
//  2. A body pattern whose three positions are all constants must be
//     present in the store.
func (ev *evaluation) passesPreCheck() (bool, error) {
	for variable, id := range ev.bindings {
		occs, mentioned := ev.positions[variable]
		if !mentioned {
			continue
		}
		byPattern := make(map[int]int, len(occs))
		for _, occ := range occs {
			switch occ.Position {
			case 0:
				byPattern[occ.Pattern] |= 1
			case 2:
				byPattern[occ.Pattern] |= 2
			}
		}
		for pi, mask := range byPattern {
			if mask != 3 {
				continue
			}
			pat := ev.rule.Body[pi]
			pID, ok := ev.groundTermID(pat.Predicate)
			if !ok {
				continue
			}
			probe := store.Triple{Subject: id, Predicate: pID, Object: id}
			if !ev.eng.exist.probe(probe) {
				return false, nil
			}
		}
	}

	for _, pat := range ev.rule.Body {
		if !pat.IsGround() {
			continue
		}
		sID, okS := ev.eng.store.Pool().IDOf(pat.Subject)
		pID, okP := ev.eng.store.Pool().IDOf(pat.Predicate)
		oID, okO := ev.eng.store.Pool().IDOf(pat.Object)
		if !okS || !okP || !okO {
			return false, nil
		}
		if !ev.eng.exist.probe(store.Triple{Subject: sID, Predicate: pID, Object: oID}) {
			return false, nil
		}
	}
	return true, nil
}

// groundTermID resolves a term that must already be ground: a bound
// variable or a constant already in the pool.
func (ev *evaluation) groundTermID(term string) (store.ID, bool) {
	if store.IsVariable(term) {
		id, bound := ev.bindings[term]
		return id, bound
	}
	return ev.eng.store.Pool().IDOf(term)
}

// resolveTermID resolves a term for iterator construction. Constants
// are interned on demand; variables resolve only when bound.
func (ev *evaluation) resolveTermID(term string) (store.ID, bool, error) {
	if store.IsVariable(term) {
		id, bound := ev.bindings[term]
		return id, bound, nil
	}
	id, err := ev.eng.store.Pool().Intern(term)
	if err != nil {
		return store.AbsentID, false, err
	}
	return id, true, nil
}

// joinVariable binds the next variable by selectivity and recurses; at
// the bottom the head is substituted and emitted.
func (ev *evaluation) joinVariable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	variable := ev.selectVariable()
	if variable == "" {
		return ev.emitHead()
	}

	iters, ok, err := ev.buildIterators(variable)
	if err != nil {
		return err
	}
	if !ok || len(iters) == 0 {
		// A failed descent means some pattern can never match under
		// this binding; zero iterators means the variable occurs only
		// at predicate positions, which the join path does not drive.
		return nil
	}

	join := store.NewLeapfrogJoin(iters)
	for !join.AtEnd() {
		ev.bindings[variable] = join.Key()
		if err := ev.joinVariable(ctx); err != nil {
			delete(ev.bindings, variable)
			return err
		}
		join.Next()
	}
	delete(ev.bindings, variable)
	return nil
}

// buildIterators constructs one trie iterator per subject/object
// occurrence of variable. The trie and descent are chosen per the
// other components of the occurrence's pattern:
//
//   - subject position, object known:  POS p -> o, iterate subjects
//   - subject position, object open:   PSO p, iterate subjects
//   - object position, subject known:  PSO p -> s, iterate objects
//   - object position, subject open:   POS p, iterate objects
//
// Predicate-position occurrences contribute no iterator. Returns
// ok=false when any descent misses, meaning the join is empty.
func (ev *evaluation) buildIterators(variable string) ([]*store.TrieIterator, bool, error) {
	var iters []*store.TrieIterator
	for _, occ := range ev.positions[variable] {
		if occ.Position == 1 {
			continue
		}
		pat := ev.rule.Body[occ.Pattern]

		predID, ok, err := ev.resolveTermID(pat.Predicate)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}

		var other string
		if occ.Position == 0 {
			other = pat.Object
		} else {
			other = pat.Subject
		}

		otherKnown := !store.IsVariable(other)
		if !otherKnown {
			_, otherKnown = ev.bindings[other]
		}

		var it *store.TrieIterator
		if otherKnown {
			otherID, _, err := ev.resolveTermID(other)
			if err != nil {
				return nil, false, err
			}
			// Bound companion: descend two levels, yield the third.
			root := ev.eng.store.POSIterator()
			if occ.Position == 2 {
				root = ev.eng.store.PSOIterator()
			}
			it, ok = descend(root, predID, otherID)
		} else {
			// Open companion: descend to the predicate, yield the
			// second level.
			root := ev.eng.store.PSOIterator()
			if occ.Position == 2 {
				root = ev.eng.store.POSIterator()
			}
			it, ok = descend(root, predID)
		}
		if !ok {
			return nil, false, nil
		}
		iters = append(iters, it)
	}
	return iters, true, nil
}

// descend seeks each key in turn, requiring an exact hit, and opens the
// final level. Returns ok=false when any seek misses its key.
func descend(it *store.TrieIterator, keys ...store.ID) (*store.TrieIterator, bool) {
	for _, key := range keys {
		it.Seek(key)
		if it.AtEnd() || it.Key() != key {
			return nil, false
		}
		it = it.Open()
	}
	return it, true
}

// emitHead substitutes the head pattern under the full binding and
// appends the ground triple. A head variable the body never bound
// (a range-restriction violation) silently emits nothing.
func (ev *evaluation) emitHead() error {
	head := ev.rule.Head
	var t store.Triple
	for pos := 0; pos < 3; pos++ {
		id, ok, err := ev.resolveTermID(head.Term(pos))
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		switch pos {
		case 0:
			t.Subject = id
		case 1:
			t.Predicate = id
		default:
			t.Object = id
		}
	}
	ev.out = append(ev.out, t)
	return nil
}

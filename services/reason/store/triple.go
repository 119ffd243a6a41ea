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
	"strings"
)

// Triple is a stored fact: three dictionary IDs in (subject, predicate,
// object) order. Equality is structural on the IDs, which makes Triple
// usable directly as a map key for dedup sets.
type Triple struct {
	Subject   ID
	Predicate ID
	Object    ID
}

// Resolve renders the triple back to its term strings via the pool.
func (t Triple) Resolve(pool *StringPool) (subject, predicate, object string) {
	return pool.Lookup(t.Subject), pool.Lookup(t.Predicate), pool.Lookup(t.Object)
}

// Pattern is a triple pattern inside a rule. Each component is either a
// constant term or a variable (a string starting with '?'). Pattern
// terms stay text until evaluation references them, at which point
// constants are interned on demand.
type Pattern struct {
	Subject   string
	Predicate string
	Object    string
}

// Term returns the component at position pos (0 subject, 1 predicate,
// 2 object).
func (p Pattern) Term(pos int) string {
	switch pos {
	case 0:
		return p.Subject
	case 1:
		return p.Predicate
	default:
		return p.Object
	}
}

// IsGround reports whether the pattern contains no variables.
func (p Pattern) IsGround() bool {
	return !IsVariable(p.Subject) && !IsVariable(p.Predicate) && !IsVariable(p.Object)
}

// String renders the pattern for logs and error messages.
func (p Pattern) String() string {
	return fmt.Sprintf("(%s, %s, %s)", p.Subject, p.Predicate, p.Object)
}

// IsVariable reports whether a pattern term is a variable. Variability
// is purely syntactic: any term whose first character is '?'.
func IsVariable(term string) bool {
	return strings.HasPrefix(term, "?")
}

// Rule is a Datalog implication: when every body pattern is satisfied
// under some binding, the head instantiation holds.
//
// Invariant (range restriction): every variable in the head appears in
// the body. Loaders are expected to provide conforming rules; the
// evaluator assumes the invariant and does not detect violations.
type Rule struct {
	// Name is an optional label used only in logs.
	Name string

	// Body is one or more patterns, all of which must match.
	Body []Pattern

	// Head is the single pattern instantiated on a match.
	Head Pattern
}

// Variables returns the set of variables in the rule body, each mapped
// to every (patternIndex, position) occurrence of it in body order. The
// map has no defined iteration order.
func (r *Rule) Variables() map[string][]Occurrence {
	positions := make(map[string][]Occurrence)
	for i, pat := range r.Body {
		for pos := 0; pos < 3; pos++ {
			if term := pat.Term(pos); IsVariable(term) {
				positions[term] = append(positions[term], Occurrence{Pattern: i, Position: pos})
			}
		}
	}
	return positions
}

// Occurrence locates one use of a variable inside a rule body.
type Occurrence struct {
	// Pattern is the body pattern index.
	Pattern int

	// Position is 0 for subject, 1 for predicate, 2 for object.
	Position int
}

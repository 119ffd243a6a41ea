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

import "github.com/google/btree"

// trieDegree is the B-tree degree for trie node children. Small fanout
// keeps nodes cache-friendly at the predicate level, which usually has
// few children, without hurting the wide subject/object levels.
const trieDegree = 16

// trieEntry is one child slot of a trie node: the component ID and the
// subtree below it.
type trieEntry struct {
	key  ID
	node *TrieNode
}

func trieEntryLess(a, b trieEntry) bool { return a.key < b.key }

// TrieNode is a node in a three-level triple trie. Children are held in
// a B-tree ordered by ID ascending; the ordering is what makes leapfrog
// join possible. Level-3 nodes carry leaf=true and no children.
//
// Concurrency: mutation and iteration are serialized by the owning
// TripleStore's lock. Keys are only ever added, never removed.
type TrieNode struct {
	children *btree.BTreeG[trieEntry]
	leaf     bool
}

func newTrieNode() *TrieNode {
	return &TrieNode{children: btree.NewG(trieDegree, trieEntryLess)}
}

// Leaf reports whether this node marks the presence of a full triple.
func (n *TrieNode) Leaf() bool { return n.leaf }

// child returns the subtree under key, or nil.
func (n *TrieNode) child(key ID) *TrieNode {
	e, ok := n.children.Get(trieEntry{key: key})
	if !ok {
		return nil
	}
	return e.node
}

// Trie is a three-level ordered index over triples. The component order
// (PSO or POS) is chosen by the caller passing keys in that order; the
// trie itself is order-agnostic.
type Trie struct {
	root *TrieNode
}

// NewTrie creates an empty trie.
func NewTrie() *Trie {
	return &Trie{root: newTrieNode()}
}

// Root exposes the root node for iterator construction.
func (t *Trie) Root() *TrieNode { return t.root }

// Insert threads the three keys into the trie and marks the final node
// as a leaf. Returns true when the triple was not present before.
func (t *Trie) Insert(a, b, c ID) bool {
	curr := t.root
	for _, key := range [3]ID{a, b, c} {
		next := curr.child(key)
		if next == nil {
			next = newTrieNode()
			curr.children.ReplaceOrInsert(trieEntry{key: key, node: next})
		}
		curr = next
	}
	if curr.leaf {
		return false
	}
	curr.leaf = true
	return true
}

// Descend walks the trie along keys and returns the reached node, or
// nil when any step is missing. Descending all three keys of a stored
// triple reaches its leaf, which is the existence check.
func (t *Trie) Descend(keys ...ID) *TrieNode {
	curr := t.root
	for _, key := range keys {
		curr = curr.child(key)
		if curr == nil {
			return nil
		}
	}
	return curr
}

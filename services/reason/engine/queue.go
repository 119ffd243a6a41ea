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
	"sync"

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// factQueue is the shared propagation queue of phase 2: a FIFO of newly
// installed facts guarded by a mutex and condition variable, plus the
// active-worker count the termination observer samples.
//
// Termination condition: the queue is empty AND no worker is mid-item.
// Both must be observed under the same lock acquisition, otherwise a
// worker could be about to push between the two reads.
type factQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []store.Triple
	head   int
	active int
	done   bool
}

func newFactQueue() *factQueue {
	q := &factQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends facts and wakes a sleeping worker per fact.
func (q *factQueue) push(facts ...store.Triple) {
	if len(facts) == 0 {
		return
	}
	q.mu.Lock()
	q.items = append(q.items, facts...)
	q.mu.Unlock()
	for range facts {
		q.cond.Signal()
	}
}

// pop blocks until an item is available or the queue is closed with no
// items left. The second return is false on close. A successful pop
// counts the caller as active until it calls finish.
func (q *factQueue) pop() (store.Triple, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.head >= len(q.items) && !q.done {
		q.cond.Wait()
	}
	if q.head >= len(q.items) {
		return store.Triple{}, false
	}

	t := q.items[q.head]
	q.head++
	q.active++

	// Reclaim the consumed prefix once it dominates the backing array.
	if q.head > 1024 && q.head*2 >= len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return t, true
}

// finish marks the caller's current item as fully processed.
func (q *factQueue) finish() {
	q.mu.Lock()
	q.active--
	q.mu.Unlock()
}

// idle reports whether the queue is drained and no worker is mid-item,
// sampled atomically under the queue lock.
func (q *factQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.head >= len(q.items) && q.active == 0
}

// close marks the queue done and wakes every worker so they can exit.
// Remaining items are still drained by pop.
func (q *factQueue) close() {
	q.mu.Lock()
	q.done = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// abort closes the queue and discards undrained items. Used on fatal
// errors where further derivation is pointless.
func (q *factQueue) abort() {
	q.mu.Lock()
	q.done = true
	q.items = nil
	q.head = 0
	q.mu.Unlock()
	q.cond.Broadcast()
}

// depth returns the number of undrained items.
func (q *factQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

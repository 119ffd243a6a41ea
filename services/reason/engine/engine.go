// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine implements the semi-naive parallel fixpoint driver and
// the leapfrog-triejoin rule evaluator on top of the triple store.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// ruleSlot locates one constant-predicate body pattern: which rule and
// which body position. The rules index maps a predicate ID to every
// slot that can consume a fact with that predicate.
type ruleSlot struct {
	rule    int
	pattern int
}

// Engine computes the least fixpoint of a rule set over a triple store.
//
// Description:
//
//	Reason runs two phases. Phase 1 evaluates every rule against the
//	loaded fact set, one goroutine per rule. Phase 2 propagates: each
//	newly installed fact is dispatched to the rule body positions that
//	mention its predicate, the rule is re-evaluated under the partial
//	binding the fact induces, and surviving derivations are installed
//	and re-enqueued. The run terminates when the queue is drained and
//	every worker is idle.
//
//	Deduplication happens exactly once per candidate: under the shard
//	lock of the candidate's predicate, the existence check and the
//	install are a single atomic step, so two concurrent derivations of
//	one fact produce exactly one insertion.
//
// Thread Safety:
//
//	Reason itself may only run once at a time per Engine. The store
//	may be read concurrently with a running Reason.
type Engine struct {
	store  *store.TripleStore
	rules  []store.Rule
	cfg    Config
	logger *slog.Logger

	rulesIndex map[store.ID][]ruleSlot
	shards     []sync.Mutex
	exist      *existenceChecker

	processedMu sync.Mutex
	processed   map[store.Triple]struct{}
}

// Stats summarizes a completed fixpoint run.
type Stats struct {
	// DerivedFacts is the number of facts installed by derivation.
	DerivedFacts int64 `json:"derived_facts"`

	// RuleApplications is the number of rule-body evaluations.
	RuleApplications int64 `json:"rule_applications"`

	// DuplicatesDiscarded counts derived candidates already present.
	DuplicatesDiscarded int64 `json:"duplicates_discarded"`

	// StoreSize is the fact count after the run.
	StoreSize int `json:"store_size"`

	// Duration is the wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// runCounters aggregates the shared per-run statistics.
type runCounters struct {
	derived      atomic.Int64
	applications atomic.Int64
	duplicates   atomic.Int64
}

// New creates an engine over the store and rule set.
//
// The rules index is built once here: every body pattern whose
// predicate is a constant is recorded under that predicate's ID. A rule
// whose body has no constant-predicate pattern is never triggered by
// propagation but still fires in phase 1.
func New(s *store.TripleStore, rules []store.Rule, cfg Config, logger *slog.Logger) (*Engine, error) {
	if s == nil {
		return nil, ErrNoStore
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalized()
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:      s,
		rules:      rules,
		cfg:        cfg,
		logger:     logger,
		rulesIndex: make(map[store.ID][]ruleSlot),
		shards:     make([]sync.Mutex, cfg.ShardCount),
		exist:      newExistenceChecker(s, cfg),
		processed:  make(map[store.Triple]struct{}),
	}

	for ri := range rules {
		for pi, pat := range rules[ri].Body {
			if store.IsVariable(pat.Predicate) {
				continue
			}
			id, err := s.Pool().Intern(pat.Predicate)
			if err != nil {
				return nil, err
			}
			e.rulesIndex[id] = append(e.rulesIndex[id], ruleSlot{rule: ri, pattern: pi})
		}
	}
	return e, nil
}

// Reason runs the fixpoint to completion and returns run statistics.
// The context aborts the run early; a canceled run leaves the store in
// a consistent but incomplete state.
func (e *Engine) Reason(ctx context.Context) (Stats, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "engine.Reason")
	defer span.End()

	if err := initMetrics(); err != nil {
		e.logger.Warn("metrics init failed", "error", err)
	}

	counters := &runCounters{}
	queue := newFactQueue()

	if err := e.seed(ctx, queue, counters); err != nil {
		return e.finishRun(ctx, start, counters, span.SetAttributes), err
	}
	err := e.propagateAll(ctx, queue, counters)

	stats := e.finishRun(ctx, start, counters, span.SetAttributes)
	e.logger.Info("fixpoint complete",
		"derived_facts", stats.DerivedFacts,
		"rule_applications", stats.RuleApplications,
		"duplicates_discarded", stats.DuplicatesDiscarded,
		"store_size", stats.StoreSize,
		"duration", stats.Duration,
	)
	return stats, err
}

// seed is phase 1: evaluate every rule with an empty binding, fan-out
// one goroutine per rule, then install and enqueue the survivors.
func (e *Engine) seed(ctx context.Context, queue *factQueue, counters *runCounters) error {
	ctx, span := tracer.Start(ctx, "engine.seed")
	defer span.End()

	g, gctx := errgroup.WithContext(ctx)
	results := make([][]store.Triple, len(e.rules))
	for i := range e.rules {
		g.Go(func() error {
			counters.applications.Add(1)
			derived, err := e.evaluateRule(gctx, &e.rules[i], nil)
			results[i] = derived
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, derived := range results {
		for _, t := range derived {
			if e.install(t, counters) {
				queue.push(t)
			}
		}
	}
	span.SetAttributes(attribute.Int("seeded", queue.depth()))
	return nil
}

// propagateAll is phase 2: the bounded worker pool plus the quiescence
// observer.
func (e *Engine) propagateAll(ctx context.Context, queue *factQueue, counters *runCounters) error {
	ctx, span := tracer.Start(ctx, "engine.propagate")
	defer span.End()

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	fail := func(err error) {
		errOnce.Do(func() {
			firstErr = err
			queue.abort()
		})
	}

	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				t, ok := queue.pop()
				if !ok {
					return
				}
				if ctx.Err() == nil {
					if err := e.propagate(ctx, t, queue, counters); err != nil {
						fail(err)
					}
				}
				queue.finish()
			}
		}()
	}

	// Quiescence observer: terminated means queue empty and all
	// workers idle, sampled under one lock acquisition.
	for !queue.idle() {
		if ctx.Err() != nil {
			fail(ctx.Err())
			break
		}
		time.Sleep(time.Millisecond)
	}
	queue.close()
	wg.Wait()

	if firstErr == nil && ctx.Err() != nil {
		firstErr = ctx.Err()
	}
	return firstErr
}

// propagate re-derives from one dequeued fact: skip if already
// propagated, otherwise unify the fact against every rule body position
// indexed under its predicate and evaluate those rules under the
// induced partial binding.
func (e *Engine) propagate(ctx context.Context, t store.Triple, queue *factQueue, counters *runCounters) error {
	e.processedMu.Lock()
	if _, seen := e.processed[t]; seen {
		e.processedMu.Unlock()
		return nil
	}
	e.processed[t] = struct{}{}
	e.processedMu.Unlock()

	for _, slot := range e.rulesIndex[t.Predicate] {
		rule := &e.rules[slot.rule]
		binding, ok := e.unify(t, rule.Body[slot.pattern])
		if !ok {
			continue
		}

		counters.applications.Add(1)
		derived, err := e.evaluateRule(ctx, rule, binding)
		if err != nil {
			return err
		}

		installed := derived[:0]
		for _, d := range derived {
			if e.install(d, counters) {
				installed = append(installed, d)
			}
		}
		// Enqueue after every shard lock is released; the queue lock
		// is never nested inside a shard lock.
		queue.push(installed...)
	}
	return nil
}

// unify matches a fact against a body pattern, binding each variable
// position to the fact's component. Constants must match the fact
// exactly; a mismatch (including one variable used at two positions
// with different components) rejects the slot.
func (e *Engine) unify(t store.Triple, pat store.Pattern) (map[string]store.ID, bool) {
	components := [3]store.ID{t.Subject, t.Predicate, t.Object}
	binding := make(map[string]store.ID, 2)
	for pos := 0; pos < 3; pos++ {
		term := pat.Term(pos)
		if store.IsVariable(term) {
			if prev, bound := binding[term]; bound && prev != components[pos] {
				return nil, false
			}
			binding[term] = components[pos]
			continue
		}
		id, known := e.store.Pool().IDOf(term)
		if !known || id != components[pos] {
			return nil, false
		}
	}
	return binding, true
}

// install dedups and stores one derived candidate under the shard lock
// of its predicate. Returns true when the fact was new.
func (e *Engine) install(t store.Triple, counters *runCounters) bool {
	predicate := e.store.Pool().Lookup(t.Predicate)
	shard := &e.shards[shardIndex(predicate, len(e.shards))]

	shard.Lock()
	defer shard.Unlock()

	if e.exist.exists(t) {
		counters.duplicates.Add(1)
		return false
	}
	if !e.store.Add(t) {
		counters.duplicates.Add(1)
		return false
	}
	e.exist.markInstalled(t)
	counters.derived.Add(1)
	return true
}

// finishRun assembles Stats and records the run metrics.
func (e *Engine) finishRun(ctx context.Context, start time.Time, counters *runCounters, setAttrs func(...attribute.KeyValue)) Stats {
	stats := Stats{
		DerivedFacts:        counters.derived.Load(),
		RuleApplications:    counters.applications.Load(),
		DuplicatesDiscarded: counters.duplicates.Load(),
		StoreSize:           e.store.Len(),
		Duration:            time.Since(start),
	}

	if metricsErr == nil && reasonDuration != nil {
		reasonDuration.Record(ctx, stats.Duration.Seconds())
		factsDerived.Add(ctx, stats.DerivedFacts)
		ruleApplications.Add(ctx, stats.RuleApplications)
		duplicatesFound.Add(ctx, stats.DuplicatesDiscarded)
	}
	setAttrs(
		attribute.Int64("derived_facts", stats.DerivedFacts),
		attribute.Int64("rule_applications", stats.RuleApplications),
		attribute.Int("store_size", stats.StoreSize),
	)
	return stats
}

// CacheStats returns the existence cache hit/miss counters for
// post-run logging.
func (e *Engine) CacheStats() (hits, misses int64) {
	return e.exist.stats()
}

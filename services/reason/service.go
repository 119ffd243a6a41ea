// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package reason provides the HTTP reasoning service: sessions holding
// a triple store and rule set, with endpoints to load data, run the
// fixpoint engine, and query the results.
package reason

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/AleutianReason/services/reason/engine"
	"github.com/AleutianAI/AleutianReason/services/reason/parser"
	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// ServiceVersion is the reasoning service version.
const ServiceVersion = "0.1.0"

// ServiceConfig configures the reasoning service.
type ServiceConfig struct {
	// MaxSessions caps concurrently held sessions. Default: 16.
	MaxSessions int

	// Engine is the fixpoint engine configuration shared by all
	// sessions.
	Engine engine.Config
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxSessions: 16,
		Engine:      engine.DefaultConfig(),
	}
}

// Session is one independent reasoning workspace: a string pool, a
// triple store, and a rule set with its own lifecycle.
type Session struct {
	// ID is the session's unique identifier.
	ID string

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time

	mu       sync.Mutex
	store    *store.TripleStore
	rules    []store.Rule
	lastRun  *engine.Stats
	reasoned bool
}

// Service is the reasoning service.
//
// Thread Safety:
//
//	Safe for concurrent use. Session lookup takes a read lock;
//	creation and deletion take the write lock. Concurrent run
//	requests for one session collapse into a single fixpoint run via
//	singleflight.
type Service struct {
	config ServiceConfig
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	runs singleflight.Group
}

// NewService creates the service. A nil logger falls back to
// slog.Default().
func NewService(cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultServiceConfig().MaxSessions
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		config:   cfg,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// CreateSession allocates a fresh session with an empty store.
func (s *Service) CreateSession() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.config.MaxSessions {
		return nil, ErrTooManySessions
	}

	session := &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		store:     store.NewTripleStore(store.NewStringPool()),
	}
	s.sessions[session.ID] = session

	s.logger.Info("session created", "session_id", session.ID)
	return session, nil
}

// GetSession returns the session or ErrSessionNotFound.
func (s *Service) GetSession(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// DeleteSession drops the session and its store.
func (s *Service) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	s.logger.Info("session deleted", "session_id", id)
	return nil
}

// LoadStatements inserts loader output into the session's store.
// Returns how many statements were new.
func (s *Service) LoadStatements(id string, statements []parser.Statement) (added int, err error) {
	session, err := s.GetSession(id)
	if err != nil {
		return 0, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	for _, st := range statements {
		_, isNew, err := session.store.AddTerms(st.Subject, st.Predicate, st.Object)
		if err != nil {
			return added, fmt.Errorf("loading statement: %w", err)
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// AddRules appends parsed rules to the session.
func (s *Service) AddRules(id string, rules []store.Rule) (total int, err error) {
	session, err := s.GetSession(id)
	if err != nil {
		return 0, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	session.rules = append(session.rules, rules...)
	return len(session.rules), nil
}

// Run executes the fixpoint for the session. Concurrent calls for the
// same session share one run and all receive its statistics.
func (s *Service) Run(ctx context.Context, id string) (engine.Stats, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return engine.Stats{}, err
	}

	result, err, shared := s.runs.Do(id, func() (any, error) {
		session.mu.Lock()
		rules := make([]store.Rule, len(session.rules))
		copy(rules, session.rules)
		session.mu.Unlock()

		eng, err := engine.New(session.store, rules, s.config.Engine, s.logger)
		if err != nil {
			return engine.Stats{}, err
		}
		stats, err := eng.Reason(ctx)
		if err != nil {
			return engine.Stats{}, err
		}

		session.mu.Lock()
		session.lastRun = &stats
		session.reasoned = true
		session.mu.Unlock()
		return stats, nil
	})
	if err != nil {
		return engine.Stats{}, err
	}
	if shared {
		s.logger.Debug("joined in-flight reasoning run", "session_id", id)
	}
	return result.(engine.Stats), nil
}

// Query returns resolved facts matching every non-empty component
// argument. Empty arguments are wildcards; with all three empty every
// fact is returned.
func (s *Service) Query(id, subject, predicate, object string) ([]TripleJSON, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return nil, err
	}

	var triples []store.Triple
	switch {
	case subject != "":
		triples = session.store.QueryBySubject(subject)
	case predicate != "":
		triples = session.store.QueryByPredicate(predicate)
	case object != "":
		triples = session.store.QueryByObject(object)
	default:
		triples = session.store.Triples()
	}

	pool := session.store.Pool()
	out := make([]TripleJSON, 0, len(triples))
	for _, t := range triples {
		subj, pred, obj := t.Resolve(pool)
		if subject != "" && subj != subject {
			continue
		}
		if predicate != "" && pred != predicate {
			continue
		}
		if object != "" && obj != object {
			continue
		}
		out = append(out, TripleJSON{Subject: subj, Predicate: pred, Object: obj})
	}
	return out, nil
}

// Describe summarizes a session for API responses.
func (s *Service) Describe(id string) (SessionResponse, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return SessionResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return SessionResponse{
		SessionID: session.ID,
		CreatedAt: session.CreatedAt,
		StoreSize: session.store.Len(),
		RuleCount: len(session.rules),
		Reasoned:  session.reasoned,
	}, nil
}

// Stats assembles the store/pool statistics for a session.
func (s *Service) Stats(id string) (StatsResponse, error) {
	session, err := s.GetSession(id)
	if err != nil {
		return StatsResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	poolStats := session.store.PoolStats()
	resp := StatsResponse{
		StoreSize:   session.store.Len(),
		RuleCount:   len(session.rules),
		UniqueTerms: poolStats.UniqueStrings,
		TermBytes:   poolStats.TotalStringBytes,
	}
	if session.lastRun != nil {
		resp.LastRun = runResponse(*session.lastRun)
	}
	return resp, nil
}

// runResponse converts engine stats to the API shape.
func runResponse(stats engine.Stats) *RunResponse {
	return &RunResponse{
		DerivedFacts:        stats.DerivedFacts,
		RuleApplications:    stats.RuleApplications,
		DuplicatesDiscarded: stats.DuplicatesDiscarded,
		StoreSize:           stats.StoreSize,
		DurationMs:          stats.Duration.Milliseconds(),
	}
}

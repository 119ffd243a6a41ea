// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package reason

import "time"

// SessionResponse describes one reasoning session.
type SessionResponse struct {
	// SessionID is the unique identifier for this session.
	SessionID string `json:"session_id"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// StoreSize is the current number of stored facts.
	StoreSize int `json:"store_size"`

	// RuleCount is the number of loaded rules.
	RuleCount int `json:"rule_count"`

	// Reasoned indicates whether a fixpoint run has completed.
	Reasoned bool `json:"reasoned"`
}

// LoadTriplesRequest is the request body for POST /sessions/:id/triples.
type LoadTriplesRequest struct {
	// Format is one of "ntriples", "turtle", "csv". Default: inferred
	// from Path, or "ntriples" for inline content.
	Format string `json:"format" binding:"omitempty,tripleformat"`

	// Content is inline triple data. One of Content or Path is
	// required.
	Content string `json:"content"`

	// Path is a server-local file to load. One of Content or Path is
	// required.
	Path string `json:"path"`
}

// LoadTriplesResponse is the response for POST /sessions/:id/triples.
type LoadTriplesResponse struct {
	// Parsed is the number of statements the loader produced.
	Parsed int `json:"parsed"`

	// Added is the number of statements new to the store.
	Added int `json:"added"`

	// StoreSize is the fact count after the load.
	StoreSize int `json:"store_size"`
}

// AddRulesRequest is the request body for POST /sessions/:id/rules.
type AddRulesRequest struct {
	// Content is rule text in the Datalog syntax. Required.
	Content string `json:"content" binding:"required"`
}

// AddRulesResponse is the response for POST /sessions/:id/rules.
type AddRulesResponse struct {
	// Added is the number of rules parsed from this request.
	Added int `json:"added"`

	// TotalRules is the session's rule count after the add.
	TotalRules int `json:"total_rules"`
}

// RunResponse is the response for POST /sessions/:id/run.
type RunResponse struct {
	// DerivedFacts is the number of facts installed by derivation.
	DerivedFacts int64 `json:"derived_facts"`

	// RuleApplications is the number of rule-body evaluations.
	RuleApplications int64 `json:"rule_applications"`

	// DuplicatesDiscarded counts derived candidates already present.
	DuplicatesDiscarded int64 `json:"duplicates_discarded"`

	// StoreSize is the fact count after the run.
	StoreSize int `json:"store_size"`

	// DurationMs is the wall-clock run time in milliseconds.
	DurationMs int64 `json:"duration_ms"`
}

// TripleJSON is one resolved triple in API responses.
type TripleJSON struct {
	Subject   string `json:"subject"`
	Predicate string `json:"predicate"`
	Object    string `json:"object"`
}

// QueryResponse is the response for GET /sessions/:id/query.
type QueryResponse struct {
	// Triples are the matching facts.
	Triples []TripleJSON `json:"triples"`

	// Count is len(Triples).
	Count int `json:"count"`
}

// StatsResponse is the response for GET /sessions/:id/stats.
type StatsResponse struct {
	// StoreSize is the current fact count.
	StoreSize int `json:"store_size"`

	// RuleCount is the number of loaded rules.
	RuleCount int `json:"rule_count"`

	// UniqueTerms is the string pool occupancy.
	UniqueTerms int `json:"unique_terms"`

	// TermBytes is the summed byte size of interned terms.
	TermBytes int64 `json:"term_bytes"`

	// LastRun carries the most recent fixpoint statistics, if any.
	LastRun *RunResponse `json:"last_run,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	// Error is the human-readable message.
	Error string `json:"error"`

	// RequestID correlates the error with server logs.
	RequestID string `json:"request_id,omitempty"`
}

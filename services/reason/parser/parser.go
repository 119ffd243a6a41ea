// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package parser loads triples and Datalog rules from the supported
// input formats: N-Triples, Turtle, CSV, relational tables, and the
// textual rule syntax.
//
// The text loaders are line-oriented and lenient: a malformed line is
// logged at Warn and skipped, never aborting the load. The relational
// table loader returns an error on a row it cannot scan. Unknown
// prefixes are left unexpanded; the unexpanded token simply never
// matches downstream.
package parser

import (
	"log/slog"
	"strings"
)

// Statement is one raw string triple produced by a loader, before
// dictionary encoding.
type Statement struct {
	Subject   string
	Predicate string
	Object    string
}

// Format identifies a triple input format.
type Format string

// Supported triple formats.
const (
	FormatNTriples Format = "ntriples"
	FormatTurtle   Format = "turtle"
	FormatCSV      Format = "csv"
)

// FormatForPath guesses the format from a file extension. Unknown
// extensions default to N-Triples.
func FormatForPath(path string) Format {
	switch {
	case strings.HasSuffix(path, ".ttl"):
		return FormatTurtle
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV
	default:
		return FormatNTriples
	}
}

// Parser bundles the loaders with a logger for skipped-line warnings.
type Parser struct {
	logger *slog.Logger
}

// New creates a parser. A nil logger falls back to slog.Default().
func New(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// expandPrefix rewrites a prefix:suffix term through the prefix map.
// Terms without a colon, or with an unknown prefix, pass through
// unchanged.
func expandPrefix(term string, prefixes map[string]string) string {
	colon := strings.Index(term, ":")
	if colon < 0 {
		return term
	}
	uri, ok := prefixes[term[:colon]]
	if !ok {
		return term
	}
	return uri + term[colon+1:]
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

func TestParseNTriples(t *testing.T) {
	p := New(nil)

	t.Run("basic triples", func(t *testing.T) {
		input := strings.Join([]string{
			`<http://example.org/Alice> <http://example.org/friendOf> <http://example.org/Bob> .`,
			`<http://example.org/Alice> <http://example.org/name> "Alice" .`,
			`<http://example.org/Alice> <http://example.org/knows> _:b0 .`,
		}, "\n")

		got, err := p.ParseNTriples(strings.NewReader(input))
		require.NoError(t, err)

		assert.Equal(t, []Statement{
			{"http://example.org/Alice", "http://example.org/friendOf", "<http://example.org/Bob>"},
			{"http://example.org/Alice", "http://example.org/name", `"Alice"`},
			{"http://example.org/Alice", "http://example.org/knows", "_:b0"},
		}, got)
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		input := strings.Join([]string{
			`<http://a> <http://p> <http://b> .`,
			`this is not a triple`,
			``,
			`<http://a> <http://p> missing-dot <http://c>`,
		}, "\n")

		got, err := p.ParseNTriples(strings.NewReader(input))
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})
}

func TestParseTurtle(t *testing.T) {
	p := New(nil)

	t.Run("prefix expansion", func(t *testing.T) {
		input := strings.Join([]string{
			`@prefix ex: <http://example.org/> .`,
			``,
			`# a comment`,
			`ex:Alice ex:friendOf ex:Bob .`,
		}, "\n")

		got, err := p.ParseTurtle(strings.NewReader(input))
		require.NoError(t, err)

		assert.Equal(t, []Statement{
			{"http://example.org/Alice", "http://example.org/friendOf", "http://example.org/Bob"},
		}, got)
	})

	t.Run("unknown prefix left unexpanded", func(t *testing.T) {
		input := `nope:Alice nope:friendOf nope:Bob .`

		got, err := p.ParseTurtle(strings.NewReader(input))
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, "nope:Alice", got[0].Subject)
	})

	t.Run("full URIs pass through", func(t *testing.T) {
		input := `<http://a> <http://p> "literal" .`

		got, err := p.ParseTurtle(strings.NewReader(input))
		require.NoError(t, err)

		require.Len(t, got, 1)
		assert.Equal(t, Statement{"<http://a>", "<http://p>", `"literal"`}, got[0])
	})
}

func TestParseCSV(t *testing.T) {
	p := New(nil)

	input := strings.Join([]string{
		"Alice,friendOf,Bob",
		"Bob,friendOf,Carol",
		"short,line",
		"A,B,C,ignored-extra",
	}, "\n")

	got, err := p.ParseCSV(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, []Statement{
		{"Alice", "friendOf", "Bob"},
		{"Bob", "friendOf", "Carol"},
		{"A", "B", "C"},
	}, got)
}

func TestParseTriples_Dispatch(t *testing.T) {
	p := New(nil)

	_, err := p.ParseTriples(strings.NewReader(""), Format("xml"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatForPath(t *testing.T) {
	assert.Equal(t, FormatTurtle, FormatForPath("data/example.ttl"))
	assert.Equal(t, FormatCSV, FormatForPath("facts.csv"))
	assert.Equal(t, FormatNTriples, FormatForPath("dump.nt"))
	assert.Equal(t, FormatNTriples, FormatForPath("mystery.dat"))
}

func TestParseRules(t *testing.T) {
	p := New(nil)

	t.Run("single rule", func(t *testing.T) {
		rules, err := p.ParseRulesString(`knows(?x, ?y) :- friendOf(?x, ?y) .`)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		rule := rules[0]
		assert.Equal(t, "rule1", rule.Name)
		assert.Equal(t, store.Pattern{Subject: "?x", Predicate: "knows", Object: "?y"}, rule.Head)
		require.Len(t, rule.Body, 1)
		assert.Equal(t, store.Pattern{Subject: "?x", Predicate: "friendOf", Object: "?y"}, rule.Body[0])
	})

	t.Run("multi-pattern body", func(t *testing.T) {
		rules, err := p.ParseRulesString(`knows(?x, ?z) :- knows(?x, ?y), knows(?y, ?z) .`)
		require.NoError(t, err)
		require.Len(t, rules, 1)
		require.Len(t, rules[0].Body, 2)
		assert.Equal(t, store.Pattern{Subject: "?y", Predicate: "knows", Object: "?z"}, rules[0].Body[1])
	})

	t.Run("prefix expansion applies to functors and constants", func(t *testing.T) {
		input := strings.Join([]string{
			`PREFIX ex: <http://example.org/>`,
			`ex:knows(?x, ex:Bob) :- ex:friendOf(?x, ex:Bob) .`,
		}, "\n")

		rules, err := p.ParseRulesString(input)
		require.NoError(t, err)
		require.Len(t, rules, 1)

		assert.Equal(t, "http://example.org/knows", rules[0].Head.Predicate)
		assert.Equal(t, "http://example.org/Bob", rules[0].Head.Object)
		assert.Equal(t, "?x", rules[0].Head.Subject)
		assert.Equal(t, "http://example.org/friendOf", rules[0].Body[0].Predicate)
	})

	t.Run("malformed lines are skipped", func(t *testing.T) {
		input := strings.Join([]string{
			`knows(?x, ?y) :- friendOf(?x, ?y) .`,
			`not a rule at all`,
			`headless :- body(?x, ?y) .`,
		}, "\n")

		rules, err := p.ParseRulesString(input)
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})

	t.Run("comments and blanks are skipped", func(t *testing.T) {
		input := strings.Join([]string{
			`# transitivity`,
			``,
			`knows(?x, ?z) :- knows(?x, ?y), knows(?y, ?z) .`,
		}, "\n")

		rules, err := p.ParseRulesString(input)
		require.NoError(t, err)
		assert.Len(t, rules, 1)
	})
}

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
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

// Rule syntax:
//
//	PREFIX ex: <http://example.org/>
//	knows(?x, ?y) :- ex:friendOf(?x, ?y) .
//
// Each atom functor is the pattern's predicate; the two arguments map
// to subject and object. Terms starting with '?' are variables,
// everything else is a constant. Functors and constant arguments go
// through prefix expansion.
var (
	rulePrefixRe = regexp.MustCompile(`^PREFIX\s+(\S+):\s+<([^>]+)>\s*$`)
	ruleAtomRe   = regexp.MustCompile(`([^\s(,]+)\(\s*([^,()\s]+)\s*,\s*([^,()\s]+)\s*\)`)
)

// ParseRules reads the textual rule syntax from r. Malformed lines are
// logged and skipped. Rules are named rule1..ruleN by position.
func (p *Parser) ParseRules(r io.Reader) ([]store.Rule, error) {
	var rules []store.Rule
	prefixes := make(map[string]string)

	scanner := newLineScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if m := rulePrefixRe.FindStringSubmatch(line); m != nil {
			prefixes[m[1]] = m[2]
			continue
		}

		rule, ok := p.parseRuleLine(line, prefixes)
		if !ok {
			p.logger.Warn("skipping malformed rule line", "line", line)
			continue
		}
		rule.Name = fmt.Sprintf("rule%d", len(rules)+1)
		rules = append(rules, rule)
	}
	return rules, scanner.Err()
}

// ParseRulesString parses rules from an in-memory string, the console
// input path.
func (p *Parser) ParseRulesString(rules string) ([]store.Rule, error) {
	return p.ParseRules(strings.NewReader(rules))
}

// ParseRulesFile opens and parses a rule file.
func (p *Parser) ParseRulesFile(path string) ([]store.Rule, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.ParseRules(f)
}

// parseRuleLine parses one `head :- body .` line.
func (p *Parser) parseRuleLine(line string, prefixes map[string]string) (store.Rule, bool) {
	head, body, found := strings.Cut(line, ":-")
	if !found {
		return store.Rule{}, false
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), ".")

	headAtoms := ruleAtomRe.FindAllStringSubmatch(head, -1)
	if len(headAtoms) != 1 {
		return store.Rule{}, false
	}
	bodyAtoms := ruleAtomRe.FindAllStringSubmatch(body, -1)
	if len(bodyAtoms) == 0 {
		return store.Rule{}, false
	}

	rule := store.Rule{
		Head: atomToPattern(headAtoms[0], prefixes),
		Body: make([]store.Pattern, 0, len(bodyAtoms)),
	}
	for _, atom := range bodyAtoms {
		rule.Body = append(rule.Body, atomToPattern(atom, prefixes))
	}
	return rule, true
}

// atomToPattern maps functor(arg1, arg2) to the triple pattern
// (arg1, functor, arg2), expanding prefixes on constants.
func atomToPattern(atom []string, prefixes map[string]string) store.Pattern {
	return store.Pattern{
		Subject:   expandRuleTerm(atom[2], prefixes),
		Predicate: expandRuleTerm(atom[1], prefixes),
		Object:    expandRuleTerm(atom[3], prefixes),
	}
}

// expandRuleTerm leaves variables alone and prefix-expands constants.
func expandRuleTerm(term string, prefixes map[string]string) string {
	if store.IsVariable(term) {
		return term
	}
	return expandPrefix(term, prefixes)
}

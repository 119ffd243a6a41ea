// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/pkg/logging"
	"github.com/AleutianAI/AleutianReason/services/reason/engine"
	"github.com/AleutianAI/AleutianReason/services/reason/parser"
	"github.com/AleutianAI/AleutianReason/services/reason/store"
)

var (
	runDataFiles  []string
	runDataFormat string
	runRulesFile  string
	runSQLDSN     string
	runSQLTable   string
	runQuery      string

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Load triples and rules, compute the fixpoint, and report",
		RunE:  runReasoner,
	}
)

func init() {
	runCmd.Flags().StringSliceVar(&runDataFiles, "data", nil,
		"Triple files to load (format inferred from extension)")
	runCmd.Flags().StringVar(&runDataFormat, "format", "",
		"Force a triple format: ntriples, turtle, csv")
	runCmd.Flags().StringVar(&runRulesFile, "rules", "",
		"Datalog rule file")
	runCmd.Flags().StringVar(&runSQLDSN, "sql-dsn", "",
		"MySQL DSN for loading triples from a relational table")
	runCmd.Flags().StringVar(&runSQLTable, "sql-table", "",
		"Table with subject, predicate, object columns")
	runCmd.Flags().StringVar(&runQuery, "query", "",
		"After reasoning, print all facts with this predicate")
}

func runReasoner(cmd *cobra.Command, args []string) error {
	logger := logging.New(logging.Config{
		Level:   logging.ParseLevel(fileConfig.LogLevel),
		LogDir:  fileConfig.LogDir,
		Service: "reason",
	})
	defer logger.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	p := parser.New(logger.Slog())
	s := store.NewTripleStore(store.NewStringPool())

	loaded := 0
	for _, path := range runDataFiles {
		statements, err := loadFile(p, path)
		if err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		n, err := insertStatements(s, statements)
		if err != nil {
			return err
		}
		logger.Info("data file loaded", "path", path, "parsed", len(statements), "added", n)
		loaded += n
	}

	if runSQLDSN != "" && runSQLTable != "" {
		db, err := sql.Open("mysql", runSQLDSN)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		statements, err := p.ParseSQLTable(ctx, db, runSQLTable)
		if err != nil {
			return fmt.Errorf("loading table %s: %w", runSQLTable, err)
		}
		n, err := insertStatements(s, statements)
		if err != nil {
			return err
		}
		logger.Info("table loaded", "table", runSQLTable, "parsed", len(statements), "added", n)
		loaded += n
	}

	var rules []store.Rule
	if runRulesFile != "" {
		var err error
		rules, err = p.ParseRulesFile(runRulesFile)
		if err != nil {
			return fmt.Errorf("loading rules %s: %w", runRulesFile, err)
		}
		logger.Info("rules loaded", "path", runRulesFile, "rules", len(rules))
	}

	eng, err := engine.New(s, rules, fileConfig.Engine, logger.Slog())
	if err != nil {
		return err
	}
	stats, err := eng.Reason(ctx)
	if err != nil {
		return err
	}

	poolStats := s.PoolStats()
	logger.Info("run complete",
		"input_facts", loaded,
		"derived_facts", stats.DerivedFacts,
		"store_size", stats.StoreSize,
		"unique_terms", poolStats.UniqueStrings,
		"duration", stats.Duration,
	)

	if runQuery != "" {
		for _, t := range s.QueryByPredicate(runQuery) {
			subj, pred, obj := t.Resolve(s.Pool())
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", subj, pred, obj)
		}
	}
	return nil
}

// loadFile parses one triple file, honoring the --format override.
func loadFile(p *parser.Parser, path string) ([]parser.Statement, error) {
	if runDataFormat == "" {
		return p.ParseTriplesFile(path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return p.ParseTriples(f, parser.Format(runDataFormat))
}

// insertStatements pushes loader output into the store.
func insertStatements(s *store.TripleStore, statements []parser.Statement) (int, error) {
	added := 0
	for _, st := range statements {
		_, isNew, err := s.AddTerms(st.Subject, st.Predicate, st.Object)
		if err != nil {
			return added, err
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

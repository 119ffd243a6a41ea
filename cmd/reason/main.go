// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command reason runs the Aleutian Datalog reasoner.
//
// Batch mode loads triples and rules, computes the fixpoint, and
// optionally dumps matching facts:
//
//	reason run --data facts.ttl --rules rules.dl
//	reason run --data facts.csv --rules rules.dl --query http://example.org/knows
//
// From a relational table (MySQL):
//
//	reason run --sql-dsn 'user:pass@tcp(localhost:3306)/kg' --sql-table triples --rules rules.dl
//
// Server mode exposes the HTTP API:
//
//	reason serve --port 8080
//	curl -X POST http://localhost:8080/v1/reason/sessions
package main

import (
	"log"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianReason/services/reason"
)

var (
	configPath string
	logLevel   string

	// fileConfig is resolved once in the persistent pre-run and shared
	// by the subcommands.
	fileConfig reason.FileConfig

	rootCmd = &cobra.Command{
		Use:   "reason",
		Short: "A parallel forward-chaining Datalog reasoner for RDF triples",
		Long: `Reason computes the least fixpoint of a Datalog rule set over
RDF-style triple data, using dictionary encoding, leapfrog-triejoin
evaluation, and a parallel semi-naive driver.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			fileConfig = reason.DefaultFileConfig()
			if configPath != "" {
				cfg, err := reason.LoadFileConfig(configPath)
				if err != nil {
					return err
				}
				fileConfig = cfg
			}
			if logLevel != "" {
				fileConfig.LogLevel = logLevel
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Log level: debug, info, warn, error (overrides config)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

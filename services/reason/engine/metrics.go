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

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Package-level tracer and meter for reasoning operations.
var (
	tracer = otel.Tracer("aleutian.reason.engine")
	meter  = otel.Meter("aleutian.reason.engine")
)

// Metrics for fixpoint runs.
var (
	reasonDuration   metric.Float64Histogram
	factsDerived     metric.Int64Counter
	ruleApplications metric.Int64Counter
	duplicatesFound  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reasonDuration, err = meter.Float64Histogram(
			"reason_fixpoint_duration_seconds",
			metric.WithDescription("Duration of full fixpoint runs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		factsDerived, err = meter.Int64Counter(
			"reason_facts_derived_total",
			metric.WithDescription("Facts newly installed by rule derivation"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		ruleApplications, err = meter.Int64Counter(
			"reason_rule_applications_total",
			metric.WithDescription("Rule-body evaluations across all phases"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		duplicatesFound, err = meter.Int64Counter(
			"reason_duplicates_discarded_total",
			metric.WithDescription("Derived facts discarded as already present"),
		)
		if err != nil {
			metricsErr = err
		}
	})
	return metricsErr
}

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
	"context"
	"database/sql"
	"fmt"
	"regexp"
)

// validTableName rejects identifiers that cannot be safely interpolated
// into the query text; placeholders cannot parameterize table names.
var validTableName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ParseSQLTable loads triples from a relational table with subject,
// predicate, and object text columns. The caller owns the *sql.DB and
// chooses the driver; the CLI wires the MySQL driver.
func (p *Parser) ParseSQLTable(ctx context.Context, db *sql.DB, table string) ([]Statement, error) {
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTableName, table)
	}

	rows, err := db.QueryContext(ctx,
		fmt.Sprintf("SELECT subject, predicate, object FROM %s", table))
	if err != nil {
		return nil, fmt.Errorf("querying table %s: %w", table, err)
	}
	defer rows.Close()

	var out []Statement
	for rows.Next() {
		var st Statement
		if err := rows.Scan(&st.Subject, &st.Predicate, &st.Object); err != nil {
			return nil, fmt.Errorf("scanning row from %s: %w", table, err)
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

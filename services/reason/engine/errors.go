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

import "errors"

// Sentinel errors for the reasoning engine.
var (
	// ErrInvalidConfig indicates a Config field is out of range.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNoStore indicates the engine was constructed without a store.
	ErrNoStore = errors.New("engine requires a triple store")
)

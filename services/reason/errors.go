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

import "errors"

// Sentinel errors for the reasoning service.
var (
	// ErrSessionNotFound indicates an unknown session ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrTooManySessions indicates the session cap is reached.
	ErrTooManySessions = errors.New("session limit reached")

	// ErrNoInput indicates a load request carried neither inline
	// content nor a file path.
	ErrNoInput = errors.New("either content or path is required")

	// ErrConfigTooLarge indicates a config file above the size cap.
	ErrConfigTooLarge = errors.New("config file exceeds size limit")
)

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lock provides exclusive advisory file locking for the on-disk
// graph store.
//
// # Description
//
// A Lock guards a single lock file with an OS-level advisory lock
// (flock(2) on Unix). The lock file additionally carries a JSON record
// of the holder (PID, hostname, acquisition time) for diagnostics; the
// advisory lock, not the record, is the source of truth, so a crashed
// holder never leaves the path permanently locked.
//
// # Thread Safety
//
// A Lock value belongs to the goroutine that acquired it. Acquiring the
// same path concurrently from multiple goroutines is safe; all but one
// acquisition fails or waits.
package lock

import (
	"errors"
	"fmt"
)

// ErrLocked indicates the lock file is held by another process.
var ErrLocked = errors.New("lock file held by another process")

// HeldError wraps ErrLocked with the holder recorded in the lock file,
// when that record could be read.
type HeldError struct {
	// Path is the lock file path.
	Path string

	// Holder is the recorded holder, or nil if the record was unreadable.
	Holder *Info
}

// Error returns a diagnostic naming the holder when known.
func (e *HeldError) Error() string {
	if e.Holder != nil {
		return fmt.Sprintf("%s: held by pid %d on %s since %s",
			e.Path, e.Holder.PID, e.Holder.Hostname, e.Holder.AcquiredAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return fmt.Sprintf("%s: held by another process", e.Path)
}

// Unwrap makes errors.Is(err, ErrLocked) work on a HeldError.
func (e *HeldError) Unwrap() error {
	return ErrLocked
}

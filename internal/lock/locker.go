// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lock

import (
	"os"
)

// FileLocker abstracts platform-specific advisory locking.
//
// # Description
//
// Unix uses flock(2); Windows would use LockFileEx. Both calls are
// non-blocking: TryLock reports ErrLocked immediately when the file is
// held elsewhere.
//
// # Thread Safety
//
// Implementations are stateless and safe for concurrent use on
// different files. Locking the same open file from multiple goroutines
// is undefined.
type FileLocker interface {
	// TryLock acquires an exclusive lock on f without blocking.
	// Returns ErrLocked when another process holds the lock.
	TryLock(f *os.File) error

	// Unlock releases the lock on f. Safe to call when not locked.
	Unlock(f *os.File) error
}

// IsProcessAlive reports whether a process with the given PID exists.
// Used only for lock-holder diagnostics; the advisory lock itself is
// released by the kernel when the holder exits.
func IsProcessAlive(pid int) bool {
	return isProcessAlive(pid)
}

// newFileLocker returns the locker for the current platform.
func newFileLocker() FileLocker {
	return newPlatformLocker()
}

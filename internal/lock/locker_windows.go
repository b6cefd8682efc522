// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build windows

package lock

import (
	"os"
)

// windowsFileLocker implements FileLocker for Windows.
//
// # Description
//
// TODO: implement with golang.org/x/sys/windows LockFileEx using
// LOCKFILE_EXCLUSIVE_LOCK|LOCKFILE_FAIL_IMMEDIATELY. Until then the
// methods are no-ops, so concurrent-writer protection is Unix-only.
type windowsFileLocker struct{}

// TryLock is a no-op pending the LockFileEx implementation.
func (l *windowsFileLocker) TryLock(f *os.File) error {
	return nil
}

// Unlock is a no-op pending the UnlockFileEx implementation.
func (l *windowsFileLocker) Unlock(f *os.File) error {
	return nil
}

// isProcessAlive always reports false pending an OpenProcess check.
func isProcessAlive(pid int) bool {
	return false
}

func newPlatformLocker() FileLocker {
	return &windowsFileLocker{}
}

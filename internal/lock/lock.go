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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollInterval bounds how long a waiter can miss a release when the
// fsnotify watch drops an event.
const pollInterval = 250 * time.Millisecond

// Info is the holder record written into the lock file.
type Info struct {
	// PID is the holder's process ID.
	PID int `json:"pid"`

	// Hostname is the holder's hostname.
	Hostname string `json:"hostname"`

	// AcquiredAt is when the lock was taken.
	AcquiredAt time.Time `json:"acquired_at"`
}

// Lock is a held exclusive lock on a file.
//
// # Description
//
// Release the lock with Release. The underlying advisory lock also
// drops when the holding process exits, so a crash cannot wedge the
// path; a stale holder record left behind is overwritten by the next
// acquirer.
type Lock struct {
	path string
	file *os.File
	lckr FileLocker
}

// Acquire takes an exclusive lock on path without blocking.
//
// # Description
//
// Creates the lock file if needed, takes the advisory lock, and writes
// the holder record. When another process holds the lock, returns a
// HeldError (errors.Is ErrLocked) carrying that process's record.
//
// # Inputs
//
//   - path: lock file path. The parent directory must exist.
//
// # Outputs
//
//   - *Lock: the held lock, nil on error.
//   - error: nil, HeldError, or an I/O error.
func Acquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file %s: %w", path, err)
	}

	lckr := newFileLocker()
	if err := lckr.TryLock(f); err != nil {
		holder := readInfo(path)
		f.Close()
		if err == ErrLocked {
			return nil, &HeldError{Path: path, Holder: holder}
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	l := &Lock{path: path, file: f, lckr: lckr}
	if err := l.writeInfo(); err != nil {
		l.Release()
		return nil, err
	}
	return l, nil
}

// AcquireWait takes an exclusive lock on path, waiting for a current
// holder to release it.
//
// # Description
//
// Tries Acquire, and on contention watches the lock file's directory
// with fsnotify, retrying on every remove or write event. A periodic
// poll backs up the watch, so a missed event delays acquisition by at
// most pollInterval. Returns ctx.Err() when the context ends first.
//
// # Inputs
//
//   - ctx: bounds the wait.
//   - path: lock file path. The parent directory must exist.
//
// # Outputs
//
//   - *Lock: the held lock, nil on error.
//   - error: nil, ctx.Err(), or an I/O error. Never ErrLocked.
func AcquireWait(ctx context.Context, path string) (*Lock, error) {
	l, err := Acquire(path)
	if err == nil || !isLocked(err) {
		return l, err
	}

	watcher, werr := fsnotify.NewWatcher()
	if werr == nil {
		defer watcher.Close()
		if werr = watcher.Add(filepath.Dir(path)); werr != nil {
			watcher = nil
		}
	}
	if watcher == nil {
		slog.Debug("lock watch unavailable, polling only",
			slog.String("path", path), slog.Any("error", werr))
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var events chan fsnotify.Event
	var watchErrs chan error
	if watcher != nil {
		events = watcher.Events
		watchErrs = watcher.Errors
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case ev := <-events:
			if ev.Name != path {
				continue
			}
		case err := <-watchErrs:
			slog.Debug("lock watch error", slog.Any("error", err))
		case <-ticker.C:
		}

		l, err := Acquire(path)
		if err == nil || !isLocked(err) {
			return l, err
		}
	}
}

// Release unlocks and closes the lock file.
//
// # Description
//
// The lock file itself is removed best-effort; a leftover empty file is
// harmless since the advisory lock is already gone.
func (l *Lock) Release() error {
	if l.file == nil {
		return nil
	}
	_ = os.Remove(l.path)
	err := l.lckr.Unlock(l.file)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// writeInfo replaces the lock file contents with the holder record.
func (l *Lock) writeInfo() error {
	hostname, _ := os.Hostname()
	info := Info{PID: os.Getpid(), Hostname: hostname, AcquiredAt: time.Now().UTC()}
	data, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encoding lock info: %w", err)
	}
	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("truncating lock file %s: %w", l.path, err)
	}
	if _, err := l.file.WriteAt(data, 0); err != nil {
		return fmt.Errorf("writing lock info %s: %w", l.path, err)
	}
	return nil
}

// readInfo reads the holder record, nil when missing or malformed.
func readInfo(path string) *Info {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return nil
	}
	return &info
}

// isLocked reports whether err is a contention error rather than an
// I/O failure.
func isLocked(err error) bool {
	return errors.Is(err, ErrLocked)
}

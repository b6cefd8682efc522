// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

//go:build unix

package lock

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "graph.lock")
}

func TestAcquire_Exclusive(t *testing.T) {
	path := lockPath(t)

	first, err := Acquire(path)
	require.NoError(t, err)
	defer first.Release()

	// flock conflicts are per open file description, so a second
	// acquisition in the same process exercises the contended path.
	_, err = Acquire(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLocked)

	var held *HeldError
	require.ErrorAs(t, err, &held)
	require.NotNil(t, held.Holder)
	assert.Equal(t, os.Getpid(), held.Holder.PID)
	assert.Contains(t, held.Error(), "held by pid")
}

func TestAcquire_ReleaseThenReacquire(t *testing.T) {
	path := lockPath(t)

	first, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, first.Release())

	second, err := Acquire(path)
	require.NoError(t, err)
	assert.NoError(t, second.Release())
}

func TestAcquire_WritesHolderInfo(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)
	defer l.Release()

	info := readInfo(path)
	require.NotNil(t, info)
	assert.Equal(t, os.Getpid(), info.PID)
	assert.False(t, info.AcquiredAt.IsZero())
	assert.True(t, IsProcessAlive(info.PID))
}

func TestAcquireWait_Uncontended(t *testing.T) {
	path := lockPath(t)

	l, err := AcquireWait(context.Background(), path)
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}

func TestAcquireWait_WaitsForRelease(t *testing.T) {
	path := lockPath(t)

	holder, err := Acquire(path)
	require.NoError(t, err)

	acquired := make(chan error, 1)
	go func() {
		l, err := AcquireWait(context.Background(), path)
		if err == nil {
			err = l.Release()
		}
		acquired <- err
	}()

	// The waiter must still be blocked while the lock is held.
	select {
	case err := <-acquired:
		t.Fatalf("acquired while lock held: %v", err)
	case <-time.After(100 * time.Millisecond):
	}

	require.NoError(t, holder.Release())

	select {
	case err := <-acquired:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter did not acquire after release")
	}
}

func TestAcquireWait_ContextCancelled(t *testing.T) {
	path := lockPath(t)

	holder, err := Acquire(path)
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	_, err = AcquireWait(ctx, path)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAcquire_MissingDirectory(t *testing.T) {
	_, err := Acquire(filepath.Join(t.TempDir(), "no", "such", "dir", "graph.lock"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrLocked))
}

func TestRelease_Idempotent(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(path)
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

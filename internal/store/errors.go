// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store persists a frozen graph to a schema-versioned on-disk
// directory backed by BadgerDB.
//
// # Layout
//
// A store directory holds a `graph.lock` file and a `db/` BadgerDB
// directory. Keys inside the database:
//
//	meta/schema    - schema version, decimal string
//	meta/manifest  - JSON Manifest (build ID, creation time, counts,
//	                 backend tag)
//	node/<qn>      - JSON entity.CodeNode
//	edge/<seq>     - JSON entity.CodeEdge, seq is a big-endian uint64
//
// # Lifecycle
//
// Open acquires the exclusive lock for the whole store session, so a
// concurrent writer can never hand a reader partial state; a second
// opener either fails with ErrStoreLocked or blocks in OpenWait until
// the lock is released. A schema version mismatch means "no usable
// cache": callers rebuild rather than attempting migration.
//
// # Thread Safety
//
// A Store is safe for concurrent reads after Open. Save must not run
// concurrently with Load on the same Store.
package store

import "errors"

var (
	// ErrStoreLocked indicates another process holds the store lock.
	ErrStoreLocked = errors.New("store locked by another process")

	// ErrSchemaMismatch indicates the on-disk schema version differs
	// from SchemaVersion. The cache is unusable; rebuild it.
	ErrSchemaMismatch = errors.New("store schema version mismatch")

	// ErrCorruptRecord indicates a persisted node or edge record failed
	// to decode.
	ErrCorruptRecord = errors.New("corrupt store record")

	// ErrEmptyStore indicates Load was called on a store with no
	// persisted graph.
	ErrEmptyStore = errors.New("store holds no graph")
)

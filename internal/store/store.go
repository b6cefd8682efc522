// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/codehealth/internal/entity"
	"github.com/AleutianAI/codehealth/internal/graph"
	"github.com/AleutianAI/codehealth/internal/lock"
)

// SchemaVersion is the current on-disk schema version. Bump it whenever
// the key layout or record encoding changes.
const SchemaVersion = 1

const (
	lockFileName = "graph.lock"
	dbDirName    = "db"

	keySchema   = "meta/schema"
	keyManifest = "meta/manifest"

	nodeKeyPrefix = "node/"
	edgeKeyPrefix = "edge/"

	// writeBatchSize bounds how many records go between cancellation
	// checks during Save and Load.
	writeBatchSize = 1024
)

// Manifest describes a persisted graph.
type Manifest struct {
	// BuildID uniquely identifies one Save.
	BuildID string `json:"build_id"`

	// CreatedAt is when the graph was saved.
	CreatedAt time.Time `json:"created_at"`

	// Nodes and Edges are the persisted counts.
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	// Backend is the backend tag ("standard" or "compact") the graph
	// was built with, restored on Load.
	Backend string `json:"backend"`
}

// Source is what Save persists: the full query surface plus edge
// enumeration and the backend tag. *graph.UnifiedGraph satisfies it.
type Source interface {
	graph.Query
	Edges() []entity.CodeEdge
	Backend() graph.BackendKind
}

// Store is an open, locked graph store directory.
type Store struct {
	dir      string
	db       *badger.DB
	lck      *lock.Lock
	manifest *Manifest
}

// Config holds store options.
type Config struct {
	// SyncWrites enables synchronous writes for durability.
	// Default: false; Save is an atomic rebuild, not a WAL.
	SyncWrites bool

	// Logger receives BadgerDB's internal log output. Nil disables it.
	Logger *slog.Logger
}

// Open opens (or creates) the store directory and acquires its
// exclusive lock without blocking.
//
// # Description
//
// Creates the directory if needed, takes `graph.lock`, opens the
// BadgerDB under `db/`, and verifies the schema version. On any
// failure after the lock is taken, the lock is released before
// returning.
//
// # Outputs
//
//   - *Store: the open store. Caller must Close it.
//   - error: ErrStoreLocked, ErrSchemaMismatch, or an I/O error.
func Open(dir string, cfg Config) (*Store, error) {
	return open(dir, cfg, func(path string) (*lock.Lock, error) {
		return lock.Acquire(path)
	})
}

// OpenWait is Open, but blocks until a current lock holder releases the
// store or ctx ends.
func OpenWait(ctx context.Context, dir string, cfg Config) (*Store, error) {
	return open(dir, cfg, func(path string) (*lock.Lock, error) {
		return lock.AcquireWait(ctx, path)
	})
}

func open(dir string, cfg Config, acquire func(string) (*lock.Lock, error)) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	lck, err := acquire(filepath.Join(dir, lockFileName))
	if err != nil {
		if errors.Is(err, lock.ErrLocked) {
			return nil, fmt.Errorf("%w: %s", ErrStoreLocked, err)
		}
		return nil, err
	}

	opts := badger.DefaultOptions(filepath.Join(dir, dbDirName)).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		lck.Release()
		return nil, fmt.Errorf("opening store database: %w", err)
	}

	s := &Store{dir: dir, db: db, lck: lck}
	if err := s.verifySchema(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database and releases the store lock.
func (s *Store) Close() error {
	err := s.db.Close()
	if lerr := s.lck.Release(); err == nil {
		err = lerr
	}
	return err
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Manifest returns the manifest read at Open or written by the last
// Save, nil for a fresh store.
func (s *Store) Manifest() *Manifest {
	return s.manifest
}

// verifySchema checks meta/schema and loads the manifest. A fresh store
// with no schema key passes.
func (s *Store) verifySchema() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySchema))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
		var version int
		if verr := item.Value(func(val []byte) error {
			version, err = strconv.Atoi(string(val))
			return err
		}); verr != nil {
			return fmt.Errorf("%w: meta/schema: %v", ErrCorruptRecord, verr)
		}
		if version != SchemaVersion {
			return fmt.Errorf("%w: disk has v%d, this build reads v%d",
				ErrSchemaMismatch, version, SchemaVersion)
		}

		item, err = txn.Get([]byte(keyManifest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading manifest: %w", err)
		}
		var m Manifest
		if verr := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); verr != nil {
			return fmt.Errorf("%w: meta/manifest: %v", ErrCorruptRecord, verr)
		}
		s.manifest = &m
		return nil
	})
}

// Save persists the graph, replacing any previously stored one.
//
// # Description
//
// Drops all existing keys, then writes the schema version, a fresh
// manifest, and every node and edge record in batched writes with a
// cancellation check between batches. The exclusive lock held since
// Open guarantees no concurrent reader can observe the intermediate
// state.
//
// # Inputs
//
//   - ctx: bounds the write.
//   - src: the frozen graph to persist.
//
// # Outputs
//
//   - *Manifest: the written manifest.
//   - error: nil, ctx.Err(), or a database error.
func (s *Store) Save(ctx context.Context, src Source) (*Manifest, error) {
	if err := s.db.DropAll(); err != nil {
		return nil, fmt.Errorf("clearing store: %w", err)
	}

	manifest := &Manifest{
		BuildID:   uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Nodes:     src.NodeCount(),
		Edges:     src.EdgeCount(),
		Backend:   src.Backend().String(),
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	if err := wb.Set([]byte(keySchema), []byte(strconv.Itoa(SchemaVersion))); err != nil {
		return nil, fmt.Errorf("writing schema version: %w", err)
	}
	manifestData, err := json.Marshal(manifest)
	if err != nil {
		return nil, fmt.Errorf("encoding manifest: %w", err)
	}
	if err := wb.Set([]byte(keyManifest), manifestData); err != nil {
		return nil, fmt.Errorf("writing manifest: %w", err)
	}

	written := 0
	for _, qn := range src.Nodes() {
		node, ok := src.GetNode(qn)
		if !ok {
			continue
		}
		data, err := json.Marshal(node)
		if err != nil {
			return nil, fmt.Errorf("encoding node %s: %w", qn, err)
		}
		if err := wb.Set([]byte(nodeKeyPrefix+qn), data); err != nil {
			return nil, fmt.Errorf("writing node %s: %w", qn, err)
		}
		written++
		if written%writeBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	for i, edge := range src.Edges() {
		data, err := json.Marshal(edge)
		if err != nil {
			return nil, fmt.Errorf("encoding edge %s->%s: %w", edge.From, edge.To, err)
		}
		if err := wb.Set(edgeKey(uint64(i)), data); err != nil {
			return nil, fmt.Errorf("writing edge %s->%s: %w", edge.From, edge.To, err)
		}
		written++
		if written%writeBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
	}

	if err := wb.Flush(); err != nil {
		return nil, fmt.Errorf("flushing store writes: %w", err)
	}

	s.manifest = manifest
	slog.Info("graph persisted",
		slog.String("store", s.dir),
		slog.String("build_id", manifest.BuildID),
		slog.Int("nodes", manifest.Nodes),
		slog.Int("edges", manifest.Edges),
		slog.String("backend", manifest.Backend),
	)
	return manifest, nil
}

// Load rebuilds a frozen graph from the persisted records.
//
// # Description
//
// Reconstructs the backend named by the manifest's backend tag, inserts
// every node then every edge, and freezes the result. Records that fail
// to decode surface as ErrCorruptRecord.
//
// # Outputs
//
//   - *graph.UnifiedGraph: the frozen graph.
//   - error: nil, ErrEmptyStore, ErrCorruptRecord, ctx.Err(), or a
//     database error.
func (s *Store) Load(ctx context.Context) (*graph.UnifiedGraph, error) {
	if s.manifest == nil {
		return nil, fmt.Errorf("%w: %s", ErrEmptyStore, s.dir)
	}

	var g *graph.UnifiedGraph
	if graph.ParseBackendKind(s.manifest.Backend) == graph.BackendCompact {
		g = graph.NewUnifiedCompact(graph.NewCompactGraph())
	} else {
		g = graph.NewUnifiedStandard(graph.NewSharedGraph(nil))
	}

	err := s.db.View(func(txn *badger.Txn) error {
		if err := s.loadPrefix(ctx, txn, nodeKeyPrefix, func(key string, val []byte) error {
			var node entity.CodeNode
			if err := json.Unmarshal(val, &node); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, key, err)
			}
			return g.AddNode(node)
		}); err != nil {
			return err
		}
		return s.loadPrefix(ctx, txn, edgeKeyPrefix, func(key string, val []byte) error {
			var edge entity.CodeEdge
			if err := json.Unmarshal(val, &edge); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptRecord, key, err)
			}
			return g.AddEdge(edge)
		})
	})
	if err != nil {
		return nil, err
	}

	g.Freeze()
	slog.Debug("graph loaded",
		slog.String("store", s.dir),
		slog.String("build_id", s.manifest.BuildID),
		slog.Int("nodes", g.NodeCount()),
		slog.Int("edges", g.EdgeCount()),
	)
	return g, nil
}

// loadPrefix iterates every key under prefix, with a cancellation check
// every writeBatchSize records.
func (s *Store) loadPrefix(ctx context.Context, txn *badger.Txn, prefix string, fn func(key string, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefix)
	it := txn.NewIterator(opts)
	defer it.Close()

	seen := 0
	for it.Rewind(); it.Valid(); it.Next() {
		item := it.Item()
		key := string(item.Key())
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
		seen++
		if seen%writeBatchSize == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// edgeKey encodes an edge sequence number as edge/<big-endian uint64>.
func edgeKey(seq uint64) []byte {
	key := make([]byte, len(edgeKeyPrefix)+8)
	copy(key, edgeKeyPrefix)
	binary.BigEndian.PutUint64(key[len(edgeKeyPrefix):], seq)
	return key
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

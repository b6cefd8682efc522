// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/AleutianAI/codehealth/internal/config"
	"github.com/AleutianAI/codehealth/internal/graph"
	"github.com/AleutianAI/codehealth/internal/store"
	"github.com/AleutianAI/codehealth/pkg/logging"
)

var (
	flagConfig   string
	flagLogLevel string
	flagLogFile  string
	flagTrace    bool
	flagStore    string

	cfg            config.Config
	logger         *logging.Logger
	tracerShutdown func(context.Context) error
)

var rootCmd = &cobra.Command{
	Use:   "codehealth",
	Short: "Code knowledge graph engine for code-health analysis",
	Long: `codehealth ingests entity records emitted by a source parser, builds a
code knowledge graph, persists it to a schema-versioned local store, and
runs structural health detectors (bottlenecks, coordinators, dead-code
candidates, import and call cycles) over it.`,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return err
		}
		if flagStore != "" {
			cfg.StoreDir = flagStore
		}

		logger = logging.New(logging.Config{
			Level:   logging.ParseLevel(flagLogLevel),
			LogFile: flagLogFile,
			Service: "codehealth",
		})
		logger.SetDefault()

		if flagTrace {
			shutdown, err := initTracing(cmd.Context())
			if err != nil {
				return fmt.Errorf("initializing tracing: %w", err)
			}
			tracerShutdown = shutdown
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if tracerShutdown != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerShutdown(ctx); err != nil {
				return err
			}
		}
		if logger != nil {
			return logger.Close()
		}
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", config.DefaultPath, "configuration file")
	pf.StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	pf.StringVar(&flagLogFile, "log-file", "", "also write JSON logs to this file")
	pf.BoolVar(&flagTrace, "trace", false, "emit OpenTelemetry spans to stdout")
	pf.StringVar(&flagStore, "store", "", "graph store directory (overrides config)")
}

// initTracing installs a stdout span exporter as the global tracer
// provider, for ad-hoc inspection of build and algorithm spans.
func initTracing(ctx context.Context) (func(context.Context) error, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("codehealth")),
	)
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// openStore opens the configured store for reading, translating typed
// store errors into actionable diagnostics.
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.StoreDir, store.Config{})
	if err != nil {
		return nil, storeDiagnostic(err)
	}
	return s, nil
}

// loadGraph opens the store, loads the persisted graph, and releases
// the store lock before returning, since loaded graphs are immutable.
func loadGraph(ctx context.Context) (*graph.UnifiedGraph, *store.Manifest, error) {
	s, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	defer s.Close()

	g, err := s.Load(ctx)
	if err != nil {
		return nil, nil, storeDiagnostic(err)
	}
	return g, s.Manifest(), nil
}

// storeDiagnostic wraps typed store errors with a hint telling the
// user what to do about them.
func storeDiagnostic(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrStoreLocked):
		return fmt.Errorf("%w\nanother codehealth process is using this store; retry when it finishes", err)
	case errors.Is(err, store.ErrSchemaMismatch):
		return fmt.Errorf("%w\nthe cached graph predates this build; run 'codehealth build' to rebuild it", err)
	case errors.Is(err, store.ErrEmptyStore):
		return fmt.Errorf("%w\nrun 'codehealth build --input entities.json' first", err)
	case errors.Is(err, store.ErrCorruptRecord):
		return fmt.Errorf("%w\nthe cached graph is damaged; run 'codehealth build' to rebuild it", err)
	default:
		return err
	}
}

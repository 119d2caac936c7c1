// Package runtime wires the store, config, logger, and counters for a
// single-node relay instance. It is constructed at process start and torn
// down at process stop; nothing in it is ambient or global.
package runtime

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rzbill/playcast/internal/broadcast"
	cfgpkg "github.com/rzbill/playcast/internal/config"
	"github.com/rzbill/playcast/internal/stats"
)

// Options for building the Runtime.
type Options struct {
	Config cfgpkg.Config
	Logger zerolog.Logger
}

// Runtime owns the shared state every service reads or writes.
type Runtime struct {
	store    *broadcast.Store
	codec    *broadcast.Codec
	counters *stats.Counters
	config   cfgpkg.Config
	logger   zerolog.Logger
}

// Open builds a Runtime from options.
func Open(opts Options) (*Runtime, error) {
	return &Runtime{
		store:    broadcast.NewStore(),
		codec:    broadcast.NewCodec(opts.Config.GzipLevel),
		counters: stats.New(),
		config:   opts.Config,
		logger:   opts.Logger,
	}, nil
}

// Close releases runtime resources. The store is memory-only, so this exists
// for lifecycle symmetry and future resources.
func (r *Runtime) Close() error { return nil }

// CheckHealth performs a simple liveness check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.store == nil {
		return errors.New("store not open")
	}
	return ctx.Err()
}

// Store exposes the fragment store.
func (r *Runtime) Store() *broadcast.Store { return r.store }

// Codec exposes the shared blob codec.
func (r *Runtime) Codec() *broadcast.Codec { return r.codec }

// Counters exposes the process counters.
func (r *Runtime) Counters() *stats.Counters { return r.counters }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Logger returns the process logger.
func (r *Runtime) Logger() zerolog.Logger { return r.logger }

// Package serverrun hosts the relay server process: runtime construction,
// signal handling, periodic stats reporting, and shutdown ordering.
package serverrun

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	cfgpkg "github.com/rzbill/playcast/internal/config"
	"github.com/rzbill/playcast/internal/runtime"
	httpserver "github.com/rzbill/playcast/internal/server/http"
)

// Options for one server run.
type Options struct {
	Config cfgpkg.Config
	Logger zerolog.Logger

	// StatsInterval is how often the counter snapshot is logged.
	// Zero means once a minute.
	StatsInterval time.Duration
}

// Run starts the relay HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	// Layer a local signal context over the provided one so callers
	// without signal handling still stop cleanly on SIGINT/SIGTERM.
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := runtime.Open(runtime.Options{Config: opts.Config, Logger: opts.Logger})
	if err != nil {
		return err
	}
	defer rt.Close()

	logger := opts.Logger
	logger.Info().
		Str("listen", opts.Config.ListenAddr).
		Int("gzip_level", opts.Config.GzipLevel).
		Int("live_edge_offset", opts.Config.LiveEdgeOffset).
		Msg("starting playcast relay")

	interval := opts.StatsInterval
	if interval <= 0 {
		interval = time.Minute
	}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-sctx.Done():
				return
			case <-t.C:
				logger.Info().Interface("stats", rt.Counters().Snapshot()).Msg("relay stats")
			}
		}
	}()

	srv := httpserver.New(rt)
	err = srv.ListenAndServe(sctx, opts.Config.ListenAddr)
	stop()
	wg.Wait()
	logger.Info().Interface("stats", rt.Counters().Snapshot()).Msg("final relay stats")
	if err != nil && sctx.Err() == nil {
		return err
	}
	return nil
}

// Package httpserver exposes the playcast wire protocol: POSTs from the game
// server and GETs from viewers/CDN, with a path-positional routing scheme
// where the first segment is always the match token.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/rzbill/playcast/internal/runtime"
	catchupsvc "github.com/rzbill/playcast/internal/services/catchup"
	ingestsvc "github.com/rzbill/playcast/internal/services/ingest"
	logpkg "github.com/rzbill/playcast/pkg/log"
)

// Server serves the playcast HTTP protocol.
type Server struct {
	rt      *runtime.Runtime
	srv     *http.Server
	lis     net.Listener
	ingest  *ingestsvc.Service
	catchup *catchupsvc.Service
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New builds a Server with its own service instances.
func New(rt *runtime.Runtime) *Server {
	return NewWithServices(rt, ingestsvc.New(rt), catchupsvc.New(rt))
}

// NewWithServices builds a Server around shared service instances.
func NewWithServices(rt *runtime.Runtime, ing *ingestsvc.Service, cat *catchupsvc.Service) *Server {
	s := &Server{
		rt:      rt,
		ingest:  ing,
		catchup: cat,
		logger:  logpkg.Component(rt.Logger(), "http"),
	}
	if rps := rt.Config().PostRatePerSec; rps > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(rps), rt.Config().PostBurst)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.route)
	s.srv = &http.Server{Handler: s.recoverer(mux)}
	return s
}

// Handler returns the root handler, for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		// let in-flight ingest pipelines settle before the process exits
		s.ingest.Drain()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close force-closes the listener.
func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

// recoverer catches unexpected faults inside a request, logs them, and
// abandons the response without writing a status. Origins treat a dropped
// connection as retryable, so no status is the honest answer here.
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				s.logger.Error().Interface("panic", rec).
					Str("method", r.Method).Str("url", r.URL.String()).
					Msg("unexpected fault, abandoning request")
				panic(http.ErrAbortHandler)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

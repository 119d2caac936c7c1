package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rzbill/playcast/internal/broadcast"
	catchupsvc "github.com/rzbill/playcast/internal/services/catchup"
	ingestsvc "github.com/rzbill/playcast/internal/services/ingest"
	"github.com/rzbill/playcast/internal/stats"
)

// originDelayHeader carries the artificial distribution delay in
// milliseconds a POST wants enforced on its fragment.
const originDelayHeader = "X-Origin-Delay"

// respondReason writes an empty response whose status is explained in an
// X-Reason header, the convention viewers and CDN operators expect.
func respondReason(w http.ResponseWriter, code int, reason string) {
	w.Header().Set("X-Reason", reason)
	w.WriteHeader(code)
}

// route dispatches /{token}/... by hand: the token is an arbitrary opaque
// string, so mux patterns cannot carry the precedence this protocol needs.
func (s *Server) route(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")
	token := parts[0]
	if token == "" || token == "index.html" {
		respondReason(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var isPost bool
	switch r.Method {
	case http.MethodPost:
		isPost = true
	case http.MethodGet:
	default:
		respondReason(w, http.StatusNotFound, "Only POST or GET in this API")
		return
	}

	counters := s.rt.Counters()
	store := s.rt.Store()

	var m *broadcast.Match
	if isPost {
		if s.limiter != nil && !s.limiter.Allow() {
			respondReason(w, http.StatusTooManyRequests, "Ingest rate limit exceeded")
			return
		}
		var created bool
		m, created = store.GetOrCreateMatch(token)
		if created {
			// single-tenant convenience: the newest match becomes the
			// global /sync target
			store.SetRedirectToken(token)
			counters.IncNewMatch()
			s.logger.Info().Str("token", token).Msg("creating match_broadcast")
		}
	} else {
		var ok bool
		m, ok = store.GetMatch(token)
		if !ok {
			if token == "sync" {
				s.handleGlobalSync(w, r)
				return
			}
			counters.IncErr(stats.ErrUnknownMatch)
			respondReason(w, http.StatusNotFound, "match_broadcast "+token+" not found")
			return
		}
	}

	if len(parts) < 2 || parts[1] == "" {
		if isPost {
			counters.IncErr(stats.ErrNoFragment)
			respondReason(w, http.StatusMethodNotAllowed, "Invalid POST: no fragment or field")
		} else {
			respondReason(w, http.StatusUnauthorized, "Unauthorized")
		}
		return
	}
	counters.IncRequest()

	fragment, err := strconv.Atoi(parts[1])
	if err != nil || fragment < 0 {
		switch {
		case parts[1] == "sync":
			s.handleSync(w, r, m, "")
		case isPost && parts[1] == broadcast.FieldStart:
			// start write without an explicit signup index
			counters.IncPostField()
			s.handlePost(w, r, m, 0, broadcast.FieldStart)
		default:
			counters.IncErr(stats.ErrBadFragment)
			respondReason(w, http.StatusMethodNotAllowed, "Fragment is not an int or sync")
		}
		return
	}

	var field string
	if len(parts) >= 3 {
		field = parts[2]
	}

	if isPost {
		counters.IncPostField()
		if field == "" {
			counters.IncErr(stats.ErrNoField)
			respondReason(w, http.StatusMethodNotAllowed, "Cannot post fragment without field name")
			return
		}
		s.handlePost(w, r, m, fragment, field)
		return
	}

	now := time.Now()
	switch {
	case field == broadcast.FieldStart:
		counters.IncGetStart()
		b, err := s.catchup.ServeStart(m, fragment, now)
		if err != nil {
			respondReason(w, http.StatusNotFound, "Invalid or expired start fragment, please re-sync")
			return
		}
		writeBlob(w, b)
	case field == "":
		meta, err := s.catchup.Describe(m, fragment)
		if err != nil {
			counters.IncErr(stats.ErrMissingRecord)
			respondReason(w, http.StatusNotFound, fmt.Sprintf("Fragment %d not found", fragment))
			return
		}
		counters.IncFragMeta()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(meta)
	default:
		rec, ok := m.Fragment(fragment)
		if !ok {
			counters.IncErr(stats.ErrMissingRecord)
			respondReason(w, http.StatusNotFound, fmt.Sprintf("Fragment %d not found", fragment))
			return
		}
		counters.IncGetField()
		b, err := s.catchup.ServeBlob(rec, field, now)
		if err != nil {
			respondReason(w, http.StatusNotFound, "Field not found")
			return
		}
		writeBlob(w, b)
	}
}

// handlePost runs one ingest write. The response status is decided before
// the body is consumed; a failed body read abandons the request.
func (s *Server) handlePost(w http.ResponseWriter, r *http.Request, m *broadcast.Match, fragment int, field string) {
	var delay time.Duration
	if v := r.Header.Get(originDelayHeader); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			delay = time.Duration(n) * time.Millisecond
		}
	}
	status, err := s.ingest.Ingest(r.Context(), m, fragment, field, r.URL.Query(), r.Body, delay)
	if err != nil {
		s.logger.Error().Err(err).Str("token", m.Token()).
			Int("fragment", fragment).Str("field", field).Msg("ingest failed")
		panic(http.ErrAbortHandler)
	}
	if status == ingestsvc.StatusNeedStart {
		w.WriteHeader(http.StatusResetContent)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// handleSync answers a catch-up query for one match. redirect, when
// non-empty, is advertised in the response as the unified playcast token.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request, m *broadcast.Match, redirect string) {
	s.rt.Counters().IncSync()
	now := time.Now()

	// whatever we find out is stale a few seconds from now
	maxAge := s.rt.Config().SyncMaxAgeSec
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", maxAge))
	w.Header().Set("Expires", now.Add(time.Duration(maxAge)*time.Second).UTC().Format(http.TimeFormat))

	requested := -1
	if v := r.URL.Query().Get("fragment"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondReason(w, http.StatusMethodNotAllowed, "Fragment not found, please check back soon")
			return
		}
		requested = n
		if requested < 0 {
			requested = 0
		}
	}

	resp, err := s.catchup.ResolveSync(m, requested, now)
	switch {
	case errors.Is(err, catchupsvc.ErrNotStarted):
		respondReason(w, http.StatusNotFound, "Broadcast has not started yet")
	case errors.Is(err, catchupsvc.ErrNotReady):
		respondReason(w, http.StatusMethodNotAllowed, "Fragment not found, please check back soon")
	case err != nil:
		panic(err) // recoverer abandons
	default:
		resp.TokenRedirect = redirect
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// handleGlobalSync resolves GET /sync through the store's single-tenant
// redirect token.
func (s *Server) handleGlobalSync(w http.ResponseWriter, r *http.Request) {
	store := s.rt.Store()
	if token := store.RedirectToken(); token != "" {
		if m, ok := store.GetMatch(token); ok {
			s.handleSync(w, r, m, token)
			return
		}
	}
	s.rt.Counters().IncErr(stats.ErrUnknownMatch)
	respondReason(w, http.StatusNotFound, "match_broadcast sync not found and no valid token_redirect")
}

func writeBlob(w http.ResponseWriter, b broadcast.Blob) {
	w.Header().Set("Content-Type", "application/octet-stream")
	if b.Compressed {
		w.Header().Set("Content-Encoding", "gzip")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Data)
}

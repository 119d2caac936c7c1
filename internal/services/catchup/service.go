package catchupsvc

import (
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/rzbill/playcast/internal/broadcast"
	"github.com/rzbill/playcast/internal/runtime"
	logpkg "github.com/rzbill/playcast/pkg/log"
)

// Source 2 broadcasts speak protocol 5; assumed when the game server did not
// say otherwise.
const defaultProtocol = 5

var (
	// ErrNotStarted: slot 0 has no start payload. Permanent until a start
	// write arrives.
	ErrNotStarted = errors.New("broadcast has not started yet")
	// ErrNotReady: no sync-ready fragment satisfies the request. Expected,
	// frequent, resolved by retrying with backoff.
	ErrNotReady = errors.New("fragment not found, please check back soon")
	// ErrFieldNotFound: the record has no servable blob under that field (or
	// its delay gate is still closed).
	ErrFieldNotFound = errors.New("field not found")
	// ErrFragmentNotFound: the fragment index was never written.
	ErrFragmentNotFound = errors.New("fragment not found")
	// ErrStartExpired: the requested start index no longer matches the
	// signup fragment; the viewer must re-sync.
	ErrStartExpired = errors.New("invalid or expired start fragment, please re-sync")
)

// SyncResponse is the catch-up answer handed to a viewer.
type SyncResponse struct {
	Tick    int64 `json:"tick"`
	EndTick int64 `json:"endtick"`
	// MaxTick is the highest endtick seen across the whole match.
	MaxTick int64 `json:"maxtick"`
	// RTDelay is the age of the resolved fragment in seconds.
	RTDelay float64 `json:"rtdelay"`
	// RcvAge is seconds since the relay last received data for this match.
	RcvAge         float64 `json:"rcvage"`
	Fragment       int     `json:"fragment"`
	SignupFragment int     `json:"signup_fragment"`
	TPS            int64   `json:"tps"`
	KeyframeInt    int64   `json:"keyframe_interval"`
	Map            string  `json:"map"`
	Protocol       int64   `json:"protocol"`
	TokenRedirect  string  `json:"token_redirect,omitempty"`
}

// Service answers sync queries and serves fragment blobs from the store.
type Service struct {
	rt     *runtime.Runtime
	logger zerolog.Logger
}

// New returns a catchup Service using the runtime's logger.
func New(rt *runtime.Runtime) *Service {
	return &Service{rt: rt, logger: logpkg.Component(rt.Logger(), "catchup")}
}

// ResolveSync computes the fragment a viewer should resume from. requested
// is the viewer-supplied index, or -1 when absent (fresh join near the live
// edge).
func (s *Service) ResolveSync(m *broadcast.Match, requested int, now time.Time) (SyncResponse, error) {
	if m.State() != broadcast.StateStarted {
		return SyncResponse{}, ErrNotStarted
	}
	signup := m.SignupFragment()

	var (
		frag   *broadcast.Fragment
		chosen int
	)
	if requested < 0 {
		// land behind the bleeding edge so playback keeps a buffer and CDN
		// not-found caching of the true edge cannot starve a synced viewer
		chosen = m.Len() - s.rt.Config().LiveEdgeOffset
		if chosen < 0 {
			chosen = 0
		}
		if chosen < signup {
			return SyncResponse{}, ErrNotReady
		}
		if f, ok := m.Fragment(chosen); ok && f.SyncReady(now) {
			frag = f
		}
	} else {
		chosen = requested
		if chosen < signup {
			chosen = signup
		}
		for ; chosen < m.Len(); chosen++ {
			if f, ok := m.Fragment(chosen); ok && f.SyncReady(now) {
				frag = f
				break
			}
		}
	}
	if frag == nil {
		return SyncResponse{}, ErrNotReady
	}

	tick, _ := frag.Tick()
	endtick, _ := frag.EndTick()
	meta := m.Meta()
	if meta.Protocol == 0 {
		meta.Protocol = defaultProtocol
	}
	resp := SyncResponse{
		Tick:           tick,
		EndTick:        endtick,
		MaxTick:        m.MaxEndTick(),
		RTDelay:        now.Sub(frag.Received()).Seconds(),
		Fragment:       chosen,
		SignupFragment: signup,
		TPS:            meta.TPS,
		KeyframeInt:    meta.KeyframeInterval,
		Map:            meta.Map,
		Protocol:       meta.Protocol,
	}
	if last := m.LastReceived(); !last.IsZero() {
		resp.RcvAge = now.Sub(last).Seconds()
	}
	s.logger.Debug().Str("token", m.Token()).Int("fragment", chosen).Msg("sync resolved")
	return resp, nil
}

// ServeBlob returns the stored bytes for one field of a record. The CDN
// delay gate is re-checked here: existing data is refused until its delay
// has elapsed, and a record that failed the gate earlier becomes servable
// once the delay passes.
func (s *Service) ServeBlob(rec *broadcast.Fragment, field string, now time.Time) (broadcast.Blob, error) {
	if !rec.DelayElapsed(now) {
		s.logger.Debug().Str("field", field).Dur("delay", rec.CDNDelay()).
			Msg("refusing to serve field, cdn delay pending")
		return broadcast.Blob{}, ErrFieldNotFound
	}
	b, ok := rec.Blob(field)
	if !ok {
		// absent, or present as a scalar: scalars are not servable as blobs
		return broadcast.Blob{}, ErrFieldNotFound
	}
	return b, nil
}

// ServeStart serves the start payload. The requested fragment index must
// equal the current signup fragment; the data itself always comes from slot
// 0.
func (s *Service) ServeStart(m *broadcast.Match, fragment int, now time.Time) (broadcast.Blob, error) {
	slot0, ok := m.Fragment(0)
	if !ok || m.SignupFragment() != fragment {
		return broadcast.Blob{}, ErrStartExpired
	}
	return s.ServeBlob(slot0, broadcast.FieldStart, now)
}

// Describe returns the diagnostics mapping for a fragment: numeric fields
// as-is, blobs reduced to byte lengths.
func (s *Service) Describe(m *broadcast.Match, fragment int) (map[string]int64, error) {
	rec, ok := m.Fragment(fragment)
	if !ok {
		return nil, ErrFragmentNotFound
	}
	return rec.Describe(), nil
}

package ingestsvc

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/rzbill/playcast/internal/broadcast"
	"github.com/rzbill/playcast/internal/runtime"
	logpkg "github.com/rzbill/playcast/pkg/log"
)

// Status is the response category for a completed ingest write.
type Status int

const (
	// StatusStored: the write landed on a started match.
	StatusStored Status = iota
	// StatusNeedStart: the write was stored but the match has no start data
	// yet; the record is provisional and the origin should (re)send start.
	StatusNeedStart
)

// Service coordinates ingest writes into the fragment store.
type Service struct {
	rt     *runtime.Runtime
	logger zerolog.Logger

	// tasks tracks in-flight compress/finish pipelines so shutdown and tests
	// can wait for quiescence.
	tasks sync.WaitGroup
}

// New returns an ingest Service using the runtime's logger.
func New(rt *runtime.Runtime) *Service {
	return &Service{rt: rt, logger: logpkg.Component(rt.Logger(), "ingest")}
}

// Ingest stores one field write for the given match.
//
// The call buffers the request body, then hands compression and the
// readiness transition to an asynchronous task; the returned status is
// decided before the body is read, exactly as the transport needs it. A body
// read failure fails the whole operation: nothing past the attribute merge
// is applied and no readiness transition occurs.
func (s *Service) Ingest(ctx context.Context, m *broadcast.Match, fragment int, field string, attrs url.Values, body io.Reader, originDelay time.Duration) (Status, error) {
	status := StatusStored
	target := fragment
	if field == broadcast.FieldStart {
		prev, lowered := m.SetSignupFragment(fragment)
		if lowered {
			s.logger.Warn().Str("token", m.Token()).
				Int("fragment", fragment).Int("prev_signup", prev).
				Msg("unexpected new start fragment below current signup")
		}
		s.logger.Info().Str("token", m.Token()).Int("fragment", fragment).
			Str("tick", attrs.Get("tick")).Msg("start write")
		// start data always lives in slot 0
		target = 0
	} else if m.State() != broadcast.StateStarted {
		status = StatusNeedStart
		s.logger.Debug().Str("token", m.Token()).Int("fragment", fragment).
			Stringer("state", m.State()).Msg("need start data")
	}

	rec := m.GetOrCreateFragment(target)
	for name, vals := range attrs {
		if len(vals) > 0 {
			rec.SetAttr(name, vals[0])
		}
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return status, fmt.Errorf("read body for %s/%d/%s: %w", m.Token(), fragment, field, err)
	}
	if originDelay > 0 {
		// delay must match across all fields of the record, overwrite is ok
		rec.SetCDNDelay(originDelay)
	}

	s.tasks.Add(1)
	go s.finish(m.Token(), target, field, rec, raw)
	return status, nil
}

// finish compresses the buffered body, stores the blob, and marks the record
// received. Compression failure is non-fatal: raw bytes are stored instead
// and the readiness transition still fires.
func (s *Service) finish(token string, fragment int, field string, rec *broadcast.Fragment, raw []byte) {
	defer s.tasks.Done()
	gz, err := s.rt.Codec().Compress(raw)
	if err != nil {
		s.logger.Warn().Err(err).Str("token", token).Int("fragment", fragment).
			Str("field", field).Int("bytes", len(raw)).Msg("cannot gzip, storing raw")
		rec.SetBlob(field, broadcast.Blob{Data: raw})
	} else {
		rec.SetBlob(field, broadcast.Blob{Data: gz, RawLen: len(raw), Compressed: true})
		s.logger.Debug().Str("token", token).Int("fragment", fragment).
			Str("field", field).Int("bytes", len(raw)).Int("gz_bytes", len(gz)).
			Msg("stored field")
	}
	rec.MarkReceived(time.Now())
}

// Drain blocks until every in-flight ingest pipeline has completed. Used on
// shutdown and by tests that need a deterministic readiness point.
func (s *Service) Drain() { s.tasks.Wait() }

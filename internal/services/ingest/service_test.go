package ingestsvc

import (
	"bytes"
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/playcast/internal/broadcast"
	cfgpkg "github.com/rzbill/playcast/internal/config"
	"github.com/rzbill/playcast/internal/runtime"
	logpkg "github.com/rzbill/playcast/pkg/log"
)

func newTestService(t *testing.T) (*Service, *runtime.Runtime) {
	t.Helper()
	rt, err := runtime.Open(runtime.Options{Config: cfgpkg.Default(), Logger: logpkg.Nop()})
	if err != nil {
		t.Fatalf("runtime open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close() })
	return New(rt), rt
}

func postStart(t *testing.T, s *Service, m *broadcast.Match, signup int, attrs url.Values) {
	t.Helper()
	st, err := s.Ingest(context.Background(), m, signup, "start", attrs, strings.NewReader("startdata"), 0)
	if err != nil {
		t.Fatalf("start ingest: %v", err)
	}
	if st != StatusStored {
		t.Fatalf("start status: %v", st)
	}
	s.Drain()
}

func TestStartWriteTargetsSlotZero(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 5, url.Values{"tps": {"64"}})

	if got := m.SignupFragment(); got != 5 {
		t.Fatalf("signup=%d want 5", got)
	}
	slot0, ok := m.Fragment(0)
	if !ok {
		t.Fatalf("slot 0 missing")
	}
	if _, ok := slot0.Blob("start"); !ok {
		t.Fatalf("start blob missing from slot 0")
	}
	if _, ok := m.Fragment(5); ok {
		t.Fatalf("start data must not land at the signup index")
	}
	if m.State() != broadcast.StateStarted {
		t.Fatalf("state=%v", m.State())
	}
	if m.Meta().TPS != 64 {
		t.Fatalf("tps attr not merged: %+v", m.Meta())
	}
}

func TestIngestBeforeStartIsProvisional(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	st, err := s.Ingest(context.Background(), m, 3, "full", url.Values{"tick": {"100"}}, strings.NewReader("payload"), 0)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if st != StatusNeedStart {
		t.Fatalf("status=%v want need-start", st)
	}
	s.Drain()
	// data is stored anyway
	rec, ok := m.Fragment(3)
	if !ok {
		t.Fatalf("fragment 3 missing")
	}
	if _, ok := rec.Blob("full"); !ok {
		t.Fatalf("blob missing despite provisional status")
	}
}

func TestIngestAfterStartStored(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 0, nil)
	st, err := s.Ingest(context.Background(), m, 1, "delta", nil, strings.NewReader("d"), 0)
	if err != nil || st != StatusStored {
		t.Fatalf("status=%v err=%v", st, err)
	}
	s.Drain()
}

func TestRoundTripThroughCodec(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 0, nil)
	payload := bytes.Repeat([]byte("telemetry"), 512)
	if _, err := s.Ingest(context.Background(), m, 1, "full", nil, bytes.NewReader(payload), 0); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s.Drain()

	rec, _ := m.Fragment(1)
	b, ok := rec.Blob("full")
	if !ok || !b.Compressed || b.RawLen != len(payload) {
		t.Fatalf("blob: ok=%v compressed=%v rawlen=%d", ok, b.Compressed, b.RawLen)
	}
	got, err := rt.Codec().Decompress(b.Data)
	if err != nil || !bytes.Equal(got, payload) {
		t.Fatalf("round trip failed: err=%v, %d bytes", err, len(got))
	}
	if rec.Received().IsZero() {
		t.Fatalf("timestamp must be set after compression")
	}
}

func TestOriginDelaySetsCDNDelay(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 0, nil)
	if _, err := s.Ingest(context.Background(), m, 2, "delta", nil, strings.NewReader("d"), 5*time.Second); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s.Drain()
	rec, _ := m.Fragment(2)
	if got := rec.CDNDelay(); got != 5*time.Second {
		t.Fatalf("cdn delay=%v", got)
	}
	// a later write for the same record overwrites the delay
	if _, err := s.Ingest(context.Background(), m, 2, "full", nil, strings.NewReader("f"), 2*time.Second); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	s.Drain()
	if got := rec.CDNDelay(); got != 2*time.Second {
		t.Fatalf("cdn delay after overwrite=%v", got)
	}
}

func TestLoweredSignupAcceptedNotRejected(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 10, nil)
	postStart(t, s, m, 4, nil)
	if got := m.SignupFragment(); got != 4 {
		t.Fatalf("signup=%d want 4 (last writer wins)", got)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("simulated network failure") }

func TestBodyReadFailureFailsWholeWrite(t *testing.T) {
	s, rt := newTestService(t)
	m, _ := rt.Store().GetOrCreateMatch("m1")
	postStart(t, s, m, 0, nil)
	_, err := s.Ingest(context.Background(), m, 1, "full", nil, failingReader{}, 0)
	if err == nil {
		t.Fatalf("expected body read error")
	}
	s.Drain()
	rec, ok := m.Fragment(1)
	if !ok {
		t.Fatalf("fragment record is still created before the body read")
	}
	if _, ok := rec.Blob("full"); ok {
		t.Fatalf("no blob may be stored after a failed read")
	}
	if !rec.Received().IsZero() {
		t.Fatalf("no readiness transition after a failed read")
	}
}

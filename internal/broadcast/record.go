package broadcast

import (
	"strconv"
	"sync"
	"time"
)

// Well-known field names with protocol meaning.
const (
	FieldStart = "start"
	FieldFull  = "full"
	FieldDelta = "delta"
)

// Blob is a stored binary payload. Data holds the gzipped bytes when
// Compressed is set, otherwise the raw bytes as received (compression
// fallback path).
type Blob struct {
	Data       []byte
	RawLen     int
	Compressed bool
}

// Len reports the logical payload length: the original length when
// compression was applied, else the stored length.
func (b Blob) Len() int {
	if b.Compressed {
		return b.RawLen
	}
	return len(b.Data)
}

// Scalar is an arbitrary telemetry attribute attached to a fragment at write
// time. Integer-looking values are coerced to numbers at the boundary.
type Scalar struct {
	Num   int64
	Text  string
	IsNum bool
}

// ParseScalar applies the coercion rule: the value becomes numeric only when
// its base-10 integer parse round-trips to the original string exactly.
func ParseScalar(v string) Scalar {
	if n, err := strconv.ParseInt(v, 10, 64); err == nil && strconv.FormatInt(n, 10) == v {
		return Scalar{Num: n, IsNum: true}
	}
	return Scalar{Text: v}
}

// Fragment is the unit of stored state for one fragment slot of one match.
//
// Protocol fields (tick, endtick, receive timestamp, cdn delay, signup
// fragment) are typed; everything else lands in the open extras mapping.
// All accessors are safe for concurrent use.
type Fragment struct {
	mu sync.RWMutex

	tick       int64
	hasTick    bool
	endtick    int64
	hasEndtick bool

	// received is assigned exactly once per completed write, after the body
	// has been read and compressed. It is the readiness signal: readers treat
	// a fragment with a zero received time as not yet observable.
	received time.Time

	cdnDelay time.Duration

	// signup is only meaningful on slot 0.
	signup    int
	hasSignup bool

	blobs  map[string]Blob
	extras map[string]Scalar
}

func newFragment() *Fragment {
	return &Fragment{blobs: map[string]Blob{}, extras: map[string]Scalar{}}
}

// SetAttr merges one write-time attribute into the fragment, routing the
// distinguished names to their typed fields. The reserved timestamp name is
// dropped: the receive timestamp is assigned by the ingest pipeline only.
func (f *Fragment) SetAttr(name, value string) {
	s := ParseScalar(value)
	f.mu.Lock()
	defer f.mu.Unlock()
	switch name {
	case "tick":
		if s.IsNum {
			f.tick, f.hasTick = s.Num, true
			return
		}
	case "endtick":
		if s.IsNum {
			f.endtick, f.hasEndtick = s.Num, true
			return
		}
	case "cdndelay":
		if s.IsNum && s.Num > 0 {
			f.cdnDelay = time.Duration(s.Num) * time.Millisecond
			return
		}
	case "timestamp":
		return
	}
	f.extras[name] = s
}

// SetBlob stores a binary payload under field. Last writer wins.
func (f *Fragment) SetBlob(field string, b Blob) {
	f.mu.Lock()
	f.blobs[field] = b
	f.mu.Unlock()
}

// Blob returns the payload stored under field, if any.
func (f *Fragment) Blob(field string) (Blob, bool) {
	f.mu.RLock()
	b, ok := f.blobs[field]
	f.mu.RUnlock()
	return b, ok
}

// Scalar returns the extra attribute stored under name, if any.
func (f *Fragment) Scalar(name string) (Scalar, bool) {
	f.mu.RLock()
	s, ok := f.extras[name]
	f.mu.RUnlock()
	return s, ok
}

// SetCDNDelay overwrites the artificial distribution delay. Once set it is
// never cleared; a later write for the same record may replace it.
func (f *Fragment) SetCDNDelay(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	f.cdnDelay = d
	f.mu.Unlock()
}

// CDNDelay returns the configured artificial delay, zero when none.
func (f *Fragment) CDNDelay() time.Duration {
	f.mu.RLock()
	d := f.cdnDelay
	f.mu.RUnlock()
	return d
}

// MarkReceived records the completion of an ingest write. This is the single
// readiness transition; it fires even when compression fell back to raw
// bytes.
func (f *Fragment) MarkReceived(now time.Time) {
	f.mu.Lock()
	f.received = now
	f.mu.Unlock()
}

// Received returns the completion time of the last finished write, zero when
// no write has completed yet.
func (f *Fragment) Received() time.Time {
	f.mu.RLock()
	t := f.received
	f.mu.RUnlock()
	return t
}

// Tick returns the typed tick attribute.
func (f *Fragment) Tick() (int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.tick, f.hasTick
}

// EndTick returns the typed endtick attribute.
func (f *Fragment) EndTick() (int64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.endtick, f.hasEndtick
}

// DelayElapsed reports whether any configured CDN delay has passed relative
// to the receive timestamp. A delayed fragment without a timestamp is never
// servable.
func (f *Fragment) DelayElapsed(now time.Time) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.delayElapsedLocked(now)
}

func (f *Fragment) delayElapsedLocked(now time.Time) bool {
	if f.cdnDelay <= 0 {
		return true
	}
	if f.received.IsZero() {
		return false
	}
	return !now.Before(f.received.Add(f.cdnDelay))
}

// SyncReady reports whether the fragment may be handed to a catching-up
// client: full, delta, tick, endtick and the receive timestamp are all
// present and the delay gate has passed.
func (f *Fragment) SyncReady(now time.Time) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.blobs[FieldFull]; !ok {
		return false
	}
	if _, ok := f.blobs[FieldDelta]; !ok {
		return false
	}
	if !f.hasTick || !f.hasEndtick || f.received.IsZero() {
		return false
	}
	return f.delayElapsedLocked(now)
}

// Describe reduces the fragment to a diagnostics mapping: numeric fields pass
// through, blob fields are reduced to their payload byte length (plus a
// <field>_ungzlen entry when compression applied). Text attributes are
// omitted; blob content is never exposed here.
func (f *Fragment) Describe() map[string]int64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make(map[string]int64, len(f.blobs)*2+len(f.extras)+4)
	if f.hasTick {
		out["tick"] = f.tick
	}
	if f.hasEndtick {
		out["endtick"] = f.endtick
	}
	if !f.received.IsZero() {
		out["timestamp"] = f.received.UnixMilli()
	}
	if f.cdnDelay > 0 {
		out["cdndelay"] = f.cdnDelay.Milliseconds()
	}
	if f.hasSignup {
		out["signup_fragment"] = int64(f.signup)
	}
	for name, s := range f.extras {
		if s.IsNum {
			out[name] = s.Num
		}
	}
	for name, b := range f.blobs {
		out[name] = int64(b.Len())
		if b.Compressed {
			out[name+"_ungzlen"] = int64(b.RawLen)
		}
	}
	return out
}

// Package stats tracks the relay's process-lifetime request counters, the
// numbers an operator watches to tell a healthy relay from a flapping origin.
// They have no protocol meaning.
package stats

import (
	"sync/atomic"
	"time"
)

// Version identifies the counter layout for dashboards scraping snapshots.
const Version = 1

// Error classes counted per request-parse stage.
const (
	ErrUnknownMatch = iota
	ErrNoFragment
	ErrBadFragment
	ErrNoField
	ErrMissingRecord
	errClasses
)

// Counters is the shared counter set. All methods are safe for concurrent
// use; increments are best-effort and never block a request.
type Counters struct {
	started time.Time

	postField  atomic.Uint64
	getField   atomic.Uint64
	getStart   atomic.Uint64
	fragMeta   atomic.Uint64
	sync       atomic.Uint64
	notFound   atomic.Uint64
	newMatches atomic.Uint64
	requests   atomic.Uint64
	errs       [errClasses]atomic.Uint64
}

// New returns a counter set anchored at now.
func New() *Counters {
	return &Counters{started: time.Now()}
}

func (c *Counters) IncPostField() { c.postField.Add(1) }
func (c *Counters) IncGetField()  { c.getField.Add(1) }
func (c *Counters) IncGetStart()  { c.getStart.Add(1) }
func (c *Counters) IncFragMeta()  { c.fragMeta.Add(1) }
func (c *Counters) IncSync()      { c.sync.Add(1) }
func (c *Counters) IncNotFound()  { c.notFound.Add(1) }
func (c *Counters) IncNewMatch()  { c.newMatches.Add(1) }
func (c *Counters) IncRequest()   { c.requests.Add(1) }

// IncErr counts a parse/lookup failure for the given class.
func (c *Counters) IncErr(class int) {
	if class >= 0 && class < errClasses {
		c.errs[class].Add(1)
	}
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	PostField  uint64   `json:"post_field"`
	GetField   uint64   `json:"get_field"`
	GetStart   uint64   `json:"get_start"`
	FragMeta   uint64   `json:"get_frag_meta"`
	Sync       uint64   `json:"sync"`
	NotFound   uint64   `json:"not_found"`
	NewMatches uint64   `json:"new_match_broadcasts"`
	Requests   uint64   `json:"requests"`
	Errs       []uint64 `json:"err"`
	UptimeSec  int64    `json:"uptime_sec"`
	Version    int      `json:"version"`
}

// Snapshot copies the current counter values.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		PostField:  c.postField.Load(),
		GetField:   c.getField.Load(),
		GetStart:   c.getStart.Load(),
		FragMeta:   c.fragMeta.Load(),
		Sync:       c.sync.Load(),
		NotFound:   c.notFound.Load(),
		NewMatches: c.newMatches.Load(),
		Requests:   c.requests.Load(),
		Errs:       make([]uint64, errClasses),
		UptimeSec:  int64(time.Since(c.started).Seconds()),
		Version:    Version,
	}
	for i := range c.errs {
		s.Errs[i] = c.errs[i].Load()
	}
	return s
}

package broadcast

import (
	"sync"
	"time"
)

// State is the lifecycle of a match broadcast as seen by ingest and sync.
type State int

const (
	// StateUninitialized: the match exists but slot 0 has never been written.
	StateUninitialized State = iota
	// StateAwaitingStart: slot 0 exists but carries no start payload yet.
	StateAwaitingStart
	// StateStarted: slot 0 holds a start payload; the broadcast is live.
	StateStarted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateAwaitingStart:
		return "awaiting_start"
	case StateStarted:
		return "started"
	default:
		return "unknown"
	}
}

// StartMeta is the match-level metadata recorded on slot 0 by the start
// write. Zero values mean the game server never supplied the attribute.
type StartMeta struct {
	TPS              int64
	KeyframeInterval int64
	Map              string
	Protocol         int64
}

// Match is one live game's ordered fragment sequence, keyed by an opaque
// token. Fragments are held in a dense slice; indices written out of order
// leave nil holes that read as absent.
type Match struct {
	token string

	mu    sync.RWMutex
	frags []*Fragment
}

func newMatch(token string) *Match {
	return &Match{token: token}
}

// Token returns the opaque match token.
func (m *Match) Token() string { return m.token }

// Len returns the fragment sequence length (highest written index + 1).
func (m *Match) Len() int {
	m.mu.RLock()
	n := len(m.frags)
	m.mu.RUnlock()
	return n
}

// GetOrCreateFragment returns the fragment at index, allocating it (and
// growing the sequence) on first write. Lookup is O(1).
func (m *Match) GetOrCreateFragment(index int) *Fragment {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.frags) <= index {
		m.frags = append(m.frags, nil)
	}
	if m.frags[index] == nil {
		m.frags[index] = newFragment()
	}
	return m.frags[index]
}

// Fragment returns the fragment at index if it has been written.
func (m *Match) Fragment(index int) (*Fragment, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if index < 0 || index >= len(m.frags) || m.frags[index] == nil {
		return nil, false
	}
	return m.frags[index], true
}

// State derives the match lifecycle from slot 0.
func (m *Match) State() State {
	slot0, ok := m.Fragment(0)
	if !ok {
		return StateUninitialized
	}
	if _, ok := slot0.Blob(FieldStart); !ok {
		return StateAwaitingStart
	}
	return StateStarted
}

// SignupFragment returns the earliest fragment index a new viewer may start
// from, zero when no start write has recorded one.
func (m *Match) SignupFragment() int {
	slot0, ok := m.Fragment(0)
	if !ok {
		return 0
	}
	slot0.mu.RLock()
	defer slot0.mu.RUnlock()
	return slot0.signup
}

// SetSignupFragment records the signup index on slot 0, creating the slot if
// needed. It returns the previous value and whether the new index moved
// backwards; a lowered signup is accepted (last writer wins) but callers are
// expected to log it as unexpected.
func (m *Match) SetSignupFragment(index int) (prev int, lowered bool) {
	slot0 := m.GetOrCreateFragment(0)
	slot0.mu.Lock()
	defer slot0.mu.Unlock()
	prev = slot0.signup
	lowered = slot0.hasSignup && index < prev
	slot0.signup = index
	slot0.hasSignup = true
	return prev, lowered
}

// Meta reads the match-level start metadata from slot 0.
func (m *Match) Meta() StartMeta {
	var meta StartMeta
	slot0, ok := m.Fragment(0)
	if !ok {
		return meta
	}
	if s, ok := slot0.Scalar("tps"); ok && s.IsNum {
		meta.TPS = s.Num
	}
	if s, ok := slot0.Scalar("keyframe_interval"); ok && s.IsNum {
		meta.KeyframeInterval = s.Num
	}
	if s, ok := slot0.Scalar("map"); ok && !s.IsNum {
		meta.Map = s.Text
	}
	if s, ok := slot0.Scalar("protocol"); ok && s.IsNum {
		meta.Protocol = s.Num
	}
	return meta
}

// MaxEndTick scans from the end of the sequence for the first non-zero
// endtick, zero when none exists.
func (m *Match) MaxEndTick() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.frags) - 1; i >= 0; i-- {
		if m.frags[i] == nil {
			continue
		}
		if et, ok := m.frags[i].EndTick(); ok && et != 0 {
			return et
		}
	}
	return 0
}

// LastReceived returns the receive timestamp of the most recently stored
// fragment, zero when no fragment has completed a write yet.
func (m *Match) LastReceived() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := len(m.frags) - 1; i >= 0; i-- {
		if m.frags[i] == nil {
			continue
		}
		if t := m.frags[i].Received(); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

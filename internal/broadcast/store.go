package broadcast

import "sync"

// Store owns all match broadcasts for the process lifetime. Matches are
// created on first write and never evicted; retirement of finished matches
// is an operational concern outside the relay (typically a process restart).
type Store struct {
	mu      sync.RWMutex
	matches map[string]*Match

	// redirect is the token the global /sync endpoint resolves against.
	// Single-tenant demo convenience: it tracks the most recently created
	// match so one unified playcast URL serves the current event.
	redirect string
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{matches: map[string]*Match{}}
}

// GetOrCreateMatch returns the match for token, creating it on first use.
// The second result reports whether a new match was created.
func (s *Store) GetOrCreateMatch(token string) (*Match, bool) {
	s.mu.RLock()
	m, ok := s.matches[token]
	s.mu.RUnlock()
	if ok {
		return m, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.matches[token]; ok {
		return m, false
	}
	m = newMatch(token)
	s.matches[token] = m
	return m, true
}

// GetMatch returns the match for token if one exists. Reads never create.
func (s *Store) GetMatch(token string) (*Match, bool) {
	s.mu.RLock()
	m, ok := s.matches[token]
	s.mu.RUnlock()
	return m, ok
}

// Len returns the number of matches held.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.matches)
	s.mu.RUnlock()
	return n
}

// SetRedirectToken points the global /sync endpoint at token.
func (s *Store) SetRedirectToken(token string) {
	s.mu.Lock()
	s.redirect = token
	s.mu.Unlock()
}

// RedirectToken returns the current global sync target, empty when unset.
func (s *Store) RedirectToken() string {
	s.mu.RLock()
	t := s.redirect
	s.mu.RUnlock()
	return t
}

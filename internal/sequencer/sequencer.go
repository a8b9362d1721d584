// Package sequencer hands out per-resource request tokens so callers can
// discard responses that a newer request for the same resource has
// superseded.
package sequencer

import (
	"strings"
	"sync"
)

// Token identifies one request for a resource. Tokens for a key increase
// monotonically in issue order.
type Token uint64

// Sequencer maps resource keys ("feed:main", "follow:<user>") to the last
// issued token. The zero value is ready to use.
type Sequencer struct {
	mu   sync.Mutex
	last map[string]Token
}

// New returns an empty Sequencer.
func New() *Sequencer {
	return &Sequencer{last: make(map[string]Token)}
}

// Issue mints the next token for key and records it as current. It must be
// called when the request is issued, before the asynchronous call begins.
func (s *Sequencer) Issue(key string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		s.last = make(map[string]Token)
	}
	t := s.last[key] + 1
	s.last[key] = t
	return t
}

// IsCurrent reports whether t is the last token issued for key.
func (s *Sequencer) IsCurrent(key string, t Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t != 0 && s.last[key] == t
}

// Current returns the last token issued for key, or 0.
func (s *Sequencer) Current(key string) Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[key]
}

// Kind returns the resource kind of key, the part before the first colon.
// It is used as a low-cardinality metric label.
func Kind(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// Package session keeps short-lived conversation turns per user session.
// Nothing is persisted; a restart starts every session fresh.
package session

import (
	"sync"
	"time"

	"github.com/Rithvickkr/DOBBE-assignment/internal/observability/metrics"
)

// Speaker identifies who produced a turn's input.
type Speaker string

const (
	Human     Speaker = "human"
	Assistant Speaker = "assistant"
)

// Key identifies one conversation.
type Key struct {
	UserEmail string
	SessionID string
}

// Turn is one exchange: the speaker's input and the assistant's output.
type Turn struct {
	Speaker Speaker   `json:"speaker"`
	Input   string    `json:"input"`
	Output  string    `json:"output"`
	At      time.Time `json:"at"`
}

type entry struct {
	mu        sync.Mutex
	ring      ring
	lastTouch time.Time
	removed   bool
}

// ring holds the newest turns up to its limit. Once full, head is the oldest.
type ring struct {
	buf   []Turn
	head  int
	limit int
}

func (r *ring) push(t Turn) {
	if len(r.buf) < r.limit {
		r.buf = append(r.buf, t)
		return
	}
	r.buf[r.head] = t
	r.head = (r.head + 1) % r.limit
}

// last copies the newest n turns, oldest first.
func (r *ring) last(n int) []Turn {
	if n > len(r.buf) {
		n = len(r.buf)
	}
	out := make([]Turn, 0, n)
	for i := len(r.buf) - n; i < len(r.buf); i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

// Store maps keys to bounded turn buffers. Different keys never contend
// beyond a brief map lookup.
type Store struct {
	mu       sync.RWMutex
	sessions map[Key]*entry
	maxTurns int
	now      func() time.Time
	metrics  *metrics.EngineMetrics
}

// NewStore keeps at most maxTurns exchanges per session (50 when non-positive).
func NewStore(maxTurns int, m *metrics.EngineMetrics) *Store {
	if maxTurns <= 0 {
		maxTurns = 50
	}
	return &Store{
		sessions: make(map[Key]*entry),
		maxTurns: maxTurns,
		now:      time.Now,
		metrics:  m,
	}
}

// Append records turns under key, creating the session on first use.
func (s *Store) Append(key Key, turns ...Turn) {
	now := s.now()
	for {
		e := s.entry(key)
		e.mu.Lock()
		if e.removed {
			// Swept between lookup and lock; retry against a fresh entry.
			e.mu.Unlock()
			continue
		}
		for _, t := range turns {
			if t.At.IsZero() {
				t.At = now
			}
			if t.Speaker == "" {
				t.Speaker = Human
			}
			e.ring.push(t)
		}
		e.lastTouch = now
		e.mu.Unlock()
		return
	}
}

// RecentContext returns the last n exchanges, oldest first.
func (s *Store) RecentContext(key Key, n int) []Turn {
	s.mu.RLock()
	e, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok || n <= 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return nil
	}
	return e.ring.last(n)
}

// Sweep drops every session idle since before now-idle and returns how many went.
func (s *Store) Sweep(now time.Time, idle time.Duration) int {
	cutoff := now.Add(-idle)

	s.mu.Lock()
	evicted := 0
	for key, e := range s.sessions {
		// TryLock skips sessions mid-append; they are being touched anyway.
		if !e.mu.TryLock() {
			continue
		}
		if e.lastTouch.Before(cutoff) {
			e.removed = true
			delete(s.sessions, key)
			evicted++
		}
		e.mu.Unlock()
	}
	live := len(s.sessions)
	s.mu.Unlock()

	s.metrics.AddSessionsEvicted(evicted)
	s.metrics.SetSessionsLive(live)
	return evicted
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) entry(key Key) *entry {
	s.mu.RLock()
	e, ok := s.sessions[key]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.sessions[key]; ok {
		return e
	}
	e = &entry{ring: ring{limit: s.maxTurns}}
	s.sessions[key] = e
	s.metrics.SetSessionsLive(len(s.sessions))
	return e
}

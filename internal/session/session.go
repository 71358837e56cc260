// Package session owns the conversation currently on screen and the loader
// that replaces it.
package session

import (
	"slices"
	"sync"

	"smsview/internal/filter"
	"smsview/internal/models"
)

// Session holds the canonical message list. Only the most recently started
// load may replace it.
type Session struct {
	mu         sync.RWMutex
	messages   []models.Message
	generation uint64

	genMu     sync.Mutex
	latest    uint64
	abandoned map[uint64]bool
}

// View is a filtered read of the session.
type View struct {
	Generation uint64           `json:"generation"`
	Total      int              `json:"total"`
	Count      int              `json:"count"`
	Messages   []models.Message `json:"messages"`
}

func New() *Session {
	return &Session{
		messages:  []models.Message{},
		abandoned: make(map[uint64]bool),
	}
}

// Begin registers a new load and returns its generation token. Starting a
// load supersedes every load started before it.
func (s *Session) Begin() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.latest++
	return s.latest
}

// Abandon withdraws a token whose load never started, for example an upload
// request that carried no file. If no newer token is outstanding, the load
// it superseded becomes current again.
func (s *Session) Abandon(gen uint64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if gen == 0 || gen > s.latest {
		return
	}
	if s.abandoned == nil {
		s.abandoned = make(map[uint64]bool)
	}
	s.abandoned[gen] = true
	for s.latest > 0 && s.abandoned[s.latest] {
		delete(s.abandoned, s.latest)
		s.latest--
	}
}

func (s *Session) current() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.latest
}

// Commit replaces the message list if gen is still the newest load. It
// reports whether the list was replaced.
func (s *Session) Commit(gen uint64, msgs []models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.current() {
		return false
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	s.messages = msgs
	s.generation = gen
	return true
}

// IsCurrent reports whether gen is the newest started load.
func (s *Session) IsCurrent(gen uint64) bool {
	return gen == s.current()
}

// Generation returns the generation of the list currently held.
func (s *Session) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

// Messages returns a copy of the current list.
func (s *Session) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// Len returns the number of messages held.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// Filter returns the messages whose body contains term, ignoring case.
func (s *Session) Filter(term string) View {
	s.mu.RLock()
	msgs, gen := s.messages, s.generation
	s.mu.RUnlock()

	// msgs is never mutated in place, Commit swaps the whole slice
	matched := filter.Messages(msgs, term)
	if term == "" {
		matched = slices.Clone(matched)
	}
	return View{
		Generation: gen,
		Total:      len(msgs),
		Count:      len(matched),
		Messages:   matched,
	}
}

package memory

import (
	"sync"
	"time"

	"github.com/spigell/talent-agent/internal/directory"
)

// Context is what the assistant remembers about the last successful turn of a conversation.
type Context struct {
	LastAction  string                `json:"lastAction"`
	LastIntent  string                `json:"lastIntent"`
	LastPrompt  string                `json:"lastPrompt"`
	JobPosition string                `json:"jobPosition,omitempty"`
	Candidates  []directory.Candidate `json:"candidates"`
	// Unfiltered marks a plain directory listing, one with no position, name or id behind it.
	Unfiltered bool      `json:"unfiltered,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// IsZero reports whether nothing has been remembered yet.
func (c Context) IsZero() bool {
	return c.LastAction == "" && len(c.Candidates) == 0 && c.Timestamp.IsZero()
}

// Store keeps one Context per conversation id for the process lifetime.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Context
}

func NewStore() *Store {
	return &Store{entries: make(map[string]Context)}
}

func (s *Store) Get(conversationID string) (Context, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.entries[conversationID]
	return c, ok
}

func (s *Store) Save(conversationID string, c Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[conversationID] = c
}

func (s *Store) Delete(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, conversationID)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Locker hands out one mutex per conversation id so turns of the same conversation run one at a
// time while different conversations proceed in parallel.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*entry)}
}

// Lock blocks until the conversation is free and returns the function releasing it.
func (l *Locker) Lock(conversationID string) func() {
	l.mu.Lock()
	e, ok := l.locks[conversationID]
	if !ok {
		e = &entry{}
		l.locks[conversationID] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()

		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, conversationID)
		}
		l.mu.Unlock()
	}
}

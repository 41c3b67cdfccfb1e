// Package client is a Go client for the construction jobs API: an observable
// session store, a typed REST client and a realtime listener.
package client

import (
	"sync"

	"github.com/google/uuid"
	"github.com/saeed-rahimi/ss/models"
)

// Session is one logged-in user as seen by a client
type Session struct {
	ID    string
	Token string
	User  *models.User
}

// SessionStore holds the current session and notifies subscribers whenever
// it changes. A nil session means logged out.
type SessionStore struct {
	mu      sync.RWMutex
	current *Session
	subs    map[int]func(*Session)
	nextSub int
}

// NewSessionStore creates an empty, logged-out store
func NewSessionStore() *SessionStore {
	return &SessionStore{subs: make(map[int]func(*Session))}
}

// Current returns a copy of the active session, or nil
func (s *SessionStore) Current() *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Token is the bearer token of the active session, empty when logged out
func (s *SessionStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.Token
}

// Set starts a new session for user and returns it
func (s *SessionStore) Set(token string, user *models.User) *Session {
	session := &Session{ID: uuid.NewString(), Token: token, User: user}
	s.replace(session)
	cp := *session
	return &cp
}

// UpdateUser swaps the user of the active session, keeping its id and token
func (s *SessionStore) UpdateUser(user *models.User) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	next := *s.current
	next.User = user
	s.current = &next
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, &next)
}

// Clear logs out. Subscribers are only notified when a session was active.
func (s *SessionStore) Clear() {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	s.current = nil
	subs := s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, nil)
}

// ExternalChange reports that another holder of the same credentials now
// considers activeID the live session. Any other local session is cleared;
// an empty activeID means the user logged out elsewhere.
func (s *SessionStore) ExternalChange(activeID string) {
	s.mu.RLock()
	stale := s.current != nil && s.current.ID != activeID
	s.mu.RUnlock()

	if stale {
		s.Clear()
	}
}

// Subscribe registers fn for every change and returns a func that removes it.
// fn runs on the goroutine that made the change.
func (s *SessionStore) Subscribe(fn func(*Session)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *SessionStore) replace(session *Session) {
	s.mu.Lock()
	s.current = session
	subs := s.subscribersLocked()
	s.mu.Unlock()

	cp := *session
	notify(subs, &cp)
}

func (s *SessionStore) subscribersLocked() []func(*Session) {
	subs := make([]func(*Session), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	return subs
}

func notify(subs []func(*Session), session *Session) {
	for _, fn := range subs {
		if session == nil {
			fn(nil)
			continue
		}
		cp := *session
		fn(&cp)
	}
}

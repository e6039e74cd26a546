/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package ws

import (
	"sync"
	"time"

	"codebuddy.dev/codebuddy/internal/dispatcher"
)

// reconnectGrace is how long a disconnected session's state survives,
// reconnectable via {"method":"reconnect","params":{"sessionId":...}}.
// Past this window the session is gone; disconnected-session state is a
// soft-state convenience, not persisted storage, and nothing survives a
// process restart either.
const reconnectGrace = 5 * time.Minute

type sessionEntry struct {
	session    *dispatcher.Session
	expiresAt  time.Time // zero while the connection backing it is live
}

// sessionStore holds every live or recently-disconnected Session, keyed
// by Session.ID, so a dropped connection can reconnect within the grace
// period instead of losing its project binding.
type sessionStore struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

func newSessionStore() *sessionStore {
	return &sessionStore{entries: make(map[string]*sessionEntry)}
}

func (s *sessionStore) put(sess *dispatcher.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[sess.ID] = &sessionEntry{session: sess}
}

// markDisconnected starts the reconnect grace window for id.
func (s *sessionStore) markDisconnected(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		e.expiresAt = time.Now().Add(reconnectGrace)
	}
}

// reconnect returns id's Session if it is known and either still
// connected (expiresAt zero) or within its grace window, clearing the
// expiry so the session is "live" again.
func (s *sessionStore) reconnect(id string) (*dispatcher.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(s.entries, id)
		return nil, false
	}
	e.expiresAt = time.Time{}
	return e.session, true
}

// sweep drops every entry whose grace window has elapsed; called
// periodically, on the same cadence as the LSP manager's own cleanup
// sweep, rather than on every request.
func (s *sessionStore) sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, e := range s.entries {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

package transport

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionHeader carries the session ID on HTTP requests and responses
const SessionHeader = "X-Session-ID"

// SessionManager tracks HTTP client sessions and expires idle ones
type SessionManager struct {
	sessions      map[string]*Session
	mu            sync.RWMutex
	cleanupTicker *time.Ticker
	timeout       time.Duration
	done          chan struct{}
	stopOnce      sync.Once
}

// NewSessionManager creates a session manager that expires sessions idle
// for longer than timeout
func NewSessionManager(timeout time.Duration) *SessionManager {
	interval := 5 * time.Minute
	if timeout > 0 && timeout < interval {
		interval = timeout
	}
	sm := &SessionManager{
		sessions:      make(map[string]*Session),
		timeout:       timeout,
		cleanupTicker: time.NewTicker(interval),
		done:          make(chan struct{}),
	}

	go sm.cleanupLoop()

	return sm
}

// CreateSession creates a new session
func (sm *SessionManager) CreateSession(transport string) *Session {
	now := time.Now().Unix()
	session := &Session{
		ID:           uuid.NewString(),
		Transport:    transport,
		CreatedAt:    now,
		LastActivity: now,
	}

	sm.mu.Lock()
	sm.sessions[session.ID] = session
	sm.mu.Unlock()

	return session
}

// GetSession retrieves a session by ID and marks it active
func (sm *SessionManager) GetSession(sessionID string) (*Session, bool) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if exists {
		session.LastActivity = time.Now().Unix()
	}

	return session, exists
}

// Resolve returns the named session, or a fresh one when the ID is empty
// or unknown. created reports whether a new session was made.
func (sm *SessionManager) Resolve(sessionID, transport string) (session *Session, created bool) {
	if sessionID != "" {
		if session, ok := sm.GetSession(sessionID); ok {
			return session, false
		}
	}
	return sm.CreateSession(transport), true
}

// RemoveSession removes a session
func (sm *SessionManager) RemoveSession(sessionID string) {
	sm.mu.Lock()
	delete(sm.sessions, sessionID)
	sm.mu.Unlock()
}

// Count returns the number of live sessions
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

func (sm *SessionManager) cleanupLoop() {
	for {
		select {
		case <-sm.done:
			return
		case <-sm.cleanupTicker.C:
			sm.expire(time.Now())
		}
	}
}

// expire drops sessions idle since before now minus the timeout
func (sm *SessionManager) expire(now time.Time) int {
	cutoff := now.Add(-sm.timeout).Unix()

	sm.mu.Lock()
	defer sm.mu.Unlock()

	removed := 0
	for id, session := range sm.sessions {
		if session.LastActivity < cutoff {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (sm *SessionManager) Stop() {
	sm.stopOnce.Do(func() {
		sm.cleanupTicker.Stop()
		close(sm.done)
	})
}

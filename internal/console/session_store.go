package console

import (
	"context"
	"errors"
	"sync"
	"time"

	"damage-inspector/internal/upload"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session is one browser tab's upload page
type Session struct {
	ID           string
	Client       *upload.UploadClient
	View         *PageView
	CreatedAt    time.Time
	LastAccessed time.Time
}

// SessionFactory builds the client and view for a new session id
type SessionFactory func(id string) *Session

// SessionStore keeps sessions in memory and forgets them after ttl without access
type SessionStore struct {
	sessions map[string]*Session
	ttl      time.Duration
	factory  SessionFactory
	now      func() time.Time

	mutex sync.Mutex
}

func NewSessionStore(ttl time.Duration, factory SessionFactory) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

func (m *SessionStore) Create() *Session {
	id := uuid.NewString()
	session := m.factory(id)
	session.ID = id

	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	session.CreatedAt = now
	session.LastAccessed = now
	m.sessions[id] = session
	return session
}

func (m *SessionStore) Get(sessionID string) (*Session, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	session, exists := m.sessions[sessionID]
	if !exists {
		return nil, ErrSessionNotFound
	}

	if m.expired(session) {
		delete(m.sessions, sessionID)
		return nil, ErrSessionExpired
	}

	session.LastAccessed = m.now()
	return session, nil
}

func (m *SessionStore) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.sessions)
}

// StartCleanup sweeps expired sessions every interval until ctx is done
func (m *SessionStore) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := m.cleanupExpiredSessions(); removed > 0 {
					log.WithField("removed", removed).Debug("[Sessions] expired sessions swept")
				}
			}
		}
	}()
}

func (m *SessionStore) cleanupExpiredSessions() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	removed := 0
	for sessionID, session := range m.sessions {
		if m.expired(session) {
			delete(m.sessions, sessionID)
			removed++
		}
	}
	return removed
}

func (m *SessionStore) expired(session *Session) bool {
	return m.ttl > 0 && m.now().Sub(session.LastAccessed) > m.ttl
}

package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/labelpadega/backend/internal/domain"
	"github.com/labelpadega/backend/internal/metrics"
)

// MemoryStore keeps chat sessions in process memory.
// Callers only ever see clones; mutation goes through Update.
type MemoryStore struct {
	sessions map[string]*domain.ChatSession
	mutex    sync.RWMutex
	now      func() time.Time
	idleTTL  time.Duration
	stop     chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore creates a session store. Sessions idle longer than idleTTL are
// dropped every cleanupInterval; a zero idleTTL keeps sessions forever.
func NewMemoryStore(idleTTL, cleanupInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*domain.ChatSession),
		now:      time.Now,
		idleTTL:  idleTTL,
		stop:     make(chan struct{}),
	}
	if idleTTL > 0 && cleanupInterval > 0 {
		go s.cleanupIdle(cleanupInterval)
	}
	return s
}

// WithClock replaces the clock used for timestamps and idle checks
func (s *MemoryStore) WithClock(now func() time.Time) *MemoryStore {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.now = now
	return s
}

// Create starts a session with the default profile
func (s *MemoryStore) Create(ctx context.Context) (*domain.ChatSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess := domain.NewChatSession(uuid.NewString(), s.now().UTC())
	s.sessions[sess.ID] = sess
	metrics.Sessions.Set(float64(len(s.sessions)))
	return sess.Clone(), nil
}

// Get returns a copy of the session
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.ChatSession, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	sess, ok := s.sessions[id]
	if !ok || s.idle(sess) {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Update applies fn to a working copy and commits it only when fn succeeds
func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*domain.ChatSession) error) (*domain.ChatSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.idle(sess) {
		return nil, domain.ErrSessionNotFound
	}

	working := sess.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = s.now().UTC()
	s.sessions[id] = working
	return working.Clone(), nil
}

// Delete removes a session; unknown ids are not an error
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.sessions, id)
	metrics.Sessions.Set(float64(len(s.sessions)))
	return nil
}

// Len returns the number of stored sessions
func (s *MemoryStore) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}

func (s *MemoryStore) idle(sess *domain.ChatSession) bool {
	return s.idleTTL > 0 && s.now().Sub(sess.UpdatedAt) > s.idleTTL
}

func (s *MemoryStore) cleanupIdle(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *MemoryStore) purge() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if s.idle(sess) {
			delete(s.sessions, id)
			removed++
		}
	}
	metrics.Sessions.Set(float64(len(s.sessions)))
	return removed
}

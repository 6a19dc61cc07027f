package auth

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	session   Session
	expiresAt time.Time
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

// NewMemorySessionStore creates an empty store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]memoryEntry),
		now:      time.Now,
	}
}

// Save stores a copy of s; ttl 0 means no expiry
func (m *MemorySessionStore) Save(ctx context.Context, s *Session, ttl time.Duration) error {
	entry := memoryEntry{session: *s}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.sessions[s.Token] = entry
	m.mu.Unlock()
	return nil
}

// Get returns the session for token
func (m *MemorySessionStore) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	entry, ok := m.sessions[token]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		_ = m.Delete(ctx, token)
		return nil, ErrSessionNotFound
	}
	sess := entry.session
	return &sess, nil
}

// Delete removes the session for token
func (m *MemorySessionStore) Delete(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[token]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, token)
	return nil
}

package store

import (
	"context"
	"sync"
	"time"

	"github.com/clipforge/clipforge/pkg/assistant"
)

// MemoryStore is an in-memory implementation of Store.
// Thread-safe for concurrent access; each session carries its own lock
// so edits to one session serialize without blocking others.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	jobs     map[string]*ExportJob
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*sessionEntry),
		jobs:     make(map[string]*ExportJob),
	}
}

// CreateSession registers a new session
func (m *MemoryStore) CreateSession(ctx context.Context, session *Session) error {
	if session == nil || session.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	session.Created = now
	session.Updated = now
	m.sessions[session.ID] = &sessionEntry{session: copySession(session)}

	return nil
}

// GetSession returns a deep copy of the session
func (m *MemoryStore) GetSession(ctx context.Context, id string) (*Session, error) {
	entry, err := m.sessionEntry(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return copySession(entry.session), nil
}

// UpdateSession runs mutate on a working copy under the session lock
// and commits it only when mutate succeeds.
func (m *MemoryStore) UpdateSession(ctx context.Context, id string, mutate func(*Session) error) error {
	entry, err := m.sessionEntry(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := copySession(entry.session)
	if err := mutate(working); err != nil {
		return err
	}

	working.Updated = time.Now()
	entry.session = working
	return nil
}

// DeleteSession removes a session
func (m *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[id]; !exists {
		return ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) sessionEntry(id string) (*sessionEntry, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return entry, nil
}

// CreateJob registers an export job
func (m *MemoryStore) CreateJob(ctx context.Context, job *ExportJob) error {
	if job == nil || job.ID == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return ErrJobExists
	}

	now := time.Now()
	stored := *job
	stored.Created = now
	stored.Updated = now
	if stored.Status == "" {
		stored.Status = JobPending
	}
	m.jobs[job.ID] = &stored

	return nil
}

// GetJob returns a copy of the job
func (m *MemoryStore) GetJob(ctx context.Context, id string) (*ExportJob, error) {
	if id == "" {
		return nil, ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	job, exists := m.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}

	out := *job
	return &out, nil
}

// UpdateJob applies mutate atomically
func (m *MemoryStore) UpdateJob(ctx context.Context, id string, mutate func(*ExportJob)) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, exists := m.jobs[id]
	if !exists {
		return ErrJobNotFound
	}

	mutate(job)
	job.Updated = time.Now()
	return nil
}

// DeleteJob removes a job
func (m *MemoryStore) DeleteJob(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[id]; !exists {
		return ErrJobNotFound
	}
	delete(m.jobs, id)
	return nil
}

// PurgeExpired removes terminal jobs last touched before the cutoff
func (m *MemoryStore) PurgeExpired(ctx context.Context, cutoff time.Time) ([]*ExportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged []*ExportJob
	for id, job := range m.jobs {
		if !job.Status.Terminal() || !job.Updated.Before(cutoff) {
			continue
		}
		out := *job
		purged = append(purged, &out)
		delete(m.jobs, id)
	}
	return purged, nil
}

// Close closes the store (no-op for the memory store)
func (m *MemoryStore) Close() error {
	return nil
}

// copySession deep-copies a session so callers never alias stored state
func copySession(s *Session) *Session {
	if s == nil {
		return nil
	}

	out := &Session{
		ID:      s.ID,
		Created: s.Created,
		Updated: s.Updated,
	}
	if s.Project != nil {
		out.Project = s.Project.Clone()
	}
	if len(s.History) > 0 {
		out.History = make([]assistant.Exchange, len(s.History))
		copy(out.History, s.History)
	}
	return out
}

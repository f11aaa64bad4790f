package capture

import (
	"sync"

	"github.com/google/uuid"
)

// Handle is a process-local, revocable reference to a finished artifact.
// It stays valid until the caller releases it or the process exits.
type Handle struct {
	ID   string
	URL  string
	MIME string
	Size int
}

type artifact struct {
	data []byte
	mime string
}

// Store keeps finished artifacts in memory, keyed by opaque IDs.
type Store struct {
	mu    sync.RWMutex
	blobs map[string]artifact
}

// NewStore creates an empty artifact store.
func NewStore() *Store {
	return &Store{blobs: make(map[string]artifact)}
}

// Put registers an artifact and returns its handle.
func (s *Store) Put(data []byte, mime string) Handle {
	id := uuid.NewString()
	s.mu.Lock()
	s.blobs[id] = artifact{data: data, mime: mime}
	s.mu.Unlock()
	return Handle{
		ID:   id,
		URL:  "/artifacts/" + id,
		MIME: mime,
		Size: len(data),
	}
}

// Get returns the artifact bytes and MIME type for an ID.
func (s *Store) Get(id string) ([]byte, string, bool) {
	s.mu.RLock()
	a, ok := s.blobs[id]
	s.mu.RUnlock()
	return a.data, a.mime, ok
}

// Release revokes a handle and frees its bytes. Reports whether the ID was
// present.
func (s *Store) Release(id string) bool {
	s.mu.Lock()
	_, ok := s.blobs[id]
	delete(s.blobs, id)
	s.mu.Unlock()
	return ok
}

// Len returns the number of live artifacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}

// Package memory provides an in-memory blob store for tests and development.
package memory

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Store implements blob.Store using in-memory storage.
// Data is lost on restart.
type Store struct {
	mu sync.RWMutex

	objects map[string][]byte // key -> body
	baseURL string

	// FailPuts makes every Put return an error. Used by tests to exercise
	// store-failure paths.
	FailPuts bool
}

// NewStore creates a new in-memory blob store. Public URLs are issued under
// baseURL.
func NewStore(baseURL string) *Store {
	return &Store{
		objects: make(map[string][]byte),
		baseURL: baseURL,
	}
}

// Put stores the object and returns its public URL.
func (s *Store) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read object body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailPuts {
		return "", fmt.Errorf("put %s: store unavailable", key)
	}

	s.objects[key] = data

	return s.baseURL + "/" + key, nil
}

// Delete removes the object stored under key.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)

	return nil
}

// Has reports whether an object exists under key. Test helper.
func (s *Store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.objects[key]
	return exists
}

// Len returns the number of stored objects. Test helper.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

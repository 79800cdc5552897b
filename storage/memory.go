package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryObject is a stored object as kept by MemoryStore.
type MemoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryStore is an in-process ObjectStore for development without object storage, and for tests.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]MemoryObject
	baseURL string

	// FailPut, when set, is returned by every Put.
	FailPut error
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string]MemoryObject), baseURL: baseURL}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if s.FailPut != nil {
		return s.FailPut
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = MemoryObject{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[key]; !ok {
		return ErrNotFound
	}
	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return joinURL(s.baseURL, key)
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) (MemoryObject, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	return obj, ok
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

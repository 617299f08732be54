package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memoryObject{}}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("MemoryStore.Put: %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryObject{data: data, contentType: contentTypeOrDefault(contentType)}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		Body:        io.NopCloser(bytes.NewReader(item.data)),
		ContentType: item.contentType,
		Size:        int64(len(item.data)),
	}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Len reports the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

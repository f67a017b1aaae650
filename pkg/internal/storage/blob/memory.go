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

// MemoryStore 进程内 Store，开发和测试使用.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	if size >= 0 {
		r = io.LimitReader(r, size)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("put %s: %w", path, err)
	}

	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put %s: short body, got %d of %d bytes", path, len(data), size)
	}

	if contentType == "" {
		contentType = DefaultContentType
	}

	s.mu.Lock()
	s.objects[path] = memoryObject{data: data, contentType: contentType}
	s.mu.Unlock()

	return nil
}

func (s *MemoryStore) Open(ctx context.Context, path string) (io.ReadCloser, Meta, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()

	if !ok {
		return nil, Meta{}, fmt.Errorf("open %s: %w", path, ErrNotFound)
	}

	return io.NopCloser(bytes.NewReader(obj.data)), Meta{ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (s *MemoryStore) Stat(ctx context.Context, path string) (Meta, error) {
	s.mu.RLock()
	obj, ok := s.objects[path]
	s.mu.RUnlock()

	if !ok {
		return Meta{}, fmt.Errorf("stat %s: %w", path, ErrNotFound)
	}

	return Meta{ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	delete(s.objects, path)
	s.mu.Unlock()

	return nil
}

// Len 返回当前对象数量.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.objects)
}

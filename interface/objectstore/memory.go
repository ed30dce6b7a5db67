package objectstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store in memory
type MemoryStore struct {
	scheme  string
	mu      sync.Mutex
	buckets map[string]map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore whose urls use the given scheme
func NewMemoryStore(scheme string) *MemoryStore {
	return &MemoryStore{scheme: scheme, buckets: map[string]map[string][]byte{}}
}

// Scheme implements Lister
func (s *MemoryStore) Scheme() string {
	return s.scheme
}

// Put adds an object to the store
func (s *MemoryStore) Put(bucket, key string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buckets[bucket] == nil {
		s.buckets[bucket] = map[string][]byte{}
	}
	s.buckets[bucket][key] = data
}

// Get returns the content of an object
func (s *MemoryStore) Get(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.buckets[bucket][key]
	return data, ok
}

// ListObjects implements Lister
func (s *MemoryStore) ListObjects(ctx context.Context, in ListInput, fn func(Object) bool) error {
	s.mu.Lock()
	var objects []Object
	for key, data := range s.buckets[in.Bucket] {
		if strings.HasPrefix(key, in.Prefix) && key > in.StartAfter {
			objects = append(objects, Object{Key: key, Size: int64(len(data)), LastModified: time.Time{}})
		}
	}
	s.mu.Unlock()

	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	for _, o := range objects {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(o) {
			return nil
		}
	}
	return nil
}

// Write implements Writer
func (s *MemoryStore) Write(ctx context.Context, url string, data []byte) error {
	bucket, key, err := splitURL(s.scheme, url)
	if err != nil {
		return fmt.Errorf("MemoryStore.Write: %w", err)
	}
	s.Put(bucket, key, data)
	return nil
}

package memory

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/iota-uz/sentencing-etl/pkg/blob"
)

type object struct {
	data        []byte
	contentType string
}

// Store keeps objects in process memory.
type Store struct {
	mu      sync.RWMutex
	objects map[string]object
}

func New() *Store {
	return &Store{objects: make(map[string]object)}
}

func (s *Store) Driver() blob.Driver { return blob.DriverMemory }

func (s *Store) Put(ctx context.Context, bucket, name string, r io.Reader, contentType string) error {
	if err := blob.CheckKey(bucket, name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[bucket+"/"+name] = object{data: data, contentType: contentType}
	return nil
}

func (s *Store) Get(ctx context.Context, bucket, name string) (io.ReadCloser, error) {
	if err := blob.CheckKey(bucket, name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[bucket+"/"+name]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

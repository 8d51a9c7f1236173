package state

import (
	"context"
	"fmt"
	"io/fs"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store intended for tests and examples. It
// round-trips documents through the INI codec so callers observe the same
// text normalisation as with FileStore.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	data []byte
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (Document, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Document{}, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return Document{}, Meta{}, false, nil
	}
	doc, err := Decode(record.data)
	if err != nil {
		return Document{}, Meta{}, false, err
	}
	return doc, record.meta, true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, doc Document, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	data, err := Marshal(doc)
	if err != nil {
		return Meta{}, err
	}
	saved := stampMeta(meta, data, s.now())

	s.mu.Lock()
	s.records[key] = memoryRecord{data: data, meta: saved}
	s.mu.Unlock()
	return saved, nil
}

func (s *MemoryStore) Remove(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[key]; !ok {
		return fmt.Errorf("state: remove %s: %w", key, fs.ErrNotExist)
	}
	delete(s.records, key)
	return nil
}

// Put stores raw file content for ref, as if edited by hand.
func (s *MemoryStore) Put(ref Ref, content string) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	data := []byte(content)

	s.mu.Lock()
	s.records[key] = memoryRecord{data: data, meta: Meta{ETag: ETag(data), UpdatedAt: s.now()}}
	s.mu.Unlock()
	return nil
}

// Raw returns the stored file content for ref.
func (s *MemoryStore) Raw(ref Ref) (string, bool) {
	key, err := ref.Identifier()
	if err != nil {
		return "", false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[key]
	if !ok {
		return "", false
	}
	return string(record.data), true
}

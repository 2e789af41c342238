package session

import (
	"context"
	"maps"
	"sync"
)

type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, sessionID, key string) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.data[sessionID+"\x00"+key]), nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID, key, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := sessionID + "\x00" + key
	if s.data[k] == nil {
		s.data[k] = map[string][]byte{}
	}
	s.data[k][field] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, sessionID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID+"\x00"+key)
	return nil
}

package submission

import (
	"encoding/json"
	"sync"
)

// CandidateDiscInfoKey is where the assessment flow looks up the candidate.
const CandidateDiscInfoKey = "candidate_disc_info"

// SessionStore is storage scoped to one candidate session. Values are kept
// as JSON so readers decode into their own types.
type SessionStore interface {
	Set(key string, v interface{}) error
	Get(key string, v interface{}) (bool, error)
}

type MemorySession struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemorySession() *MemorySession {
	return &MemorySession{values: make(map[string][]byte)}
}

func (s *MemorySession) Set(key string, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = b
	return nil
}

func (s *MemorySession) Get(key string, v interface{}) (bool, error) {
	s.mu.RLock()
	b, ok := s.values[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, v)
}

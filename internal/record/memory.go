package record

import (
	"context"
	"sync"

	"github.com/ppiankov/sentcheck/internal/model"
)

// MemoryStore keeps records for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	queries []model.QueryRecord
	tokens  []model.TokenRecord
	seen    map[queryKey]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{seen: make(map[queryKey]struct{})}
}

func (s *MemoryStore) Append(_ context.Context, q model.QueryRecord, tokens []model.TokenRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := keyOf(q)
	if _, ok := s.seen[key]; ok {
		return false, nil
	}
	s.seen[key] = struct{}{}

	s.queries = append(s.queries, q)
	s.tokens = append(s.tokens, tokens...)
	return true, nil
}

func (s *MemoryStore) Queries(_ context.Context) ([]model.QueryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.QueryRecord, len(s.queries))
	copy(out, s.queries)
	return out, nil
}

func (s *MemoryStore) Tokens(_ context.Context) ([]model.TokenRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.TokenRecord, len(s.tokens))
	copy(out, s.tokens)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

package memory

import (
	"context"
	"sync"

	"telegram-channel-relay/internal/domain"
	"telegram-channel-relay/internal/domain/model"
	"telegram-channel-relay/internal/domain/ports/repository"
)

var _ repository.Store = (*Store)(nil)

// Store keeps bindings and cursors in process memory. State is lost on restart.
type Store struct {
	mu       sync.RWMutex
	bindings map[int64]model.ChannelBinding
	cursors  map[string]int64
}

func NewStore() *Store {
	return &Store{
		bindings: make(map[int64]model.ChannelBinding),
		cursors:  make(map[string]int64),
	}
}

func (s *Store) Save(ctx context.Context, b *model.ChannelBinding) error {
	if b == nil {
		return domain.ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[b.GroupID] = *b
	return nil
}

func (s *Store) Delete(ctx context.Context, groupID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.bindings[groupID]
	delete(s.bindings, groupID)
	return ok, nil
}

func (s *Store) FindByGroup(ctx context.Context, groupID int64) (*model.ChannelBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[groupID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &b, nil
}

func (s *Store) ListAll(ctx context.Context) ([]model.ChannelBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ChannelBinding, 0, len(s.bindings))
	for _, b := range s.bindings {
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) Get(ctx context.Context, channel string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursors[channel], nil
}

func (s *Store) Init(ctx context.Context, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cursors[channel]; !ok {
		s.cursors[channel] = 0
	}
	return nil
}

func (s *Store) Advance(ctx context.Context, channel string, seq int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.cursors[channel] {
		return false, nil
	}
	s.cursors[channel] = seq
	return true, nil
}

func (s *Store) Close() error { return nil }

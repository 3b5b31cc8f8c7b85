package store

import (
	"context"
	"sync"

	"taptrail/internal/auth/models"
	"taptrail/pkg/platform/sentinel"
)

// InMemory keeps accounts in a map guarded by an RWMutex.
type InMemory struct {
	mu      sync.RWMutex
	byEmail map[string]*models.User
}

// NewInMemory constructs an empty account store.
func NewInMemory() *InMemory {
	return &InMemory{byEmail: make(map[string]*models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[user.Email]; taken {
		return sentinel.ErrConflict
	}
	cp := *user
	s.byEmail[cp.Email] = &cp
	return nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *user
	return &cp, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail), nil
}

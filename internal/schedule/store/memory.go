package store

import (
	"context"
	"sync"
	"time"

	"taptrail/internal/schedule/models"
)

// InMemory keeps the snapshot behind an RWMutex.
type InMemory struct {
	mu      sync.RWMutex
	current models.Schedule
	now     func() time.Time
}

// NewInMemory seeds the default snapshot.
func NewInMemory() *InMemory {
	return &InMemory{current: models.Default(), now: func() time.Time { return time.Now().UTC() }}
}

func (s *InMemory) Get(_ context.Context) (models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, nil
}

func (s *InMemory) Replace(_ context.Context, next models.Schedule) (models.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next.Version = s.current.Version + 1
	next.UpdatedAt = s.now()
	s.current = next
	return next, nil
}

package store

import (
	"context"
	"sort"
	"sync"

	"taptrail/internal/override/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

type overrideKey struct {
	subject id.SubjectID
	day     string
}

// InMemory keeps overrides in a map guarded by an RWMutex.
type InMemory struct {
	mu    sync.RWMutex
	byKey map[overrideKey]*models.Override
}

// NewInMemory constructs an empty override store.
func NewInMemory() *InMemory {
	return &InMemory{byKey: make(map[overrideKey]*models.Override)}
}

func (s *InMemory) Set(_ context.Context, override *models.Override) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *override
	s.byKey[overrideKey{override.SubjectID, override.Day}] = &cp
	return nil
}

func (s *InMemory) Remove(_ context.Context, subjectID id.SubjectID, day string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := overrideKey{subjectID, day}
	if _, ok := s.byKey[key]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byKey, key)
	return nil
}

func (s *InMemory) Get(_ context.Context, subjectID id.SubjectID, day string) (*models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	override, ok := s.byKey[overrideKey{subjectID, day}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *override
	return &cp, nil
}

func (s *InMemory) ListSubjectRange(_ context.Context, subjectID id.SubjectID, fromDay, toDay string) ([]models.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Override
	for key, override := range s.byKey {
		if key.subject != subjectID {
			continue
		}
		if key.day < fromDay || key.day >= toDay {
			continue
		}
		out = append(out, *override)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

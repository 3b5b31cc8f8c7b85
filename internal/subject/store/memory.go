package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"taptrail/internal/subject/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

// InMemory keeps subjects in maps guarded by a single RWMutex. It favors
// clarity over performance; directories are small.
type InMemory struct {
	mu    sync.RWMutex
	byID  map[id.SubjectID]*models.Subject
	byUID map[string]id.SubjectID
}

// NewInMemory constructs an empty in-memory directory.
func NewInMemory() *InMemory {
	return &InMemory{
		byID:  make(map[id.SubjectID]*models.Subject),
		byUID: make(map[string]id.SubjectID),
	}
}

func (s *InMemory) Create(_ context.Context, subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byUID[subject.ExternalUID]; taken {
		return sentinel.ErrConflict
	}
	cp := *subject
	s.byID[cp.ID] = &cp
	s.byUID[cp.ExternalUID] = cp.ID
	return nil
}

func (s *InMemory) FindByUID(_ context.Context, uid string) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subjectID, ok := s.byUID[uid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *s.byID[subjectID]
	return &cp, nil
}

func (s *InMemory) FindByID(_ context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subject, ok := s.byID[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *subject
	return &cp, nil
}

func (s *InMemory) List(_ context.Context, filter ListFilter) ([]*models.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Subject
	needle := strings.ToLower(filter.Search)
	for _, subject := range s.byID {
		if !subject.Active {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(subject.DisplayName), needle) {
			continue
		}
		cp := *subject
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })

	if filter.Offset > len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemory) Update(_ context.Context, subject *models.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.byID[subject.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	existing.DisplayName = subject.DisplayName
	existing.Department = subject.Department
	return nil
}

func (s *InMemory) Deactivate(_ context.Context, subjectID id.SubjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byID[subjectID]
	if !ok {
		return sentinel.ErrNotFound
	}
	subject.Active = false
	return nil
}

func (s *InMemory) ReassignUID(_ context.Context, subjectID id.SubjectID, newUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subject, ok := s.byID[subjectID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if holder, taken := s.byUID[newUID]; taken && holder != subjectID {
		return sentinel.ErrConflict
	}
	delete(s.byUID, subject.ExternalUID)
	subject.ExternalUID = newUID
	s.byUID[newUID] = subjectID
	return nil
}

func (s *InMemory) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, subject := range s.byID {
		if subject.Active {
			count++
		}
	}
	return count, nil
}

package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"taptrail/internal/ledger/models"
	id "taptrail/pkg/domain"
	"taptrail/pkg/platform/sentinel"
)

// InMemory keeps the ledger in per-subject slices ordered by append. It backs
// unit tests and single-process deployments.
type InMemory struct {
	mu        sync.RWMutex
	seq       int64
	bySubject map[id.SubjectID][]models.Event
}

// NewInMemory constructs an empty in-memory ledger.
func NewInMemory() *InMemory {
	return &InMemory{bySubject: make(map[id.SubjectID][]models.Event)}
}

func (s *InMemory) Append(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	event.ID = id.EventID(s.seq)
	s.bySubject[event.SubjectID] = append(s.bySubject[event.SubjectID], *event)
	return nil
}

func (s *InMemory) LastByKinds(_ context.Context, subjectID id.SubjectID, kinds []models.Kind) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.bySubject[subjectID]
	for i := len(events) - 1; i >= 0; i-- {
		for _, k := range kinds {
			if events[i].Kind == k {
				ev := events[i]
				return &ev, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) LastByKindsBefore(_ context.Context, subjectID id.SubjectID, kinds []models.Kind, before id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.bySubject[subjectID]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].ID >= before {
			continue
		}
		for _, k := range kinds {
			if events[i].Kind == k {
				ev := events[i]
				return &ev, nil
			}
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) ListSubjectRange(_ context.Context, subjectID id.SubjectID, from, to time.Time) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, ev := range s.bySubject[subjectID] {
		if inRange(ev.Timestamp, from, to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *InMemory) ListRange(_ context.Context, from, to time.Time) ([]models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Event
	for _, events := range s.bySubject {
		for _, ev := range events {
			if inRange(ev.Timestamp, from, to) {
				out = append(out, ev)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubjectID != out[j].SubjectID {
			return out[i].SubjectID.String() < out[j].SubjectID.String()
		}
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out, nil
}

func (s *InMemory) CountRange(_ context.Context, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, events := range s.bySubject {
		for _, ev := range events {
			if inRange(ev.Timestamp, from, to) {
				count++
			}
		}
	}
	return count, nil
}

func inRange(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}

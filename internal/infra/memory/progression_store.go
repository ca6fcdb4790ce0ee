package memory

import (
	"context"
	"sync"

	"gamification-engine/internal/domain"
)

// ProgressionStore is an in-memory implementation of app.ProgressionRepository.
type ProgressionStore struct {
	mu           sync.RWMutex
	progressions map[string]domain.StudentProgression
}

func NewProgressionStore() *ProgressionStore {
	return &ProgressionStore{progressions: make(map[string]domain.StudentProgression)}
}

func (s *ProgressionStore) GetProgression(_ context.Context, studentID string) (domain.StudentProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.progressions[studentID]
	if !ok {
		return domain.StudentProgression{}, domain.ErrProgressionNotFound
	}
	return p, nil
}

func (s *ProgressionStore) SaveProgression(_ context.Context, p domain.StudentProgression) error {
	if p.Experience < 0 {
		return domain.ErrNegativeExperience
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progressions[p.StudentID] = p
	return nil
}

func (s *ProgressionStore) ListProgressions(_ context.Context, studentIDs []string) ([]domain.StudentProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if studentIDs == nil {
		out := make([]domain.StudentProgression, 0, len(s.progressions))
		for _, p := range s.progressions {
			out = append(out, p)
		}
		return out, nil
	}
	out := make([]domain.StudentProgression, 0, len(studentIDs))
	for _, id := range studentIDs {
		if p, ok := s.progressions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

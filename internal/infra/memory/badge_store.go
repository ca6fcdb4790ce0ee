package memory

import (
	"context"
	"sync"

	"gamification-engine/internal/domain"
)

// BadgeStore keeps the last derived badge progress per student.
type BadgeStore struct {
	mu       sync.RWMutex
	progress map[string][]domain.BadgeProgress
}

func NewBadgeStore() *BadgeStore {
	return &BadgeStore{progress: make(map[string][]domain.BadgeProgress)}
}

func (s *BadgeStore) GetBadgeProgress(_ context.Context, studentID string) ([]domain.BadgeProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProgress(s.progress[studentID]), nil
}

func (s *BadgeStore) SaveBadgeProgress(_ context.Context, studentID string, progress []domain.BadgeProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress[studentID] = cloneProgress(progress)
	return nil
}

func cloneProgress(in []domain.BadgeProgress) []domain.BadgeProgress {
	if in == nil {
		return nil
	}
	out := make([]domain.BadgeProgress, len(in))
	for i, p := range in {
		p.UnlockedTierIDs = append([]string{}, p.UnlockedTierIDs...)
		if p.TierCounts != nil {
			counts := make(map[string]int, len(p.TierCounts))
			for k, v := range p.TierCounts {
				counts[k] = v
			}
			p.TierCounts = counts
		}
		out[i] = p
	}
	return out
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gamification-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// BadgeStore keeps the last derived badge progress per student as one JSON document.
type BadgeStore struct {
	client *redis.Client
}

func NewBadgeStore(client *redis.Client) *BadgeStore {
	return &BadgeStore{client: client}
}

func (s *BadgeStore) GetBadgeProgress(ctx context.Context, studentID string) ([]domain.BadgeProgress, error) {
	raw, err := s.client.Get(ctx, s.key(studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var progress []domain.BadgeProgress
	if err := json.Unmarshal(raw, &progress); err != nil {
		return nil, fmt.Errorf("decode badges %s: %w", studentID, err)
	}
	return progress, nil
}

func (s *BadgeStore) SaveBadgeProgress(ctx context.Context, studentID string, progress []domain.BadgeProgress) error {
	raw, err := json.Marshal(progress)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(studentID), raw, 0).Err()
}

func (s *BadgeStore) key(studentID string) string {
	return "badges:" + studentID
}

package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gamification-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

const experienceIndexKey = "progression:xp"

// ProgressionStore keeps each StudentProgression as JSON and mirrors experience
// into a sorted set so platform-wide listings need no key scan.
type ProgressionStore struct {
	client *redis.Client
}

func NewProgressionStore(client *redis.Client) *ProgressionStore {
	return &ProgressionStore{client: client}
}

func (s *ProgressionStore) GetProgression(ctx context.Context, studentID string) (domain.StudentProgression, error) {
	raw, err := s.client.Get(ctx, s.key(studentID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.StudentProgression{}, domain.ErrProgressionNotFound
	}
	if err != nil {
		return domain.StudentProgression{}, err
	}
	var p domain.StudentProgression
	if err := json.Unmarshal(raw, &p); err != nil {
		return domain.StudentProgression{}, fmt.Errorf("decode progression %s: %w", studentID, err)
	}
	return p, nil
}

func (s *ProgressionStore) SaveProgression(ctx context.Context, p domain.StudentProgression) error {
	if p.Experience < 0 {
		return domain.ErrNegativeExperience
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(p.StudentID), raw, 0)
		pipe.ZAdd(ctx, experienceIndexKey, redis.Z{Score: float64(p.Experience), Member: p.StudentID})
		return nil
	})
	return err
}

func (s *ProgressionStore) ListProgressions(ctx context.Context, studentIDs []string) ([]domain.StudentProgression, error) {
	if studentIDs == nil {
		all, err := s.client.ZRevRange(ctx, experienceIndexKey, 0, -1).Result()
		if err != nil {
			return nil, err
		}
		studentIDs = all
	}
	out := make([]domain.StudentProgression, 0, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}

	keys := make([]string, len(studentIDs))
	for i, id := range studentIDs {
		keys[i] = s.key(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var p domain.StudentProgression
		if err := json.Unmarshal([]byte(str), &p); err != nil {
			return nil, fmt.Errorf("decode progression %s: %w", studentIDs[i], err)
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *ProgressionStore) key(studentID string) string {
	return "progression:" + studentID
}

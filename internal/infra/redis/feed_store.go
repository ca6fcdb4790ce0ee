package redis

import (
	"context"
	"sync"
	"time"

	"gamification-engine/internal/app"
	"github.com/redis/go-redis/v9"
)

// FeedStore is a Redis-aware implementation of app.FeedRepository.
// Feeds live in process so the in-memory fan-out is reused; Redis only marks
// which classes currently have listeners on some instance.
type FeedStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	feeds  map[string]*app.Feed
}

func NewFeedStore(client *redis.Client, ttl time.Duration) *FeedStore {
	return &FeedStore{
		client: client,
		ttl:    ttl,
		feeds:  make(map[string]*app.Feed),
	}
}

func (s *FeedStore) GetOrCreate(classID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[classID]; ok {
		return feed
	}
	feed := app.NewFeed(classID)
	s.feeds[classID] = feed
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(classID), "1", s.ttl).Err()
	return feed
}

// Get returns the feed of classID while someone listens to it and pushes the
// liveness marker forward, so a class stays marked as long as it sees activity.
func (s *FeedStore) Get(classID string) (*app.Feed, bool) {
	s.mu.RLock()
	feed, ok := s.feeds[classID]
	s.mu.RUnlock()
	if !ok || feed.IsEmpty() {
		return nil, false
	}
	_ = s.client.Expire(context.Background(), s.key(classID), s.ttl).Err()
	return feed, true
}

func (s *FeedStore) DeleteIfEmpty(classID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[classID]
	if !ok || !feed.IsEmpty() {
		return false
	}
	delete(s.feeds, classID)
	_ = s.client.Del(context.Background(), s.key(classID)).Err()
	return true
}

func (s *FeedStore) key(classID string) string {
	return "class:feed:" + classID
}

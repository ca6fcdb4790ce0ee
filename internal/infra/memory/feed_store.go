package memory

import (
	"sync"

	"gamification-engine/internal/app"
)

// FeedStore is an in-memory implementation of app.FeedRepository.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{
		feeds: make(map[string]*app.Feed),
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
	return feed
}

// Get returns the feed of classID only while someone listens to it, so
// completions in classes nobody watches skip the fan-out.
func (s *FeedStore) Get(classID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[classID]
	if !ok || feed.IsEmpty() {
		return nil, false
	}
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
	return true
}


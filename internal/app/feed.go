package app

import (
	"sync"

	"gamification-engine/internal/domain"
)

// FeedRepository abstracts where class feeds live (in-memory, Redis-marked, etc).
type FeedRepository interface {
	GetOrCreate(classID string) *Feed
	Get(classID string) (*Feed, bool)
	// DeleteIfEmpty drops the class feed once nobody listens and reports whether it did.
	DeleteIfEmpty(classID string) bool
}

// Feed fans class updates out to subscribers.
type Feed struct {
	classID     string
	mu          sync.RWMutex
	subscribers map[chan domain.ClassUpdate]struct{}
}

// NewFeed is exported for infrastructure layers that keep feeds.
func NewFeed(classID string) *Feed {
	return &Feed{
		classID:     classID,
		subscribers: make(map[chan domain.ClassUpdate]struct{}),
	}
}

// ClassID returns the class the feed belongs to.
func (f *Feed) ClassID() string {
	return f.classID
}

// IsEmpty reports whether the feed has no subscribers.
func (f *Feed) IsEmpty() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subscribers) == 0
}

// Publish delivers update to every subscriber without blocking. A subscriber
// that has not drained its previous update gets the newer one instead.
func (f *Feed) Publish(update domain.ClassUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- update:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

func (f *Feed) subscribe() (<-chan domain.ClassUpdate, func()) {
	ch := make(chan domain.ClassUpdate, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

package memory

import (
	"context"
	"sync"

	"gamification-engine/internal/domain"
)

// EventLog is an in-memory, per-student append-only event history.
type EventLog struct {
	mu     sync.RWMutex
	events map[string][]domain.Event
	keys   map[string]map[string]struct{}
}

func NewEventLog() *EventLog {
	return &EventLog{
		events: make(map[string][]domain.Event),
		keys:   make(map[string]map[string]struct{}),
	}
}

func (l *EventLog) AppendEvents(_ context.Context, studentID string, events ...domain.Event) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := l.keys[studentID]
	if keys == nil {
		keys = make(map[string]struct{})
		l.keys[studentID] = keys
	}
	added := 0
	for _, ev := range events {
		if _, dup := keys[ev.Key]; dup {
			continue
		}
		keys[ev.Key] = struct{}{}
		l.events[studentID] = append(l.events[studentID], ev)
		added++
	}
	return added, nil
}

func (l *EventLog) Events(_ context.Context, studentID string) ([]domain.Event, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]domain.Event(nil), l.events[studentID]...), nil
}

func (l *EventLog) ResetEvents(_ context.Context, studentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.events, studentID)
	delete(l.keys, studentID)
	return nil
}

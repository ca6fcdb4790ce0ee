package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gamification-engine/internal/domain"
	"gamification-engine/internal/infra/memory"
)

func TestQuizCatalogCachesInRedis(t *testing.T) {
	mr, client := newTestClient(t)
	due := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": {ID: "quiz-1", Title: "Fractions", Mode: domain.ModeSolo, ClassIDs: []string{"C1", "C2"}, BaseXP: 250, DueAt: &due},
		}),
	}
	catalog := NewQuizCatalog(client, loader, time.Minute)

	first, err := catalog.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("quiz:quiz-1:meta") {
		t.Fatalf("expected metadata hash to be written")
	}

	// Second call should hit cache, loader not incremented.
	second, err := catalog.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get cached quiz: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if second.BaseXP != first.BaseXP || second.Title != "Fractions" || len(second.ClassIDs) != 2 || second.DueAt == nil || !second.DueAt.Equal(due) {
		t.Fatalf("cached quiz differs: %+v", second)
	}
}

func TestQuizCatalogUnknownQuiz(t *testing.T) {
	_, client := newTestClient(t)
	catalog := NewQuizCatalog(client, memory.NewStaticQuizLoader(nil), time.Minute)
	if _, err := catalog.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

package redis

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"gamification-engine/internal/domain"
)

func TestProgressionStoreRoundTripAndIndex(t *testing.T) {
	ctx := context.Background()
	mr, client := newTestClient(t)
	store := NewProgressionStore(client)

	if _, err := store.GetProgression(ctx, "A"); !errors.Is(err, domain.ErrProgressionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for id, xp := range map[string]int{"A": 300, "B": 900} {
		if err := store.SaveProgression(ctx, domain.StudentProgression{StudentID: id, Experience: xp, Level: xp/500 + 1}); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}
	if score, _ := mr.ZScore(experienceIndexKey, "B"); score != 900 {
		t.Fatalf("expected B indexed at 900, got %v", score)
	}

	got, err := store.GetProgression(ctx, "B")
	if err != nil || got.Experience != 900 || got.Level != 2 {
		t.Fatalf("unexpected progression %+v (%v)", got, err)
	}

	all, err := store.ListProgressions(ctx, nil)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].StudentID != "B" {
		t.Fatalf("expected both progressions, highest first, got %+v", all)
	}

	some, err := store.ListProgressions(ctx, []string{"A", "ghost"})
	if err != nil {
		t.Fatalf("list subset: %v", err)
	}
	if len(some) != 1 || some[0].StudentID != "A" {
		t.Fatalf("expected only A, got %+v", some)
	}

	if err := store.SaveProgression(ctx, domain.StudentProgression{StudentID: "A", Experience: -1}); !errors.Is(err, domain.ErrNegativeExperience) {
		t.Fatalf("expected negative experience rejected, got %v", err)
	}
}

func TestEventLogAppendsOnceInOrder(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	log := NewEventLog(client)

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := domain.ScoreRecord{StudentID: "u1", QuizID: "q1", ClassID: "C1", Mode: domain.ModeSolo, ScoreRaw: 5, ScoreTotal: 5, CompletedAt: at}
	completed := domain.QuizCompletedEvent(rec)
	perfect := domain.PerfectScoreEvent(rec)

	added, err := log.AppendEvents(ctx, "u1", completed, perfect)
	if err != nil || added != 2 {
		t.Fatalf("expected 2 appended, got %d (%v)", added, err)
	}
	added, err = log.AppendEvents(ctx, "u1", perfect)
	if err != nil || added != 0 {
		t.Fatalf("expected duplicate ignored, got %d (%v)", added, err)
	}

	history, err := log.Events(ctx, "u1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(history) != 2 || history[0].Key != completed.Key || history[1].Key != perfect.Key {
		t.Fatalf("unexpected history %+v", history)
	}
	if !history[0].OccurredAt.Equal(at) || history[0].ID != completed.ID {
		t.Fatalf("event did not survive encoding: %+v", history[0])
	}

	if err := log.ResetEvents(ctx, "u1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	history, _ = log.Events(ctx, "u1")
	if len(history) != 0 {
		t.Fatalf("expected empty history after reset, got %d", len(history))
	}
	if added, _ := log.AppendEvents(ctx, "u1", completed); added != 1 {
		t.Fatalf("expected re-append after reset, got %d", added)
	}
}

func TestBadgeStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, client := newTestClient(t)
	store := NewBadgeStore(client)

	empty, err := store.GetBadgeProgress(ctx, "u1")
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected nothing stored, got %+v (%v)", empty, err)
	}

	progress := []domain.BadgeProgress{
		{StudentID: "u1", CategoryID: domain.CategoryQuizMilestone, CurrentCount: 1, UnlockedTierIDs: []string{"first-flight"}},
		{StudentID: "u1", CategoryID: domain.CategorySpeedResponder, CurrentCount: 2, TierCounts: map[string]int{"lightning": 2}, UnlockedTierIDs: []string{}},
	}
	if err := store.SaveBadgeProgress(ctx, "u1", progress); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.GetBadgeProgress(ctx, "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(got, progress) {
		t.Fatalf("expected %+v, got %+v", progress, got)
	}
}

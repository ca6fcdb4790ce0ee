package app_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"gamification-engine/internal/app"
	"gamification-engine/internal/domain"
	"gamification-engine/internal/infra/memory"
)

func answers(seconds ...float64) []domain.AnswerTiming {
	out := make([]domain.AnswerTiming, 0, len(seconds))
	for i, s := range seconds {
		out = append(out, domain.AnswerTiming{QuestionID: string(rune('a' + i)), Correct: true, ResponseSeconds: s})
	}
	return out
}

func TestFirstQuizUnlocksFirstFlightOnly(t *testing.T) {
	f := newFixture(t)
	rec := solo("u1", "q1", 6, 10)
	rec.Answers = answers(40)

	result := f.submit(t, rec)
	want := []domain.TierRef{{CategoryID: domain.CategoryQuizMilestone, TierID: "first-flight", Name: "First Flight"}}
	if !reflect.DeepEqual(result.Badges.NewlyUnlocked, want) {
		t.Fatalf("expected only First Flight, got %+v", result.Badges.NewlyUnlocked)
	}
	if len(result.Badges.Progress) != 8 {
		t.Fatalf("expected progress for 8 categories, got %d", len(result.Badges.Progress))
	}
}

func TestSpeedBandsAreDisjoint(t *testing.T) {
	history := []domain.Event{}
	rec := solo("u1", "q1", 3, 3)
	for _, a := range answers(4, 7, 29, 30) {
		history = append(history, domain.FastCorrectAnswerEvent(rec, a))
	}
	progress := app.Derive(app.DefaultBadgeCatalog(), "u1", history)
	speed := progressFor(t, progress, domain.CategorySpeedResponder)

	want := map[string]int{"lightning": 1, "quick-thinker": 1, "steady-pace": 1}
	if !reflect.DeepEqual(speed.TierCounts, want) {
		t.Fatalf("expected one answer per band, got %v", speed.TierCounts)
	}
	if speed.CurrentCount != 3 {
		t.Fatalf("expected 3 counted answers, got %d", speed.CurrentCount)
	}
}

func TestFourSecondAnswerCountsForFiveSecondTierOnly(t *testing.T) {
	rec := solo("u1", "q1", 1, 1)
	history := []domain.Event{domain.FastCorrectAnswerEvent(rec, domain.AnswerTiming{QuestionID: "x", Correct: true, ResponseSeconds: 4})}
	speed := progressFor(t, app.Derive(app.DefaultBadgeCatalog(), "u1", history), domain.CategorySpeedResponder)
	if speed.TierCounts["lightning"] != 1 || speed.TierCounts["quick-thinker"] != 0 || speed.TierCounts["steady-pace"] != 0 {
		t.Fatalf("expected 4s to count for the 5s tier only, got %v", speed.TierCounts)
	}
}

func TestSpeedTierNeedsItsOwnBandCount(t *testing.T) {
	rec := solo("u1", "q1", 1, 1)
	var history []domain.Event
	// Five answers under 5s unlock Lightning but do not feed the 10s tier.
	for _, a := range answers(1, 2, 3, 4, 4.5, 6, 7, 8, 9, 9.5) {
		history = append(history, domain.FastCorrectAnswerEvent(rec, a))
	}
	speed := progressFor(t, app.Derive(app.DefaultBadgeCatalog(), "u1", history), domain.CategorySpeedResponder)
	if !reflect.DeepEqual(speed.UnlockedTierIDs, []string{"lightning"}) {
		t.Fatalf("expected only lightning, got %v", speed.UnlockedTierIDs)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := solo("u1", "q1", 10, 10)
	history := []domain.Event{
		domain.QuizCompletedEvent(rec),
		domain.PerfectScoreEvent(rec),
		domain.QuizCompletedEvent(rec), // replayed duplicate
	}

	first, err := f.tracker.Recompute(ctx, "u1", history)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second, err := f.tracker.Recompute(ctx, "u1", history)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	if !reflect.DeepEqual(first.Progress, second.Progress) {
		t.Fatalf("progress changed on replay:\n%+v\n%+v", first.Progress, second.Progress)
	}
	if len(first.NewlyUnlocked) != 2 || len(second.NewlyUnlocked) != 0 {
		t.Fatalf("expected 2 unlocks then none, got %d and %d", len(first.NewlyUnlocked), len(second.NewlyUnlocked))
	}
	if milestone := progressFor(t, second.Progress, domain.CategoryQuizMilestone); milestone.CurrentCount != 1 {
		t.Fatalf("expected duplicate completion counted once, got %d", milestone.CurrentCount)
	}
}

func TestRecomputeEmptyHistoryResets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := solo("u1", "q1", 10, 10)
	_, _ = f.tracker.Recompute(ctx, "u1", []domain.Event{domain.QuizCompletedEvent(rec)})

	result, err := f.tracker.Recompute(ctx, "u1", nil)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	for _, p := range result.Progress {
		if p.CurrentCount != 0 || len(p.UnlockedTierIDs) != 0 {
			t.Fatalf("expected cleared progress, got %+v", p)
		}
	}
}

func TestPlacementCategories(t *testing.T) {
	team := domain.Scope{Mode: domain.ModeTeam, Aggregation: domain.AggregationAllQuizzes, ClassID: "C1", Basis: domain.BasisPercentage}
	classroom := domain.Scope{Mode: domain.ModeClassroom, Aggregation: domain.AggregationAllQuizzes, ClassID: "C1", Basis: domain.BasisPercentage}
	history := []domain.Event{
		domain.PlacementEvent("u1", domain.EventLeaderboardTop3, domain.SoloQuizScope("C1", "q1"), fixedTime),
		domain.PlacementEvent("u1", domain.EventLeaderboardTop1, domain.SoloQuizScope("C1", "q1"), fixedTime),
		domain.PlacementEvent("u1", domain.EventLeaderboardTop3, team, fixedTime),
		domain.PlacementEvent("u1", domain.EventLeaderboardTop1, team, fixedTime),
		domain.PlacementEvent("u1", domain.EventLeaderboardTop3, classroom, fixedTime),
	}
	progress := app.Derive(app.DefaultBadgeCatalog(), "u1", history)

	cases := map[domain.CategoryID]int{
		domain.CategoryConsistentPerformer: 3,
		domain.CategoryApexAchiever:        2,
		domain.CategoryTeamPerformer:       1,
		domain.CategoryTeamApex:            1,
		domain.CategoryClassroomStar:       1,
	}
	for id, want := range cases {
		if got := progressFor(t, progress, id).CurrentCount; got != want {
			t.Fatalf("%s: expected %d, got %d", id, want, got)
		}
	}
}

func TestRecomputeRejectsForeignEvents(t *testing.T) {
	f := newFixture(t)
	_, err := f.tracker.Recompute(context.Background(), "u1", []domain.Event{domain.QuizCompletedEvent(solo("u2", "q1", 1, 2))})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestTrackerRejectsBadCatalog(t *testing.T) {
	cases := [][]domain.BadgeCategory{
		{{ID: domain.CategoryQuizMilestone, Tiers: []domain.BadgeTier{{ID: "a", Threshold: 5}, {ID: "b", Threshold: 5}}}},
		{{ID: domain.CategorySpeedResponder, Tiers: []domain.BadgeTier{{ID: "a", Threshold: 1, WindowSeconds: 10}, {ID: "b", Threshold: 2, WindowSeconds: 5}}}},
		{{ID: "mystery", Tiers: []domain.BadgeTier{{ID: "a", Threshold: 1}}}},
		{
			{ID: domain.CategoryQuizMilestone, Tiers: []domain.BadgeTier{{ID: "a", Threshold: 1}}},
			{ID: domain.CategoryQuizMilestone, Tiers: []domain.BadgeTier{{ID: "b", Threshold: 1}}},
		},
	}
	for i, catalog := range cases {
		if _, err := app.NewBadgeProgressTracker(catalog, memory.NewBadgeStore()); !errors.Is(err, domain.ErrInvalidBadgeCatalog) {
			t.Fatalf("case %d: expected invalid catalog, got %v", i, err)
		}
	}
}

func TestGetProgressZeroFilled(t *testing.T) {
	f := newFixture(t)
	progress, err := f.tracker.GetProgress(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if len(progress) != 8 {
		t.Fatalf("expected 8 categories, got %d", len(progress))
	}
	for _, p := range progress {
		if p.StudentID != "nobody" || p.CurrentCount != 0 {
			t.Fatalf("unexpected progress %+v", p)
		}
	}
}

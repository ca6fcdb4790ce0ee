package app_test

import (
	"context"
	"errors"
	"testing"

	"gamification-engine/internal/domain"
)

func TestApplyCompletionLevelsUp(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_ = f.progressions.SaveProgression(ctx, domain.StudentProgression{StudentID: "u1", Experience: 450, Level: 1})

	result, err := f.ledger.ApplyCompletion(ctx, "u1", solo("u1", "q1", 75, 100))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.ExpGain != 75 || result.OldExp != 450 || result.NewExp != 525 {
		t.Fatalf("unexpected experience %+v", result)
	}
	if result.OldLevel != 1 || result.NewLevel != 2 || !result.LeveledUp {
		t.Fatalf("expected level-up 1 -> 2, got %+v", result)
	}

	stored, _ := f.progressions.GetProgression(ctx, "u1")
	if stored.Experience != 525 || stored.Level != 2 || stored.QuizzesCompleted != 1 {
		t.Fatalf("unexpected stored progression %+v", stored)
	}
}

func TestApplyCompletionBootstrapsUnknownStudent(t *testing.T) {
	f := newFixture(t)
	result, err := f.ledger.ApplyCompletion(context.Background(), "new", solo("new", "q1", 40, 50))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.OldExp != 0 || result.NewExp != 80 || result.OldLevel != 1 || result.LeveledUp {
		t.Fatalf("unexpected first completion %+v", result)
	}
}

func TestApplyCompletionZeroScoreEarnsNothing(t *testing.T) {
	f := newFixture(t)
	result, err := f.ledger.ApplyCompletion(context.Background(), "u1", solo("u1", "q1", 0, 20))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.ExpGain != 0 || result.NewExp != 0 {
		t.Fatalf("expected no experience for a zero score, got %+v", result)
	}
	p, _ := f.progressions.GetProgression(context.Background(), "u1")
	if p.QuizzesCompleted != 1 || p.Accuracy != 0 {
		t.Fatalf("expected attempt to be counted, got %+v", p)
	}
}

func TestApplyCompletionUsesQuizBudget(t *testing.T) {
	f := newFixture(t)
	f.quizzes["q-big"] = domain.Quiz{ID: "q-big", Mode: domain.ModeSolo, BaseXP: 300}

	result, err := f.ledger.ApplyCompletion(context.Background(), "u1", solo("u1", "q-big", 1, 3))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if result.ExpGain != 100 {
		t.Fatalf("expected 100 xp from a 300 budget at 1/3, got %d", result.ExpGain)
	}
}

// The ledger does not deduplicate; at-most-once submission is the caller's job.
func TestApplyCompletionTwiceDoublesGain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rec := solo("u1", "q1", 60, 100)

	first, _ := f.ledger.ApplyCompletion(ctx, "u1", rec)
	second, err := f.ledger.ApplyCompletion(ctx, "u1", rec)
	if err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if second.NewExp != 2*first.ExpGain {
		t.Fatalf("expected doubled experience %d, got %d", 2*first.ExpGain, second.NewExp)
	}
}

func TestApplyCompletionRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.ledger.ApplyCompletion(ctx, "u2", solo("u1", "q1", 5, 10)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for mismatched student, got %v", err)
	}
	if _, err := f.ledger.ApplyCompletion(ctx, "u1", solo("u1", "q1", 12, 10)); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for raw > total, got %v", err)
	}
	if _, err := f.progressions.GetProgression(ctx, "u1"); !errors.Is(err, domain.ErrProgressionNotFound) {
		t.Fatalf("expected no progression written, got %v", err)
	}
}

func TestAccuracyRunningAverage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _ = f.ledger.ApplyCompletion(ctx, "u1", solo("u1", "q1", 100, 100))
	_, _ = f.ledger.ApplyCompletion(ctx, "u1", solo("u1", "q2", 50, 100))

	p, _ := f.progressions.GetProgression(ctx, "u1")
	if p.Accuracy != 75 || p.QuizzesCompleted != 2 {
		t.Fatalf("expected 75%% accuracy over 2 quizzes, got %+v", p)
	}
}

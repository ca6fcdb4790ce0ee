package app_test

import (
	"context"
	"testing"
	"time"

	"gamification-engine/internal/app"
	"gamification-engine/internal/domain"
	"gamification-engine/internal/infra/memory"
	"github.com/rs/zerolog"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	scores       *memory.ScoreStore
	rosters      *memory.RosterStore
	progressions *memory.ProgressionStore
	events       *memory.EventLog
	badges       *memory.BadgeStore
	feeds        *memory.FeedStore
	quizzes      map[string]domain.Quiz

	ledger   *app.ExperienceLedger
	rankings *app.RankingAggregator
	tracker  *app.BadgeProgressTracker
	service  *app.GamificationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		scores:       memory.NewScoreStore(),
		rosters:      memory.NewRosterStore(),
		progressions: memory.NewProgressionStore(),
		events:       memory.NewEventLog(),
		badges:       memory.NewBadgeStore(),
		feeds:        memory.NewFeedStore(),
		quizzes:      map[string]domain.Quiz{},
	}
	catalog := memory.NewQuizCatalog(memory.NewStaticQuizLoader(f.quizzes), time.Minute)
	f.ledger = app.NewExperienceLedger(f.progressions, catalog, app.NewLevelCurve(500), 100)
	f.rankings = app.NewRankingAggregator(f.scores, f.rosters, f.progressions)
	tracker, err := app.NewBadgeProgressTracker(nil, f.badges)
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	f.tracker = tracker
	f.service = app.NewGamificationService(f.ledger, f.rankings, f.tracker, f.events, f.feeds, zerolog.Nop())
	return f
}

// submit stores a record and runs the completion flow, like the submission handler does.
func (f *fixture) submit(t *testing.T, rec domain.ScoreRecord) domain.CompletionResult {
	t.Helper()
	ctx := context.Background()
	if err := f.scores.AddRecord(ctx, rec); err != nil {
		t.Fatalf("add record: %v", err)
	}
	result, err := f.service.OnQuizCompleted(ctx, rec.StudentID, rec)
	if err != nil {
		t.Fatalf("complete quiz: %v", err)
	}
	return result
}

// record stores a score without running the completion flow.
func (f *fixture) record(t *testing.T, student, quiz, class string, mode domain.Mode, raw, total int) {
	t.Helper()
	err := f.scores.AddRecord(context.Background(), domain.ScoreRecord{
		StudentID: student, QuizID: quiz, ClassID: class, Mode: mode, ScoreRaw: raw, ScoreTotal: total,
		CompletedAt: fixedTime,
	})
	if err != nil {
		t.Fatalf("add record: %v", err)
	}
}

func solo(student, quiz string, raw, total int) domain.ScoreRecord {
	return domain.ScoreRecord{
		StudentID:   student,
		QuizID:      quiz,
		ClassID:     "C1",
		Mode:        domain.ModeSolo,
		ScoreRaw:    raw,
		ScoreTotal:  total,
		CompletedAt: fixedTime,
	}
}

func ids(entries []domain.RankingEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.ParticipantID)
	}
	return out
}

func progressFor(t *testing.T, progress []domain.BadgeProgress, id domain.CategoryID) domain.BadgeProgress {
	t.Helper()
	for _, p := range progress {
		if p.CategoryID == id {
			return p
		}
	}
	t.Fatalf("no progress for %s", id)
	return domain.BadgeProgress{}
}

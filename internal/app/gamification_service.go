package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"gamification-engine/internal/domain"
	"github.com/rs/zerolog"
)

// GamificationService is the entry point the quiz submission flow and the
// rankings/report screens call. All progression and badge writes go through it.
type GamificationService struct {
	ledger   *ExperienceLedger
	rankings *RankingAggregator
	badges   *BadgeProgressTracker
	events   EventLog
	feeds    FeedRepository
	locks    *keyedMutex
	log      zerolog.Logger
	now      func() time.Time
}

func NewGamificationService(ledger *ExperienceLedger, rankings *RankingAggregator, badges *BadgeProgressTracker, events EventLog, feeds FeedRepository, log zerolog.Logger) *GamificationService {
	return &GamificationService{
		ledger:   ledger,
		rankings: rankings,
		badges:   badges,
		events:   events,
		feeds:    feeds,
		locks:    newKeyedMutex(),
		log:      log.With().Str("component", "gamification").Logger(),
		now:      time.Now,
	}
}

// ResolveSubmission checks rec against the quiz it names and takes the play
// mode from the quiz. A quiz posted to other classes, or submitted in another
// mode, yields domain.ErrQuizMismatch. An empty ClassIDs list is open to every class.
func (s *GamificationService) ResolveSubmission(ctx context.Context, rec domain.ScoreRecord) (domain.ScoreRecord, error) {
	quiz, err := s.ledger.Quiz(ctx, rec.QuizID)
	if err != nil {
		return domain.ScoreRecord{}, err
	}
	switch {
	case quiz.Mode == "" && rec.Mode == "":
		rec.Mode = domain.ModeSolo
	case quiz.Mode == "":
	case rec.Mode == "":
		rec.Mode = quiz.Mode
	case rec.Mode != quiz.Mode:
		return domain.ScoreRecord{}, fmt.Errorf("%w: quiz %s is %s, submitted as %s", domain.ErrQuizMismatch, quiz.ID, quiz.Mode, rec.Mode)
	}
	if len(quiz.ClassIDs) > 0 && !slices.Contains(quiz.ClassIDs, rec.ClassID) {
		return domain.ScoreRecord{}, fmt.Errorf("%w: quiz %s is not posted to class %s", domain.ErrQuizMismatch, quiz.ID, rec.ClassID)
	}
	return rec, nil
}

// OnQuizCompleted applies a submitted score: experience first, then badges.
// If the experience write fails nothing else is touched. If the badge events
// cannot be stored afterwards the error wraps domain.ErrBadgesPending and the
// record must go through RetryBadges, not OnQuizCompleted, or experience is
// awarded twice. Completions of the same student are serialized; different
// students proceed in parallel.
func (s *GamificationService) OnQuizCompleted(ctx context.Context, studentID string, rec domain.ScoreRecord) (domain.CompletionResult, error) {
	unlock := s.locks.Lock(studentID)
	exp, badges, err := s.completeLocked(ctx, studentID, rec)
	unlock()
	if err != nil {
		s.log.Warn().Err(err).Str("student", studentID).Str("quiz", rec.QuizID).Msg("quiz completion not applied")
		return domain.CompletionResult{}, err
	}

	if exp.LeveledUp {
		s.log.Info().Str("student", studentID).Int("level", exp.NewLevel).Msg("level up")
	}
	for _, tier := range badges.NewlyUnlocked {
		s.log.Info().Str("student", studentID).Str("category", string(tier.CategoryID)).Str("tier", tier.TierID).Msg("badge unlocked")
	}

	if s.feeds != nil {
		if feed, ok := s.feeds.Get(rec.ClassID); ok {
			feed.Publish(domain.ClassUpdate{
				ClassID:   rec.ClassID,
				StudentID: studentID,
				QuizID:    rec.QuizID,
				LeveledUp: exp.LeveledUp,
				Unlocked:  len(badges.NewlyUnlocked),
				At:        s.now(),
			})
		}
	}
	return domain.CompletionResult{Experience: exp, Badges: badges}, nil
}

func (s *GamificationService) completeLocked(ctx context.Context, studentID string, rec domain.ScoreRecord) (domain.ExperienceResult, domain.BadgeResult, error) {
	exp, err := s.ledger.ApplyCompletion(ctx, studentID, rec)
	if err != nil {
		return domain.ExperienceResult{}, domain.BadgeResult{}, fmt.Errorf("apply experience: %w", err)
	}
	badges, err := s.applyBadgesLocked(ctx, studentID, rec)
	if err != nil {
		return exp, domain.BadgeResult{}, fmt.Errorf("%w: %w", domain.ErrBadgesPending, err)
	}
	return exp, badges, nil
}

func (s *GamificationService) applyBadgesLocked(ctx context.Context, studentID string, rec domain.ScoreRecord) (domain.BadgeResult, error) {
	if _, err := s.events.AppendEvents(ctx, studentID, s.impliedEvents(rec)...); err != nil {
		return domain.BadgeResult{}, fmt.Errorf("append events: %w", err)
	}
	return s.replayLocked(ctx, studentID)
}

// RetryBadges stores the badge events of an already credited record and
// replays the history. Events are keyed, so retrying twice is harmless.
func (s *GamificationService) RetryBadges(ctx context.Context, studentID string, rec domain.ScoreRecord) (domain.BadgeResult, error) {
	if rec.StudentID != studentID {
		return domain.BadgeResult{}, fmt.Errorf("%w: record of %q applied to %q", domain.ErrMalformedScore, rec.StudentID, studentID)
	}
	if err := rec.Validate(); err != nil {
		return domain.BadgeResult{}, err
	}
	unlock := s.locks.Lock(studentID)
	defer unlock()
	return s.applyBadgesLocked(ctx, studentID, rec)
}

// impliedEvents lists the badge events a single submission produces.
func (s *GamificationService) impliedEvents(rec domain.ScoreRecord) []domain.Event {
	if rec.CompletedAt.IsZero() {
		rec.CompletedAt = s.now()
	}
	events := []domain.Event{domain.QuizCompletedEvent(rec)}
	if rec.Perfect() {
		events = append(events, domain.PerfectScoreEvent(rec))
	}
	window := s.badges.SpeedWindow()
	for _, answer := range rec.Answers {
		if answer.Correct && answer.ResponseSeconds < window {
			events = append(events, domain.FastCorrectAnswerEvent(rec, answer))
		}
	}
	return events
}

// Rank computes the leaderboard for scope and records podium placements for
// the students it contains (team placements credit every member). Placement
// recording is keyed by scope, so repeated calls do not inflate badge counts.
func (s *GamificationService) Rank(ctx context.Context, scope domain.Scope) (domain.Ranking, error) {
	ranking, err := s.rankings.Rank(ctx, scope)
	if err != nil {
		return domain.Ranking{}, err
	}
	if err := s.recordPlacements(ctx, ranking); err != nil {
		return domain.Ranking{}, fmt.Errorf("record placements: %w", err)
	}
	return ranking, nil
}

// Leaderboard computes the ranking for scope without recording placements.
func (s *GamificationService) Leaderboard(ctx context.Context, scope domain.Scope) (domain.Ranking, error) {
	return s.rankings.Rank(ctx, scope)
}

func (s *GamificationService) recordPlacements(ctx context.Context, ranking domain.Ranking) error {
	at := s.now()
	for _, entry := range ranking.Podium {
		studentIDs := []string{entry.ParticipantID}
		if entry.Kind == domain.ParticipantTeam {
			studentIDs = entry.MemberIDs
		}
		for _, studentID := range studentIDs {
			events := []domain.Event{domain.PlacementEvent(studentID, domain.EventLeaderboardTop3, ranking.Scope, at)}
			if entry.Rank == 1 {
				events = append(events, domain.PlacementEvent(studentID, domain.EventLeaderboardTop1, ranking.Scope, at))
			}
			if err := s.appendAndReplay(ctx, studentID, events); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *GamificationService) appendAndReplay(ctx context.Context, studentID string, events []domain.Event) error {
	unlock := s.locks.Lock(studentID)
	defer unlock()

	added, err := s.events.AppendEvents(ctx, studentID, events...)
	if err != nil {
		return err
	}
	if added == 0 {
		return nil
	}
	result, err := s.replayLocked(ctx, studentID)
	if err != nil {
		return err
	}
	for _, tier := range result.NewlyUnlocked {
		s.log.Info().Str("student", studentID).Str("category", string(tier.CategoryID)).Str("tier", tier.TierID).Msg("badge unlocked")
	}
	return nil
}

// RecomputeBadges replays the student's full event history.
func (s *GamificationService) RecomputeBadges(ctx context.Context, studentID string) (domain.BadgeResult, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()
	return s.replayLocked(ctx, studentID)
}

// ResetBadges clears the student's event history and replays the empty log.
func (s *GamificationService) ResetBadges(ctx context.Context, studentID string) (domain.BadgeResult, error) {
	unlock := s.locks.Lock(studentID)
	defer unlock()
	if err := s.events.ResetEvents(ctx, studentID); err != nil {
		return domain.BadgeResult{}, fmt.Errorf("reset events: %w", err)
	}
	s.log.Info().Str("student", studentID).Msg("badge progress reset")
	return s.replayLocked(ctx, studentID)
}

func (s *GamificationService) replayLocked(ctx context.Context, studentID string) (domain.BadgeResult, error) {
	history, err := s.events.Events(ctx, studentID)
	if err != nil {
		return domain.BadgeResult{}, fmt.Errorf("load events: %w", err)
	}
	return s.badges.Recompute(ctx, studentID, history)
}

// BadgeProgress is the read-only accessor for display.
func (s *GamificationService) BadgeProgress(ctx context.Context, studentID string) ([]domain.BadgeProgress, error) {
	return s.badges.GetProgress(ctx, studentID)
}

// Progression returns the student's experience state with its level breakdown.
func (s *GamificationService) Progression(ctx context.Context, studentID string) (domain.StudentProgression, domain.LevelInfo, error) {
	p, err := s.ledger.Progression(ctx, studentID)
	if err != nil {
		return domain.StudentProgression{}, domain.LevelInfo{}, err
	}
	info, err := s.ledger.Curve().LevelOf(p.Experience)
	if err != nil {
		return domain.StudentProgression{}, domain.LevelInfo{}, err
	}
	return p, info, nil
}

// Subscribe returns a channel of updates for a class.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GamificationService) Subscribe(ctx context.Context, classID string) (<-chan domain.ClassUpdate, func(), error) {
	if s.feeds == nil {
		return nil, nil, errors.New("class feeds not configured")
	}
	if _, err := s.rankings.rosters.ClassRoster(ctx, classID); err != nil {
		return nil, nil, err
	}
	feed := s.feeds.GetOrCreate(classID)
	ch, cancel := feed.subscribe()
	return ch, func() {
		cancel()
		if s.feeds.DeleteIfEmpty(classID) {
			s.log.Debug().Str("class", classID).Msg("class feed closed")
		}
	}, nil
}

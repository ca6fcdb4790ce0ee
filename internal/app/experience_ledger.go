package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gamification-engine/internal/domain"
)

// DefaultBaseXP is the experience budget of a quiz whose metadata does not set one.
const DefaultBaseXP = 100

// ProgressionRepository stores StudentProgression records. Only the ledger writes to it.
type ProgressionRepository interface {
	GetProgression(ctx context.Context, studentID string) (domain.StudentProgression, error)
	SaveProgression(ctx context.Context, progression domain.StudentProgression) error
	// ListProgressions returns the progressions of the given students, skipping
	// unknown ones. A nil slice lists every stored progression.
	ListProgressions(ctx context.Context, studentIDs []string) ([]domain.StudentProgression, error)
}

// QuizCatalog loads quiz metadata (from cache/backing store).
type QuizCatalog interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ExperienceLedger turns completions into experience and levels.
type ExperienceLedger struct {
	progressions  ProgressionRepository
	quizzes       QuizCatalog
	curve         LevelCurve
	defaultBaseXP int
	now           func() time.Time
}

// NewExperienceLedger wires the ledger. quizzes may be nil, in which case every
// quiz uses defaultBaseXP.
func NewExperienceLedger(progressions ProgressionRepository, quizzes QuizCatalog, curve LevelCurve, defaultBaseXP int) *ExperienceLedger {
	if defaultBaseXP <= 0 {
		defaultBaseXP = DefaultBaseXP
	}
	return &ExperienceLedger{
		progressions:  progressions,
		quizzes:       quizzes,
		curve:         curve,
		defaultBaseXP: defaultBaseXP,
		now:           time.Now,
	}
}

// Curve exposes the level curve the ledger evaluates.
func (l *ExperienceLedger) Curve() LevelCurve {
	return l.curve
}

// ExpGain is round(percentage * baseXP). A zero score earns nothing; gains are never negative.
func ExpGain(rec domain.ScoreRecord, baseXP int) int {
	if rec.ScoreTotal <= 0 || rec.ScoreRaw <= 0 || baseXP <= 0 {
		return 0
	}
	return int(math.Round(float64(rec.ScoreRaw) * float64(baseXP) / float64(rec.ScoreTotal)))
}

// ApplyCompletion adds the experience earned by rec to the student's total.
// It does not deduplicate: calling it twice for one record awards twice.
func (l *ExperienceLedger) ApplyCompletion(ctx context.Context, studentID string, rec domain.ScoreRecord) (domain.ExperienceResult, error) {
	if rec.StudentID != studentID {
		return domain.ExperienceResult{}, fmt.Errorf("%w: record of %q applied to %q", domain.ErrMalformedScore, rec.StudentID, studentID)
	}
	if err := rec.Validate(); err != nil {
		return domain.ExperienceResult{}, err
	}

	baseXP, err := l.baseXP(ctx, rec.QuizID)
	if err != nil {
		return domain.ExperienceResult{}, err
	}

	progression, err := l.Progression(ctx, studentID)
	if err != nil {
		return domain.ExperienceResult{}, err
	}
	before, err := l.curve.LevelOf(progression.Experience)
	if err != nil {
		return domain.ExperienceResult{}, err
	}

	gain := ExpGain(rec, baseXP)
	oldExp := progression.Experience
	progression.Experience += gain
	after, err := l.curve.LevelOf(progression.Experience)
	if err != nil {
		return domain.ExperienceResult{}, err
	}

	n := float64(progression.QuizzesCompleted)
	progression.Accuracy = (progression.Accuracy*n + rec.Percentage()) / (n + 1)
	progression.QuizzesCompleted++
	progression.Level = after.Level
	progression.UpdatedAt = l.now()

	if err := l.progressions.SaveProgression(ctx, progression); err != nil {
		return domain.ExperienceResult{}, fmt.Errorf("save progression: %w", err)
	}

	return domain.ExperienceResult{
		StudentID: studentID,
		QuizID:    rec.QuizID,
		ExpGain:   gain,
		OldLevel:  before.Level,
		NewLevel:  after.Level,
		OldExp:    oldExp,
		NewExp:    progression.Experience,
		LeveledUp: after.Level > before.Level,
	}, nil
}

// Progression returns the stored progression, or a fresh level-1 one for a
// student who has not completed anything yet.
func (l *ExperienceLedger) Progression(ctx context.Context, studentID string) (domain.StudentProgression, error) {
	progression, err := l.progressions.GetProgression(ctx, studentID)
	if errors.Is(err, domain.ErrProgressionNotFound) {
		return domain.StudentProgression{StudentID: studentID, Level: 1}, nil
	}
	if err != nil {
		return domain.StudentProgression{}, fmt.Errorf("load progression: %w", err)
	}
	if progression.Experience < 0 {
		return domain.StudentProgression{}, fmt.Errorf("%w: student %s has %d", domain.ErrNegativeExperience, studentID, progression.Experience)
	}
	return progression, nil
}

// Quiz returns the metadata of quizID. Without a catalog every quiz is an
// unrestricted one with no metadata.
func (l *ExperienceLedger) Quiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if l.quizzes == nil {
		return domain.Quiz{ID: quizID}, nil
	}
	quiz, err := l.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
	}
	return quiz, nil
}

func (l *ExperienceLedger) baseXP(ctx context.Context, quizID string) (int, error) {
	quiz, err := l.Quiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) {
		return l.defaultBaseXP, nil
	}
	if err != nil {
		return 0, err
	}
	if quiz.BaseXP <= 0 {
		return l.defaultBaseXP, nil
	}
	return quiz.BaseXP, nil
}

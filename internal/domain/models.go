package domain

import (
	"fmt"
	"time"
)

// Mode is the play mode a quiz is posted with.
type Mode string

const (
	ModeSolo      Mode = "solo"
	ModeTeam      Mode = "team"
	ModeClassroom Mode = "classroom"
)

// Valid reports whether m is one of the known modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeSolo, ModeTeam, ModeClassroom:
		return true
	}
	return false
}

// ParseMode converts user input into a Mode.
func ParseMode(raw string) (Mode, error) {
	m := Mode(raw)
	if !m.Valid() {
		return "", fmt.Errorf("unknown mode %q: %w", raw, ErrInvalidState)
	}
	return m, nil
}

// AnswerTiming is the per-question outcome captured at submission time.
type AnswerTiming struct {
	QuestionID      string  `json:"questionId"`
	Correct         bool    `json:"correct"`
	ResponseSeconds float64 `json:"responseSeconds"`
}

// ScoreRecord is one student's submission for one quiz. At most one exists per (student, quiz).
type ScoreRecord struct {
	StudentID   string         `json:"studentId"`
	QuizID      string         `json:"quizId"`
	ClassID     string         `json:"classId"`
	Mode        Mode           `json:"mode"`
	ScoreRaw    int            `json:"scoreRaw"`
	ScoreTotal  int            `json:"scoreTotal"`
	CompletedAt time.Time      `json:"completedAt"`
	Answers     []AnswerTiming `json:"answers,omitempty"`
}

// Validate rejects records the engine cannot aggregate.
func (r ScoreRecord) Validate() error {
	switch {
	case r.StudentID == "" || r.QuizID == "":
		return fmt.Errorf("%w: missing student or quiz id", ErrMalformedScore)
	case !r.Mode.Valid():
		return fmt.Errorf("%w: unknown mode %q", ErrMalformedScore, r.Mode)
	case r.ScoreTotal <= 0:
		return fmt.Errorf("%w: total %d", ErrMalformedScore, r.ScoreTotal)
	case r.ScoreRaw < 0 || r.ScoreRaw > r.ScoreTotal:
		return fmt.Errorf("%w: raw %d of %d", ErrMalformedScore, r.ScoreRaw, r.ScoreTotal)
	}
	questions := make(map[string]struct{}, len(r.Answers))
	for _, a := range r.Answers {
		if a.QuestionID == "" {
			return fmt.Errorf("%w: answer without question id", ErrMalformedScore)
		}
		if _, dup := questions[a.QuestionID]; dup {
			return fmt.Errorf("%w: question %s answered twice", ErrMalformedScore, a.QuestionID)
		}
		questions[a.QuestionID] = struct{}{}
		if a.ResponseSeconds < 0 {
			return fmt.Errorf("%w: negative response time on %s", ErrMalformedScore, a.QuestionID)
		}
	}
	return nil
}

// Percentage returns the score on a 0-100 scale. Callers validate first.
func (r ScoreRecord) Percentage() float64 {
	if r.ScoreTotal <= 0 {
		return 0
	}
	return float64(r.ScoreRaw) * 100 / float64(r.ScoreTotal)
}

// Perfect reports whether every available point was earned.
func (r ScoreRecord) Perfect() bool {
	return r.ScoreTotal > 0 && r.ScoreRaw == r.ScoreTotal
}

// Quiz is the metadata the engine needs about a quiz.
type Quiz struct {
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Mode     Mode       `json:"mode"`
	ClassIDs []string   `json:"classIds"`
	BaseXP   int        `json:"baseXp"` // defaults to the configured budget if zero
	DueAt    *time.Time `json:"dueAt,omitempty"`
}

// Student is a roster entry.
type Student struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// TeamRoster groups students of a class for team quizzes. An empty QuizID
// makes the roster class-wide; otherwise it only applies to that quiz.
type TeamRoster struct {
	ClassID   string   `json:"classId"`
	QuizID    string   `json:"quizId,omitempty"`
	Name      string   `json:"name"`
	MemberIDs []string `json:"memberIds"`
}

// Has reports whether studentID is a member of the team.
func (t TeamRoster) Has(studentID string) bool {
	for _, id := range t.MemberIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// StudentProgression is the engine-owned experience state of a student.
type StudentProgression struct {
	StudentID        string    `json:"studentId"`
	Experience       int       `json:"experience"`
	Level            int       `json:"level"`
	Accuracy         float64   `json:"accuracy"` // running average percentage
	QuizzesCompleted int       `json:"quizzesCompleted"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// LevelInfo is the result of evaluating the level curve.
type LevelInfo struct {
	Level          int `json:"level"`
	XPIntoLevel    int `json:"xpIntoLevel"`
	XPForNextLevel int `json:"xpForNextLevel"`
	XPToNextLevel  int `json:"xpToNextLevel"`
}

// ExperienceResult summarizes one applied completion.
type ExperienceResult struct {
	StudentID string `json:"studentId"`
	QuizID    string `json:"quizId"`
	ExpGain   int    `json:"expGain"`
	OldLevel  int    `json:"oldLevel"`
	NewLevel  int    `json:"newLevel"`
	OldExp    int    `json:"oldExp"`
	NewExp    int    `json:"newExp"`
	LeveledUp bool   `json:"leveledUp"`
}

// CompletionResult is returned to the completion screen after a quiz submission.
type CompletionResult struct {
	Experience ExperienceResult `json:"experience"`
	Badges     BadgeResult      `json:"badges"`
}

// ClassUpdate is pushed to class subscribers after a completion lands.
type ClassUpdate struct {
	ClassID   string    `json:"classId"`
	StudentID string    `json:"studentId"`
	QuizID    string    `json:"quizId"`
	LeveledUp bool      `json:"leveledUp"`
	Unlocked  int       `json:"unlocked"`
	At        time.Time `json:"at"`
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the type of a badge-relevant event.
type EventKind string

const (
	EventQuizCompleted     EventKind = "quiz-completed"
	EventPerfectScore      EventKind = "perfect-score"
	EventLeaderboardTop3   EventKind = "leaderboard-top-3"
	EventLeaderboardTop1   EventKind = "leaderboard-top-1"
	EventFastCorrectAnswer EventKind = "fast-correct-answer"
)

// eventNamespace seeds the name-based event IDs so the same key always maps to the same ID.
var eventNamespace = uuid.MustParse("7d2c3f0e-5b7a-4f43-9a51-0c7f0b3e9d61")

// Event is one entry of a student's badge event log. Key is the idempotency key:
// appending an event whose key is already present is a no-op.
type Event struct {
	ID              string    `json:"id"`
	Key             string    `json:"key"`
	Kind            EventKind `json:"kind"`
	StudentID       string    `json:"studentId"`
	QuizID          string    `json:"quizId,omitempty"`
	Mode            Mode      `json:"mode,omitempty"`
	ScopeKey        string    `json:"scopeKey,omitempty"`
	ScoreRaw        int       `json:"scoreRaw,omitempty"`
	ScoreTotal      int       `json:"scoreTotal,omitempty"`
	ResponseSeconds float64   `json:"responseSeconds,omitempty"`
	OccurredAt      time.Time `json:"occurredAt"`
}

func newEvent(studentID string, kind EventKind, key string, at time.Time) Event {
	return Event{
		ID:         uuid.NewSHA1(eventNamespace, []byte(studentID+"|"+key)).String(),
		Key:        key,
		Kind:       kind,
		StudentID:  studentID,
		OccurredAt: at,
	}
}

// QuizCompletedEvent records that a student finished a quiz.
func QuizCompletedEvent(rec ScoreRecord) Event {
	ev := newEvent(rec.StudentID, EventQuizCompleted, "quiz/"+rec.QuizID+"/completed", rec.CompletedAt)
	ev.QuizID = rec.QuizID
	ev.Mode = rec.Mode
	ev.ScoreRaw = rec.ScoreRaw
	ev.ScoreTotal = rec.ScoreTotal
	return ev
}

// PerfectScoreEvent records a full-marks submission.
func PerfectScoreEvent(rec ScoreRecord) Event {
	ev := newEvent(rec.StudentID, EventPerfectScore, "quiz/"+rec.QuizID+"/perfect", rec.CompletedAt)
	ev.QuizID = rec.QuizID
	ev.Mode = rec.Mode
	ev.ScoreRaw = rec.ScoreRaw
	ev.ScoreTotal = rec.ScoreTotal
	return ev
}

// FastCorrectAnswerEvent records one correct answer and how long it took.
func FastCorrectAnswerEvent(rec ScoreRecord, answer AnswerTiming) Event {
	ev := newEvent(rec.StudentID, EventFastCorrectAnswer, "quiz/"+rec.QuizID+"/answer/"+answer.QuestionID, rec.CompletedAt)
	ev.QuizID = rec.QuizID
	ev.Mode = rec.Mode
	ev.ResponseSeconds = answer.ResponseSeconds
	return ev
}

// PlacementEvent records a podium placement on the leaderboard identified by scope.
func PlacementEvent(studentID string, kind EventKind, scope Scope, at time.Time) Event {
	ev := newEvent(studentID, kind, "placement/"+scope.Key()+"/"+string(kind), at)
	ev.Mode = scope.Mode
	ev.QuizID = scope.QuizID
	ev.ScopeKey = scope.Key()
	return ev
}

package memory

import (
	"context"
	"sync"

	"gamification-engine/internal/domain"
)

// ScoreStore keeps submitted score records. Reads return copies, so callers
// aggregate over a point-in-time snapshot while writers continue.
type ScoreStore struct {
	mu      sync.RWMutex
	records []domain.ScoreRecord
	index   map[string]int // student|quiz -> position
}

func NewScoreStore() *ScoreStore {
	return &ScoreStore{index: make(map[string]int)}
}

// AddRecord stores rec, rejecting a second submission for the same student and quiz.
func (s *ScoreStore) AddRecord(_ context.Context, rec domain.ScoreRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	key := rec.StudentID + "|" + rec.QuizID

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.index[key]; dup {
		return domain.ErrDuplicateSubmission
	}
	s.index[key] = len(s.records)
	s.records = append(s.records, cloneRecord(rec))
	return nil
}

func (s *ScoreStore) RecordsForStudent(_ context.Context, studentID string) ([]domain.ScoreRecord, error) {
	return s.filter(func(r domain.ScoreRecord) bool { return r.StudentID == studentID }), nil
}

func (s *ScoreStore) RecordsForQuiz(_ context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return s.filter(func(r domain.ScoreRecord) bool { return r.QuizID == quizID }), nil
}

func (s *ScoreStore) filter(keep func(domain.ScoreRecord) bool) []domain.ScoreRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ScoreRecord, 0)
	for _, r := range s.records {
		if keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	return out
}

func cloneRecord(r domain.ScoreRecord) domain.ScoreRecord {
	if r.Answers != nil {
		r.Answers = append([]domain.AnswerTiming(nil), r.Answers...)
	}
	return r
}

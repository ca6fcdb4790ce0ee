package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"gamification-engine/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoreStore persists submitted score records. A student has at most one
// record per quiz.
type ScoreStore struct {
	pool *pgxpool.Pool
}

func NewScoreStore(pool *pgxpool.Pool) *ScoreStore {
	return &ScoreStore{pool: pool}
}

const scoreColumns = `student_id, quiz_id, class_id, mode, score_raw, score_total, completed_at, answers`

// AddRecord stores rec, returning domain.ErrDuplicateSubmission if the student already submitted the quiz.
func (s *ScoreStore) AddRecord(ctx context.Context, rec domain.ScoreRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	answers := rec.Answers
	if answers == nil {
		answers = []domain.AnswerTiming{}
	}
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO score_records (`+scoreColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (student_id, quiz_id) DO NOTHING`,
		rec.StudentID, rec.QuizID, rec.ClassID, string(rec.Mode), rec.ScoreRaw, rec.ScoreTotal, rec.CompletedAt, string(raw))
	if err != nil {
		return fmt.Errorf("insert score record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s/%s", domain.ErrDuplicateSubmission, rec.StudentID, rec.QuizID)
	}
	return nil
}

func (s *ScoreStore) RecordsForStudent(ctx context.Context, studentID string) ([]domain.ScoreRecord, error) {
	return s.query(ctx, `SELECT `+scoreColumns+` FROM score_records WHERE student_id=$1 ORDER BY completed_at, quiz_id`, studentID)
}

func (s *ScoreStore) RecordsForQuiz(ctx context.Context, quizID string) ([]domain.ScoreRecord, error) {
	return s.query(ctx, `SELECT `+scoreColumns+` FROM score_records WHERE quiz_id=$1 ORDER BY completed_at, student_id`, quizID)
}

func (s *ScoreStore) query(ctx context.Context, sql string, arg string) ([]domain.ScoreRecord, error) {
	rows, err := s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("query score records: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ScoreRecord, 0)
	for rows.Next() {
		var (
			rec     domain.ScoreRecord
			mode    string
			answers []byte
		)
		if err := rows.Scan(&rec.StudentID, &rec.QuizID, &rec.ClassID, &mode, &rec.ScoreRaw, &rec.ScoreTotal, &rec.CompletedAt, &answers); err != nil {
			return nil, fmt.Errorf("scan score record: %w", err)
		}
		rec.Mode = domain.Mode(mode)
		if err := json.Unmarshal(answers, &rec.Answers); err != nil {
			return nil, fmt.Errorf("decode answers of %s/%s: %w", rec.StudentID, rec.QuizID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

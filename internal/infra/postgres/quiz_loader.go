package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gamification-engine/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuizLoader loads quiz metadata from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz domain.Quiz
		mode string
		due  *time.Time
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, mode, class_ids, base_xp, due_at FROM quizzes WHERE id=$1`, quizID,
	).Scan(&quiz.ID, &quiz.Title, &mode, &quiz.ClassIDs, &quiz.BaseXP, &due)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, fmt.Errorf("%w: %s", domain.ErrQuizNotFound, quizID)
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	quiz.Mode = domain.Mode(mode)
	quiz.DueAt = due
	return quiz, nil
}

// SaveQuiz upserts quiz metadata.
func (l *QuizLoader) SaveQuiz(ctx context.Context, quiz domain.Quiz) error {
	classIDs := quiz.ClassIDs
	if classIDs == nil {
		classIDs = []string{}
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO quizzes (id, title, mode, class_ids, base_xp, due_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, mode = EXCLUDED.mode, class_ids = EXCLUDED.class_ids,
			base_xp = EXCLUDED.base_xp, due_at = EXCLUDED.due_at`,
		quiz.ID, quiz.Title, string(quiz.Mode), classIDs, quiz.BaseXP, quiz.DueAt)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

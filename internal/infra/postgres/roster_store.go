package postgres

import (
	"context"
	"errors"
	"fmt"

	"gamification-engine/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// RosterStore reads class rosters and teams from Postgres.
type RosterStore struct {
	pool *pgxpool.Pool
}

func NewRosterStore(pool *pgxpool.Pool) *RosterStore {
	return &RosterStore{pool: pool}
}

func (s *RosterStore) ClassRoster(ctx context.Context, classID string) ([]domain.Student, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM classes WHERE id=$1)`, classID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("check class: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrClassNotFound, classID)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT s.id, s.display_name
		FROM class_members m JOIN students s ON s.id = m.student_id
		WHERE m.class_id=$1
		ORDER BY m.position`, classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	students := make([]domain.Student, 0)
	for rows.Next() {
		var st domain.Student
		if err := rows.Scan(&st.ID, &st.DisplayName); err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

func (s *RosterStore) Teams(ctx context.Context, classID string) ([]domain.TeamRoster, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.id, t.quiz_id, t.name, tm.student_id
		FROM teams t LEFT JOIN team_members tm ON tm.team_id = t.id
		WHERE t.class_id=$1
		ORDER BY t.id, tm.position`, classID)
	if err != nil {
		return nil, fmt.Errorf("query teams: %w", err)
	}
	defer rows.Close()

	var (
		teams  []domain.TeamRoster
		lastID int64 = -1
	)
	for rows.Next() {
		var (
			id      int64
			quizID  *string
			name    string
			student *string
		)
		if err := rows.Scan(&id, &quizID, &name, &student); err != nil {
			return nil, err
		}
		if id != lastID {
			team := domain.TeamRoster{ClassID: classID, Name: name, MemberIDs: []string{}}
			if quizID != nil {
				team.QuizID = *quizID
			}
			teams = append(teams, team)
			lastID = id
		}
		if student != nil {
			last := &teams[len(teams)-1]
			last.MemberIDs = append(last.MemberIDs, *student)
		}
	}
	return teams, rows.Err()
}

func (s *RosterStore) Student(ctx context.Context, studentID string) (domain.Student, error) {
	st := domain.Student{ID: studentID}
	err := s.pool.QueryRow(ctx, `SELECT display_name FROM students WHERE id=$1`, studentID).Scan(&st.DisplayName)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Student{}, fmt.Errorf("%w: %s", domain.ErrStudentNotFound, studentID)
	}
	if err != nil {
		return domain.Student{}, fmt.Errorf("load student: %w", err)
	}
	return st, nil
}

// AddClass creates the class if needed and appends students to its roster.
func (s *RosterStore) AddClass(ctx context.Context, classID string, students ...domain.Student) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO classes (id) VALUES ($1) ON CONFLICT DO NOTHING`, classID); err != nil {
			return err
		}
		for _, st := range students {
			if _, err := tx.Exec(ctx, `
				INSERT INTO students (id, display_name) VALUES ($1, $2)
				ON CONFLICT (id) DO UPDATE SET display_name = EXCLUDED.display_name`, st.ID, st.DisplayName); err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, `
				INSERT INTO class_members (class_id, student_id, position)
				SELECT $1, $2, COALESCE(MAX(position), -1) + 1 FROM class_members WHERE class_id=$1
				ON CONFLICT DO NOTHING`, classID, st.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// AddTeam registers a team roster; its members must already be students.
func (s *RosterStore) AddTeam(ctx context.Context, team domain.TeamRoster) error {
	return s.inTx(ctx, func(tx pgx.Tx) error {
		var quizID *string
		if team.QuizID != "" {
			quizID = &team.QuizID
		}
		var id int64
		if err := tx.QueryRow(ctx,
			`INSERT INTO teams (class_id, quiz_id, name) VALUES ($1, $2, $3) RETURNING id`,
			team.ClassID, quizID, team.Name).Scan(&id); err != nil {
			return err
		}
		for i, member := range team.MemberIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO team_members (team_id, student_id, position) VALUES ($1, $2, $3)`,
				id, member, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *RosterStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

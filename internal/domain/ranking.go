package domain

import (
	"fmt"
	"strings"
)

// Aggregation selects which quizzes feed a ranking.
type Aggregation string

const (
	AggregationAllQuizzes Aggregation = "all-quizzes"
	AggregationSingleQuiz Aggregation = "single-quiz"
)

// Basis selects what a ranking scores participants by. The two are never mixed.
type Basis string

const (
	BasisPercentage Basis = "percentage"
	BasisExperience Basis = "experience"
)

// Scope identifies one leaderboard.
type Scope struct {
	Mode        Mode        `json:"mode"`
	Aggregation Aggregation `json:"aggregation"`
	QuizID      string      `json:"quizId,omitempty"`
	ClassID     string      `json:"classId,omitempty"`
	Basis       Basis       `json:"basis"`
}

// SoloQuizScope is the percentage leaderboard of one Solo quiz in a class.
func SoloQuizScope(classID, quizID string) Scope {
	return Scope{Mode: ModeSolo, Aggregation: AggregationSingleQuiz, QuizID: quizID, ClassID: classID, Basis: BasisPercentage}
}

// ExperienceScope is the experience leaderboard; an empty classID means platform-wide.
func ExperienceScope(classID string) Scope {
	return Scope{Mode: ModeSolo, Aggregation: AggregationAllQuizzes, ClassID: classID, Basis: BasisExperience}
}

// Normalize fills defaults for omitted fields.
func (s Scope) Normalize() Scope {
	if s.Basis == "" {
		s.Basis = BasisPercentage
	}
	if s.Aggregation == "" {
		if s.QuizID != "" {
			s.Aggregation = AggregationSingleQuiz
		} else {
			s.Aggregation = AggregationAllQuizzes
		}
	}
	if s.Mode == "" && s.Basis == BasisExperience {
		s.Mode = ModeSolo
	}
	return s
}

// Validate rejects impossible scope combinations.
func (s Scope) Validate() error {
	if !s.Mode.Valid() {
		return fmt.Errorf("%w: mode %q", ErrInvalidScope, s.Mode)
	}
	switch s.Aggregation {
	case AggregationAllQuizzes:
		if s.QuizID != "" {
			return fmt.Errorf("%w: quiz id set on all-quizzes aggregation", ErrInvalidScope)
		}
	case AggregationSingleQuiz:
		if s.QuizID == "" {
			return fmt.Errorf("%w: single-quiz aggregation without quiz id", ErrInvalidScope)
		}
	default:
		return fmt.Errorf("%w: aggregation %q", ErrInvalidScope, s.Aggregation)
	}
	switch s.Basis {
	case BasisPercentage:
		if s.ClassID == "" {
			return fmt.Errorf("%w: percentage ranking without class", ErrInvalidScope)
		}
	case BasisExperience:
		if s.Mode != ModeSolo || s.Aggregation != AggregationAllQuizzes {
			return fmt.Errorf("%w: experience ranking is solo over all quizzes", ErrInvalidScope)
		}
	default:
		return fmt.Errorf("%w: basis %q", ErrInvalidScope, s.Basis)
	}
	return nil
}

// Key is a stable identifier for the scope, used to key placement events.
func (s Scope) Key() string {
	classID := s.ClassID
	if classID == "" {
		classID = "*"
	}
	quizID := s.QuizID
	if quizID == "" {
		quizID = "*"
	}
	return strings.Join([]string{string(s.Basis), string(s.Mode), string(s.Aggregation), classID, quizID}, "/")
}

// ParticipantKind tells whether a ranking entry is a student or a team.
type ParticipantKind string

const (
	ParticipantStudent ParticipantKind = "student"
	ParticipantTeam    ParticipantKind = "team"
)

// RankingEntry is one ranked participant.
type RankingEntry struct {
	ParticipantID string          `json:"participantId"`
	DisplayName   string          `json:"displayName"`
	Kind          ParticipantKind `json:"kind"`
	Score         float64         `json:"score"`
	Rank          int             `json:"rank"`
	MemberIDs     []string        `json:"memberIds,omitempty"`
}

// Ranking is an ordered leaderboard split into podium and the rest.
type Ranking struct {
	Scope  Scope          `json:"scope"`
	Podium []RankingEntry `json:"podium"`
	Rest   []RankingEntry `json:"rest"`
}

// Entries returns podium and rest in rank order.
func (r Ranking) Entries() []RankingEntry {
	out := make([]RankingEntry, 0, len(r.Podium)+len(r.Rest))
	out = append(out, r.Podium...)
	return append(out, r.Rest...)
}

// Len is the number of qualifying participants.
func (r Ranking) Len() int {
	return len(r.Podium) + len(r.Rest)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"gamification-engine/internal/domain"
	"golang.org/x/sync/errgroup"
)

// PodiumSize is how many top entries a ranking presents separately.
const PodiumSize = 3

// fetchConcurrency bounds parallel per-student record reads.
const fetchConcurrency = 8

// ScoreRecordStore is the read side of submitted quiz scores.
type ScoreRecordStore interface {
	RecordsForStudent(ctx context.Context, studentID string) ([]domain.ScoreRecord, error)
	RecordsForQuiz(ctx context.Context, quizID string) ([]domain.ScoreRecord, error)
}

// RosterStore exposes class rosters and teams.
type RosterStore interface {
	// ClassRoster returns the students of a class in roster order, or domain.ErrClassNotFound.
	ClassRoster(ctx context.Context, classID string) ([]domain.Student, error)
	Teams(ctx context.Context, classID string) ([]domain.TeamRoster, error)
	Student(ctx context.Context, studentID string) (domain.Student, error)
}

// RankingAggregator computes leaderboards. Rank never writes anything: two
// calls over unchanged records return identical rankings.
type RankingAggregator struct {
	scores       ScoreRecordStore
	rosters      RosterStore
	progressions ProgressionRepository
}

func NewRankingAggregator(scores ScoreRecordStore, rosters RosterStore, progressions ProgressionRepository) *RankingAggregator {
	return &RankingAggregator{scores: scores, rosters: rosters, progressions: progressions}
}

// Rank builds the leaderboard for scope. Missing data yields an empty ranking;
// an unknown class yields domain.ErrClassNotFound.
func (a *RankingAggregator) Rank(ctx context.Context, scope domain.Scope) (domain.Ranking, error) {
	scope = scope.Normalize()
	if err := scope.Validate(); err != nil {
		return domain.Ranking{}, err
	}

	var (
		entries []domain.RankingEntry
		err     error
	)
	switch {
	case scope.Basis == domain.BasisExperience:
		entries, err = a.experienceEntries(ctx, scope)
	case scope.Mode == domain.ModeTeam:
		entries, err = a.teamEntries(ctx, scope)
	default:
		entries, err = a.studentEntries(ctx, scope)
	}
	if err != nil {
		return domain.Ranking{}, err
	}

	orderEntries(entries)
	return splitPodium(scope, entries), nil
}

func (a *RankingAggregator) studentEntries(ctx context.Context, scope domain.Scope) ([]domain.RankingEntry, error) {
	roster, err := a.rosters.ClassRoster(ctx, scope.ClassID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(roster))
	for _, s := range roster {
		ids = append(ids, s.ID)
	}
	scores, err := a.studentScores(ctx, scope, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.RankingEntry, 0, len(scores))
	for _, s := range roster {
		byQuiz, ok := scores[s.ID]
		if !ok || len(byQuiz) == 0 {
			continue
		}
		entries = append(entries, domain.RankingEntry{
			ParticipantID: s.ID,
			DisplayName:   displayName(s),
			Kind:          domain.ParticipantStudent,
			Score:         roundScore(meanOf(byQuiz)),
		})
	}
	return entries, nil
}

// teamEntries scores a team as the mean, over members with a score, of each member's mean.
func (a *RankingAggregator) teamEntries(ctx context.Context, scope domain.Scope) ([]domain.RankingEntry, error) {
	if _, err := a.rosters.ClassRoster(ctx, scope.ClassID); err != nil {
		return nil, err
	}
	teams, err := a.rosters.Teams(ctx, scope.ClassID)
	if err != nil {
		return nil, fmt.Errorf("load teams: %w", err)
	}
	if len(teams) == 0 {
		return []domain.RankingEntry{}, nil
	}

	everyone := make(map[string]struct{})
	for _, team := range teams {
		for _, id := range team.MemberIDs {
			everyone[id] = struct{}{}
		}
	}

	scores, err := a.studentScores(ctx, scope, sortedKeys(everyone))
	if err != nil {
		return nil, err
	}

	// team -> member -> quiz -> percentage
	perTeam := make(map[string]map[string]map[string]float64)
	for studentID, byQuiz := range scores {
		for quizID, pct := range byQuiz {
			for _, team := range applicableTeams(teams, quizID) {
				if !team.Has(studentID) {
					continue
				}
				if perTeam[team.Name] == nil {
					perTeam[team.Name] = make(map[string]map[string]float64)
				}
				if perTeam[team.Name][studentID] == nil {
					perTeam[team.Name][studentID] = make(map[string]float64)
				}
				perTeam[team.Name][studentID][quizID] = pct
			}
		}
	}

	entries := make([]domain.RankingEntry, 0, len(perTeam))
	for _, name := range sortedKeys(perTeam) {
		memberScores := perTeam[name]
		means := make(map[string]float64, len(memberScores))
		quizzes := make(map[string]struct{})
		for studentID, byQuiz := range memberScores {
			means[studentID] = meanOf(byQuiz)
			for quizID := range byQuiz {
				quizzes[quizID] = struct{}{}
			}
		}
		entries = append(entries, domain.RankingEntry{
			ParticipantID: name,
			DisplayName:   name,
			Kind:          domain.ParticipantTeam,
			Score:         roundScore(meanOf(means)),
			MemberIDs:     rosterMembers(teams, name, quizzes),
		})
	}
	return entries, nil
}

// rosterMembers lists the members of team name on the rosters in force for
// the given quizzes. A student on a class-wide roster that a quiz-specific
// one overrides is not a member for that quiz.
func rosterMembers(teams []domain.TeamRoster, name string, quizzes map[string]struct{}) []string {
	members := make(map[string]struct{})
	for quizID := range quizzes {
		for _, team := range applicableTeams(teams, quizID) {
			if team.Name != name {
				continue
			}
			for _, id := range team.MemberIDs {
				members[id] = struct{}{}
			}
		}
	}
	return sortedKeys(members)
}

func (a *RankingAggregator) experienceEntries(ctx context.Context, scope domain.Scope) ([]domain.RankingEntry, error) {
	names := make(map[string]string)
	var ids []string
	if scope.ClassID != "" {
		roster, err := a.rosters.ClassRoster(ctx, scope.ClassID)
		if err != nil {
			return nil, err
		}
		ids = make([]string, 0, len(roster))
		for _, s := range roster {
			ids = append(ids, s.ID)
			names[s.ID] = displayName(s)
		}
		if len(ids) == 0 {
			return []domain.RankingEntry{}, nil
		}
	}

	progressions, err := a.progressions.ListProgressions(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list progressions: %w", err)
	}

	entries := make([]domain.RankingEntry, 0, len(progressions))
	for _, p := range progressions {
		if p.Experience < 0 {
			return nil, fmt.Errorf("%w: student %s has %d", domain.ErrNegativeExperience, p.StudentID, p.Experience)
		}
		name, ok := names[p.StudentID]
		if !ok {
			name, err = a.lookupName(ctx, p.StudentID)
			if err != nil {
				return nil, err
			}
		}
		entries = append(entries, domain.RankingEntry{
			ParticipantID: p.StudentID,
			DisplayName:   name,
			Kind:          domain.ParticipantStudent,
			Score:         float64(p.Experience),
		})
	}
	return entries, nil
}

func (a *RankingAggregator) lookupName(ctx context.Context, studentID string) (string, error) {
	student, err := a.rosters.Student(ctx, studentID)
	if errors.Is(err, domain.ErrStudentNotFound) {
		return studentID, nil
	}
	if err != nil {
		return "", fmt.Errorf("load student %s: %w", studentID, err)
	}
	return displayName(student), nil
}

// studentScores returns student -> quiz -> percentage for the records that
// qualify for scope, restricted to studentIDs.
func (a *RankingAggregator) studentScores(ctx context.Context, scope domain.Scope, studentIDs []string) (map[string]map[string]float64, error) {
	var records []domain.ScoreRecord
	if scope.Aggregation == domain.AggregationSingleQuiz {
		recs, err := a.scores.RecordsForQuiz(ctx, scope.QuizID)
		if err != nil {
			return nil, fmt.Errorf("load records for quiz %s: %w", scope.QuizID, err)
		}
		records = recs
	} else {
		perStudent, err := a.fetchStudentRecords(ctx, studentIDs)
		if err != nil {
			return nil, err
		}
		for _, recs := range perStudent {
			records = append(records, recs...)
		}
	}

	allowed := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		allowed[id] = struct{}{}
	}

	out := make(map[string]map[string]float64)
	for _, rec := range records {
		if _, ok := allowed[rec.StudentID]; !ok || !qualifies(rec, scope) {
			continue
		}
		if err := rec.Validate(); err != nil {
			return nil, err
		}
		if out[rec.StudentID] == nil {
			out[rec.StudentID] = make(map[string]float64)
		}
		out[rec.StudentID][rec.QuizID] = rec.Percentage()
	}
	return out, nil
}

func (a *RankingAggregator) fetchStudentRecords(ctx context.Context, studentIDs []string) ([][]domain.ScoreRecord, error) {
	out := make([][]domain.ScoreRecord, len(studentIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for i, id := range studentIDs {
		i, id := i, id
		g.Go(func() error {
			recs, err := a.scores.RecordsForStudent(gctx, id)
			if err != nil {
				return fmt.Errorf("load records for student %s: %w", id, err)
			}
			out[i] = recs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func qualifies(rec domain.ScoreRecord, scope domain.Scope) bool {
	if rec.ClassID != scope.ClassID || rec.Mode != scope.Mode {
		return false
	}
	return scope.Aggregation == domain.AggregationAllQuizzes || rec.QuizID == scope.QuizID
}

// applicableTeams returns the rosters in force for quizID: quiz-specific ones
// if any exist, otherwise the class-wide ones.
func applicableTeams(teams []domain.TeamRoster, quizID string) []domain.TeamRoster {
	var specific, classWide []domain.TeamRoster
	for _, t := range teams {
		switch t.QuizID {
		case quizID:
			specific = append(specific, t)
		case "":
			classWide = append(classWide, t)
		}
	}
	if len(specific) > 0 {
		return specific
	}
	return classWide
}

// orderEntries sorts by score descending, then display name, then participant ID,
// and assigns distinct 1-based ranks. Equal scores never share a rank.
func orderEntries(entries []domain.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if entries[i].DisplayName != entries[j].DisplayName {
			return entries[i].DisplayName < entries[j].DisplayName
		}
		return entries[i].ParticipantID < entries[j].ParticipantID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

func splitPodium(scope domain.Scope, entries []domain.RankingEntry) domain.Ranking {
	n := PodiumSize
	if n > len(entries) {
		n = len(entries)
	}
	podium := make([]domain.RankingEntry, n)
	copy(podium, entries[:n])
	rest := make([]domain.RankingEntry, len(entries)-n)
	copy(rest, entries[n:])
	return domain.Ranking{Scope: scope, Podium: podium, Rest: rest}
}

func meanOf(values map[string]float64) float64 {
	if len(values) == 0 {
		return 0
	}
	// Sum in key order so float rounding does not depend on map iteration.
	sum := 0.0
	for _, k := range sortedKeys(values) {
		sum += values[k]
	}
	return sum / float64(len(values))
}

func roundScore(v float64) float64 {
	return math.Round(v*100) / 100
}

func displayName(s domain.Student) string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.ID
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package memory

import (
	"context"
	"sync"

	"gamification-engine/internal/domain"
)

// RosterStore holds class rosters and teams.
type RosterStore struct {
	mu       sync.RWMutex
	students map[string]domain.Student
	classes  map[string][]string
	teams    map[string][]domain.TeamRoster
}

func NewRosterStore() *RosterStore {
	return &RosterStore{
		students: make(map[string]domain.Student),
		classes:  make(map[string][]string),
		teams:    make(map[string][]domain.TeamRoster),
	}
}

// AddClass creates the class if needed and appends students to its roster.
func (s *RosterStore) AddClass(classID string, students ...domain.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	roster, ok := s.classes[classID]
	if !ok {
		roster = []string{}
	}
	for _, st := range students {
		s.students[st.ID] = st
		if !contains(roster, st.ID) {
			roster = append(roster, st.ID)
		}
	}
	s.classes[classID] = roster
}

// AddTeam registers a team roster for its class.
func (s *RosterStore) AddTeam(team domain.TeamRoster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	team.MemberIDs = append([]string(nil), team.MemberIDs...)
	s.teams[team.ClassID] = append(s.teams[team.ClassID], team)
}

func (s *RosterStore) ClassRoster(_ context.Context, classID string) ([]domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids, ok := s.classes[classID]
	if !ok {
		return nil, domain.ErrClassNotFound
	}
	out := make([]domain.Student, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.students[id])
	}
	return out, nil
}

func (s *RosterStore) Teams(_ context.Context, classID string) ([]domain.TeamRoster, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.TeamRoster, 0, len(s.teams[classID]))
	for _, t := range s.teams[classID] {
		t.MemberIDs = append([]string(nil), t.MemberIDs...)
		out = append(out, t)
	}
	return out, nil
}

func (s *RosterStore) Student(_ context.Context, studentID string) (domain.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.students[studentID]
	if !ok {
		return domain.Student{}, domain.ErrStudentNotFound
	}
	return st, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

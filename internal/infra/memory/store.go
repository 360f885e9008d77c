package memory

import (
	"context"
	"sort"
	"sync"

	"timed-quiz-service/internal/domain"
)

type submissionKey struct {
	team  string
	round int
}

// Store is an in-memory implementation of app.Store.
type Store struct {
	mu          sync.RWMutex
	teams       map[string]domain.Team
	submissions map[submissionKey]domain.Submission
}

func NewStore() *Store {
	return &Store{
		teams:       make(map[string]domain.Team),
		submissions: make(map[submissionKey]domain.Submission),
	}
}

func (s *Store) CreateTeam(_ context.Context, team domain.Team) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[team.Key]; ok {
		return false, nil
	}
	s.teams[team.Key] = team
	return true, nil
}

func (s *Store) GetTeam(_ context.Context, key string) (domain.Team, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	team, ok := s.teams[key]
	return team, ok, nil
}

func (s *Store) ListTeams(_ context.Context) ([]domain.Team, error) {
	s.mu.RLock()
	teams := make([]domain.Team, 0, len(s.teams))
	for _, team := range s.teams {
		teams = append(teams, team)
	}
	s.mu.RUnlock()

	sort.Slice(teams, func(i, j int) bool {
		if !teams[i].RegisteredAt.Equal(teams[j].RegisteredAt) {
			return teams[i].RegisteredAt.Before(teams[j].RegisteredAt)
		}
		return teams[i].Key < teams[j].Key
	})
	return teams, nil
}

func (s *Store) CreateSubmission(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey{team: sub.TeamKey, round: sub.Round}
	if _, ok := s.submissions[key]; ok {
		return domain.ErrDuplicate
	}
	s.submissions[key] = cloneSubmission(sub)
	return nil
}

func (s *Store) ListSubmissions(_ context.Context) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subs := make([]domain.Submission, 0, len(s.submissions))
	for _, sub := range s.submissions {
		subs = append(subs, cloneSubmission(sub))
	}
	sortByRoundThenTeam(subs)
	return subs, nil
}

func (s *Store) ListTeamSubmissions(_ context.Context, teamKey string) ([]domain.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var subs []domain.Submission
	for key, sub := range s.submissions {
		if key.team == teamKey {
			subs = append(subs, cloneSubmission(sub))
		}
	}
	sortByRoundThenTeam(subs)
	return subs, nil
}

func (s *Store) UpdateScore(_ context.Context, teamKey string, round, score int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := submissionKey{team: teamKey, round: round}
	sub, ok := s.submissions[key]
	if !ok {
		return false, nil
	}
	sub.Score = score
	s.submissions[key] = sub
	return true, nil
}

func (s *Store) DeleteTeam(_ context.Context, teamKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.teams, teamKey)
	for key := range s.submissions {
		if key.team == teamKey {
			delete(s.submissions, key)
		}
	}
	return nil
}

func cloneSubmission(sub domain.Submission) domain.Submission {
	answers := make(map[int]string, len(sub.Answers))
	for id, answer := range sub.Answers {
		answers[id] = answer
	}
	sub.Answers = answers
	return sub
}

func sortByRoundThenTeam(subs []domain.Submission) {
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Round != subs[j].Round {
			return subs[i].Round < subs[j].Round
		}
		return subs[i].TeamKey < subs[j].TeamKey
	})
}

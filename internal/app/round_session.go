package app

import (
	"sort"
	"time"

	"timed-quiz-service/internal/domain"
)

// DefaultCompetitionBudget is the shared countdown across all rounds.
const DefaultCompetitionBudget = 90 * time.Minute

// SessionState is a RoundSession lifecycle state.
type SessionState string

const (
	StateNotStarted  SessionState = "not_started"
	StateActive      SessionState = "active"
	StateSubmitted   SessionState = "submitted"
	StateAdvancing   SessionState = "advancing"
	StateAllComplete SessionState = "all_complete"
)

// SubmitMode records what ended a round.
type SubmitMode string

const (
	SubmitManual SubmitMode = "manual"
	SubmitAuto   SubmitMode = "auto"
)

// RoundSession is the server-tracked competition lifecycle of one team.
// The competition start instant is recorded once and never reset, so time spent in early
// rounds shrinks the budget left for later ones.
type RoundSession struct {
	TeamKey              string         `json:"teamKey"`
	TeamName             string         `json:"teamName"`
	IPAddress            string         `json:"ipAddress,omitempty"`
	State                SessionState   `json:"state"`
	Round                int            `json:"round"`
	NextRound            int            `json:"nextRound,omitempty"`
	CompetitionStartedAt time.Time      `json:"competitionStartedAt"`
	RoundStartedAt       time.Time      `json:"roundStartedAt"`
	Completed            []int          `json:"completed"`
	Drafts               map[int]string `json:"drafts,omitempty"`
	LastMode             SubmitMode     `json:"lastMode,omitempty"`
}

// NewRoundSession returns a session in StateNotStarted.
func NewRoundSession(teamKey, teamName string) *RoundSession {
	return &RoundSession{
		TeamKey:  teamKey,
		TeamName: teamName,
		State:    StateNotStarted,
	}
}

// Activate enters round. Resuming the round already active keeps its original start instants.
func (s *RoundSession) Activate(round, rounds int, now time.Time) error {
	if round < 1 || round > rounds {
		return domain.Validation("invalid round")
	}
	switch s.State {
	case StateActive:
		if s.Round == round {
			return nil
		}
		return domain.Conflict("round %d is still in progress", s.Round)
	case StateAllComplete:
		return domain.Conflict("all rounds already completed")
	case StateSubmitted:
		return domain.Conflict("round %d is being submitted", s.Round)
	case StateAdvancing:
		if round != s.NextRound {
			return domain.Conflict("next round is %d", s.NextRound)
		}
	}
	if s.IsCompleted(round) {
		return domain.Conflict("round %d already completed", round)
	}

	if s.CompetitionStartedAt.IsZero() {
		s.CompetitionStartedAt = now
	}
	s.Round = round
	s.NextRound = 0
	s.RoundStartedAt = now
	s.Drafts = make(map[int]string)
	s.State = StateActive
	return nil
}

// Remaining is the shared budget left at now.
func (s *RoundSession) Remaining(budget time.Duration, now time.Time) time.Duration {
	if s.CompetitionStartedAt.IsZero() {
		return budget
	}
	left := budget - now.Sub(s.CompetitionStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the shared budget has run out.
func (s *RoundSession) Expired(budget time.Duration, now time.Time) bool {
	return !s.CompetitionStartedAt.IsZero() && s.Remaining(budget, now) == 0
}

// ElapsedSeconds is the time spent in the current round, from question load to now.
func (s *RoundSession) ElapsedSeconds(now time.Time) int {
	if s.RoundStartedAt.IsZero() || now.Before(s.RoundStartedAt) {
		return 0
	}
	return int(now.Sub(s.RoundStartedAt) / time.Second)
}

// MarkSubmitted moves Active to Submitted and records the round as completed.
func (s *RoundSession) MarkSubmitted(mode SubmitMode) error {
	if s.State != StateActive {
		return domain.Conflict("no active round")
	}
	if !s.IsCompleted(s.Round) {
		s.Completed = append(s.Completed, s.Round)
		sort.Ints(s.Completed)
	}
	s.Drafts = nil
	s.LastMode = mode
	s.State = StateSubmitted
	return nil
}

// Advance picks the next round after a submission, or ends the competition.
func (s *RoundSession) Advance(rounds int) (int, error) {
	if s.State != StateSubmitted {
		return 0, domain.Conflict("nothing to advance from")
	}
	next := NextRound(s.Round, s.Completed, rounds)
	if next == 0 {
		s.State = StateAllComplete
		s.NextRound = 0
		return 0, nil
	}
	s.State = StateAdvancing
	s.NextRound = next
	return next, nil
}

// IsCompleted reports whether round was already submitted in this session.
func (s *RoundSession) IsCompleted(round int) bool {
	for _, r := range s.Completed {
		if r == round {
			return true
		}
	}
	return false
}

// NextRound scans rounds cyclically starting after current and returns the first one not
// completed, or 0 when every round is done.
func NextRound(current int, completed []int, rounds int) int {
	done := make(map[int]bool, len(completed))
	for _, r := range completed {
		done[r] = true
	}
	for i := 1; i <= rounds; i++ {
		candidate := ((current-1+i)%rounds+rounds)%rounds + 1
		if !done[candidate] {
			return candidate
		}
	}
	return 0
}

package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/metrics"
)

// SessionView is the team-facing snapshot of a RoundSession.
type SessionView struct {
	TeamName         string       `json:"teamName"`
	State            SessionState `json:"state"`
	Round            int          `json:"roundNumber"`
	NextRound        int          `json:"nextRound,omitempty"`
	CompletedRounds  []int        `json:"completedRounds"`
	RemainingSeconds int          `json:"remainingSeconds"`
}

// StartResult is returned when a round is opened or resumed.
type StartResult struct {
	Session SessionView  `json:"session"`
	Round   RoundPayload `json:"round"`
}

// SubmitOutcome describes a finished round and where the team goes next.
type SubmitOutcome struct {
	Round       int        `json:"roundNumber"`
	Score       int        `json:"score"`
	TimeTaken   int        `json:"timeTaken"`
	Mode        SubmitMode `json:"mode"`
	NextRound   int        `json:"nextRound,omitempty"`
	AllComplete bool       `json:"allComplete"`
	// Duplicate is set when the ledger already held this round; Score is then unknown.
	Duplicate bool `json:"duplicate,omitempty"`
}

// SessionService drives RoundSession transitions on the server so that scoring-relevant
// timing never depends on client clocks.
type SessionService struct {
	bank     *QuestionBank
	ledger   *SubmissionLedger
	sessions SessionRepository
	budget   time.Duration
	logger   *zap.Logger
	now      func() time.Time
	locks    keyedMutex
}

func NewSessionService(bank *QuestionBank, ledger *SubmissionLedger, sessions SessionRepository, budget time.Duration, logger *zap.Logger) *SessionService {
	return NewSessionServiceWithClock(bank, ledger, sessions, budget, logger, time.Now)
}

// NewSessionServiceWithClock is test-only for deterministic countdowns.
func NewSessionServiceWithClock(bank *QuestionBank, ledger *SubmissionLedger, sessions SessionRepository, budget time.Duration, logger *zap.Logger, now func() time.Time) *SessionService {
	if budget <= 0 {
		budget = DefaultCompetitionBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{
		bank:     bank,
		ledger:   ledger,
		sessions: sessions,
		budget:   budget,
		logger:   logger,
		now:      now,
		locks:    keyedMutex{locks: make(map[string]*sync.Mutex)},
	}
}

// Budget is the shared competition countdown.
func (s *SessionService) Budget() time.Duration {
	return s.budget
}

// Start opens round for the team, or resumes it if it is already active.
func (s *SessionService) Start(ctx context.Context, teamName string, round int, ipAddress string) (StartResult, error) {
	key, display, err := teamIdentity(teamName)
	if err != nil {
		return StartResult{}, err
	}
	unlock := s.locks.lock(key)
	defer unlock()

	session, err := s.loadOrNew(ctx, key, display)
	if err != nil {
		return StartResult{}, err
	}
	if _, err := s.expireLocked(ctx, session); err != nil {
		return StartResult{}, err
	}
	if session.Expired(s.budget, s.now()) {
		return StartResult{}, domain.Conflict("competition time is over")
	}

	payload, err := s.bank.RoundPayload(ctx, round)
	if err != nil {
		return StartResult{}, err
	}
	if err := session.Activate(round, s.bank.Rounds(), s.now()); err != nil {
		return StartResult{}, err
	}
	if ipAddress != "" {
		session.IPAddress = ipAddress
	}
	if err := s.save(ctx, session); err != nil {
		return StartResult{}, err
	}
	s.logger.Info("round started", zap.String("team", display), zap.Int("round", round))
	return StartResult{Session: s.view(session), Round: payload}, nil
}

// Status returns the team's session, auto-submitting first if the countdown already ran out.
func (s *SessionService) Status(ctx context.Context, teamName string) (SessionView, error) {
	key, display, err := teamIdentity(teamName)
	if err != nil {
		return SessionView{}, err
	}
	unlock := s.locks.lock(key)
	defer unlock()

	session, err := s.loadOrNew(ctx, key, display)
	if err != nil {
		return SessionView{}, err
	}
	if _, err := s.expireLocked(ctx, session); err != nil {
		return SessionView{}, err
	}
	return s.view(session), nil
}

// SaveDraft records an in-progress answer so that an auto-submit can include it.
func (s *SessionService) SaveDraft(ctx context.Context, teamName string, questionID int, answer string) error {
	key, _, err := teamIdentity(teamName)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(key)
	defer unlock()

	session, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return domain.StoreFailure("load session", err)
	}
	if !ok || session.State != StateActive {
		return domain.Conflict("no active round")
	}
	if session.Drafts == nil {
		session.Drafts = make(map[int]string)
	}
	session.Drafts[questionID] = answer
	return s.save(ctx, session)
}

// Submit ends the active round. A submit arriving after the countdown is recorded as auto.
func (s *SessionService) Submit(ctx context.Context, teamName string, answers map[int]string, mode SubmitMode) (SubmitOutcome, error) {
	key, _, err := teamIdentity(teamName)
	if err != nil {
		return SubmitOutcome{}, err
	}
	unlock := s.locks.lock(key)
	defer unlock()

	session, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return SubmitOutcome{}, domain.StoreFailure("load session", err)
	}
	if !ok || session.State != StateActive {
		return SubmitOutcome{}, domain.Conflict("no active round")
	}
	if session.Expired(s.budget, s.now()) {
		mode = SubmitAuto
	}
	if answers == nil {
		answers = session.Drafts
	}
	return s.submitLocked(ctx, session, answers, mode)
}

// DeleteTeam removes the team with its submissions and forgets its round session, so a team
// registered again under the same name starts with a fresh budget.
func (s *SessionService) DeleteTeam(ctx context.Context, teamName string) error {
	key := domain.TeamKey(teamName)
	if key == "" {
		return domain.Validation("team name required")
	}
	unlock := s.locks.lock(key)
	defer unlock()

	if err := s.ledger.DeleteTeam(ctx, teamName); err != nil {
		return err
	}
	if err := s.sessions.Delete(ctx, key); err != nil {
		return domain.StoreFailure("delete session", err)
	}
	return nil
}

// ExpireIfDue auto-submits the active round with its drafts once the countdown has reached
// zero. It returns nil when nothing was due.
func (s *SessionService) ExpireIfDue(ctx context.Context, teamName string) (*SubmitOutcome, error) {
	key, _, err := teamIdentity(teamName)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(key)
	defer unlock()

	session, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return nil, domain.StoreFailure("load session", err)
	}
	if !ok {
		return nil, nil
	}
	return s.expireLocked(ctx, session)
}

// Remaining reports the shared countdown for the team.
func (s *SessionService) Remaining(ctx context.Context, teamName string) (time.Duration, error) {
	key, _, err := teamIdentity(teamName)
	if err != nil {
		return 0, err
	}
	session, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return 0, domain.StoreFailure("load session", err)
	}
	if !ok {
		return s.budget, nil
	}
	return session.Remaining(s.budget, s.now()), nil
}

func (s *SessionService) expireLocked(ctx context.Context, session *RoundSession) (*SubmitOutcome, error) {
	if session.State != StateActive || !session.Expired(s.budget, s.now()) {
		return nil, nil
	}
	outcome, err := s.submitLocked(ctx, session, session.Drafts, SubmitAuto)
	if err != nil {
		return nil, err
	}
	return &outcome, nil
}

func (s *SessionService) submitLocked(ctx context.Context, session *RoundSession, answers map[int]string, mode SubmitMode) (SubmitOutcome, error) {
	questions, err := s.bank.ListForRound(ctx, session.Round)
	if err != nil {
		return SubmitOutcome{}, err
	}
	merged := make(map[int]string, len(questions)+len(answers))
	freeText := make(map[int]bool, len(questions))
	for _, q := range questions {
		merged[q.ID] = ""
		freeText[q.ID] = q.Kind == domain.KindFreeText
	}
	// multiple-choice answers must reach the ledger byte for byte
	for id, answer := range answers {
		if freeText[id] {
			answer = strings.TrimSpace(answer)
		}
		merged[id] = answer
	}

	elapsed := session.ElapsedSeconds(s.now())
	outcome := SubmitOutcome{Round: session.Round, TimeTaken: elapsed, Mode: mode}
	result, err := s.ledger.Submit(ctx, SubmitRequest{
		TeamName:  session.TeamName,
		Round:     session.Round,
		Answers:   domain.EncodeAnswers(merged),
		TimeTaken: elapsed,
		IPAddress: session.IPAddress,
	})
	switch {
	case err == nil:
		outcome.Score = result.Score
	case domain.KindOf(err) == domain.KindConflict:
		// recorded earlier through the plain submit API; the round is done either way
		outcome.Duplicate = true
	default:
		return SubmitOutcome{}, err
	}

	if err := session.MarkSubmitted(mode); err != nil {
		return SubmitOutcome{}, err
	}
	next, err := session.Advance(s.bank.Rounds())
	if err != nil {
		return SubmitOutcome{}, err
	}
	outcome.NextRound = next
	outcome.AllComplete = session.State == StateAllComplete
	if err := s.save(ctx, session); err != nil {
		return SubmitOutcome{}, err
	}

	if mode == SubmitAuto {
		metrics.RecordAutoSubmit()
	}
	s.logger.Info("round submitted",
		zap.String("team", session.TeamName),
		zap.Int("round", outcome.Round),
		zap.String("mode", string(mode)),
		zap.Int("next_round", next),
	)
	return outcome, nil
}

func (s *SessionService) loadOrNew(ctx context.Context, key, display string) (*RoundSession, error) {
	session, ok, err := s.sessions.Load(ctx, key)
	if err != nil {
		return nil, domain.StoreFailure("load session", err)
	}
	if !ok {
		session = NewRoundSession(key, display)
	}
	return session, nil
}

func (s *SessionService) save(ctx context.Context, session *RoundSession) error {
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.StoreFailure("save session", err)
	}
	return nil
}

func (s *SessionService) view(session *RoundSession) SessionView {
	completed := append([]int{}, session.Completed...)
	return SessionView{
		TeamName:         session.TeamName,
		State:            session.State,
		Round:            session.Round,
		NextRound:        session.NextRound,
		CompletedRounds:  completed,
		RemainingSeconds: int(session.Remaining(s.budget, s.now()) / time.Second),
	}
}

func teamIdentity(teamName string) (string, string, error) {
	display := strings.TrimSpace(teamName)
	if display == "" {
		return "", "", domain.Validation("team name required")
	}
	return domain.TeamKey(display), display, nil
}

// keyedMutex serialises session transitions per team.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()
	l.Lock()
	return l.Unlock
}

package app

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/metrics"
)

// SubmitRequest carries one round submission. Answers stays raw until validated.
type SubmitRequest struct {
	TeamName  string
	Round     int
	Answers   json.RawMessage
	TimeTaken int
	IPAddress string
}

// SubmitResult is returned to the team; the per-question breakdown is admin-only.
type SubmitResult struct {
	Score int `json:"score"`
}

// SubmissionLedger enforces at most one submission per (team, round) and scores it.
type SubmissionLedger struct {
	bank     *QuestionBank
	store    Store
	notifier ChangeNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewSubmissionLedger(bank *QuestionBank, store Store, notifier ChangeNotifier, logger *zap.Logger) *SubmissionLedger {
	return NewSubmissionLedgerWithClock(bank, store, notifier, logger, time.Now)
}

// NewSubmissionLedgerWithClock is test-only for deterministic timestamps.
func NewSubmissionLedgerWithClock(bank *QuestionBank, store Store, notifier ChangeNotifier, logger *zap.Logger, now func() time.Time) *SubmissionLedger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubmissionLedger{bank: bank, store: store, notifier: notifier, logger: logger, now: now}
}

// Submit validates, scores and persists a submission exactly once per (team, round).
func (l *SubmissionLedger) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	teamName := strings.TrimSpace(req.TeamName)
	if teamName == "" {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, domain.Validation("team name required")
	}
	if !l.bank.ValidRound(req.Round) {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, domain.Validation("invalid round")
	}
	answers, err := domain.ParseAnswers(req.Answers)
	if err != nil {
		metrics.RecordSubmission("invalid")
		return SubmitResult{}, domain.Validation("invalid answers format")
	}

	bank, err := l.bank.ScoringView(ctx)
	if err != nil {
		metrics.RecordSubmission("error")
		return SubmitResult{}, err
	}
	score := ScoreAnswers(bank, answers)

	timeTaken := req.TimeTaken
	if timeTaken < 0 {
		timeTaken = 0
	}
	sub := domain.Submission{
		TeamKey:          domain.TeamKey(teamName),
		TeamName:         teamName,
		Round:            req.Round,
		Answers:          answers,
		Score:            score,
		SubmittedAt:      l.now().UTC(),
		TimeTakenSeconds: timeTaken,
		IPAddress:        req.IPAddress,
	}
	if err := l.store.CreateSubmission(ctx, sub); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			metrics.RecordSubmission("duplicate")
			return SubmitResult{}, domain.Conflict("already submitted for round %d", req.Round)
		}
		metrics.RecordSubmission("error")
		return SubmitResult{}, domain.StoreFailure("create submission", err)
	}

	metrics.RecordSubmission("accepted")
	l.logger.Info("submission recorded",
		zap.String("team", teamName),
		zap.Int("round", req.Round),
		zap.Int("score", score),
		zap.Int("time_taken", timeTaken),
	)
	l.notify(ctx)
	return SubmitResult{Score: score}, nil
}

// UpdateScore overwrites the stored score. A missing submission is tolerated as a no-op.
func (l *SubmissionLedger) UpdateScore(ctx context.Context, teamName string, round, newScore int) error {
	key := domain.TeamKey(teamName)
	if key == "" {
		return domain.Validation("team name required")
	}
	if newScore < 0 {
		return domain.Validation("invalid score")
	}
	updated, err := l.store.UpdateScore(ctx, key, round, newScore)
	if err != nil {
		return domain.StoreFailure("update score", err)
	}
	if !updated {
		l.logger.Warn("score override matched no submission", zap.String("team", teamName), zap.Int("round", round))
		return nil
	}
	l.logger.Info("score overridden", zap.String("team", teamName), zap.Int("round", round), zap.Int("score", newScore))
	l.notify(ctx)
	return nil
}

// DeleteTeam removes the team and every submission it made.
func (l *SubmissionLedger) DeleteTeam(ctx context.Context, teamName string) error {
	key := domain.TeamKey(teamName)
	if key == "" {
		return domain.Validation("team name required")
	}
	if err := l.store.DeleteTeam(ctx, key); err != nil {
		return domain.StoreFailure("delete team", err)
	}
	l.logger.Info("team deleted", zap.String("team", strings.TrimSpace(teamName)))
	l.notify(ctx)
	return nil
}

func (l *SubmissionLedger) notify(ctx context.Context) {
	if l.notifier != nil {
		l.notifier.ScoresChanged(ctx)
	}
}

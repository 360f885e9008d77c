package app

import (
	"context"
	"sort"

	"timed-quiz-service/internal/domain"
)

const (
	// DefaultRounds is the number of rounds when none is configured.
	DefaultRounds = 4
	// DefaultTimerMinutes applies to rounds without a configured timer.
	DefaultTimerMinutes = 30
)

// RoundPayload is what a team receives when it opens a round.
type RoundPayload struct {
	Questions    []domain.PublicQuestion `json:"questions"`
	TimerMinutes int                     `json:"timerMinutes"`
	RoundNumber  int                     `json:"roundNumber"`
}

// QuestionBank is the read-only catalog of questions grouped by round.
type QuestionBank struct {
	catalog       CatalogRepository
	rounds        int
	fallbackTimer int
}

func NewQuestionBank(catalog CatalogRepository, rounds, fallbackTimerMinutes int) *QuestionBank {
	if rounds <= 0 {
		rounds = DefaultRounds
	}
	if fallbackTimerMinutes <= 0 {
		fallbackTimerMinutes = DefaultTimerMinutes
	}
	return &QuestionBank{catalog: catalog, rounds: rounds, fallbackTimer: fallbackTimerMinutes}
}

// Rounds is the number of rounds in the competition.
func (b *QuestionBank) Rounds() int {
	return b.rounds
}

// ValidRound reports whether round is within 1..Rounds().
func (b *QuestionBank) ValidRound(round int) bool {
	return round >= 1 && round <= b.rounds
}

// ListForRound returns the round's questions ordered by id. Unknown rounds yield an empty list.
func (b *QuestionBank) ListForRound(ctx context.Context, round int) ([]domain.Question, error) {
	bank, err := b.ScoringView(ctx)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(bank))
	for _, q := range bank {
		if q.Round == round {
			questions = append(questions, q)
		}
	}
	return questions, nil
}

// ScoringView returns the full bank, accepted answers included, ordered by id.
// Never serialize it to a team-facing response.
func (b *QuestionBank) ScoringView(ctx context.Context) ([]domain.Question, error) {
	catalog, err := b.catalog.GetCatalog(ctx)
	if err != nil {
		return nil, domain.StoreFailure("load question catalog", err)
	}
	bank := make([]domain.Question, len(catalog.Questions))
	copy(bank, catalog.Questions)
	sort.Slice(bank, func(i, j int) bool { return bank[i].ID < bank[j].ID })
	return bank, nil
}

// TimerMinutes returns the configured timer for round or the fallback.
func (b *QuestionBank) TimerMinutes(ctx context.Context, round int) (int, error) {
	catalog, err := b.catalog.GetCatalog(ctx)
	if err != nil {
		return 0, domain.StoreFailure("load round timers", err)
	}
	if minutes, ok := catalog.Timers[round]; ok && minutes > 0 {
		return minutes, nil
	}
	return b.fallbackTimer, nil
}

// RoundPayload bundles the public questions and timer for round.
func (b *QuestionBank) RoundPayload(ctx context.Context, round int) (RoundPayload, error) {
	questions, err := b.ListForRound(ctx, round)
	if err != nil {
		return RoundPayload{}, err
	}
	minutes, err := b.TimerMinutes(ctx, round)
	if err != nil {
		return RoundPayload{}, err
	}
	public := make([]domain.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, PublicView(q))
	}
	return RoundPayload{Questions: public, TimerMinutes: minutes, RoundNumber: round}, nil
}

// PublicView strips accepted answers from q.
func PublicView(q domain.Question) domain.PublicQuestion {
	var options []string
	if q.Kind == domain.KindMultipleChoice && len(q.Options) > 0 {
		options = append([]string(nil), q.Options...)
	}
	return domain.PublicQuestion{
		ID:      q.ID,
		Prompt:  q.Prompt,
		Kind:    q.Kind,
		Options: options,
		Marks:   q.Marks,
	}
}

package app_test

import (
	"context"
	"sync"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/seed"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) ScoresChanged(context.Context) {
	n.mu.Lock()
	n.calls++
	n.mu.Unlock()
}

func (n *countingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

type fixture struct {
	clock    *fakeClock
	store    *memory.Store
	bank     *app.QuestionBank
	notifier *countingNotifier
	ledger   *app.SubmissionLedger
	registry *app.TeamRegistry
	admin    *app.AdminView
	sessions *app.SessionService
}

func newFixture() *fixture {
	clock := newFakeClock()
	store := memory.NewStore()
	bank := app.NewQuestionBank(memory.NewCatalogRepository(memory.NewStaticCatalogLoader(seed.Catalog()), time.Minute), app.DefaultRounds, app.DefaultTimerMinutes)
	notifier := &countingNotifier{}
	ledger := app.NewSubmissionLedgerWithClock(bank, store, notifier, nil, clock.Now)
	return &fixture{
		clock:    clock,
		store:    store,
		bank:     bank,
		notifier: notifier,
		ledger:   ledger,
		registry: app.NewTeamRegistryWithClock(store, nil, clock.Now),
		admin:    app.NewAdminView(bank, store),
		sessions: app.NewSessionServiceWithClock(bank, ledger, memory.NewSessionStore(), 90*time.Minute, nil, clock.Now),
	}
}

// failingStore fails every call, for checking store error mapping.
type failingStore struct{ err error }

func (s failingStore) CreateTeam(context.Context, domain.Team) (bool, error) {
	return false, s.err
}

func (s failingStore) GetTeam(context.Context, string) (domain.Team, bool, error) {
	return domain.Team{}, false, s.err
}

func (s failingStore) ListTeams(context.Context) ([]domain.Team, error) {
	return nil, s.err
}

func (s failingStore) CreateSubmission(context.Context, domain.Submission) error {
	return s.err
}

func (s failingStore) ListSubmissions(context.Context) ([]domain.Submission, error) {
	return nil, s.err
}

func (s failingStore) ListTeamSubmissions(context.Context, string) ([]domain.Submission, error) {
	return nil, s.err
}

func (s failingStore) UpdateScore(context.Context, string, int, int) (bool, error) {
	return false, s.err
}

func (s failingStore) DeleteTeam(context.Context, string) error {
	return s.err
}

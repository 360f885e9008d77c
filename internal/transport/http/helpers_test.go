package http

import (
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/seed"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	*httptest.Server
	store      *memory.Store
	clock      *testClock
	scoreboard *app.Scoreboard
	sessions   *app.SessionService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}

	store := memory.NewStore()
	catalog := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(seed.Catalog()), time.Minute)
	bank := app.NewQuestionBank(catalog, app.DefaultRounds, app.DefaultTimerMinutes)
	admin := app.NewAdminView(bank, store)
	scoreboard := app.NewScoreboard(admin, nil)
	ledger := app.NewSubmissionLedgerWithClock(bank, store, scoreboard, nil, clock.Now)
	registry := app.NewTeamRegistryWithClock(store, nil, clock.Now)
	sessions := app.NewSessionServiceWithClock(bank, ledger, memory.NewSessionStore(), 90*time.Minute, nil, clock.Now)

	router := NewRouter(Handlers{
		API:   NewAPIHandler(registry, bank, ledger, sessions, admin, nil),
		Round: NewRoundWSHandler(sessions, 10*time.Millisecond, nil, nil),
		Admin: NewAdminWSHandler(scoreboard, nil, nil),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testServer{Server: server, store: store, clock: clock, scoreboard: scoreboard, sessions: sessions}
}

func (s *testServer) wsURL(path string) string {
	return "ws" + s.URL[len("http"):] + path
}

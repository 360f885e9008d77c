package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

func TestSubmitScoresAndRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	result, err := f.ledger.Submit(ctx, app.SubmitRequest{
		TeamName:  "Alpha",
		Round:     1,
		Answers:   json.RawMessage(`{"1":"High"}`),
		TimeTaken: 120,
	})
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if result.Score != 10 {
		t.Fatalf("expected score 10, got %d", result.Score)
	}

	_, err = f.ledger.Submit(ctx, app.SubmitRequest{
		TeamName:  " alpha ",
		Round:     1,
		Answers:   json.RawMessage(`{"1":"high "}`),
		TimeTaken: 60,
	})
	if domain.KindOf(err) != domain.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}

	subs, _ := f.store.ListSubmissions(ctx)
	if len(subs) != 1 || subs[0].TimeTakenSeconds != 120 || subs[0].TeamName != "Alpha" {
		t.Fatalf("expected the first submission only, got %+v", subs)
	}
	if f.notifier.count() != 1 {
		t.Fatalf("expected one notification, got %d", f.notifier.count())
	}
}

func TestSubmitValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	cases := []struct {
		name    string
		req     app.SubmitRequest
		message string
	}{
		{"blank team wins over bad round", app.SubmitRequest{TeamName: "  ", Round: 0, Answers: json.RawMessage(`[]`)}, "team name required"},
		{"bad round wins over bad answers", app.SubmitRequest{TeamName: "A", Round: 5, Answers: json.RawMessage(`[]`)}, "invalid round"},
		{"answers array", app.SubmitRequest{TeamName: "A", Round: 1, Answers: json.RawMessage(`["High"]`)}, "invalid answers format"},
		{"answers string", app.SubmitRequest{TeamName: "A", Round: 1, Answers: json.RawMessage(`"High"`)}, "invalid answers format"},
		{"non integer key", app.SubmitRequest{TeamName: "A", Round: 1, Answers: json.RawMessage(`{"one":"High"}`)}, "invalid answers format"},
		{"null value", app.SubmitRequest{TeamName: "A", Round: 1, Answers: json.RawMessage(`{"1":null}`)}, "invalid answers format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ledger.Submit(ctx, tc.req)
			if domain.KindOf(err) != domain.KindValidation || domain.PublicMessage(err) != tc.message {
				t.Fatalf("expected validation %q, got %v", tc.message, err)
			}
		})
	}
	if subs, _ := f.store.ListSubmissions(ctx); len(subs) != 0 {
		t.Fatalf("invalid submissions must not be stored, got %d", len(subs))
	}
}

func TestSubmitScoresAgainstWholeBank(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	// round 1 submission that also carries a round 3 answer
	result, err := f.ledger.Submit(ctx, app.SubmitRequest{
		TeamName: "Alpha",
		Round:    1,
		Answers:  json.RawMessage(`{"1":"high","2":"PLATINUM","8":"starvation","99":"x"}`),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Score != 30 {
		t.Fatalf("expected 30, got %d", result.Score)
	}
}

func TestSubmitClampsNegativeTime(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.ledger.Submit(ctx, app.SubmitRequest{TeamName: "A", Round: 2, Answers: json.RawMessage(`{}`), TimeTaken: -5}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	subs, _ := f.store.ListSubmissions(ctx)
	if subs[0].TimeTakenSeconds != 0 || !subs[0].SubmittedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected stored submission %+v", subs[0])
	}
}

func TestConcurrentSubmitsStoreOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted, conflicts := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.ledger.Submit(ctx, app.SubmitRequest{TeamName: "Race", Round: 3, Answers: json.RawMessage(`{"5":"srtf"}`)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				accepted++
			case domain.KindOf(err) == domain.KindConflict:
				conflicts++
			}
		}()
	}
	wg.Wait()
	if accepted != 1 || conflicts != 15 {
		t.Fatalf("expected 1 accepted and 15 conflicts, got %d/%d", accepted, conflicts)
	}
}

func TestUpdateScoreOverridesOnlyScore(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _ = f.ledger.Submit(ctx, app.SubmitRequest{TeamName: "Alpha", Round: 1, Answers: json.RawMessage(`{"1":"High"}`), TimeTaken: 120})
	before, _ := f.store.ListSubmissions(ctx)

	f.clock.Advance(time.Hour)
	if err := f.ledger.UpdateScore(ctx, "ALPHA", 1, 5); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := f.store.ListSubmissions(ctx)
	if after[0].Score != 5 || after[0].Answers[1] != "High" || !after[0].SubmittedAt.Equal(before[0].SubmittedAt) {
		t.Fatalf("unexpected submission after override %+v", after[0])
	}

	if err := f.ledger.UpdateScore(ctx, "Ghost", 1, 5); err != nil {
		t.Fatalf("missing submission should be a no-op, got %v", err)
	}
	if err := f.ledger.UpdateScore(ctx, "Alpha", 1, -1); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation for negative score, got %v", err)
	}
	if err := f.ledger.UpdateScore(ctx, " ", 1, 1); domain.KindOf(err) != domain.KindValidation {
		t.Fatalf("expected validation for blank team, got %v", err)
	}
}

func TestDeleteTeamRemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _ = f.registry.Register(ctx, "Alpha", "")
	_, _ = f.registry.Register(ctx, "Beta", "")
	for round := 1; round <= 2; round++ {
		_, _ = f.ledger.Submit(ctx, app.SubmitRequest{TeamName: "Alpha", Round: round, Answers: json.RawMessage(`{}`)})
	}
	_, _ = f.ledger.Submit(ctx, app.SubmitRequest{TeamName: "Beta", Round: 1, Answers: json.RawMessage(`{}`)})

	if err := f.ledger.DeleteTeam(ctx, "alpha"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snapshot, err := f.admin.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, team := range snapshot.Teams {
		if team.Key == "alpha" {
			t.Fatalf("team alpha still present")
		}
	}
	for _, sub := range snapshot.Submissions {
		if sub.TeamKey == "alpha" {
			t.Fatalf("submission of alpha still present: %+v", sub)
		}
	}
	if len(snapshot.Teams) != 1 || len(snapshot.Submissions) != 1 {
		t.Fatalf("expected beta to survive, got %d teams %d submissions", len(snapshot.Teams), len(snapshot.Submissions))
	}
}

func TestLedgerMasksStoreFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ledger := app.NewSubmissionLedger(f.bank, failingStore{err: errors.New("connection refused")}, nil, nil)

	_, err := ledger.Submit(ctx, app.SubmitRequest{TeamName: "A", Round: 1, Answers: json.RawMessage(`{}`)})
	if domain.KindOf(err) != domain.KindStore {
		t.Fatalf("expected store error, got %v", err)
	}
	if domain.PublicMessage(err) != "Server error" {
		t.Fatalf("store details leaked: %q", domain.PublicMessage(err))
	}
}

package app_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
)

func submit(t *testing.T, f *fixture, team string, round int, answers string, timeTaken int) {
	t.Helper()
	_, err := f.ledger.Submit(context.Background(), app.SubmitRequest{
		TeamName:  team,
		Round:     round,
		Answers:   json.RawMessage(answers),
		TimeTaken: timeTaken,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Second)
}

func TestSnapshotOrdersSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _ = f.registry.Register(ctx, "Alpha", "")
	submit(t, f, "Alpha", 2, `{}`, 10)
	submit(t, f, "Beta", 1, `{}`, 10)
	submit(t, f, "Gamma", 1, `{"1":"high"}`, 10)
	submit(t, f, "Alpha", 1, `{}`, 10)

	snapshot, err := f.admin.Snapshot(ctx)
	require.NoError(t, err)

	var order []string
	for _, sub := range snapshot.Submissions {
		order = append(order, sub.TeamName)
	}
	assert.Equal(t, []string{"Gamma", "Beta", "Alpha", "Alpha"}, order)
	assert.Equal(t, 2, snapshot.Submissions[3].Round)
	assert.Len(t, snapshot.Teams, 1)
	require.Len(t, snapshot.Questions, 10)

	assert.Equal(t, []string{"High", "high"}, snapshot.Questions[0].CorrectAnswer)
	assert.Equal(t, "hihihi", snapshot.Questions[3].CorrectAnswer)
}

func TestSnapshotIsNeverNil(t *testing.T) {
	f := newFixture()
	snapshot, err := f.admin.Snapshot(context.Background())
	require.NoError(t, err)

	raw, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"submissions":[]`)
	assert.Contains(t, string(raw), `"teams":[]`)
}

func TestLeaderboardRanking(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	for _, name := range []string{"Delta", "Alpha", "Bravo", "Charlie"} {
		_, _ = f.registry.Register(ctx, name, "")
	}
	submit(t, f, "Alpha", 1, `{"1":"High"}`, 300)
	submit(t, f, "Alpha", 2, `{}`, 100)
	submit(t, f, "Bravo", 1, `{"1":"High"}`, 200)
	submit(t, f, "Charlie", 1, `{"1":"High","2":"platinum"}`, 900)
	submit(t, f, "Walk In", 3, `{"5":"srtf"}`, 200)

	lb, err := f.admin.Leaderboard(ctx)
	require.NoError(t, err)

	var names []string
	for _, entry := range lb.Entries {
		names = append(names, entry.TeamName)
	}
	// Bravo and Walk In tie on score and time, so name decides.
	assert.Equal(t, []string{"Charlie", "Bravo", "Walk In", "Alpha", "Delta"}, names)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, 5, lb.Entries[4].Rank)

	alpha := lb.Entries[3]
	assert.Equal(t, map[int]int{1: 10, 2: 0}, alpha.RoundScores)
	assert.Equal(t, 400, alpha.TotalTimeTaken)
	assert.Empty(t, lb.Entries[4].RoundScores)
}

func TestLeaderboardReflectsOverride(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	submit(t, f, "Alpha", 1, `{"1":"High"}`, 100)
	submit(t, f, "Bravo", 1, `{}`, 100)

	require.NoError(t, f.ledger.UpdateScore(ctx, "bravo", 1, 50))
	lb, err := f.admin.Leaderboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bravo", lb.Entries[0].TeamName)
	assert.Equal(t, 50, lb.Entries[0].TotalScore)
}

func TestBreakdownGradesEachQuestion(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	submit(t, f, "Alpha", 3, `{"5":"SRTF","6":"3,4 ms","8":"hunger"}`, 120)

	breakdown, err := f.admin.Breakdown(ctx, " ALPHA ", 3)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", breakdown.TeamName)
	assert.Equal(t, 20, breakdown.Score)
	require.Len(t, breakdown.Rows, 4)

	awarded := map[int]int{}
	for _, row := range breakdown.Rows {
		awarded[row.QuestionID] = row.Awarded
	}
	assert.Equal(t, map[int]int{5: 10, 6: 10, 7: 0, 8: 0}, awarded)
	assert.Equal(t, "", breakdown.Rows[2].Answer)

	_, err = f.admin.Breakdown(ctx, "Alpha", 1)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	_, err = f.admin.Breakdown(ctx, "", 1)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestWriteCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	submit(t, f, "Alpha", 1, `{"1":"High"}`, 65)
	submit(t, f, "Alpha", 3, `{}`, 60)

	var buf bytes.Buffer
	require.NoError(t, f.admin.WriteCSV(ctx, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Rank", "Team Name", "Round 1", "Round 2", "Round 3", "Round 4", "Total Score", "Total Time"}, records[0])
	assert.Equal(t, []string{"1", "Alpha", "10", "-", "0", "-", "10", "2m 5s"}, records[1])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m 0s", app.FormatDuration(0))
	assert.Equal(t, "0m 0s", app.FormatDuration(-3))
	assert.Equal(t, "1m 5s", app.FormatDuration(65))
	assert.Equal(t, "90m 0s", app.FormatDuration(5400))
}

package app

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"timed-quiz-service/internal/domain"
)

// AdminQuestion exposes accepted answers: a string for mcq, a list for free text.
type AdminQuestion struct {
	ID            int                 `json:"id"`
	Prompt        string              `json:"question"`
	Kind          domain.QuestionKind `json:"type"`
	CorrectAnswer any                 `json:"correctAnswer"`
	Marks         int                 `json:"marks"`
	Round         int                 `json:"roundNumber"`
}

// AdminSnapshot is the full admin read: every submission, team and question.
type AdminSnapshot struct {
	Submissions []domain.Submission `json:"submissions"`
	Teams       []domain.Team       `json:"teams"`
	Questions   []AdminQuestion     `json:"questions"`
}

// LeaderboardEntry aggregates one team across rounds.
type LeaderboardEntry struct {
	Rank           int         `json:"rank"`
	TeamName       string      `json:"teamName"`
	RoundScores    map[int]int `json:"rounds"`
	TotalScore     int         `json:"totalScore"`
	TotalTimeTaken int         `json:"totalTimeTaken"`
}

// Leaderboard is the ranked scoreboard.
type Leaderboard struct {
	Entries   []LeaderboardEntry `json:"entries"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// BreakdownRow grades one question of a stored submission.
type BreakdownRow struct {
	QuestionID      int                 `json:"questionId"`
	Prompt          string              `json:"question"`
	Kind            domain.QuestionKind `json:"type"`
	Answer          string              `json:"answer"`
	AcceptedAnswers []string            `json:"acceptedAnswers"`
	Correct         bool                `json:"correct"`
	Marks           int                 `json:"marks"`
	Awarded         int                 `json:"awarded"`
}

// Breakdown is the per-question view of one submission, rebuilt read-only with the matcher.
type Breakdown struct {
	TeamName    string         `json:"teamName"`
	Round       int            `json:"roundNumber"`
	Score       int            `json:"score"`
	TimeTaken   int            `json:"timeTaken"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Rows        []BreakdownRow `json:"rows"`
}

// AdminView aggregates teams and submissions for the reporting surface.
type AdminView struct {
	bank  *QuestionBank
	store Store
	now   func() time.Time
}

func NewAdminView(bank *QuestionBank, store Store) *AdminView {
	return &AdminView{bank: bank, store: store, now: time.Now}
}

// Snapshot lists submissions ordered by round, then score descending, then submission time.
func (a *AdminView) Snapshot(ctx context.Context) (AdminSnapshot, error) {
	subs, err := a.store.ListSubmissions(ctx)
	if err != nil {
		return AdminSnapshot{}, domain.StoreFailure("list submissions", err)
	}
	teams, err := a.store.ListTeams(ctx)
	if err != nil {
		return AdminSnapshot{}, domain.StoreFailure("list teams", err)
	}
	bank, err := a.bank.ScoringView(ctx)
	if err != nil {
		return AdminSnapshot{}, err
	}

	sortSubmissions(subs)
	questions := make([]AdminQuestion, 0, len(bank))
	for _, q := range bank {
		var correct any = append([]string{}, q.AcceptedAnswers...)
		if q.Kind == domain.KindMultipleChoice && len(q.AcceptedAnswers) > 0 {
			correct = q.AcceptedAnswers[0]
		}
		questions = append(questions, AdminQuestion{
			ID:            q.ID,
			Prompt:        q.Prompt,
			Kind:          q.Kind,
			CorrectAnswer: correct,
			Marks:         q.Marks,
			Round:         q.Round,
		})
	}
	if subs == nil {
		subs = []domain.Submission{}
	}
	if teams == nil {
		teams = []domain.Team{}
	}
	return AdminSnapshot{Submissions: subs, Teams: teams, Questions: questions}, nil
}

// Leaderboard ranks teams by total score, then total time, then name.
// Teams that submitted without registering are included.
func (a *AdminView) Leaderboard(ctx context.Context) (Leaderboard, error) {
	subs, err := a.store.ListSubmissions(ctx)
	if err != nil {
		return Leaderboard{}, domain.StoreFailure("list submissions", err)
	}
	teams, err := a.store.ListTeams(ctx)
	if err != nil {
		return Leaderboard{}, domain.StoreFailure("list teams", err)
	}

	byKey := make(map[string]*LeaderboardEntry, len(teams))
	order := make([]string, 0, len(teams))
	for _, team := range teams {
		byKey[team.Key] = &LeaderboardEntry{TeamName: team.Name, RoundScores: map[int]int{}}
		order = append(order, team.Key)
	}
	for _, sub := range subs {
		entry, ok := byKey[sub.TeamKey]
		if !ok {
			entry = &LeaderboardEntry{TeamName: sub.TeamName, RoundScores: map[int]int{}}
			byKey[sub.TeamKey] = entry
			order = append(order, sub.TeamKey)
		}
		entry.RoundScores[sub.Round] = sub.Score
		entry.TotalScore += sub.Score
		entry.TotalTimeTaken += sub.TimeTakenSeconds
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for _, key := range order {
		entries = append(entries, *byKey[key])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		if entries[i].TotalTimeTaken != entries[j].TotalTimeTaken {
			return entries[i].TotalTimeTaken < entries[j].TotalTimeTaken
		}
		return entries[i].TeamName < entries[j].TeamName
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return Leaderboard{Entries: entries, UpdatedAt: a.now().UTC()}, nil
}

// Breakdown grades each question of the team's round submission.
func (a *AdminView) Breakdown(ctx context.Context, teamName string, round int) (Breakdown, error) {
	key := domain.TeamKey(teamName)
	if key == "" {
		return Breakdown{}, domain.Validation("team name required")
	}
	subs, err := a.store.ListTeamSubmissions(ctx, key)
	if err != nil {
		return Breakdown{}, domain.StoreFailure("list team submissions", err)
	}
	var sub *domain.Submission
	for i := range subs {
		if subs[i].Round == round {
			sub = &subs[i]
			break
		}
	}
	if sub == nil {
		return Breakdown{}, domain.NotFound("submission not found")
	}

	questions, err := a.bank.ListForRound(ctx, round)
	if err != nil {
		return Breakdown{}, err
	}
	rows := make([]BreakdownRow, 0, len(questions))
	for _, q := range questions {
		answer := sub.Answers[q.ID]
		correct := IsCorrect(answer, q)
		awarded := 0
		if correct {
			awarded = q.Marks
		}
		rows = append(rows, BreakdownRow{
			QuestionID:      q.ID,
			Prompt:          q.Prompt,
			Kind:            q.Kind,
			Answer:          answer,
			AcceptedAnswers: append([]string{}, q.AcceptedAnswers...),
			Correct:         correct,
			Marks:           q.Marks,
			Awarded:         awarded,
		})
	}
	return Breakdown{
		TeamName:    sub.TeamName,
		Round:       sub.Round,
		Score:       sub.Score,
		TimeTaken:   sub.TimeTakenSeconds,
		SubmittedAt: sub.SubmittedAt,
		Rows:        rows,
	}, nil
}

// WriteCSV exports the leaderboard with one score column per round.
func (a *AdminView) WriteCSV(ctx context.Context, w io.Writer) error {
	lb, err := a.Leaderboard(ctx)
	if err != nil {
		return err
	}
	rounds := a.bank.Rounds()

	out := csv.NewWriter(w)
	header := []string{"Rank", "Team Name"}
	for r := 1; r <= rounds; r++ {
		header = append(header, fmt.Sprintf("Round %d", r))
	}
	header = append(header, "Total Score", "Total Time")
	if err := out.Write(header); err != nil {
		return err
	}
	for _, entry := range lb.Entries {
		record := []string{strconv.Itoa(entry.Rank), entry.TeamName}
		for r := 1; r <= rounds; r++ {
			score, ok := entry.RoundScores[r]
			if !ok {
				record = append(record, "-")
				continue
			}
			record = append(record, strconv.Itoa(score))
		}
		record = append(record, strconv.Itoa(entry.TotalScore), FormatDuration(entry.TotalTimeTaken))
		if err := out.Write(record); err != nil {
			return err
		}
	}
	out.Flush()
	return out.Error()
}

// FormatDuration renders seconds as "Xm Ys".
func FormatDuration(seconds int) string {
	if seconds <= 0 {
		return "0m 0s"
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}

func sortSubmissions(subs []domain.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].Round != subs[j].Round {
			return subs[i].Round < subs[j].Round
		}
		if subs[i].Score != subs[j].Score {
			return subs[i].Score > subs[j].Score
		}
		return subs[i].SubmittedAt.Before(subs[j].SubmittedAt)
	})
}

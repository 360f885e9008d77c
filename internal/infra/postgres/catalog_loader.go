package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"timed-quiz-service/internal/domain"
)

// CatalogLoader loads questions and round timers from Postgres.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

func (l *CatalogLoader) LoadCatalog(ctx context.Context) (domain.Catalog, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, round_number, prompt, kind, options, correct_answer, marks FROM questions ORDER BY id`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	catalog := domain.Catalog{Timers: make(map[int]int)}
	for rows.Next() {
		var (
			q                domain.Question
			kind             string
			options, correct []byte
		)
		if err := rows.Scan(&q.ID, &q.Round, &q.Prompt, &kind, &options, &correct, &q.Marks); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan question: %w", err)
		}
		q.Kind = domain.QuestionKind(kind)
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return domain.Catalog{}, fmt.Errorf("unmarshal options of question %d: %w", q.ID, err)
			}
		}
		accepted, err := decodeCorrectAnswer(correct)
		if err != nil {
			return domain.Catalog{}, fmt.Errorf("unmarshal correct answer of question %d: %w", q.ID, err)
		}
		q.AcceptedAnswers = accepted
		catalog.Questions = append(catalog.Questions, q)
	}
	if err := rows.Err(); err != nil {
		return domain.Catalog{}, fmt.Errorf("load questions: %w", err)
	}

	timerRows, err := l.pool.Query(ctx, `SELECT round_number, timer_minutes FROM round_timers`)
	if err != nil {
		return domain.Catalog{}, fmt.Errorf("load round timers: %w", err)
	}
	defer timerRows.Close()
	for timerRows.Next() {
		var round, minutes int
		if err := timerRows.Scan(&round, &minutes); err != nil {
			return domain.Catalog{}, fmt.Errorf("scan round timer: %w", err)
		}
		catalog.Timers[round] = minutes
	}
	return catalog, timerRows.Err()
}

// decodeCorrectAnswer accepts a single JSON string (mcq) or an array of strings (free text).
func decodeCorrectAnswer(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, err
	}
	return many, nil
}

// encodeCorrectAnswer is the inverse of decodeCorrectAnswer.
func encodeCorrectAnswer(q domain.Question) (json.RawMessage, error) {
	if q.Kind == domain.KindMultipleChoice && len(q.AcceptedAnswers) > 0 {
		return json.Marshal(q.AcceptedAnswers[0])
	}
	accepted := q.AcceptedAnswers
	if accepted == nil {
		accepted = []string{}
	}
	return json.Marshal(accepted)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/uptrace/bun"

	"timed-quiz-service/internal/domain"
)

type questionModel struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int             `bun:"id,pk"`
	Round         int             `bun:"round_number,notnull"`
	Prompt        string          `bun:"prompt,notnull"`
	Kind          string          `bun:"kind,notnull"`
	Options       []string        `bun:"options,type:jsonb,notnull"`
	CorrectAnswer json.RawMessage `bun:"correct_answer,type:jsonb,notnull"`
	Marks         int             `bun:"marks,notnull"`
}

type roundTimerModel struct {
	bun.BaseModel `bun:"table:round_timers"`

	Round   int `bun:"round_number,pk"`
	Minutes int `bun:"timer_minutes,notnull"`
}

// SeedCatalog writes the catalog into an empty questions table. A table that already holds
// questions is left untouched and false is returned.
func SeedCatalog(ctx context.Context, db *bun.DB, catalog domain.Catalog) (bool, error) {
	count, err := db.NewSelect().Model((*questionModel)(nil)).Count(ctx)
	if err != nil {
		return false, fmt.Errorf("count questions: %w", err)
	}
	if count > 0 {
		return false, nil
	}

	questions := make([]questionModel, 0, len(catalog.Questions))
	for _, q := range catalog.Questions {
		correct, err := encodeCorrectAnswer(q)
		if err != nil {
			return false, fmt.Errorf("encode question %d: %w", q.ID, err)
		}
		options := q.Options
		if options == nil {
			options = []string{}
		}
		questions = append(questions, questionModel{
			ID:            q.ID,
			Round:         q.Round,
			Prompt:        q.Prompt,
			Kind:          string(q.Kind),
			Options:       options,
			CorrectAnswer: correct,
			Marks:         q.Marks,
		})
	}
	timers := make([]roundTimerModel, 0, len(catalog.Timers))
	for round, minutes := range catalog.Timers {
		timers = append(timers, roundTimerModel{Round: round, Minutes: minutes})
	}

	err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(questions) > 0 {
			if _, err := tx.NewInsert().Model(&questions).On("CONFLICT (id) DO NOTHING").Exec(ctx); err != nil {
				return fmt.Errorf("insert questions: %w", err)
			}
		}
		if len(timers) > 0 {
			if _, err := tx.NewInsert().Model(&timers).On("CONFLICT (round_number) DO UPDATE").Set("timer_minutes = EXCLUDED.timer_minutes").Exec(ctx); err != nil {
				return fmt.Errorf("insert round timers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

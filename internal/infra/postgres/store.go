package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"timed-quiz-service/internal/domain"
)

type teamModel struct {
	bun.BaseModel `bun:"table:teams"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Key          string    `bun:"team_key,notnull"`
	Name         string    `bun:"team_name,notnull"`
	RegisteredAt time.Time `bun:"registered_at,notnull"`
	IPAddress    string    `bun:"ip_address,notnull"`
}

type submissionModel struct {
	bun.BaseModel `bun:"table:submissions"`

	ID          int64          `bun:"id,pk,autoincrement"`
	TeamKey     string         `bun:"team_key,notnull"`
	TeamName    string         `bun:"team_name,notnull"`
	Round       int            `bun:"round_number,notnull"`
	Answers     map[int]string `bun:"answers,type:jsonb,notnull"`
	Score       int            `bun:"score,notnull"`
	SubmittedAt time.Time      `bun:"submitted_at,notnull"`
	TimeTaken   int            `bun:"time_taken,notnull"`
	IPAddress   string         `bun:"ip_address,notnull"`
}

// Store is the Postgres implementation of app.Store. Uniqueness of team keys and of
// (team, round) submissions is enforced by table constraints.
type Store struct {
	db *bun.DB
}

func NewStore(db *bun.DB) *Store {
	return &Store{db: db}
}

// OpenDB opens a bun handle over the pgdriver connector.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func (s *Store) CreateTeam(ctx context.Context, team domain.Team) (bool, error) {
	model := &teamModel{
		Key:          team.Key,
		Name:         team.Name,
		RegisteredAt: team.RegisteredAt.UTC(),
		IPAddress:    team.IPAddress,
	}
	res, err := s.db.NewInsert().Model(model).On("CONFLICT (team_key) DO NOTHING").Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("insert team: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) GetTeam(ctx context.Context, key string) (domain.Team, bool, error) {
	var model teamModel
	err := s.db.NewSelect().Model(&model).Where("team_key = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Team{}, false, nil
	}
	if err != nil {
		return domain.Team{}, false, fmt.Errorf("select team: %w", err)
	}
	return model.toDomain(), true, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	var models []teamModel
	if err := s.db.NewSelect().Model(&models).Order("registered_at ASC", "id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}
	teams := make([]domain.Team, 0, len(models))
	for _, m := range models {
		teams = append(teams, m.toDomain())
	}
	return teams, nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	answers := sub.Answers
	if answers == nil {
		answers = map[int]string{}
	}
	model := &submissionModel{
		TeamKey:     sub.TeamKey,
		TeamName:    sub.TeamName,
		Round:       sub.Round,
		Answers:     answers,
		Score:       sub.Score,
		SubmittedAt: sub.SubmittedAt.UTC(),
		TimeTaken:   sub.TimeTakenSeconds,
		IPAddress:   sub.IPAddress,
	}
	res, err := s.db.NewInsert().Model(model).On("CONFLICT (team_key, round_number) DO NOTHING").Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("insert submission: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	var models []submissionModel
	if err := s.db.NewSelect().Model(&models).Order("round_number ASC", "team_key ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select submissions: %w", err)
	}
	return submissionsToDomain(models), nil
}

func (s *Store) ListTeamSubmissions(ctx context.Context, teamKey string) ([]domain.Submission, error) {
	var models []submissionModel
	err := s.db.NewSelect().
		Model(&models).
		Where("team_key = ?", teamKey).
		Order("round_number ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select team submissions: %w", err)
	}
	return submissionsToDomain(models), nil
}

func (s *Store) UpdateScore(ctx context.Context, teamKey string, round, score int) (bool, error) {
	res, err := s.db.NewUpdate().
		Model((*submissionModel)(nil)).
		Set("score = ?", score).
		Where("team_key = ?", teamKey).
		Where("round_number = ?", round).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update score: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) DeleteTeam(ctx context.Context, teamKey string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*submissionModel)(nil)).Where("team_key = ?", teamKey).Exec(ctx); err != nil {
			return fmt.Errorf("delete submissions: %w", err)
		}
		if _, err := tx.NewDelete().Model((*teamModel)(nil)).Where("team_key = ?", teamKey).Exec(ctx); err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		return nil
	})
}

func (m teamModel) toDomain() domain.Team {
	return domain.Team{
		Key:          m.Key,
		Name:         m.Name,
		RegisteredAt: m.RegisteredAt,
		IPAddress:    m.IPAddress,
	}
}

func submissionsToDomain(models []submissionModel) []domain.Submission {
	subs := make([]domain.Submission, 0, len(models))
	for _, m := range models {
		answers := m.Answers
		if answers == nil {
			answers = map[int]string{}
		}
		subs = append(subs, domain.Submission{
			TeamKey:          m.TeamKey,
			TeamName:         m.TeamName,
			Round:            m.Round,
			Answers:          answers,
			Score:            m.Score,
			SubmittedAt:      m.SubmittedAt,
			TimeTakenSeconds: m.TimeTaken,
			IPAddress:        m.IPAddress,
		})
	}
	return subs
}

func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	return errors.As(err, &pgErr) && pgErr.Field('C') == "23505"
}

package app

import (
	"context"

	"timed-quiz-service/internal/domain"
)

// CatalogRepository loads the question bank (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// TeamRepository persists registered teams keyed by domain.TeamKey.
type TeamRepository interface {
	// CreateTeam inserts the team if its key is free and reports whether it did.
	CreateTeam(ctx context.Context, team domain.Team) (bool, error)
	GetTeam(ctx context.Context, key string) (domain.Team, bool, error)
	// ListTeams returns teams ordered by registration time.
	ListTeams(ctx context.Context) ([]domain.Team, error)
}

// SubmissionRepository persists submissions keyed by (team key, round).
type SubmissionRepository interface {
	// CreateSubmission inserts atomically and returns domain.ErrDuplicate when the key is taken.
	CreateSubmission(ctx context.Context, sub domain.Submission) error
	ListSubmissions(ctx context.Context) ([]domain.Submission, error)
	ListTeamSubmissions(ctx context.Context, teamKey string) ([]domain.Submission, error)
	// UpdateScore overwrites the score only and reports whether a row matched.
	UpdateScore(ctx context.Context, teamKey string, round, score int) (bool, error)
}

// Store is the persistence contract shared by the registry, the ledger and the admin view.
type Store interface {
	TeamRepository
	SubmissionRepository
	// DeleteTeam removes the team and all its submissions as one atomic step.
	DeleteTeam(ctx context.Context, teamKey string) error
}

// SessionRepository abstracts where round sessions live (in-memory, Redis).
type SessionRepository interface {
	Load(ctx context.Context, teamKey string) (*RoundSession, bool, error)
	Save(ctx context.Context, session *RoundSession) error
	Delete(ctx context.Context, teamKey string) error
}

// ChangeNotifier is told whenever stored scores change.
type ChangeNotifier interface {
	ScoresChanged(ctx context.Context)
}

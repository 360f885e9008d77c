package app

import (
	"context"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/metrics"
)

// RegisterResult reports whether the name was already taken.
type RegisterResult struct {
	AlreadyExisted bool
}

// TeamStatus is what a returning team needs to resume the competition.
type TeamStatus struct {
	Exists          bool  `json:"teamExists"`
	CompletedRounds []int `json:"completedRounds"`
}

// TeamRegistry tracks registered teams.
type TeamRegistry struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewTeamRegistry(store Store, logger *zap.Logger) *TeamRegistry {
	return NewTeamRegistryWithClock(store, logger, time.Now)
}

// NewTeamRegistryWithClock is test-only for deterministic timestamps.
func NewTeamRegistryWithClock(store Store, logger *zap.Logger, now func() time.Time) *TeamRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeamRegistry{store: store, logger: logger, now: now}
}

// Register creates the team on first sight. Registering an existing name is a successful no-op.
func (r *TeamRegistry) Register(ctx context.Context, name, ipAddress string) (RegisterResult, error) {
	display := strings.TrimSpace(name)
	if display == "" {
		return RegisterResult{}, domain.Validation("team name required")
	}

	created, err := r.store.CreateTeam(ctx, domain.Team{
		Key:          domain.TeamKey(display),
		Name:         display,
		RegisteredAt: r.now().UTC(),
		IPAddress:    ipAddress,
	})
	if err != nil {
		return RegisterResult{}, domain.StoreFailure("create team", err)
	}
	metrics.RecordRegistration(created)
	if created {
		r.logger.Info("team registered", zap.String("team", display))
	}
	return RegisterResult{AlreadyExisted: !created}, nil
}

// Get looks a team up by any casing/whitespace variant of its name.
func (r *TeamRegistry) Get(ctx context.Context, name string) (domain.Team, bool, error) {
	key := domain.TeamKey(name)
	if key == "" {
		return domain.Team{}, false, nil
	}
	team, ok, err := r.store.GetTeam(ctx, key)
	if err != nil {
		return domain.Team{}, false, domain.StoreFailure("get team", err)
	}
	return team, ok, nil
}

// ListAll returns every team ordered by registration time.
func (r *TeamRegistry) ListAll(ctx context.Context) ([]domain.Team, error) {
	teams, err := r.store.ListTeams(ctx)
	if err != nil {
		return nil, domain.StoreFailure("list teams", err)
	}
	return teams, nil
}

// Status reports whether the team exists and which rounds it already submitted.
func (r *TeamRegistry) Status(ctx context.Context, name string) (TeamStatus, error) {
	key := domain.TeamKey(name)
	if key == "" {
		return TeamStatus{}, domain.Validation("team name required")
	}
	_, exists, err := r.store.GetTeam(ctx, key)
	if err != nil {
		return TeamStatus{}, domain.StoreFailure("get team", err)
	}
	subs, err := r.store.ListTeamSubmissions(ctx, key)
	if err != nil {
		return TeamStatus{}, domain.StoreFailure("list team submissions", err)
	}
	rounds := make([]int, 0, len(subs))
	for _, sub := range subs {
		rounds = append(rounds, sub.Round)
	}
	sort.Ints(rounds)
	return TeamStatus{Exists: exists, CompletedRounds: rounds}, nil
}

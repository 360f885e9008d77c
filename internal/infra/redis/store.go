package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/domain"
)

const (
	teamsIndexKey       = "teams"
	submissionsIndexKey = "submissions"
)

// Each script checks and writes in one round trip so concurrent callers cannot interleave.
var (
	createTeamScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'name', ARGV[1], 'registered_at', ARGV[2], 'ip', ARGV[3])
redis.call('ZADD', KEYS[2], ARGV[4], ARGV[5])
return 1
`)

	createSubmissionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
redis.call('HSET', KEYS[1], 'data', ARGV[1], 'score', ARGV[2])
redis.call('SADD', KEYS[2], KEYS[1])
redis.call('SADD', KEYS[3], ARGV[3])
return 1
`)

	updateScoreScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'score', ARGV[1])
return 1
`)

	deleteTeamScript = redis.NewScript(`
local rounds = redis.call('SMEMBERS', KEYS[2])
for _, round in ipairs(rounds) do
  local key = ARGV[2] .. round
  redis.call('DEL', key)
  redis.call('SREM', KEYS[4], key)
end
redis.call('DEL', KEYS[1], KEYS[2])
redis.call('ZREM', KEYS[3], ARGV[1])
return 1
`)
)

// Store is a Redis implementation of app.Store.
// Teams live in hashes indexed by a registration-time sorted set. A submission's answers are
// written once into its "data" field; admin overrides only touch the separate "score" field.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

type submissionRecord struct {
	TeamKey     string         `json:"teamKey"`
	TeamName    string         `json:"teamName"`
	Round       int            `json:"round"`
	Answers     map[int]string `json:"answers"`
	Score       int            `json:"score"`
	SubmittedAt time.Time      `json:"submittedAt"`
	TimeTaken   int            `json:"timeTaken"`
	IPAddress   string         `json:"ipAddress,omitempty"`
}

func (s *Store) CreateTeam(ctx context.Context, team domain.Team) (bool, error) {
	created, err := createTeamScript.Run(ctx, s.client,
		[]string{teamKey(team.Key), teamsIndexKey},
		team.Name,
		team.RegisteredAt.UTC().Format(time.RFC3339Nano),
		team.IPAddress,
		team.RegisteredAt.UnixNano(),
		team.Key,
	).Int()
	if err != nil {
		return false, fmt.Errorf("create team: %w", err)
	}
	return created == 1, nil
}

func (s *Store) GetTeam(ctx context.Context, key string) (domain.Team, bool, error) {
	fields, err := s.client.HGetAll(ctx, teamKey(key)).Result()
	if err != nil {
		return domain.Team{}, false, err
	}
	if len(fields) == 0 {
		return domain.Team{}, false, nil
	}
	return decodeTeam(key, fields), true, nil
}

func (s *Store) ListTeams(ctx context.Context) ([]domain.Team, error) {
	keys, err := s.client.ZRange(ctx, teamsIndexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return []domain.Team{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, teamKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	teams := make([]domain.Team, 0, len(keys))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		teams = append(teams, decodeTeam(keys[i], fields))
	}
	return teams, nil
}

func (s *Store) CreateSubmission(ctx context.Context, sub domain.Submission) error {
	raw, err := json.Marshal(submissionRecord{
		TeamKey:     sub.TeamKey,
		TeamName:    sub.TeamName,
		Round:       sub.Round,
		Answers:     sub.Answers,
		Score:       sub.Score,
		SubmittedAt: sub.SubmittedAt.UTC(),
		TimeTaken:   sub.TimeTakenSeconds,
		IPAddress:   sub.IPAddress,
	})
	if err != nil {
		return err
	}
	created, err := createSubmissionScript.Run(ctx, s.client,
		[]string{submissionKey(sub.TeamKey, sub.Round), submissionsIndexKey, teamRoundsKey(sub.TeamKey)},
		raw,
		sub.Score,
		sub.Round,
	).Int()
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if created == 0 {
		return domain.ErrDuplicate
	}
	return nil
}

func (s *Store) ListSubmissions(ctx context.Context) ([]domain.Submission, error) {
	keys, err := s.client.SMembers(ctx, submissionsIndexKey).Result()
	if err != nil {
		return nil, err
	}
	return s.loadSubmissions(ctx, keys)
}

func (s *Store) ListTeamSubmissions(ctx context.Context, key string) ([]domain.Submission, error) {
	rounds, err := s.client.SMembers(ctx, teamRoundsKey(key)).Result()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rounds))
	for _, r := range rounds {
		round, err := strconv.Atoi(r)
		if err != nil {
			continue
		}
		keys = append(keys, submissionKey(key, round))
	}
	return s.loadSubmissions(ctx, keys)
}

func (s *Store) UpdateScore(ctx context.Context, key string, round, score int) (bool, error) {
	updated, err := updateScoreScript.Run(ctx, s.client, []string{submissionKey(key, round)}, score).Int()
	if err != nil {
		return false, fmt.Errorf("update score: %w", err)
	}
	return updated == 1, nil
}

func (s *Store) DeleteTeam(ctx context.Context, key string) error {
	err := deleteTeamScript.Run(ctx, s.client,
		[]string{teamKey(key), teamRoundsKey(key), teamsIndexKey, submissionsIndexKey},
		key,
		submissionPrefix(key),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("delete team: %w", err)
	}
	return nil
}

func (s *Store) loadSubmissions(ctx context.Context, keys []string) ([]domain.Submission, error) {
	if len(keys) == 0 {
		return []domain.Submission{}, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.HGetAll(ctx, key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}

	subs := make([]domain.Submission, 0, len(keys))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		sub, err := decodeSubmission(fields)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Round != subs[j].Round {
			return subs[i].Round < subs[j].Round
		}
		return subs[i].TeamKey < subs[j].TeamKey
	})
	return subs, nil
}

func decodeTeam(key string, fields map[string]string) domain.Team {
	registeredAt, _ := time.Parse(time.RFC3339Nano, fields["registered_at"])
	return domain.Team{
		Key:          key,
		Name:         fields["name"],
		RegisteredAt: registeredAt,
		IPAddress:    fields["ip"],
	}
}

func decodeSubmission(fields map[string]string) (domain.Submission, error) {
	var rec submissionRecord
	if err := json.Unmarshal([]byte(fields["data"]), &rec); err != nil {
		return domain.Submission{}, fmt.Errorf("decode submission: %w", err)
	}
	score := rec.Score
	if raw, ok := fields["score"]; ok {
		if v, err := strconv.Atoi(raw); err == nil {
			score = v
		}
	}
	answers := rec.Answers
	if answers == nil {
		answers = map[int]string{}
	}
	return domain.Submission{
		TeamKey:          rec.TeamKey,
		TeamName:         rec.TeamName,
		Round:            rec.Round,
		Answers:          answers,
		Score:            score,
		SubmittedAt:      rec.SubmittedAt,
		TimeTakenSeconds: rec.TimeTaken,
		IPAddress:        rec.IPAddress,
	}, nil
}

func teamKey(key string) string {
	return "team:" + key
}

// Team keys are free text, so each key family gets its own prefix rather than a suffix that a
// crafted team name could reproduce.
func teamRoundsKey(key string) string {
	return "team_rounds:" + key
}

func submissionPrefix(key string) string {
	return "submission:" + key + ":"
}

func submissionKey(key string, round int) string {
	return submissionPrefix(key) + strconv.Itoa(round)
}

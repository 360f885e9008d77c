package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"timed-quiz-service/internal/app"
)

// SessionStore keeps round sessions in Redis so any instance can resume a team's countdown.
// Keys expire after ttl; a zero ttl keeps them until deleted.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{client: client, ttl: ttl}
}

func (s *SessionStore) Load(ctx context.Context, teamKey string) (*app.RoundSession, bool, error) {
	raw, err := s.client.Get(ctx, s.key(teamKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var session app.RoundSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (s *SessionStore) Save(ctx context.Context, session *app.RoundSession) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(session.TeamKey), raw, s.ttl).Err()
}

func (s *SessionStore) Delete(ctx context.Context, teamKey string) error {
	return s.client.Del(ctx, s.key(teamKey)).Err()
}

func (s *SessionStore) key(teamKey string) string {
	return "round:session:" + teamKey
}

package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

const (
	questionsKey = "catalog:questions"
	timersKey    = "catalog:timers"
)

// CatalogRepository caches the question catalog in Redis and falls back to a loader on cache miss.
// Questions are stored as: HSET catalog:questions {questionID} {question JSON}
// Timers are stored as:    HSET catalog:timers    {round} {minutes}
type CatalogRepository struct {
	client *redis.Client
	loader memory.CatalogLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewCatalogRepository(client *redis.Client, loader memory.CatalogLoader, ttl time.Duration) *CatalogRepository {
	return &CatalogRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *CatalogRepository) GetCatalog(ctx context.Context) (domain.Catalog, error) {
	if catalog, ok := r.readCache(ctx); ok {
		return catalog, nil
	}

	result, err, _ := r.sf.Do(questionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if catalog, ok := r.readCache(ctx); ok {
			return catalog, nil
		}

		catalog, err := r.loader.LoadCatalog(ctx)
		if err != nil {
			return domain.Catalog{}, err
		}

		ttl := r.ttlWithJitter()
		pipe := r.client.TxPipeline()
		pipe.Del(ctx, questionsKey, timersKey)
		for _, q := range catalog.Questions {
			raw, err := json.Marshal(q)
			if err != nil {
				return domain.Catalog{}, err
			}
			pipe.HSet(ctx, questionsKey, strconv.Itoa(q.ID), raw)
		}
		for round, minutes := range catalog.Timers {
			pipe.HSet(ctx, timersKey, strconv.Itoa(round), minutes)
		}
		if ttl > 0 {
			pipe.Expire(ctx, questionsKey, ttl)
			pipe.Expire(ctx, timersKey, ttl)
		}
		// a failed cache fill only costs another loader call later
		_, _ = pipe.Exec(ctx)

		return catalog, nil
	})
	if err != nil {
		return domain.Catalog{}, err
	}
	return result.(domain.Catalog), nil
}

// Invalidate removes the cached catalog.
func (r *CatalogRepository) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, questionsKey, timersKey).Err()
}

func (r *CatalogRepository) readCache(ctx context.Context) (domain.Catalog, bool) {
	questions, err := r.client.HGetAll(ctx, questionsKey).Result()
	if err != nil || len(questions) == 0 {
		return domain.Catalog{}, false
	}
	timers, _ := r.client.HGetAll(ctx, timersKey).Result()
	catalog, err := buildCatalogFromCache(questions, timers)
	if err != nil {
		return domain.Catalog{}, false
	}
	return catalog, true
}

func buildCatalogFromCache(questions, timers map[string]string) (domain.Catalog, error) {
	catalog := domain.Catalog{
		Questions: make([]domain.Question, 0, len(questions)),
		Timers:    make(map[int]int, len(timers)),
	}
	for _, raw := range questions {
		var q domain.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return domain.Catalog{}, err
		}
		catalog.Questions = append(catalog.Questions, q)
	}
	for roundStr, minutesStr := range timers {
		round, err := strconv.Atoi(roundStr)
		if err != nil {
			continue
		}
		if minutes, err := strconv.Atoi(minutesStr); err == nil {
			catalog.Timers[round] = minutes
		}
	}
	return catalog, nil
}

func (r *CatalogRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

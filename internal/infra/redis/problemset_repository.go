package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"math-challenge-service/internal/domain"
)

// ProblemSetLoader fetches problem-set content from a backing store.
type ProblemSetLoader interface {
	LoadProblemSet(ctx context.Context, id string) (domain.ProblemSet, error)
}

// ProblemSetRepository caches problem sets in Redis as JSON under
// problemset:{id} and falls back to the loader on cache miss, so multiple
// server instances share one cache.
type ProblemSetRepository struct {
	client *redis.Client
	loader ProblemSetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewProblemSetRepository(client *redis.Client, loader ProblemSetLoader, ttl time.Duration) *ProblemSetRepository {
	return &ProblemSetRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ProblemSetRepository) GetProblemSet(ctx context.Context, id string) (domain.ProblemSet, error) {
	key := r.key(id)

	if raw, err := r.client.Get(ctx, key).Result(); err == nil {
		var set domain.ProblemSet
		if err := json.Unmarshal([]byte(raw), &set); err == nil {
			return set, nil
		}
		// Corrupt cache entry: fall through and reload.
	}

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Result(); err == nil {
			var set domain.ProblemSet
			if err := json.Unmarshal([]byte(raw), &set); err == nil {
				return set, nil
			}
		}

		set, err := r.loader.LoadProblemSet(ctx, id)
		if err != nil {
			return domain.ProblemSet{}, err
		}

		if data, err := json.Marshal(set); err == nil {
			// best-effort cache fill
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.ProblemSet{}, err
	}
	return result.(domain.ProblemSet), nil
}

func (r *ProblemSetRepository) key(id string) string {
	return "problemset:" + id
}

func (r *ProblemSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

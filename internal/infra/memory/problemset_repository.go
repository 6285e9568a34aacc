package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"math-challenge-service/internal/domain"
)

// ProblemSetLoader fetches problem-set content from a backing store.
type ProblemSetLoader interface {
	LoadProblemSet(ctx context.Context, id string) (domain.ProblemSet, error)
}

// ProblemSetRepository caches problem sets with TTL to avoid hitting the
// backing store on every accepted connection.
type ProblemSetRepository struct {
	loader ProblemSetLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedSet
}

type cachedSet struct {
	set       domain.ProblemSet
	expiresAt time.Time
}

func NewProblemSetRepository(loader ProblemSetLoader, ttl time.Duration) *ProblemSetRepository {
	return &ProblemSetRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSet),
	}
}

func (r *ProblemSetRepository) GetProblemSet(ctx context.Context, id string) (domain.ProblemSet, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.set, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(id, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[id]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.set, nil
		}
		r.mu.RUnlock()

		set, err := r.loader.LoadProblemSet(ctx, id)
		if err != nil {
			return domain.ProblemSet{}, err
		}

		r.mu.Lock()
		r.cache[id] = cachedSet{
			set:       set,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return set, nil
	})
	if err != nil {
		return domain.ProblemSet{}, err
	}
	return result.(domain.ProblemSet), nil
}

// StaticLoader is a loader backed by an in-memory map (default sets, tests).
type StaticLoader struct {
	sets map[string]domain.ProblemSet
}

func NewStaticLoader(sets map[string]domain.ProblemSet) *StaticLoader {
	return &StaticLoader{sets: sets}
}

func (l *StaticLoader) LoadProblemSet(_ context.Context, id string) (domain.ProblemSet, error) {
	if set, ok := l.sets[id]; ok {
		return set, nil
	}
	return domain.ProblemSet{}, domain.ErrProblemSetNotFound
}

func (r *ProblemSetRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

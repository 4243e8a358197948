package videos

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guille1999utp/bemaster-part-2/internal/logging"
	"github.com/guille1999utp/bemaster-part-2/internal/models"
)

// TopRatedCache holds the most recent top-rated listing. Implementations treat
// backend failures as misses; the listing can always be recomputed.
//
// Get reports the generation it observed. Invalidate starts a new generation,
// and Set drops a listing computed under an older one, so a listing read
// before a visibility change is never stored after its invalidation.
type TopRatedCache interface {
	Get(ctx context.Context) ([]models.Video, uint64, bool)
	Set(ctx context.Context, generation uint64, videos []models.Video)
	Invalidate(ctx context.Context)
}

// MemoryTopRatedCache is a TTL cache for a single process.
type MemoryTopRatedCache struct {
	ttl time.Duration
	now func() time.Time

	mu         sync.RWMutex
	generation uint64
	videos     []models.Video
	expires    time.Time
}

// NewMemoryTopRatedCache caches listings for ttl.
func NewMemoryTopRatedCache(ttl time.Duration) *MemoryTopRatedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &MemoryTopRatedCache{ttl: ttl, now: time.Now}
}

func (c *MemoryTopRatedCache) Get(context.Context) ([]models.Video, uint64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.videos == nil || !c.now().Before(c.expires) {
		return nil, c.generation, false
	}
	return append([]models.Video(nil), c.videos...), c.generation, true
}

func (c *MemoryTopRatedCache) Set(_ context.Context, generation uint64, videos []models.Video) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		return
	}
	c.videos = append(make([]models.Video, 0, len(videos)), videos...)
	c.expires = c.now().Add(c.ttl)
}

func (c *MemoryTopRatedCache) Invalidate(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.videos = nil
	c.expires = time.Time{}
}

// TopRatedCacheKey prefixes the Redis keys of the listing cache. The current
// generation lives under TopRatedVersionKey and each listing is stored under
// its generation, so a write for an old generation is never read.
const (
	TopRatedCacheKey   = "bemaster:videos:top-rated"
	TopRatedVersionKey = TopRatedCacheKey + ":version"
)

func topRatedListingKey(generation uint64) string {
	return fmt.Sprintf("%s:%d", TopRatedCacheKey, generation)
}

// RedisTopRatedCache shares the listing between replicas.
type RedisTopRatedCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTopRatedCache stores listings in client for ttl.
func NewRedisTopRatedCache(client *redis.Client, ttl time.Duration) *RedisTopRatedCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisTopRatedCache{client: client, ttl: ttl}
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (c *RedisTopRatedCache) generation(ctx context.Context, cmd stringGetter) (uint64, error) {
	gen, err := cmd.Get(ctx, TopRatedVersionKey).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisTopRatedCache) Get(ctx context.Context) ([]models.Video, uint64, bool) {
	logger := logging.FromContext(ctx)

	gen, err := c.generation(ctx, c.client)
	if err != nil {
		logger.Warn().Err(err).Msg("top-rated cache version read failed")
		return nil, 0, false
	}

	data, err := c.client.Get(ctx, topRatedListingKey(gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn().Err(err).Msg("top-rated cache read failed")
		}
		return nil, gen, false
	}

	var videos []models.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		logger.Warn().Err(err).Msg("top-rated cache entry corrupt")
		return nil, gen, false
	}
	return videos, gen, true
}

// Set writes the listing only while generation is still current. The version
// key is watched so a concurrent Invalidate aborts the write.
func (c *RedisTopRatedCache) Set(ctx context.Context, generation uint64, videos []models.Video) {
	logger := logging.FromContext(ctx)

	data, err := json.Marshal(videos)
	if err != nil {
		logger.Warn().Err(err).Msg("encode top-rated listing")
		return
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := c.generation(ctx, tx)
		if err != nil {
			return err
		}
		if current != generation {
			return errStaleListing
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, topRatedListingKey(generation), data, c.ttl)
			return nil
		})
		return err
	}, TopRatedVersionKey)

	switch {
	case err == nil:
	case errors.Is(err, errStaleListing), errors.Is(err, redis.TxFailedErr):
		logger.Debug().Uint64("generation", generation).Msg("discarded stale top-rated listing")
	default:
		logger.Warn().Err(err).Msg("top-rated cache write failed")
	}
}

func (c *RedisTopRatedCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, TopRatedVersionKey).Err(); err != nil {
		logging.FromContext(ctx).Warn().Err(err).Msg("top-rated cache invalidate failed")
	}
}

var errStaleListing = errors.New("top-rated listing is stale")

var (
	_ TopRatedCache = (*MemoryTopRatedCache)(nil)
	_ TopRatedCache = (*RedisTopRatedCache)(nil)
)

package videos

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// MediaDeleter removes stored media objects.
type MediaDeleter interface {
	Delete(ctx context.Context, key string) error
}

// CleanerConfig controls the concurrency of the media cleaner.
type CleanerConfig struct {
	QueueSize int
	Workers   int
	Timeout   time.Duration
}

// MediaCleaner deletes orphaned media objects in the background, for example
// an upload whose metadata insert failed.
type MediaCleaner struct {
	store   MediaDeleter
	logger  zerolog.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	jobs   chan string
	wg     sync.WaitGroup
}

var errCleanerClosed = errors.New("media cleaner closed")

// NewMediaCleaner starts cfg.Workers goroutines draining a queue of object keys.
func NewMediaCleaner(store MediaDeleter, cfg CleanerConfig, logger zerolog.Logger) *MediaCleaner {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &MediaCleaner{
		store:   store,
		logger:  logger.With().Str("component", "media_cleaner").Logger(),
		timeout: cfg.Timeout,
		jobs:    make(chan string, cfg.QueueSize),
	}

	c.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go c.worker()
	}
	return c
}

// Enqueue schedules key for deletion. It blocks while the queue is full.
func (c *MediaCleaner) Enqueue(ctx context.Context, key string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return errCleanerClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case c.jobs <- key:
		return nil
	}
}

// Shutdown stops accepting work and waits for queued deletions to finish.
func (c *MediaCleaner) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.jobs)
	}
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *MediaCleaner) worker() {
	defer c.wg.Done()

	for key := range c.jobs {
		c.handle(key)
	}
}

func (c *MediaCleaner) handle(key string) {
	if c.store == nil {
		c.logger.Error().Str("key", key).Msg("media cleaner has no store")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("orphaned media cleanup failed")
		return
	}
	c.logger.Debug().Str("key", key).Msg("orphaned media removed")
}

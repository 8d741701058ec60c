package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
)

const defaultLimitPrefix = "httprate"

// LimitCounter shares httprate sliding-window counts across instances.
// When Redis fails, counting falls back to an in-process counter so requests
// keep flowing.
type LimitCounter struct {
	client       *redis.Client
	prefix       string
	windowLength time.Duration
	timeout      time.Duration
	fallback     httprate.LimitCounter
	logger       *slog.Logger
}

var _ httprate.LimitCounter = (*LimitCounter)(nil)

func NewLimitCounter(s *Service, prefix string, logger *slog.Logger) *LimitCounter {
	if prefix == "" {
		prefix = defaultLimitPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LimitCounter{
		client:  s.Client(),
		prefix:  prefix,
		timeout: 100 * time.Millisecond,
		logger:  logger,
	}
}

func (c *LimitCounter) Config(requestLimit int, windowLength time.Duration) {
	c.windowLength = windowLength
	c.fallback = httprate.NewLocalLimitCounter(windowLength)
}

func (c *LimitCounter) Increment(key string, currentWindow time.Time) error {
	return c.IncrementBy(key, currentWindow, 1)
}

func (c *LimitCounter) IncrementBy(key string, currentWindow time.Time, amount int) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	k := c.key(key, currentWindow)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, k, int64(amount))
		pipe.Expire(ctx, k, 3*c.windowLength)
		return nil
	})
	if err != nil {
		c.logger.Warn("rate limit counter unavailable, using local counter", "error", err)
		return c.fallback.IncrementBy(key, currentWindow, amount)
	}
	return nil
}

func (c *LimitCounter) Get(key string, currentWindow, previousWindow time.Time) (int, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	vals, err := c.client.MGet(ctx, c.key(key, currentWindow), c.key(key, previousWindow)).Result()
	if err != nil {
		c.logger.Warn("rate limit counter unavailable, using local counter", "error", err)
		return c.fallback.Get(key, currentWindow, previousWindow)
	}

	curr, err := parseCount(vals[0])
	if err != nil {
		return 0, 0, err
	}
	prev, err := parseCount(vals[1])
	if err != nil {
		return 0, 0, err
	}
	return curr, prev, nil
}

func (c *LimitCounter) key(key string, window time.Time) string {
	return fmt.Sprintf("%s:%s:%d", c.prefix, key, window.Unix())
}

func parseCount(v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, errors.New("unexpected rate limit counter value")
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("parse rate limit counter: %w", err)
	}
	return n, nil
}

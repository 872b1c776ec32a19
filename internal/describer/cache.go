package describer

import (
	"context"
	"errors"
	"strings"
	"time"

	"ProjectZukan/pkg/log"
	"ProjectZukan/pkg/redis"
)

const cacheKeyPrefix = "zukan:description:"

// Cached memoizes descriptions per (place, object). Cache errors never fail a request.
type Cached struct {
	next  IDescriber
	cache redis.IRedis
	ttl   time.Duration
}

func NewCached(next IDescriber, cache redis.IRedis, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Source() string {
	return c.next.Source()
}

func (c *Cached) Describe(ctx context.Context, objectName, place string, image []byte) (string, error) {
	if objectName == "" {
		return c.next.Describe(ctx, objectName, place, image)
	}

	key := cacheKey(place, objectName)
	cached, err := c.cache.Get(ctx, key)
	if err == nil && cached != "" {
		return cached, nil
	}
	if err != nil && !errors.Is(err, redis.ErrCacheMiss) {
		log.Warn(log.Fields{
			"key":   key,
			"error": err.Error(),
		}, "[describer.Cached] cache lookup failed")
	}

	text, err := c.next.Describe(ctx, objectName, place, image)
	if err != nil {
		return "", err
	}

	if err := c.cache.Set(ctx, key, text, c.ttl); err != nil {
		log.Warn(log.Fields{
			"key":   key,
			"error": err.Error(),
		}, "[describer.Cached] cache store failed")
	}
	return text, nil
}

func (c *Cached) Suggest(ctx context.Context, place string, n int) ([]Suggestion, error) {
	s, ok := c.next.(ISuggester)
	if !ok {
		return nil, ErrNotSupported
	}
	return s.Suggest(ctx, place, n)
}

func cacheKey(place, objectName string) string {
	return cacheKeyPrefix + strings.ToLower(strings.TrimSpace(place)) + ":" + strings.ToLower(strings.TrimSpace(objectName))
}

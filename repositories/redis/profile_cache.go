// Package redis provides a read-through Redis cache for profile identity lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/models"
	"github.com/upb/jobtracker/repositories"
)

const keyPrefix = "jobtracker:profile:subject:"

// NewClient parses redisURL and pings the server before returning a client
func NewClient(ctx context.Context, redisURL string) (*goredis.Client, error) {
	opt, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := goredis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// ProfileCache decorates a ProfileRepository with a subject -> identity cache.
// Cache failures are logged and the backing repository is used instead.
type ProfileCache struct {
	next   repositories.ProfileRepository
	client goredis.UniversalClient
	ttl    time.Duration
	logger *zap.Logger
}

// NewProfileCache wraps next with a Redis cache whose entries expire after ttl
func NewProfileCache(next repositories.ProfileRepository, client goredis.UniversalClient, ttl time.Duration, logger *zap.Logger) *ProfileCache {
	return &ProfileCache{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// FindByAuthSubject serves from cache when possible; only hits are cached
func (c *ProfileCache) FindByAuthSubject(ctx context.Context, authSubject string) (*models.ProfileIdentity, error) {
	key := cacheKey(authSubject)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var identity models.ProfileIdentity
		if jsonErr := json.Unmarshal(raw, &identity); jsonErr == nil {
			return &identity, nil
		}
		c.logger.Warn("discarding malformed profile cache entry", zap.String("key", key))
	case errors.Is(err, goredis.Nil):
	default:
		c.logger.Warn("profile cache read failed", zap.Error(err))
	}

	identity, err := c.next.FindByAuthSubject(ctx, authSubject)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, identity)
	return identity, nil
}

// Create delegates to the backing repository.
// The result is not cached since the surrounding transaction may still roll back.
func (c *ProfileCache) Create(ctx context.Context, profile *models.NewProfile) (*models.ProfileIdentity, error) {
	return c.next.Create(ctx, profile)
}

func (c *ProfileCache) store(ctx context.Context, key string, identity *models.ProfileIdentity) {
	payload, err := json.Marshal(identity)
	if err != nil {
		c.logger.Warn("profile cache encode failed", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("profile cache write failed", zap.Error(err))
	}
}

func cacheKey(authSubject string) string {
	return keyPrefix + authSubject
}

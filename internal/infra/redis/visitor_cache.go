package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yinan077/PassGate/internal/app/model"
	"go.uber.org/zap"
)

const cacheKeyPrefix = "visitor:"

// VisitorCache keeps recently used passes in Redis so the gate does not hit
// Postgres on every request. It implements service.PassCache; all failures
// degrade to a miss.
type VisitorCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewVisitorCache builds a cache with the given entry TTL.
func NewVisitorCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *VisitorCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitorCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

// Get returns the cached pass for vuid, if any.
func (c *VisitorCache) Get(ctx context.Context, vuid string) (*model.Visitor, bool) {
	data, err := c.client.Get(ctx, cacheKeyPrefix+vuid).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("visitor cache read failed", zap.Error(err), zap.String("vuid", vuid))
		}
		return nil, false
	}

	var visitor model.Visitor
	if err := json.Unmarshal(data, &visitor); err != nil {
		c.logger.Warn("visitor cache entry corrupt, dropping", zap.Error(err), zap.String("vuid", vuid))
		c.Invalidate(ctx, vuid)
		return nil, false
	}
	return &visitor, true
}

// Set stores the pass under its UUID with the configured TTL.
func (c *VisitorCache) Set(ctx context.Context, visitor *model.Visitor) {
	data, err := json.Marshal(visitor)
	if err != nil {
		c.logger.Warn("visitor cache encode failed", zap.Error(err), zap.String("vuid", visitor.UUID))
		return
	}
	if err := c.client.Set(ctx, cacheKeyPrefix+visitor.UUID, data, c.ttl).Err(); err != nil {
		c.logger.Warn("visitor cache write failed", zap.Error(err), zap.String("vuid", visitor.UUID))
	}
}

// Invalidate drops the cached pass for vuid.
func (c *VisitorCache) Invalidate(ctx context.Context, vuid string) {
	if err := c.client.Del(ctx, cacheKeyPrefix+vuid).Err(); err != nil {
		c.logger.Warn("visitor cache delete failed", zap.Error(err), zap.String("vuid", vuid))
	}
}

// Package routecache keeps the bus route catalog in Redis so restarts and
// frequent catalog refreshes do not hit the upstream API.
package routecache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	redisstore "github.com/eko/gocache/store/redis/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/transitpal/internal/transit"
)

const routesKey = "transitpal:bus-routes"

// Connect opens a Redis connection and checks it with PING.
func Connect(ctx context.Context, address, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", address, err)
	}
	return client, nil
}

type Cache struct {
	cache  *cache.Cache[string]
	logger *logrus.Logger
}

// New returns a cache whose entries expire after ttl.
func New(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *Cache {
	redisStore := redisstore.NewRedis(client, store.WithExpiration(ttl))
	return &Cache{
		cache:  cache.New[string](redisStore),
		logger: logger,
	}
}

// Routes returns the cached catalog. Any read or decode error counts as a miss.
func (c *Cache) Routes(ctx context.Context) ([]transit.BusRoute, bool) {
	raw, err := c.cache.Get(ctx, routesKey)
	if err != nil {
		c.logger.WithField("error", err).Debug("bus route cache miss")
		return nil, false
	}

	var routes []transit.BusRoute
	if err := json.Unmarshal([]byte(raw), &routes); err != nil {
		c.logger.WithField("error", err).Warn("discarding unreadable bus route cache entry")
		return nil, false
	}
	return routes, true
}

func (c *Cache) StoreRoutes(ctx context.Context, routes []transit.BusRoute) error {
	data, err := json.Marshal(routes)
	if err != nil {
		return fmt.Errorf("encoding routes: %w", err)
	}
	if err := c.cache.Set(ctx, routesKey, string(data)); err != nil {
		return fmt.Errorf("writing routes: %w", err)
	}
	return nil
}

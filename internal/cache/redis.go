package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/Domenick1991/flightreservation/config"
	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	flightsKey           = "cache:flights"
	flightsGenerationKey = "cache:flights:generation"
)

// client is the subset of *redis.Client the cache needs.
type client interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// cachedFlights is the stored list together with the generation that was current when
// its source rows were read.
type cachedFlights struct {
	Generation int64           `json:"generation"`
	Flights    []domain.Flight `json:"flights"`
}

type RedisCache struct {
	client     client
	flightsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: cfg.FlightsCacheTTL,
	}
}

// GetFlights returns the cached flight list and the current generation. On a miss the
// list is nil and the generation is the one SetFlights should be called with.
// A list stored under an older generation counts as a miss.
func (c *RedisCache) GetFlights(ctx context.Context) ([]domain.Flight, int64, error) {
	values, err := c.client.MGet(ctx, flightsGenerationKey, flightsKey).Result()
	if err != nil {
		return nil, 0, err
	}
	if len(values) != 2 {
		return nil, 0, fmt.Errorf("flight cache: expected 2 values, got %d", len(values))
	}

	var generation int64
	if raw, ok := values[0].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, fmt.Errorf("flight cache generation %q: %w", raw, err)
		}
	}

	raw, ok := values[1].(string)
	if !ok {
		return nil, generation, nil
	}
	var cached cachedFlights
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, generation, err
	}
	if cached.Generation != generation || cached.Flights == nil {
		return nil, generation, nil
	}
	return cached.Flights, generation, nil
}

// SetFlights stores flights read while generation was current. If an invalidation ran
// in between, the stored list is never served.
func (c *RedisCache) SetFlights(ctx context.Context, generation int64, flights []domain.Flight) error {
	if c.flightsTTL <= 0 {
		return nil
	}
	payload, err := json.Marshal(cachedFlights{Generation: generation, Flights: flights})
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey, payload, c.flightsTTL).Err()
}

// InvalidateFlights moves to a new generation and drops the cached list so the next read
// sees current seat counts.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	if err := c.client.Incr(ctx, flightsGenerationKey).Err(); err != nil {
		return err
	}
	return c.client.Del(ctx, flightsKey).Err()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

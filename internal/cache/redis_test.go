package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient keeps values in a map and remembers the last TTL it was given.
type fakeClient struct {
	values  map[string]string
	lastTTL time.Duration
	getErr  error
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: make(map[string]string)}
}

func (f *fakeClient) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	cmd := redis.NewSliceCmd(ctx)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	vals := make([]interface{}, len(keys))
	for i, key := range keys {
		if val, ok := f.values[key]; ok {
			vals[i] = val
		}
	}
	cmd.SetVal(vals)
	return cmd
}

func (f *fakeClient) Incr(ctx context.Context, key string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	n, _ := strconv.ParseInt(f.values[key], 10, 64)
	n++
	f.values[key] = strconv.FormatInt(n, 10)
	cmd.SetVal(n)
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := new(redis.StatusCmd)
	f.values[key] = string(value.([]byte))
	f.lastTTL = expiration
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := new(redis.IntCmd)
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeClient) Ping(ctx context.Context) *redis.StatusCmd {
	cmd := new(redis.StatusCmd)
	cmd.SetVal("PONG")
	return cmd
}

func (f *fakeClient) Close() error { return nil }

func sampleFlights() []domain.Flight {
	return []domain.Flight{{
		ID:             1,
		Code:           "SU100",
		DepartureCity:  domain.City{ID: 1, Name: "Moscow", Country: "Russia"},
		ArrivalCity:    domain.City{ID: 2, Name: "Kazan", Country: "Russia"},
		TotalSeats:     100,
		AvailableSeats: 97,
		BasePrice:      decimal.RequireFromString("200.50"),
	}}
}

func TestRedisCache_Flights(t *testing.T) {
	client := newFakeClient()
	c := &RedisCache{client: client, flightsTTL: time.Minute}
	ctx := context.Background()

	miss, generation, err := c.GetFlights(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, int64(0), generation)

	flights := sampleFlights()
	require.NoError(t, c.SetFlights(ctx, generation, flights))
	assert.Equal(t, time.Minute, client.lastTTL)

	hit, _, err := c.GetFlights(ctx)
	require.NoError(t, err)
	require.Len(t, hit, 1)
	assert.Equal(t, "Kazan", hit[0].ArrivalCity.Name)
	assert.True(t, flights[0].BasePrice.Equal(hit[0].BasePrice))

	require.NoError(t, c.InvalidateFlights(ctx))
	miss, generation, err = c.GetFlights(ctx)
	require.NoError(t, err)
	assert.Nil(t, miss)
	assert.Equal(t, int64(1), generation)

	assert.NoError(t, c.Ping(ctx))
	assert.NoError(t, c.Close())
}

func TestRedisCache_StaleWriteAfterInvalidateIsNotServed(t *testing.T) {
	client := newFakeClient()
	c := &RedisCache{client: client, flightsTTL: time.Minute}
	ctx := context.Background()

	// A reader misses and goes to the database.
	_, readerGeneration, err := c.GetFlights(ctx)
	require.NoError(t, err)
	stale := sampleFlights()

	// A booking commits and invalidates before the reader writes back.
	require.NoError(t, c.InvalidateFlights(ctx))
	require.NoError(t, c.SetFlights(ctx, readerGeneration, stale))

	cached, generation, err := c.GetFlights(ctx)
	require.NoError(t, err)
	assert.Nil(t, cached)
	assert.Equal(t, readerGeneration+1, generation)

	fresh := sampleFlights()
	fresh[0].AvailableSeats = 95
	require.NoError(t, c.SetFlights(ctx, generation, fresh))
	cached, _, err = c.GetFlights(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, 95, cached[0].AvailableSeats)
}

func TestRedisCache_Errors(t *testing.T) {
	client := newFakeClient()
	c := &RedisCache{client: client, flightsTTL: time.Minute}
	ctx := context.Background()

	client.values[flightsKey] = "{not json"
	_, _, err := c.GetFlights(ctx)
	assert.Error(t, err)

	client.values[flightsGenerationKey] = "abc"
	_, _, err = c.GetFlights(ctx)
	assert.Error(t, err)

	client.getErr = errors.New("connection refused")
	_, _, err = c.GetFlights(ctx)
	assert.EqualError(t, err, "connection refused")
}

func TestRedisCache_ZeroTTLDisablesWrites(t *testing.T) {
	client := newFakeClient()
	c := &RedisCache{client: client}

	require.NoError(t, c.SetFlights(context.Background(), 0, []domain.Flight{{ID: 1}}))
	assert.Empty(t, client.values)
}

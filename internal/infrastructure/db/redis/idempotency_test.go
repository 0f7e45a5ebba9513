package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citylibrary/loan-service/internal/core/ports"
)

// fakeRedis implements the two commands the store issues; any other call
// panics through the nil embedded interface.
type fakeRedis struct {
	redis.Cmdable

	data    map[string]string
	ttls    map[string]time.Duration
	failErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failErr != nil {
		return redis.NewStringResult("", f.failErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) SetNX(ctx context.Context, key string, value any, ttl time.Duration) *redis.BoolCmd {
	if f.failErr != nil {
		return redis.NewBoolResult(false, f.failErr)
	}
	if _, ok := f.data[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestIdempotencyStore_SaveThenLookup(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, time.Hour)
	ctx := context.Background()

	want := ports.StoredResponse{
		Fingerprint: "9f86d081884c7d65",
		Status:      201,
		ContentType: "application/json",
		Header:      map[string]string{"X-Inventory-Adjustment": "pending"},
		Body:        []byte(`{"id":"1"}`),
	}
	require.NoError(t, store.Save(ctx, "abc", want))

	assert.Contains(t, fake.data, "idem:loans:abc")
	assert.Equal(t, time.Hour, fake.ttls["idem:loans:abc"])

	got, err := store.Lookup(ctx, "abc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
}

func TestIdempotencyStore_LookupMiss(t *testing.T) {
	got, err := NewIdempotencyStore(newFakeRedis(), 0).Lookup(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIdempotencyStore_FirstResponseWins(t *testing.T) {
	fake := newFakeRedis()
	store := NewIdempotencyStore(fake, 0)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "k", ports.StoredResponse{Status: 201, Body: []byte("first")}))
	require.NoError(t, store.Save(ctx, "k", ports.StoredResponse{Status: 201, Body: []byte("second")}))

	got, err := store.Lookup(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "first", string(got.Body))
	assert.Equal(t, defaultIdempotencyTTL, fake.ttls["idem:loans:k"])
}

func TestIdempotencyStore_Errors(t *testing.T) {
	fake := newFakeRedis()
	fake.failErr = errors.New("dial tcp: connection refused")
	store := NewIdempotencyStore(fake, 0)

	_, err := store.Lookup(context.Background(), "k")
	assert.ErrorIs(t, err, fake.failErr)

	err = store.Save(context.Background(), "k", ports.StoredResponse{Status: 200})
	assert.ErrorIs(t, err, fake.failErr)
}

func TestIdempotencyStore_CorruptEntry(t *testing.T) {
	fake := newFakeRedis()
	fake.data["idem:loans:k"] = "not json"

	_, err := NewIdempotencyStore(fake, 0).Lookup(context.Background(), "k")
	assert.Error(t, err)
}

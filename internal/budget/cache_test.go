package budget

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestFetchJSONDegradesWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	// Take the server down before the first read; the loader result must
	// still come back even though both Get and Set fail.
	mr.Close()

	var out int
	err := cache.FetchJSON(context.Background(), "budget:test", &out, func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	require.Equal(t, 42, out)
}

func TestFetchJSONRecomputesOnCorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	require.NoError(t, mr.Set("budget:test", "not json"))

	var out int
	err := cache.FetchJSON(context.Background(), "budget:test", &out, func(ctx context.Context) (any, error) {
		return 7, nil
	})
	require.NoError(t, err)
	require.Equal(t, 7, out)

	stored, err := mr.Get("budget:test")
	require.NoError(t, err)
	require.Equal(t, "7", stored)
}

func TestFetchJSONServesWarmEntryWithoutLoader(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)

	require.NoError(t, mr.Set("budget:test", "13"))

	var out int
	err := cache.FetchJSON(context.Background(), "budget:test", &out, func(ctx context.Context) (any, error) {
		t.Fatal("loader must not run on a warm entry")
		return nil, nil
	})
	require.NoError(t, err)
	require.Equal(t, 13, out)
}

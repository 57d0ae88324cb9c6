package queries

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/hospital/services/emr/cache"
	"example.com/hospital/services/emr/domain"
)

func TestDispatchUnknownQueryType(t *testing.T) {
	dispatcher := NewDispatcher(nil, nil)

	result := dispatcher.Dispatch(context.Background(), domain.NewQuery("mystery_query", nil))
	require.Contains(t, result.Error, "mystery_query")
	require.Nil(t, result.Data)
}

func TestDispatchCachesByKey(t *testing.T) {
	memCache := cache.NewMemoryCache()
	dispatcher := NewDispatcher(memCache, nil)

	calls := 0
	require.NoError(t, dispatcher.Register(domain.QueryGetPatient, func(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
		calls++
		return domain.QueryResult{Data: map[string]string{"patient_id": "patient-1"}}, nil
	}))

	q := domain.NewQuery(domain.QueryGetPatient, map[string]string{"patient_id": "patient-1"})
	q.CacheKey = "patient:patient-1"
	q.CacheTTL = time.Minute

	first := dispatcher.Dispatch(context.Background(), q)
	require.Empty(t, first.Error)
	require.False(t, first.Cached)
	require.Equal(t, 1, calls)

	second := dispatcher.Dispatch(context.Background(), q)
	require.Empty(t, second.Error)
	require.True(t, second.Cached)
	require.Equal(t, 1, calls, "cache hit must not touch the read model")
	require.Equal(t, q.ID, second.QueryID, "cached result carries the new query's ID")
}

func TestDispatchCacheExpiry(t *testing.T) {
	memCache := cache.NewMemoryCache()
	now := time.Date(2024, 1, 20, 10, 0, 0, 0, time.UTC)
	memCache.SetClock(func() time.Time { return now })

	dispatcher := NewDispatcher(memCache, nil)

	calls := 0
	require.NoError(t, dispatcher.Register(domain.QueryGetPatient, func(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
		calls++
		return domain.QueryResult{Data: calls}, nil
	}))

	q := domain.NewQuery(domain.QueryGetPatient, nil)
	q.CacheKey = "patient:patient-1"
	q.CacheTTL = 30 * time.Second

	dispatcher.Dispatch(context.Background(), q)
	require.Equal(t, 1, calls)

	// Still inside the TTL window
	now = now.Add(29 * time.Second)
	dispatcher.Dispatch(context.Background(), q)
	require.Equal(t, 1, calls)

	// Past the TTL the entry is stale and the handler runs again
	now = now.Add(2 * time.Second)
	result := dispatcher.Dispatch(context.Background(), q)
	require.Equal(t, 2, calls)
	require.False(t, result.Cached)
}

func TestDispatchWithoutCacheKeySkipsCache(t *testing.T) {
	memCache := cache.NewMemoryCache()
	dispatcher := NewDispatcher(memCache, nil)

	calls := 0
	require.NoError(t, dispatcher.Register(domain.QueryListPatients, func(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
		calls++
		return domain.QueryResult{Data: []string{}}, nil
	}))

	q := domain.NewQuery(domain.QueryListPatients, nil)
	dispatcher.Dispatch(context.Background(), q)
	dispatcher.Dispatch(context.Background(), q)
	require.Equal(t, 2, calls)
}

func TestDispatchHandlerErrorNotCached(t *testing.T) {
	memCache := cache.NewMemoryCache()
	dispatcher := NewDispatcher(memCache, nil)

	require.NoError(t, dispatcher.Register(domain.QueryGetBill, func(ctx context.Context, q domain.Query) (domain.QueryResult, error) {
		return domain.QueryResult{}, domain.ErrMissingParam
	}))

	q := domain.NewQuery(domain.QueryGetBill, nil)
	q.CacheKey = "bill:missing"

	result := dispatcher.Dispatch(context.Background(), q)
	require.NotEmpty(t, result.Error)

	var cached domain.QueryResult
	require.ErrorIs(t, memCache.Get(context.Background(), q.CacheKey, &cached), cache.ErrCacheMiss)
}

func TestPaginationDefaults(t *testing.T) {
	page, size := pagination(domain.Query{})
	require.Equal(t, 1, page)
	require.Equal(t, 20, size)

	page, size = pagination(domain.Query{Page: 3, PageSize: 500})
	require.Equal(t, 3, page)
	require.Equal(t, 100, size, "page size is capped")
}

package queries

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"example.com/hospital/services/emr/cache"
	"example.com/hospital/services/emr/domain"
	"example.com/hospital/services/emr/metrics"
)

// HandlerFunc handles one query type against the read models
type HandlerFunc func(ctx context.Context, q domain.Query) (domain.QueryResult, error)

// Dispatcher routes queries to their handlers, with a read-through cache
// in front. A query with a CacheKey is served from the cache on a hit;
// on a miss the handler result is stored under that key for CacheTTL.
// Cache failures degrade to the read model, never to an error.
type Dispatcher struct {
	cache   cache.Cache
	metrics *metrics.Metrics

	mu       sync.Mutex
	handlers map[domain.QueryType]HandlerFunc
}

// NewDispatcher creates a query dispatcher. c and m may be nil.
func NewDispatcher(c cache.Cache, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		cache:    c,
		metrics:  m,
		handlers: make(map[domain.QueryType]HandlerFunc),
	}
}

// Register binds a handler to a query type. Registering the same type
// twice is a wiring error.
func (d *Dispatcher) Register(queryType domain.QueryType, handler HandlerFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.handlers[queryType]; exists {
		return fmt.Errorf("handler already registered for query type %q", queryType)
	}
	d.handlers[queryType] = handler
	return nil
}

// Dispatch executes one query and always returns a result
func (d *Dispatcher) Dispatch(ctx context.Context, q domain.Query) domain.QueryResult {
	start := time.Now()

	d.mu.Lock()
	handler, ok := d.handlers[q.Type]
	d.mu.Unlock()

	if !ok {
		err := fmt.Errorf("%w: %s", domain.ErrNoQueryHandler, q.Type)
		return d.finish(q, domain.QueryResult{QueryID: q.ID, Error: err.Error()}, start)
	}

	if q.CacheKey != "" && d.cache != nil {
		var cached domain.QueryResult
		err := d.cache.Get(ctx, q.CacheKey, &cached)
		if err == nil {
			cached.QueryID = q.ID
			cached.Cached = true
			if d.metrics != nil {
				d.metrics.IncrementCounter("query." + string(q.Type) + ".cache_hit")
			}
			return d.finish(q, cached, start)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Warn().Err(err).Str("cacheKey", q.CacheKey).Msg("Cache read failed, falling back to read model")
		}
	}

	result, err := handler(ctx, q)
	if err != nil {
		log.Error().Err(err).
			Str("queryID", q.ID).
			Str("queryType", string(q.Type)).
			Msg("Query failed")
		return d.finish(q, domain.QueryResult{QueryID: q.ID, Error: err.Error()}, start)
	}
	result.QueryID = q.ID

	if q.CacheKey != "" && d.cache != nil {
		ttl := q.CacheTTL
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := d.cache.Set(ctx, q.CacheKey, result, ttl); err != nil {
			log.Warn().Err(err).Str("cacheKey", q.CacheKey).Msg("Cache write failed")
		}
	}
	return d.finish(q, result, start)
}

func (d *Dispatcher) finish(q domain.Query, result domain.QueryResult, start time.Time) domain.QueryResult {
	if d.metrics != nil {
		d.metrics.RecordTimer("query."+string(q.Type), time.Since(start))
		if result.Error != "" {
			d.metrics.IncrementCounter("query." + string(q.Type) + ".failed")
		}
	}
	return result
}

// pagination applies defaults and bounds to the requested page window
func pagination(q domain.Query) (page, pageSize int) {
	page = q.Page
	if page <= 0 {
		page = 1
	}
	pageSize = q.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}

// requireParam fetches a named parameter or fails the query
func requireParam(q domain.Query, name string) (string, error) {
	value := q.Param(name)
	if value == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrMissingParam, name)
	}
	return value, nil
}

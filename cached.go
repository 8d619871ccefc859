package restcall

import "context"

// CachedClient decorates a Client with a response cache scoped beneath the
// operation key. A cache hit short-circuits dispatch entirely; any failure
// on a dispatched call evicts the entry before the failure is surfaced, so
// no caller ever observes a cached failure. Callers are responsible for
// caching only idempotent operations.
type CachedClient struct {
	client *Client
	cache  Cache
}

// NewCached wraps an existing Client with the given cache.
func NewCached(client *Client, cache Cache) (*CachedClient, error) {
	if client == nil {
		return nil, NewConstructionError(ScenarioInvalidClient, "client must not be nil")
	}
	if cache == nil {
		return nil, NewConstructionError(ScenarioInvalidClient, "cache must not be nil")
	}
	return &CachedClient{client: client, cache: cache}, nil
}

// Get performs a GET resource call cached under cacheKey.
func (cc *CachedClient) Get(ctx context.Context, resourcePath, operation, cacheKey string, queryParams, headers map[string]string) (*Response, error) {
	return cc.Do(ctx, ResourceCall{
		Method:       MethodGet,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		CacheKey:     cacheKey,
	})
}

// Delete performs a DELETE resource call cached under cacheKey.
func (cc *CachedClient) Delete(ctx context.Context, resourcePath, operation, cacheKey string, queryParams, headers map[string]string) (*Response, error) {
	return cc.Do(ctx, ResourceCall{
		Method:       MethodDelete,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		CacheKey:     cacheKey,
	})
}

// Put performs a PUT resource call cached under cacheKey. An empty
// contentType selects text/plain.
func (cc *CachedClient) Put(ctx context.Context, resourcePath, operation, cacheKey string, body []byte, contentType string, queryParams, headers map[string]string) (*Response, error) {
	return cc.Do(ctx, ResourceCall{
		Method:       MethodPut,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		Body:         body,
		ContentType:  contentType,
		CacheKey:     cacheKey,
	})
}

// Post performs a POST resource call cached under cacheKey. An empty
// contentType selects text/plain.
func (cc *CachedClient) Post(ctx context.Context, resourcePath, operation, cacheKey string, body []byte, contentType string, queryParams, headers map[string]string) (*Response, error) {
	return cc.Do(ctx, ResourceCall{
		Method:       MethodPost,
		ResourcePath: resourcePath,
		Operation:    operation,
		QueryParams:  queryParams,
		Headers:      headers,
		Body:         body,
		ContentType:  contentType,
		CacheKey:     cacheKey,
	})
}

// Do performs the call with caching. An empty CacheKey disables caching for
// this call and dispatches directly.
func (cc *CachedClient) Do(ctx context.Context, call ResourceCall) (*Response, error) {
	if call.CacheKey == "" {
		return cc.client.do(ctx, call)
	}

	operation := cc.client.operationKey(call.Operation)
	key := entryKey(operation, call.CacheKey)

	if resp, ok := cc.cache.Get(ctx, key); ok {
		cc.client.logger.Debug("serving response from cache",
			"operation", operation, "cacheKey", call.CacheKey)
		cc.client.metrics.recordCacheHit(operation)
		return resp, nil
	}
	cc.client.metrics.recordCacheMiss(operation)

	resp, err := cc.client.do(ctx, call)
	if err != nil {
		// The entry must be gone before the failure reaches the caller.
		cc.evict(ctx, operation, key)
		return nil, err
	}

	if serr := cc.cache.Set(ctx, key, resp); serr != nil {
		cc.client.logger.Warn("failed to cache response",
			"operation", operation, "cacheKey", call.CacheKey, "error", serr)
	}
	return resp, nil
}

// Evict removes the cached entry for (operation, cacheKey), if any.
func (cc *CachedClient) Evict(ctx context.Context, operation, cacheKey string) error {
	return cc.cache.Delete(ctx, entryKey(cc.client.operationKey(operation), cacheKey))
}

func (cc *CachedClient) evict(ctx context.Context, operation, key string) {
	if err := cc.cache.Delete(ctx, key); err != nil {
		cc.client.logger.Warn("failed to evict cache entry after failure",
			"operation", operation, "key", key, "error", err)
	}
	cc.client.metrics.recordCacheEviction(operation)
}

func entryKey(operationKey, cacheKey string) string {
	return operationKey + ":" + cacheKey
}

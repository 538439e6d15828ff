// Package httpmemo memoizes idempotent GET responses for the duration of one run.
package httpmemo

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// sharedFetchTimeout bounds a fetch that outlives the caller that started it.
const sharedFetchTimeout = time.Minute

type memoizeKey struct{}

// Memoize marks requests issued with the returned context as cacheable.
func Memoize(ctx context.Context) context.Context {
	return context.WithValue(ctx, memoizeKey{}, true)
}

// IsMemoized reports whether requests issued with ctx may be served from the cache.
func IsMemoized(ctx context.Context) bool {
	memoized, _ := ctx.Value(memoizeKey{}).(bool)
	return memoized
}

type response struct {
	status     string
	statusCode int
	proto      string
	header     http.Header
	body       []byte
}

func (r *response) toHTTP(req *http.Request) *http.Response {
	return &http.Response{
		Status:        r.status,
		StatusCode:    r.statusCode,
		Proto:         r.proto,
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        r.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(r.body)),
		ContentLength: int64(len(r.body)),
		Request:       req,
	}
}

// Cache holds the responses of one run. Entries never change once stored.
type Cache struct {
	mu        sync.RWMutex
	responses map[string]*response
	inflight  singleflight.Group
}

// NewCache creates an empty cache, one per run.
func NewCache() *Cache {
	return &Cache{responses: make(map[string]*response)}
}

// Len returns the number of cached responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.responses)
}

func (c *Cache) lookup(key string) (*response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cached, ok := c.responses[key]
	return cached, ok
}

func (c *Cache) store(key string, value *response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.responses[key]; !exists {
		c.responses[key] = value
	}
}

// Transport serves memoized GET requests from the cache and forwards everything else.
type Transport struct {
	Cache *Cache
	Base  http.RoundTripper
}

// NewTransport wraps base, http.DefaultTransport when nil.
func NewTransport(cache *Cache, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Cache: cache, Base: base}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Cache == nil || req.Method != http.MethodGet || !IsMemoized(req.Context()) {
		return t.Base.RoundTrip(req)
	}

	key := req.URL.String()
	if cached, ok := t.Cache.lookup(key); ok {
		return cached.toHTTP(req), nil
	}

	// the fetch is shared with every concurrent caller, so no single caller may cancel it
	results := t.Cache.inflight.DoChan(key, func() (any, error) {
		if cached, ok := t.Cache.lookup(key); ok {
			return cached, nil
		}
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(req.Context()), sharedFetchTimeout)
		defer cancel()
		resp, roundTripErr := t.Base.RoundTrip(req.Clone(fetchCtx))
		if roundTripErr != nil {
			return nil, roundTripErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, fmt.Errorf("failed to read response of %s: %w", key, readErr)
		}
		fetched := &response{
			status:     resp.Status,
			statusCode: resp.StatusCode,
			proto:      resp.Proto,
			header:     resp.Header.Clone(),
			body:       body,
		}
		if resp.StatusCode < http.StatusBadRequest {
			t.Cache.store(key, fetched)
		}
		return fetched, nil
	})

	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Val.(*response).toHTTP(req), nil
	}
}

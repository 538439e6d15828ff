//go:build unit

package httpmemo_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/uptocode/internal/infrastructure/repositories/httpmemo"
)

func get(t *testing.T, client *http.Client, ctx context.Context, url string) (int, string) {
	t.Helper()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestTransport(t *testing.T) {
	t.Parallel()

	t.Run("should serve repeated memoized GETs from one round trip", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("payload"))
		}))
		defer server.Close()
		cache := httpmemo.NewCache()
		client := &http.Client{Transport: httpmemo.NewTransport(cache, nil)}
		ctx := httpmemo.Memoize(context.Background())

		// when
		_, first := get(t, client, ctx, server.URL+"/repos?page=1")
		_, second := get(t, client, ctx, server.URL+"/repos?page=1")

		// then
		assert.Equal(t, "payload", first)
		assert.Equal(t, "payload", second)
		assert.Equal(t, int32(1), hits.Load())
		assert.Equal(t, 1, cache.Len())
	})

	t.Run("should key entries by path and query", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte(r.URL.Query().Get("page")))
		}))
		defer server.Close()
		client := &http.Client{Transport: httpmemo.NewTransport(httpmemo.NewCache(), nil)}
		ctx := httpmemo.Memoize(context.Background())

		// when
		_, first := get(t, client, ctx, server.URL+"/repos?page=1")
		_, second := get(t, client, ctx, server.URL+"/repos?page=2")

		// then
		assert.Equal(t, "1", first)
		assert.Equal(t, "2", second)
		assert.Equal(t, int32(2), hits.Load())
	})

	t.Run("should bypass the cache without the memoize marker", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()
		cache := httpmemo.NewCache()
		client := &http.Client{Transport: httpmemo.NewTransport(cache, nil)}

		// when
		get(t, client, context.Background(), server.URL+"/pipelines/1")
		get(t, client, context.Background(), server.URL+"/pipelines/1")

		// then
		assert.Equal(t, int32(2), hits.Load())
		assert.Zero(t, cache.Len())
	})

	t.Run("should not cache error responses", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()
		cache := httpmemo.NewCache()
		client := &http.Client{Transport: httpmemo.NewTransport(cache, nil)}
		ctx := httpmemo.Memoize(context.Background())

		// when
		status, _ := get(t, client, ctx, server.URL+"/contents/package.json")
		get(t, client, ctx, server.URL+"/contents/package.json")

		// then
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, int32(2), hits.Load())
		assert.Zero(t, cache.Len())
	})

	t.Run("should never cache mutating calls", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
		}))
		defer server.Close()
		cache := httpmemo.NewCache()
		client := &http.Client{Transport: httpmemo.NewTransport(cache, nil)}
		ctx := httpmemo.Memoize(context.Background())

		// when
		for range 2 {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, server.URL+"/pulls", nil)
			require.NoError(t, err)
			resp, err := client.Do(req)
			require.NoError(t, err)
			resp.Body.Close()
		}

		// then
		assert.Equal(t, int32(2), hits.Load())
		assert.Zero(t, cache.Len())
	})

	t.Run("should share cached entries between concurrent callers", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			_, _ = w.Write([]byte("shared"))
		}))
		defer server.Close()
		client := &http.Client{Transport: httpmemo.NewTransport(httpmemo.NewCache(), nil)}
		ctx := httpmemo.Memoize(context.Background())

		// when
		var wg sync.WaitGroup
		bodies := make([]string, 10)
		for i := range bodies {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, bodies[i] = get(t, client, ctx, server.URL+"/orgs/acme/repos")
			}()
		}
		wg.Wait()

		// then
		for _, body := range bodies {
			assert.Equal(t, "shared", body)
		}
		assert.LessOrEqual(t, hits.Load(), int32(10))
		assert.GreaterOrEqual(t, hits.Load(), int32(1))
	})

	t.Run("should finish a shared fetch when the caller that started it gives up", func(t *testing.T) {
		t.Parallel()

		// given
		var hits atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) == 1 {
				close(started)
			}
			<-release
			_, _ = w.Write([]byte("manifest"))
		}))
		defer server.Close()
		client := &http.Client{Transport: httpmemo.NewTransport(httpmemo.NewCache(), nil)}
		leaderCtx, cancelLeader := context.WithCancel(httpmemo.Memoize(context.Background()))
		url := server.URL + "/contents/package.json"

		leaderErr := make(chan error, 1)
		go func() {
			req, err := http.NewRequestWithContext(leaderCtx, http.MethodGet, url, nil)
			if err != nil {
				leaderErr <- err
				return
			}
			resp, err := client.Do(req)
			if err == nil {
				resp.Body.Close()
			}
			leaderErr <- err
		}()
		<-started

		followerBody := make(chan string, 1)
		go func() {
			_, body := get(t, client, httpmemo.Memoize(context.Background()), url)
			followerBody <- body
		}()
		time.Sleep(50 * time.Millisecond)

		// when
		cancelLeader()
		err := <-leaderErr
		close(release)

		// then
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "manifest", <-followerBody)
		assert.Equal(t, int32(1), hits.Load())
	})
}

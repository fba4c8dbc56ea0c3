package integrations

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matzehuels/noscripts/pkg/cache"
	"github.com/matzehuels/noscripts/pkg/observability"
)

var fastBackoff = cache.Backoff{Attempts: 3, Delay: time.Millisecond}

func newTestClient(t *testing.T, server *httptest.Server, headers map[string]string) (*Client, *cache.FileCache) {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	client := NewClient(c, "test", time.Hour, headers)
	client.SetBackoff(fastBackoff)
	if server != nil {
		client.SetHTTPClient(server.Client())
	}
	return client, c
}

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	headers := map[string]string{"Authorization": "Bearer token"}
	client := NewClient(c, "test", time.Hour, headers)

	if client == nil {
		t.Fatal("NewClient() returned nil")
	}
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}
}

func TestNewClientNilCache(t *testing.T) {
	client := NewClient(nil, "test", 0, nil)
	if _, ok := client.cache.(*cache.NullCache); !ok {
		t.Errorf("nil cache should default to NullCache, got %T", client.cache)
	}
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
}

func TestClientGetBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		w.Write([]byte{0x1f, 0x8b, 0x08})
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	data, err := client.GetBytes(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetBytes() error: %v", err)
	}
	if len(data) != 3 || data[0] != 0x1f {
		t.Errorf("GetBytes() = %v", data)
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var auth, custom string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		custom = r.Header.Get("X-Override")
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, map[string]string{
		"Authorization": "Bearer default",
		"X-Override":    "default",
	})

	_, err := client.GetBytesWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"})
	if err != nil {
		t.Fatalf("GetBytesWithHeaders() error: %v", err)
	}
	if auth != "Bearer default" {
		t.Errorf("default header = %q, want %q", auth, "Bearer default")
	}
	if custom != "overridden" {
		t.Errorf("header = %q, want %q", custom, "overridden")
	}
}

func TestClientGet404(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	_, err := client.GetBytes(context.Background(), server.URL)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBytes() error = %v, want ErrNotFound", err)
	}
}

func TestClientGet500(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	_, err := client.GetBytes(context.Background(), server.URL)
	if err == nil {
		t.Fatal("GetBytes() should return error for 500")
	}

	var retryErr *cache.RetryableError
	if !errors.As(err, &retryErr) {
		t.Errorf("GetBytes() error should be RetryableError, got %T", err)
	}
}

func TestClientCachedBytes(t *testing.T) {
	client, _ := newTestClient(t, nil, nil)
	ctx := context.Background()

	fetchCount := 0
	fetch := func() ([]byte, error) {
		fetchCount++
		return []byte("payload"), nil
	}

	for i := 0; i < 2; i++ {
		data, err := client.CachedBytes(ctx, "key", false, fetch)
		if err != nil {
			t.Fatalf("CachedBytes() error: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("CachedBytes() = %q", data)
		}
	}
	if fetchCount != 1 {
		t.Errorf("fetch count = %d, want 1", fetchCount)
	}

	// refresh bypasses the cache
	if _, err := client.CachedBytes(ctx, "key", true, fetch); err != nil {
		t.Fatal(err)
	}
	if fetchCount != 2 {
		t.Errorf("fetch count after refresh = %d, want 2", fetchCount)
	}

	if err := client.Evict(ctx, "key"); err != nil {
		t.Fatal(err)
	}
	if _, err := client.CachedBytes(ctx, "key", false, fetch); err != nil {
		t.Fatal(err)
	}
	if fetchCount != 3 {
		t.Errorf("fetch count after Evict = %d, want 3", fetchCount)
	}
}

func TestClientCachedBytesRetries(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	client, _ := newTestClient(t, server, nil)
	data, err := client.CachedBytes(context.Background(), "k", false, func() ([]byte, error) {
		return client.GetBytes(context.Background(), server.URL)
	})
	if err != nil {
		t.Fatalf("CachedBytes() error: %v", err)
	}
	if string(data) != "ok" || hits.Load() != 3 {
		t.Errorf("data=%q hits=%d, want ok after 3 hits", data, hits.Load())
	}
}

func TestClientCachedBytesFetchError(t *testing.T) {
	client, c := newTestClient(t, nil, nil)
	ctx := context.Background()

	fetchCount := 0
	_, err := client.CachedBytes(ctx, "k", false, func() ([]byte, error) {
		fetchCount++
		return nil, ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("CachedBytes() error = %v, want ErrNotFound", err)
	}
	if fetchCount != 1 {
		t.Errorf("non-retryable error fetched %d times, want 1", fetchCount)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("failed fetch must not be cached")
	}
}

type countingCacheHooks struct {
	observability.NoopCacheHooks
	hits, misses, sets atomic.Int32
}

func (h *countingCacheHooks) OnCacheHit(context.Context, string)      { h.hits.Add(1) }
func (h *countingCacheHooks) OnCacheMiss(context.Context, string)     { h.misses.Add(1) }
func (h *countingCacheHooks) OnCacheSet(context.Context, string, int) { h.sets.Add(1) }

func TestClientCachedBytesHooks(t *testing.T) {
	hooks := &countingCacheHooks{}
	observability.SetCacheHooks(hooks)
	defer observability.Reset()

	client, _ := newTestClient(t, nil, nil)
	fetch := func() ([]byte, error) { return []byte("x"), nil }
	client.CachedBytes(context.Background(), "k", false, fetch)
	client.CachedBytes(context.Background(), "k", false, fetch)

	if hooks.misses.Load() != 1 || hooks.sets.Load() != 1 || hooks.hits.Load() != 1 {
		t.Errorf("hooks hit=%d miss=%d set=%d, want 1/1/1",
			hooks.hits.Load(), hooks.misses.Load(), hooks.sets.Load())
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name       string
		code       int
		wantErr    bool
		wantType   error
		isRetryErr bool
	}{
		{name: "200 OK", code: 200},
		{name: "404 Not Found", code: 404, wantErr: true, wantType: ErrNotFound},
		{name: "429 Too Many Requests", code: 429, wantErr: true, isRetryErr: true},
		{name: "500 Internal Server Error", code: 500, wantErr: true, isRetryErr: true},
		{name: "502 Bad Gateway", code: 502, wantErr: true, isRetryErr: true},
		{name: "503 Service Unavailable", code: 503, wantErr: true, isRetryErr: true},
		{name: "400 Bad Request", code: 400, wantErr: true},
		{name: "403 Forbidden", code: 403, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code)

			if !tt.wantErr {
				if err != nil {
					t.Errorf("checkStatus() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("checkStatus() should return error")
			}
			if tt.wantType != nil && !errors.Is(err, tt.wantType) {
				t.Errorf("checkStatus() error = %v, want %v", err, tt.wantType)
			}
			if got := cache.IsRetryable(err); got != tt.isRetryErr {
				t.Errorf("IsRetryable = %v, want %v", got, tt.isRetryErr)
			}
		})
	}
}

package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ko3luhbka/dephell/pkg/cache"
)

func testClient(t *testing.T, server *httptest.Server, headers map[string]string) *Client {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	return NewClient(c, "test:", time.Hour, headers).WithHTTPClient(server.Client())
}

func TestNewClientNilBackend(t *testing.T) {
	client := NewClient(nil, "test:", time.Hour, nil)
	if client.cache == nil {
		t.Fatal("NewClient(nil) should fall back to a null cache")
	}
	if client.headers != nil {
		t.Error("NewClient() should allow nil headers")
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		json.NewEncoder(w).Encode(response{Message: "hello"})
	}))
	defer server.Close()

	var resp response
	if err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var gotDefault, gotOverride string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDefault = r.Header.Get("X-Default")
		gotOverride = r.Header.Get("X-Override")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer server.Close()

	client := testClient(t, server, map[string]string{"X-Default": "default", "X-Override": "default"})
	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), server.URL, map[string]string{"X-Override": "overridden"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if gotDefault != "default" || gotOverride != "overridden" {
		t.Errorf("headers = %q, %q", gotDefault, gotOverride)
	}
}

func TestClientGetText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("plain text response"))
	}))
	defer server.Close()

	text, err := testClient(t, server, nil).GetText(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetText() error: %v", err)
	}
	if text != "plain text response" {
		t.Errorf("GetText() = %q, want %q", text, "plain text response")
	}
}

func TestClientGetErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantIs    error
		retryable bool
	}{
		{"404", http.StatusNotFound, ErrNotFound, false},
		{"500", http.StatusInternalServerError, ErrNetwork, true},
		{"403", http.StatusForbidden, ErrNetwork, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			var resp map[string]string
			err := testClient(t, server, nil).Get(context.Background(), server.URL, &resp)
			if !errors.Is(err, tt.wantIs) {
				t.Errorf("Get() error = %v, want %v", err, tt.wantIs)
			}
			var retryErr *RetryableError
			if errors.As(err, &retryErr) != tt.retryable {
				t.Errorf("retryable = %v, want %v", !tt.retryable, tt.retryable)
			}
		})
	}
}

func TestClientCached(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	client := testClient(t, server, nil)

	type testData struct {
		Value string `json:"value"`
	}
	var fetches atomic.Int32
	fetch := func(v *testData) func() error {
		return func() error {
			fetches.Add(1)
			*v = testData{Value: "fetched"}
			return nil
		}
	}

	ctx := context.Background()
	var first testData
	if err := client.Cached(ctx, "key", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	var second testData
	if err := client.Cached(ctx, "key", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetches.Load() != 1 || second.Value != "fetched" {
		t.Errorf("fetches = %d, second = %+v; want one fetch and a cached value", fetches.Load(), second)
	}

	var refreshed testData
	if err := client.Cached(ctx, "key", true, &refreshed, fetch(&refreshed)); err != nil {
		t.Fatal(err)
	}
	if fetches.Load() != 2 {
		t.Errorf("refresh should bypass the cache, fetches = %d", fetches.Load())
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := NewClient(cache.NewNullCache(), "test:", time.Hour, nil)

	fetches := 0
	var value string
	err := client.Cached(context.Background(), "key", false, &value, func() error {
		fetches++
		return ErrNotFound // Non-retryable error
	})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Cached() error = %v, want ErrNotFound", err)
	}
	if fetches != 1 {
		t.Errorf("non-retryable error should not be retried, fetches = %d", fetches)
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
		{name: "503 Service Unavailable", code: 503, wantErr: true, isRetryErr: true},
		{name: "400 Bad Request", code: 400, wantErr: true},
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
			var retryErr *RetryableError
			if errors.As(err, &retryErr) != tt.isRetryErr {
				t.Errorf("checkStatus(%d) retryable mismatch: %T", tt.code, err)
			}
		})
	}
}

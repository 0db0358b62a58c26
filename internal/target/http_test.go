package target

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTargetInvoke(t *testing.T) {
	var (
		mu      sync.Mutex
		gotPath string
		gotBody string
		gotCT   string
		gotMeta string
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		gotPath = r.URL.Path
		gotBody = string(body)
		gotCT = r.Header.Get("Content-Type")
		gotMeta = r.Header.Get("X-Run-Id")
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tgt, err := NewHTTP(server.URL, map[string]string{"search": "/api/search"}, HTTPOptions{})
	require.NoError(t, err)

	err = tgt.Invoke(context.Background(), "search", `{"q":"hello"}`, map[string]string{"X-Run-Id": "abc"})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/api/search", gotPath)
	assert.Equal(t, `{"q":"hello"}`, gotBody)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, "abc", gotMeta)
}

func TestHTTPTargetUnknownMethod(t *testing.T) {
	var calls int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
	}))
	defer server.Close()

	tgt, err := NewHTTP(server.URL, map[string]string{"echo": "/echo"}, HTTPOptions{})
	require.NoError(t, err)

	err = tgt.Invoke(context.Background(), "Echo", nil, nil)
	require.Error(t, err)

	var sc StatusCoder
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, Unimplemented, sc.StatusCode())
	assert.Equal(t, int64(0), atomic.LoadInt64(&calls), "unknown selector must not hit the wire")
}

func TestHTTPTargetStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		httpStatus int
		want       Code
	}{
		{"bad request", http.StatusBadRequest, InvalidArgument},
		{"unauthorized", http.StatusUnauthorized, Unauthenticated},
		{"forbidden", http.StatusForbidden, PermissionDenied},
		{"not found", http.StatusNotFound, NotFound},
		{"too many requests", http.StatusTooManyRequests, ResourceExhausted},
		{"not implemented", http.StatusNotImplemented, Unimplemented},
		{"service unavailable", http.StatusServiceUnavailable, Unavailable},
		{"gateway timeout", http.StatusGatewayTimeout, DeadlineExceeded},
		{"other 5xx", http.StatusBadGateway, Internal},
		{"unmapped 4xx", http.StatusTeapot, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.httpStatus)
			}))
			defer server.Close()

			tgt, err := NewHTTP(server.URL, map[string]string{"call": "/"}, HTTPOptions{})
			require.NoError(t, err)

			err = tgt.Invoke(context.Background(), "call", nil, nil)
			require.Error(t, err)

			var sc StatusCoder
			require.True(t, errors.As(err, &sc))
			assert.Equal(t, tt.want, sc.StatusCode())
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestHTTPTargetCallTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	tgt, err := NewHTTP(server.URL, map[string]string{"slow": "/slow"}, HTTPOptions{CallTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	err = tgt.Invoke(context.Background(), "slow", nil, nil)
	require.Error(t, err)

	var sc StatusCoder
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, DeadlineExceeded, sc.StatusCode())
}

func TestHTTPTargetConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	tgt, err := NewHTTP(url, map[string]string{"call": "/"}, HTTPOptions{})
	require.NoError(t, err)

	err = tgt.Invoke(context.Background(), "call", nil, nil)
	require.Error(t, err)

	var sc StatusCoder
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, Unavailable, sc.StatusCode())
}

func TestHTTPTargetContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer server.Close()

	tgt, err := NewHTTP(server.URL, map[string]string{"call": "/"}, HTTPOptions{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = tgt.Invoke(ctx, "call", nil, nil)
	require.Error(t, err)

	var sc StatusCoder
	require.True(t, errors.As(err, &sc))
	assert.Equal(t, Canceled, sc.StatusCode())
}

func TestHTTPTargetPayloadEncodings(t *testing.T) {
	var (
		mu   sync.Mutex
		body string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body = string(b)
		mu.Unlock()
	}))
	defer server.Close()

	tgt, err := NewHTTP(server.URL, map[string]string{"call": "/"}, HTTPOptions{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload any
		want    string
	}{
		{"raw bytes pass through", []byte(`{"a":1}`), `{"a":1}`},
		{"string passes through", `{"b":2}`, `{"b":2}`},
		{"structured value marshals", map[string]int{"c": 3}, `{"c":3}`},
		{"nil sends empty body", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tgt.Invoke(context.Background(), "call", tt.payload, nil))
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, tt.want, body)
		})
	}
}

func TestNewHTTPValidation(t *testing.T) {
	_, err := NewHTTP("ftp://host", map[string]string{"a": "/a"}, HTTPOptions{})
	assert.Error(t, err)

	_, err = NewHTTP("http://host", nil, HTTPOptions{})
	assert.Error(t, err)

	_, err = NewHTTP("://broken", map[string]string{"a": "/a"}, HTTPOptions{})
	assert.Error(t, err)
}

func TestHTTPTargetMethods(t *testing.T) {
	tgt, err := NewHTTP("http://host", map[string]string{"b": "/b", "a": "/a", "c": "/c"}, HTTPOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, tgt.Methods())
}

package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(method, url string) RequestConfig {
	cfg := DefaultRequestConfig(method, url)
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return cfg
}

func TestRequestJSONPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"name":"replica_src"}`, string(body))
		w.Header().Set("X-Test", "yes")
		_, _ = w.Write([]byte(`ok`))
	}))
	defer srv.Close()

	resp, err := Request(context.Background(), testConfig(http.MethodPost, srv.URL), map[string]string{"name": "replica_src"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(resp.Body))
	assert.Equal(t, "yes", resp.Headers.Get("X-Test"))
}

func TestRequestRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "payload", string(body))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := Request(context.Background(), testConfig(http.MethodPut, srv.URL), "payload")
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequestClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"exists"}`))
	}))
	defer srv.Close()

	resp, err := Request(context.Background(), testConfig(http.MethodPost, srv.URL), nil)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusConflict, se.StatusCode)
	assert.JSONEq(t, `{"message":"exists"}`, string(se.Body))
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRequestGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testConfig(http.MethodGet, srv.URL)
	cfg.MaxRetries = 2
	_, err := Request(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRequestResponseHandler(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testConfig(http.MethodGet, srv.URL)
	cfg.ResponseHandler = func(r *Response) error { return nil }
	resp, err := Request(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRequestContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Request(ctx, testConfig(http.MethodGet, "http://127.0.0.1:1"), nil)
	assert.Error(t, err)
}

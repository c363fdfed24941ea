package network

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"product-filter/src/logger"
	"product-filter/src/models"
)

func newTestManager() *NetworkManager {
	cfg := &models.MConfig{Network: models.MNetworkConfig{RequestTimeout: 5, MaxRetries: 2, RetryDelayMs: 1, UserAgent: "test-agent"}}
	nm := NewNetworkManager(cfg, logger.NewLoggerTo(&bytes.Buffer{}, "DEBUG", "test"))
	nm.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return nm
}

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer k" || r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("headers = %v", r.Header)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["q"]})
	}))
	defer srv.Close()

	body, err := newTestManager().PostJSON(context.Background(), srv.URL, map[string]string{"Authorization": "Bearer k"}, map[string]string{"q": "rtx"})
	if err != nil {
		t.Fatalf("PostJSON returned %v", err)
	}
	var out map[string]string
	if err := json.Unmarshal(body, &out); err != nil || out["echo"] != "rtx" {
		t.Errorf("response = %s (%v); want echo rtx", body, err)
	}
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	body, err := newTestManager().PostJSON(context.Background(), srv.URL, nil, struct{}{})
	if err != nil || string(body) != "[]" {
		t.Fatalf("PostJSON = %s, %v; want [], nil", body, err)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d; want 3", n)
	}
}

func TestPostJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestManager().PostJSON(context.Background(), srv.URL, nil, struct{}{})
	var se *HTTPStatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Fatalf("PostJSON error = %v; want 401 HTTPStatusError", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("calls = %d; want 1", n)
	}
}

func TestPostJSONGivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestManager().PostJSON(context.Background(), srv.URL, nil, struct{}{})
	if err == nil {
		t.Fatal("PostJSON returned nil error")
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("calls = %d; want 3", n)
	}
}

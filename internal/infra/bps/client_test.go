package bps

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/minhdang/bpagent/internal/cache"
	"github.com/minhdang/bpagent/internal/core/config"
	"github.com/minhdang/bpagent/internal/core/errs"
)

// newTestClient points a client at a TLS test server. VerifySSL stays
// false, matching self-signed appliance certificates.
func newTestClient(t *testing.T, handler http.Handler, store *cache.Store) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	if store == nil {
		store = cache.NewDisabled(nil)
	}
	client, err := New(config.APIConfig{
		Host:       strings.TrimPrefix(srv.URL, "https://"),
		Username:   "admin",
		Password:   "secret",
		Timeout:    5 * time.Second,
		Retries:    2,
		RetryDelay: time.Millisecond,
	}, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, srv
}

// loginHandler accepts the session endpoint and delegates everything else.
func loginHandler(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/auth/session" {
			switch r.Method {
			case http.MethodPost:
				json.NewEncoder(w).Encode(map[string]any{"token": "session-token"})
			case http.MethodDelete:
				w.WriteHeader(http.StatusNoContent)
			}
			return
		}
		next(w, r)
	}
}

func mustLogin(t *testing.T, c *Client) {
	t.Helper()
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
}

func TestNewValidatesConfig(t *testing.T) {
	store := cache.NewDisabled(nil)

	if _, err := New(config.APIConfig{Username: "u", Password: "p"}, store, nil); errs.KindOf(err) != errs.KindValidation {
		t.Errorf("expected validation error for missing host, got %v", err)
	}
	if _, err := New(config.APIConfig{Host: "h"}, store, nil); errs.KindOf(err) != errs.KindValidation {
		t.Errorf("expected validation error for missing credentials, got %v", err)
	}
}

func TestLoginStoresTokenAndSendsHeader(t *testing.T) {
	var gotKey atomic.Value
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("X-API-KEY"))
		json.NewEncoder(w).Encode([]map[string]any{{"id": "1", "name": "t"}})
	}), nil)

	mustLogin(t, client)
	if _, err := client.GetTests(context.Background()); err != nil {
		t.Fatalf("GetTests: %v", err)
	}
	if gotKey.Load() != "session-token" {
		t.Errorf("expected X-API-KEY header, got %v", gotKey.Load())
	}
}

func TestLoginRejectedCredentials(t *testing.T) {
	attempts := int32(0)
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}), nil)

	err := client.Login(context.Background())
	if errs.KindOf(err) != errs.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
	// Auth failures must not be retried.
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestLoginMissingToken(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": "ok"})
	}), nil)

	if err := client.Login(context.Background()); errs.KindOf(err) != errs.KindAuth {
		t.Fatalf("expected auth error for missing token, got %v", err)
	}
}

func TestCallRequiresLogin(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be reached")
	}), nil)

	_, err := client.GetTests(context.Background())
	if errs.KindOf(err) != errs.KindAuth {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestNotFoundMapping(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), nil)
	mustLogin(t, client)

	_, err := client.GetTest(context.Background(), "missing-test")
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindNotFound {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if e.ResourceType != "tests" || e.ResourceID != "missing-test" {
		t.Errorf("unexpected resource fields: %q %q", e.ResourceType, e.ResourceID)
	}
}

func TestServerErrorRetriedThenSucceeds(t *testing.T) {
	attempts := int32(0)
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "1"})
	}), nil)
	mustLogin(t, client)

	got, err := client.GetTest(context.Background(), "1")
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if got["id"] != "1" {
		t.Errorf("unexpected payload: %v", got)
	}
	if n := atomic.LoadInt32(&attempts); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestClientErrorNotRetried(t *testing.T) {
	attempts := int32(0)
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadRequest)
	}), nil)
	mustLogin(t, client)

	_, err := client.CreateTest(context.Background(), map[string]any{"name": "x"})
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindAPI {
		t.Fatalf("expected api error, got %v", err)
	}
	if e.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", e.StatusCode)
	}
	if n := atomic.LoadInt32(&attempts); n != 1 {
		t.Errorf("expected 1 attempt, got %d", n)
	}
}

func TestNonJSONResponseWrappedAsRawContent(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}), nil)
	mustLogin(t, client)

	got, err := client.GetTest(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["raw_content"] != "<html>maintenance</html>" {
		t.Errorf("expected raw content passthrough, got %v", got)
	}
}

func TestGetTestResultsCacheFirst(t *testing.T) {
	store, err := cache.New(t.TempDir(), time.Hour, false, nil)
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	fetches := int32(0)
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&fetches, 1)
		json.NewEncoder(w).Encode(map[string]any{"status": "completed"})
	}), store)
	mustLogin(t, client)

	ctx := context.Background()
	first, err := client.GetTestResults(ctx, "t1", "r1", true)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := client.GetTestResults(ctx, "t1", "r1", true)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if first["status"] != "completed" || second["status"] != "completed" {
		t.Errorf("unexpected payloads: %v %v", first, second)
	}
	if n := atomic.LoadInt32(&fetches); n != 1 {
		t.Errorf("expected 1 network fetch, got %d", n)
	}

	// Bypassing the cache forces a network fetch.
	if _, err := client.GetTestResults(ctx, "t1", "r1", false); err != nil {
		t.Fatalf("bypass fetch: %v", err)
	}
	if n := atomic.LoadInt32(&fetches); n != 2 {
		t.Errorf("expected 2 network fetches, got %d", n)
	}

	// Invalidation drops the entry, so the next cached read refetches.
	client.InvalidateResults("t1", "r1")
	if _, err := client.GetTestResults(ctx, "t1", "r1", true); err != nil {
		t.Fatalf("refetch: %v", err)
	}
	if n := atomic.LoadInt32(&fetches); n != 3 {
		t.Errorf("expected 3 network fetches, got %d", n)
	}
}

func TestGetTestStatusDefaultsToUnknown(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}), nil)
	mustLogin(t, client)

	status, err := client.GetTestStatus(context.Background(), "t1", "r1")
	if err != nil {
		t.Fatalf("GetTestStatus: %v", err)
	}
	if status != "unknown" {
		t.Errorf("expected unknown, got %q", status)
	}
}

func TestLogoutNeverRaises(t *testing.T) {
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {}), nil)

	// No session: still reports success.
	if !client.Logout(context.Background()) {
		t.Error("logout without session should succeed")
	}

	mustLogin(t, client)
	if !client.Logout(context.Background()) {
		t.Error("logout should succeed")
	}
	// Token is gone: next call demands a fresh login.
	if _, err := client.GetTests(context.Background()); errs.KindOf(err) != errs.KindAuth {
		t.Errorf("expected auth error after logout, got %v", err)
	}
}

func TestHealthTracking(t *testing.T) {
	failNext := int32(1)
	client, _ := newTestClient(t, loginHandler(func(w http.ResponseWriter, r *http.Request) {
		if atomic.LoadInt32(&failNext) == 1 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"id": "1"})
	}), nil)
	mustLogin(t, client)

	_, _ = client.GetTest(context.Background(), "1")
	atomic.StoreInt32(&failNext, 0)
	_, _ = client.GetTest(context.Background(), "1")

	health := client.Health()
	if health.ErrorRate <= 0 || health.ErrorRate >= 1 {
		t.Errorf("expected fractional error rate, got %v", health.ErrorRate)
	}
	if health.LastSuccessAt.IsZero() || health.LastFailureAt.IsZero() {
		t.Error("expected both success and failure timestamps")
	}
}

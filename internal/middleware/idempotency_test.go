package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *IdempotencyStore {
	t.Helper()
	store := NewIdempotencyStore(IdempotencyConfig{TTL: time.Hour, Cleanup: time.Hour})
	t.Cleanup(store.Stop)
	return store
}

func submitRequest(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/registrations", strings.NewReader(body))
	req.RemoteAddr = "198.51.100.4:1234"
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	return req
}

// countingHandler registers once per call and reports the call number
func countingHandler(calls *atomic.Int32, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"call":` + string(rune('0'+n)) + `}`))
	})
}

// ============================================================================
// Configuration Tests
// ============================================================================

func TestNewIdempotencyStore_DefaultConfig(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{})
	defer store.Stop()

	if store.ttl != 24*time.Hour {
		t.Errorf("expected TTL 24h, got %v", store.ttl)
	}
}

func TestIdempotencyStore_StopTwice_DoesNotPanic(t *testing.T) {
	t.Parallel()
	store := NewIdempotencyStore(IdempotencyConfig{Cleanup: time.Millisecond})
	store.Stop()
	store.Stop()
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestIdempotency_SameKey_ReplaysFirstResponse(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusCreated))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, submitRequest("k1", `{"event":"Drama"}`))
	second := httptest.NewRecorder()
	handler.ServeHTTP(second, submitRequest("k1", `{"event":"Drama"}`))

	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
	if second.Code != http.StatusCreated {
		t.Errorf("expected replayed 201, got %d", second.Code)
	}
	if second.Body.String() != first.Body.String() {
		t.Errorf("expected replayed body %q, got %q", first.Body.String(), second.Body.String())
	}
	if second.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Error("expected replay marker header")
	}
	if first.Header().Get("X-Idempotency-Replayed") != "" {
		t.Error("first response must not carry the replay marker")
	}
}

func TestIdempotency_RejectionIsReplayedToo(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusUnprocessableEntity))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, submitRequest("k1", `{}`))
		if rr.Code != http.StatusUnprocessableEntity {
			t.Errorf("attempt %d: expected 422, got %d", i+1, rr.Code)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("expected one evaluation, got %d", calls.Load())
	}
}

func TestIdempotency_DifferentBody_IsNewSubmission(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("k1", `{"event":"Drama"}`))
	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("k1", `{"event":"Debate"}`))

	if calls.Load() != 2 {
		t.Errorf("expected two evaluations, got %d", calls.Load())
	}
}

func TestIdempotency_NoKey_AlwaysRuns(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusCreated))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("", `{}`))

	if calls.Load() != 2 {
		t.Errorf("expected two evaluations, got %d", calls.Load())
	}
}

func TestIdempotency_GetRequest_Ignored(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusOK))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/registrations", nil)
		req.Header.Set("Idempotency-Key", "k1")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls.Load() != 2 {
		t.Errorf("expected GETs to bypass the store, got %d calls", calls.Load())
	}
}

func TestIdempotency_ServerError_NotCached(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	handler := Idempotency(newTestStore(t))(countingHandler(&calls, http.StatusInternalServerError))

	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("k1", `{}`))
	handler.ServeHTTP(httptest.NewRecorder(), submitRequest("k1", `{}`))

	if calls.Load() != 2 {
		t.Errorf("expected retry after 500 to run again, got %d calls", calls.Load())
	}
}

func TestIdempotency_Panic_ReleasesKey(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	panicking := Idempotency(store)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	func() {
		defer func() { _ = recover() }()
		panicking.ServeHTTP(httptest.NewRecorder(), submitRequest("k1", `{}`))
	}()

	var calls atomic.Int32
	handler := Idempotency(store)(countingHandler(&calls, http.StatusCreated))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, submitRequest("k1", `{}`))

	if rr.Code != http.StatusCreated || calls.Load() != 1 {
		t.Errorf("expected fresh evaluation after panic, got status %d calls %d", rr.Code, calls.Load())
	}
}

func TestIdempotency_ConcurrentDuplicates_RunOnce(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	release := make(chan struct{})
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		w.WriteHeader(http.StatusCreated)
	})
	handler := Idempotency(newTestStore(t))(slow)

	var wg sync.WaitGroup
	codes := make([]int, 5)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, submitRequest("double-click", `{"event":"Drama"}`))
			codes[i] = rr.Code
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one evaluation, got %d", calls.Load())
	}
	for i, code := range codes {
		if code != http.StatusCreated {
			t.Errorf("request %d: expected 201, got %d", i, code)
		}
	}
}

func TestIdempotencyStore_Cleanup_DropsExpired(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	store.entries["old"] = &idempotencyEntry{expiresAt: time.Now().Add(-time.Minute)}
	store.entries["live"] = &idempotencyEntry{expiresAt: time.Now().Add(time.Minute)}
	store.entries["running"] = &idempotencyEntry{inFlight: true}

	store.cleanup(time.Now())

	if _, ok := store.entries["old"]; ok {
		t.Error("expired entry should be dropped")
	}
	if _, ok := store.entries["live"]; !ok {
		t.Error("live entry should be kept")
	}
	if _, ok := store.entries["running"]; !ok {
		t.Error("in-flight entry should be kept")
	}
}

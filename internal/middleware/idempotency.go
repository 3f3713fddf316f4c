package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/forgo/festreg/internal/model"
)

// maxIdempotentBody bounds how much of a request body is buffered for fingerprinting
const maxIdempotentBody = 1 << 20

// IdempotencyStore remembers responses to keyed submissions so a retried
// or double-clicked submit replays the first outcome instead of registering twice
type IdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
}

type idempotencyEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
	inFlight  bool
	done      chan struct{}
}

// IdempotencyConfig holds configuration for idempotency middleware
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewIdempotencyStore creates a store and starts its cleanup loop
func NewIdempotencyStore(cfg IdempotencyConfig) *IdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}

	store := &IdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		stopChan: make(chan struct{}),
	}
	go store.cleanupLoop(cfg.Cleanup)
	return store
}

// Stop stops the cleanup goroutine; it is safe to call more than once
func (s *IdempotencyStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

func (s *IdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup(time.Now())
		case <-s.stopChan:
			return
		}
	}
}

func (s *IdempotencyStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, entry := range s.entries {
		if !entry.inFlight && entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// begin claims key for a new request, or returns the entry that already owns it
func (s *IdempotencyStore) begin(key string) (entry *idempotencyEntry, owner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.entries[key]; ok && (existing.inFlight || existing.expiresAt.After(time.Now())) {
		return existing, false
	}
	entry = &idempotencyEntry{inFlight: true, done: make(chan struct{})}
	s.entries[key] = entry
	return entry, true
}

// finish records the outcome. Server errors are forgotten so the client can retry.
func (s *IdempotencyStore) finish(key string, entry *idempotencyEntry, rec *idempotencyResponseWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.status = rec.status
	entry.headers = rec.Header().Clone()
	entry.body = rec.body.Bytes()
	entry.expiresAt = time.Now().Add(s.ttl)
	entry.inFlight = false
	if rec.status >= http.StatusInternalServerError {
		delete(s.entries, key)
	}
	close(entry.done)
}

// fingerprint binds the key to the caller and the exact request so a reused key
// with a different body is treated as a new submission
func fingerprint(client, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	for _, part := range []string{client, idempotencyKey, method, path} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for caching
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// replay writes a cached response. Headers the outer middleware already set
// for this request win over the cached copies.
func replay(w http.ResponseWriter, entry *idempotencyEntry) {
	for k, v := range entry.headers {
		if _, set := w.Header()[k]; set {
			continue
		}
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(entry.status)
	_, _ = w.Write(entry.body)
}

// Idempotency returns middleware that honours the Idempotency-Key header on POST and PATCH
func Idempotency(store *IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}
			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxIdempotentBody+1))
			if err != nil {
				model.NewBadRequestError("unable to read request body").WriteJSON(w)
				return
			}
			if len(body) > maxIdempotentBody {
				model.NewBadRequestError("request body too large").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := fingerprint(ClientKey(r), idempotencyKey, r.Method, r.URL.Path, body)
			for {
				entry, owner := store.begin(key)
				if owner {
					rec := &idempotencyResponseWriter{ResponseWriter: w, status: http.StatusOK}
					finished := false
					defer func() {
						if !finished {
							rec.status = http.StatusInternalServerError
							store.finish(key, entry, rec)
						}
					}()
					next.ServeHTTP(rec, r)
					store.finish(key, entry, rec)
					finished = true
					return
				}

				select {
				case <-entry.done:
				case <-r.Context().Done():
					return
				}

				store.mu.Lock()
				cached := *entry
				stillKnown := store.entries[key] == entry
				store.mu.Unlock()
				if stillKnown {
					replay(w, &cached)
					return
				}
				// The first attempt failed with a server error; run this one for real.
			}
		})
	}
}

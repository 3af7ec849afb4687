package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lromero/storefront-backend/internal/identity"
)

type stubLimiterStore struct {
	allowed   bool
	err       error
	lastScope string
}

func (s *stubLimiterStore) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	s.lastScope = scope
	return s.allowed, 1, s.err
}

func limitedRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	return req.WithContext(WithIdentity(req.Context(), identity.Customer(uuid.New())))
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	store := &stubLimiterStore{allowed: true}
	policy := NewRateLimitPolicy("checkout", time.Minute, 5)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, limitedRequest())

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if store.lastScope == "" {
		t.Fatal("expected store to be consulted")
	}
}

func TestRateLimitThrottlesOverLimit(t *testing.T) {
	store := &stubLimiterStore{allowed: false}
	policy := NewRateLimitPolicy("checkout", time.Minute, 5)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, limitedRequest())

	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", resp.Code)
	}
}

func TestRateLimitFailsOpenOnStoreError(t *testing.T) {
	store := &stubLimiterStore{err: errors.New("redis down")}
	policy := NewRateLimitPolicy("checkout", time.Minute, 5)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, limitedRequest())

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRateLimitSkipsDisabledPolicy(t *testing.T) {
	store := &stubLimiterStore{allowed: false}
	policy := NewRateLimitPolicy("checkout", 0, 0)
	handler := RateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, limitedRequest())

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if store.lastScope != "" {
		t.Fatal("disabled policy must not hit the store")
	}
}

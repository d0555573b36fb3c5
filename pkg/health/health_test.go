package health

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessReflectsStart(t *testing.T) {
	s := NewServer()
	h := s.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before Start, got %d", rec.Code)
	}

	s.Start()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 after Start, got %d", rec.Code)
	}
}

func TestReadinessFailsWhenACheckerFails(t *testing.T) {
	s := NewServer()
	s.Start()
	s.Register("store", func() error { return nil })
	s.Register("rpc", func() error { return errors.New("connection refused") })

	h := s.Handler()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when a checker fails, got %d", rec.Code)
	}
}

func TestReadinessSucceedsWhenAllCheckersPass(t *testing.T) {
	s := NewServer()
	s.Start()
	s.Register("store", func() error { return nil })

	h := s.Handler()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when all checkers pass, got %d", rec.Code)
	}
}

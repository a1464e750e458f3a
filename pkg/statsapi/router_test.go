package statsapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_HealthzRoute(t *testing.T) {
	router := NewRouter(nil, nil)

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRouter_DebugCapsRoute(t *testing.T) {
	router := NewRouter(nil, nil)

	req := httptest.NewRequest("GET", "/debug/caps", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRouter_DebugClientsRoute(t *testing.T) {
	router := NewRouter(nil, nil)

	req := httptest.NewRequest("GET", "/debug/clients", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestRouter_UnknownRouteReturns404(t *testing.T) {
	router := NewRouter(nil, nil)

	req := httptest.NewRequest("GET", "/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

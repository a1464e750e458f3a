package statsapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fusexd/metacore/pkg/cap"
	"github.com/fusexd/metacore/pkg/registry"
)

func TestHealthz_ReturnsOK(t *testing.T) {
	handler := NewHandler(nil, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()

	handler.Healthz(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "healthy" {
		t.Errorf("expected status 'healthy', got %q", resp.Status)
	}
}

func TestMetrics_DisabledReturns404(t *testing.T) {
	handler := NewHandler(nil, nil)
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	handler.Metrics(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestCaps_NilStoreReturnsEmptyList(t *testing.T) {
	handler := NewHandler(nil, nil)
	req := httptest.NewRequest("GET", "/debug/caps", nil)
	w := httptest.NewRecorder()

	handler.Caps(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	views, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected Data to be an array, got %T", resp.Data)
	}
	if len(views) != 0 {
		t.Errorf("expected empty caps list, got %d entries", len(views))
	}
}

func TestCaps_ReturnsStoredCaps(t *testing.T) {
	store := cap.NewStore(nil)
	store.Store(&cap.Cap{
		AuthID:     "authid-1",
		Inode:      42,
		ClientID:   "client-1",
		ClientUUID: "uuid-1",
		Vtime:      time.Now().Add(time.Minute),
	})

	handler := NewHandler(nil, store)
	req := httptest.NewRequest("GET", "/debug/caps", nil)
	w := httptest.NewRecorder()

	handler.Caps(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	views, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected Data to be an array, got %T", resp.Data)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 cap, got %d", len(views))
	}
	view := views[0].(map[string]interface{})
	if view["authid"] != "authid-1" {
		t.Errorf("expected authid 'authid-1', got %v", view["authid"])
	}
	if view["inode"].(float64) != 42 {
		t.Errorf("expected inode 42, got %v", view["inode"])
	}
}

func TestClients_NilRegistryReturnsEmptyList(t *testing.T) {
	handler := NewHandler(nil, nil)
	req := httptest.NewRequest("GET", "/debug/clients", nil)
	w := httptest.NewRecorder()

	handler.Clients(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	views, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected Data to be an array, got %T", resp.Data)
	}
	if len(views) != 0 {
		t.Errorf("expected empty clients list, got %d entries", len(views))
	}
}

func TestClients_ReturnsTrackedSessions(t *testing.T) {
	capStore := cap.NewStore(nil)
	reg := registry.New(capStore, nil, nil, nil, nil, registry.Config{})

	now := time.Now()
	reg.Dispatch("client-1", registry.Heartbeat{
		Version:   "5.2.0",
		UUID:      "uuid-1",
		StartTime: now,
		Clock:     now,
		LeaseTime: time.Minute,
	}, now)

	handler := NewHandler(reg, capStore)
	req := httptest.NewRequest("GET", "/debug/clients", nil)
	w := httptest.NewRecorder()

	handler.Clients(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	views, ok := resp.Data.([]interface{})
	if !ok {
		t.Fatalf("expected Data to be an array, got %T", resp.Data)
	}
	if len(views) != 1 {
		t.Fatalf("expected 1 client, got %d", len(views))
	}
	view := views[0].(map[string]interface{})
	if view["clientid"] != "client-1" {
		t.Errorf("expected clientid 'client-1', got %v", view["clientid"])
	}
	if view["clientuuid"] != "uuid-1" {
		t.Errorf("expected clientuuid 'uuid-1', got %v", view["clientuuid"])
	}
}

package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tinybites/tinybites/internal/config"
)

func TestHealthz(t *testing.T) {
	cfg := &config.Config{Port: 8080}
	srv := New(cfg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status=ok, got %s", resp["status"])
	}
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	cfg := &config.Config{Port: 8080}
	srv := New(cfg)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	w := httptest.NewRecorder()

	srv.mux.ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestDefaultUserSeesSeededBaby(t *testing.T) {
	cfg := &config.Config{Port: 8080}
	srv := New(cfg)

	handler := defaultUserMiddleware(srv.mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/babies", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Babies []struct {
			Name string `json:"name"`
		} `json:"babies"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Babies) != 1 || resp.Babies[0].Name != "Demo Baby" {
		t.Errorf("expected seeded Demo Baby, got %+v", resp.Babies)
	}
}

func TestFoodSearchRoute(t *testing.T) {
	cfg := &config.Config{Port: 8080}
	srv := New(cfg)

	handler := defaultUserMiddleware(srv.mux)

	req := httptest.NewRequest(http.MethodGet, "/v1/foods?q=banana", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Foods []struct {
			ID string `json:"id"`
		} `json:"foods"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(resp.Foods) != 1 || resp.Foods[0].ID != "banana" {
		t.Errorf("expected banana match, got %+v", resp.Foods)
	}
}

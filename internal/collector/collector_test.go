package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/probekit/probekit/internal/logstore"
)

func newServer(t *testing.T) (*Server, *logstore.Store) {
	t.Helper()
	store := logstore.New(filepath.Join(t.TempDir(), "debug.log"))
	if err := store.Reset(); err != nil {
		t.Fatal(err)
	}
	return New(store, zap.NewNop()), store
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("health body not JSON: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestLogEndpointStoresEntry(t *testing.T) {
	s, store := newServer(t)

	payload := `{"id": "i-1", "location": "app.js:4", "timestamp": 1000, "data": {"x": 1}}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}

	docs, err := store.ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Fatalf("store holds %d docs, want 1", len(docs))
	}
	if docs[0]["id"] != "i-1" {
		t.Errorf("stored id = %v", docs[0]["id"])
	}
	if recv, ok := docs[0]["receivedAt"].(float64); !ok || recv <= 0 {
		t.Errorf("stored receivedAt = %v, want positive unix-millis", docs[0]["receivedAt"])
	}
}

func TestLogEndpointRejectsMalformedJSON(t *testing.T) {
	s, store := newServer(t)

	for _, payload := range []string{"not json", `{"truncated": `, `"a bare string"`, `42`} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		s.Handler().ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("payload %q: status = %d, want 400", payload, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Invalid JSON") {
			t.Errorf("payload %q: body = %s", payload, rec.Body.String())
		}
	}

	n, err := store.Count()
	if err != nil || n != 0 {
		t.Errorf("rejected payloads reached the store: Count = (%d, %v)", n, err)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	s, _ := newServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPreflightCarriesCORSHeaders(t *testing.T) {
	s, _ := newServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/log", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "POST") {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST included", got)
	}
}

func TestCrossOriginPostIsAllowed(t *testing.T) {
	s, _ := newServer(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/log", strings.NewReader(`{"id": "x"}`))
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Content-Type", "application/json")
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestStartBindsLoopbackAndServes(t *testing.T) {
	s, _ := newServer(t)

	if err := s.Start(0); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := s.Shutdown(ctx); err != nil {
			t.Errorf("Shutdown: %v", err)
		}
	}()

	port := s.Port()
	if port == 0 {
		t.Fatal("Port() = 0 after Start")
	}

	resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
}

func TestStartFailsOnBusyPort(t *testing.T) {
	first, _ := newServer(t)
	if err := first.Start(0); err != nil {
		t.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		first.Shutdown(ctx)
	}()

	second, _ := newServer(t)
	if err := second.Start(first.Port()); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		second.Shutdown(ctx)
		t.Fatal("Start on a busy port did not fail")
	}
}

func TestShutdownBeforeStartIsNoOp(t *testing.T) {
	s, _ := newServer(t)
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown before Start: %v", err)
	}
}

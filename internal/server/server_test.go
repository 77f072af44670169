package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/can2mqtt/internal/auth"
	"github.com/danmuck/can2mqtt/internal/bridge"
	"github.com/danmuck/can2mqtt/internal/routing"
	"github.com/danmuck/can2mqtt/internal/testutil/testlog"
)

type stubRoutes struct {
	snap bridge.Snapshot
	ok   bool
}

func (s stubRoutes) Snapshot() (bridge.Snapshot, bool) {
	return s.snap, s.ok
}

func serve(t *testing.T, a *Admin, method, path string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(rr, req)
	var body map[string]any
	if rr.Body.Len() > 0 && rr.Header().Get("Content-Type") != "" && path != "/metrics" {
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s %s: decode: %v body=%s", method, path, err, rr.Body.String())
		}
	}
	return rr.Code, body
}

func TestReadyReflectsFirstLoad(t *testing.T) {
	logger := testlog.Start(t)
	a := New(Options{Addr: ":0", Routes: stubRoutes{}}, logger)
	if code, body := serve(t, a, http.MethodGet, "/ready"); code != http.StatusServiceUnavailable || body["ready"] != false {
		t.Fatalf("before load: code=%d body=%v", code, body)
	}

	a = New(Options{Addr: ":0", Routes: stubRoutes{snap: bridge.Snapshot{Seq: 1}, ok: true}}, logger)
	if code, body := serve(t, a, http.MethodGet, "/ready"); code != http.StatusOK || body["ready"] != true {
		t.Fatalf("after load: code=%d body=%v", code, body)
	}
	if code, body := serve(t, a, http.MethodGet, "/health"); code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: code=%d body=%v", code, body)
	}
}

func TestRoutesListsSnapshot(t *testing.T) {
	logger := testlog.Start(t)
	snap := bridge.Snapshot{
		Seq:      3,
		LoadedAt: time.Now(),
		Entries: []routing.Entry{
			{Line: 1, ID: 0x123, Converter: "none", Topic: "car/door"},
			{Line: 2, ID: 0x800, Converter: "bytecolor2colorcode", Topic: "light"},
		},
		LastErr: "line 4: routing: invalid CAN ID",
	}
	a := New(Options{Addr: ":0", Routes: stubRoutes{snap: snap, ok: true}}, logger)
	code, body := serve(t, a, http.MethodGet, "/routes")
	if code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	routes, ok := body["routes"].([]any)
	if !ok || len(routes) != 2 {
		t.Fatalf("routes=%v", body["routes"])
	}
	first := routes[0].(map[string]any)
	if first["topic"] != "car/door" || first["id"] != float64(0x123) {
		t.Fatalf("first route=%v", first)
	}
	if body["generation"] != float64(3) || body["last_error"] != snap.LastErr {
		t.Fatalf("body=%v", body)
	}
}

func TestReloadTrigger(t *testing.T) {
	logger := testlog.Start(t)
	calls := 0
	a := New(Options{Addr: ":0", Routes: stubRoutes{}, Reload: func(ctx context.Context) error {
		calls++
		return nil
	}}, logger)
	if code, _ := serve(t, a, http.MethodPost, "/api/reload"); code != http.StatusAccepted || calls != 1 {
		t.Fatalf("code=%d calls=%d", code, calls)
	}

	a = New(Options{Addr: ":0", Routes: stubRoutes{}, Reload: func(ctx context.Context) error {
		return errors.New("shutting down")
	}}, logger)
	if code, body := serve(t, a, http.MethodPost, "/api/reload"); code != http.StatusServiceUnavailable || body["error"] != "shutting down" {
		t.Fatalf("code=%d body=%v", code, body)
	}

	a = New(Options{Addr: ":0", Routes: stubRoutes{}}, logger)
	if code, _ := serve(t, a, http.MethodPost, "/api/reload"); code != http.StatusServiceUnavailable {
		t.Fatalf("code=%d", code)
	}
}

func TestReloadRequiresToken(t *testing.T) {
	logger := testlog.Start(t)
	calls := 0
	a := New(Options{
		Addr:   ":0",
		Routes: stubRoutes{},
		Reload: func(ctx context.Context) error {
			calls++
			return nil
		},
		Guard: auth.StaticToken{Token: "s3cret"},
	}, logger)

	for _, header := range []string{"", "Bearer nope"} {
		req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rr := httptest.NewRecorder()
		a.HTTPRouter().ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%q: code=%d", header, rr.Code)
		}
	}
	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rr := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusAccepted || calls != 1 {
		t.Fatalf("code=%d calls=%d", rr.Code, calls)
	}
	if code, _ := serve(t, a, http.MethodGet, "/routes"); code != http.StatusOK {
		t.Fatalf("reads stay open: code=%d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	logger := testlog.Start(t)
	a := New(Options{Addr: ":0", Routes: stubRoutes{}}, logger)
	serve(t, a, http.MethodGet, "/health")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	a.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "can2mqtt_http_requests_total") {
		t.Fatalf("metrics missing admin counter")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	logger := testlog.Start(t)
	a := New(Options{Addr: "127.0.0.1:0", Routes: stubRoutes{}}, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("admin did not stop")
	}
}

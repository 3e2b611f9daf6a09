package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	pingOK   = pingerFunc(func(context.Context) error { return nil })
	pingFail = pingerFunc(func(context.Context) error { return errors.New("down") })
)

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	cases := []struct {
		name      string
		connected bool
		api       Pinger
		redis     Pinger
		want      int
	}{
		{name: "connected without api", connected: true, api: pingFail, want: http.StatusOK},
		{name: "api only", connected: false, api: pingOK, want: http.StatusOK},
		{name: "nothing reachable", connected: false, api: pingFail, want: http.StatusServiceUnavailable},
		{name: "redis down", connected: true, api: pingOK, redis: pingFail, want: http.StatusServiceUnavailable},
		{name: "all up", connected: true, api: pingOK, redis: pingOK, want: http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			HealthReady(cfg, testLogger(), &testFeed{connected: tc.connected}, tc.api, tc.redis)(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d: %s", tc.want, resp.Code, resp.Body.String())
			}
		})
	}
}

func TestHealthLiveAndConnection(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	resp := httptest.NewRecorder()
	HealthLive(cfg)(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK || resp.Header().Get("X-ForkFinderz-Env") != "dev" {
		t.Fatalf("unexpected live response %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	Connection(&testFeed{connected: true})(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.Code)
	}
}

type snapshotFunc func() restaurants.Snapshot

func (f snapshotFunc) Snapshot() restaurants.Snapshot { return f() }

func TestWatchedRestaurant(t *testing.T) {
	resp := httptest.NewRecorder()
	WatchedRestaurant(nil, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without watcher, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	WatchedRestaurant(snapshotFunc(func() restaurants.Snapshot { return restaurants.Snapshot{} }), testLogger())(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

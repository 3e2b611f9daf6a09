package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/api/responses"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

const readyProbeTimeout = 3 * time.Second

// Pinger is a dependency health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionReporter exposes the realtime transport status.
type ConnectionReporter interface {
	IsConnected() bool
	ConnectionState() enums.ConnectionState
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ForkFinderz-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady is ready when notifications can flow: the transport is connected
// or the REST API answers. A configured Redis seen-set must also answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, conn ConnectionReporter, api Pinger, redisClient Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-ForkFinderz-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
		defer cancel()

		checks := map[string]string{}
		connected := conn != nil && conn.IsConnected()
		state := enums.ConnectionStateDisconnected
		if conn != nil {
			state = conn.ConnectionState()
		}
		checks["realtime"] = string(state)

		apiOK := false
		if api != nil {
			if err := api.Ping(ctx); err != nil {
				checks["api"] = "unreachable"
			} else {
				checks["api"] = "ok"
				apiOK = true
			}
		}

		redisOK := true
		if redisClient != nil {
			if err := redisClient.Ping(ctx); err != nil {
				checks["redis"] = "unreachable"
				redisOK = false
			} else {
				checks["redis"] = "ok"
			}
		}

		if (!connected && !apiOK) || !redisOK {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "not ready").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"status":          "ready",
			"connectionState": state,
			"checks":          checks,
		})
	}
}

// Connection reports the realtime transport status.
func Connection(conn ConnectionReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]any{
			"connected": conn.IsConnected(),
			"state":     conn.ConnectionState(),
		})
	}
}

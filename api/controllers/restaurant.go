package controllers

import (
	"net/http"

	"github.com/angelmondragon/forkfinderz-realtime/api/responses"
	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// RestaurantSnapshotter exposes the watched restaurant state.
type RestaurantSnapshotter interface {
	Snapshot() restaurants.Snapshot
}

// WatchedRestaurant returns the last polled detail and reviews.
func WatchedRestaurant(watcher RestaurantSnapshotter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if watcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no restaurant is being watched"))
			return
		}
		responses.WriteSuccess(w, watcher.Snapshot())
	}
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/forkfinderz-realtime/api/controllers"
	"github.com/angelmondragon/forkfinderz-realtime/api/middleware"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// Params carries the collaborators the local API serves.
type Params struct {
	Config   *config.Config
	Logger   *logger.Logger
	Feed     controllers.NotificationFeed
	Session  controllers.SessionManager
	Watcher  controllers.RestaurantSnapshotter
	API      controllers.Pinger
	Redis    controllers.Pinger
	Gatherer prometheus.Gatherer
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Feed, p.API, p.Redis))
	})

	if p.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", controllers.SessionStatus(p.Session))
			r.Post("/", controllers.SessionStart(p.Session, logg))
			r.Delete("/", controllers.SessionEnd(p.Session, logg))
		})

		r.Get("/connection", controllers.Connection(p.Feed))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(p.Feed, logg))
			r.Get("/unread-count", controllers.UnreadCount(p.Feed))
			r.Post("/next-page", controllers.FetchNextPage(p.Feed, logg))
			r.Post("/refresh", controllers.RefreshNotifications(p.Feed, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(p.Feed, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(p.Feed, logg))
		})

		r.Get("/restaurant", controllers.WatchedRestaurant(p.Watcher, logg))
	})

	return r
}

package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/forkfinderz-realtime/api"
	"github.com/angelmondragon/forkfinderz-realtime/api/controllers"
	"github.com/angelmondragon/forkfinderz-realtime/api/routes"
	"github.com/angelmondragon/forkfinderz-realtime/internal/backend"
	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/internal/poll"
	"github.com/angelmondragon/forkfinderz-realtime/internal/realtime"
	"github.com/angelmondragon/forkfinderz-realtime/internal/restaurants"
	"github.com/angelmondragon/forkfinderz-realtime/internal/session"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/idempotency"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/instance"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/metrics"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/redis"
)

const serviceName = "notifyd"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     cfg.App.ListenAddr,
		"instance": instance.GetID(),
	})

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "notifyd stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "notifyd shut down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	realtimeMetrics := metrics.NewRealtimeMetrics(reg)
	pollMetrics := metrics.NewPollJobMetrics(reg)

	var redisClient *redis.Client
	if cfg.Session.UsesRedis() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bootstrap redis")
		}
		defer func() {
			err = multierr.Append(err, redisClient.Close())
		}()
	}

	seen, err := buildSeenSet(cfg, redisClient)
	if err != nil {
		return err
	}

	restAPI, err := backend.NewClientFromConfig(cfg.Backend, backend.WithLogger(logg))
	if err != nil {
		return err
	}

	transport, err := realtime.NewClient(
		realtime.ConfigFrom(cfg.Realtime),
		realtime.WithLogger(logg),
		realtime.WithMetrics(realtimeMetrics),
	)
	if err != nil {
		return err
	}

	sortDirection, err := enums.ParseSortDirection(cfg.Backend.SortDirection)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse sort direction")
	}

	toaster := newTerminalToaster(os.Stdout, logg)
	feed, err := notifications.NewFeed(
		notifications.FeedConfig{
			PageSize:      cfg.Backend.PageSize,
			SortBy:        cfg.Backend.SortBy,
			SortDirection: sortDirection,
		},
		restAPI,
		transport,
		seen,
		toaster,
		notifications.WithLogger(logg),
		notifications.WithMetrics(realtimeMetrics),
	)
	if err != nil {
		return err
	}

	var (
		watcher    *restaurants.Watcher
		pollRunner *poll.Service
	)
	if cfg.Watch.Enabled() {
		watcher, err = restaurants.NewWatcher(restaurants.ConfigFrom(cfg.Watch), restAPI, toaster, restaurants.WithLogger(logg))
		if err != nil {
			return err
		}
		defer watcher.Close()

		var lock poll.Lock
		if redisClient != nil {
			key := redisClient.LockKey("poll:restaurant:" + strconv.FormatInt(cfg.Watch.RestaurantID, 10))
			lock, err = poll.NewRedisLock(redisClient, key, cfg.Watch.PollInterval)
			if err != nil {
				return err
			}
		}
		pollRunner, err = poll.NewService(poll.ServiceParams{
			Logger:   logg,
			Registry: poll.NewRegistry(watcher.Job()),
			Lock:     lock,
			Metrics:  pollMetrics,
			Interval: cfg.Watch.PollInterval,
		})
		if err != nil {
			return err
		}
	}

	sessionParams := session.Params{
		Tokens: restAPI,
		Feed:   feed,
		Logger: logg,
		OnStart: func() {
			transport.OnConnectError(func(connErr error) {
				if errors.Is(connErr, realtime.ErrReconnectExhausted) {
					logg.Warn(ctx, "realtime gave up reconnecting; serving history only until next login")
					return
				}
				logg.Error(ctx, "realtime connect failed", connErr)
			})
		},
	}
	if watcher != nil {
		sessionParams.Watcher = watcher
		sessionParams.Reviews = transport
	}
	if scoped, ok := seen.(session.SeenScope); ok {
		sessionParams.Seen = scoped
	}
	sessions := session.NewManager(sessionParams)
	defer func() {
		err = multierr.Append(err, sessions.Logout(context.Background()))
	}()

	if cfg.Session.Token != "" {
		if _, loginErr := sessions.Login(ctx, cfg.Session.Token); loginErr != nil {
			logg.Error(ctx, "initial login failed; waiting for a token on the local api", loginErr)
		}
	}

	badges, unsubscribe := feed.Subscribe()
	defer unsubscribe()

	routerParams := routes.Params{
		Config:   cfg,
		Logger:   logg,
		Feed:     feed,
		Session:  sessions,
		API:      restAPI,
		Gatherer: reg,
	}
	if watcher != nil {
		routerParams.Watcher = watcher
	}
	if redisClient != nil {
		routerParams.Redis = redisClient
	}
	server := api.NewServer(cfg.App.ListenAddr, routes.NewRouter(routerParams), logg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		logBadges(gctx, logg, badges)
		return nil
	})
	if pollRunner != nil {
		g.Go(func() error {
			if err := pollRunner.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	logg.Info(ctx, "notifyd started")
	return g.Wait()
}

// buildSeenSet returns the processed-id set. The Redis set starts unscoped;
// each login rescopes it to its user.
func buildSeenSet(cfg *config.Config, redisClient *redis.Client) (notifications.SeenSet, error) {
	if redisClient == nil {
		return notifications.NewMemorySeenSet(cfg.Session.SeenCapacity)
	}
	manager, err := idempotency.NewManager(redisClient, cfg.Session.SeenTTL)
	if err != nil {
		return nil, err
	}
	return notifications.NewRedisSeenSet(manager, "")
}

// logBadges logs unread-count changes until ctx ends.
func logBadges(ctx context.Context, logg *logger.Logger, updates <-chan notifications.Snapshot) {
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if snap.UnreadCount == last {
				continue
			}
			last = snap.UnreadCount
			logg.Info(logg.WithField(ctx, "unread", snap.UnreadCount), "badge updated")
		}
	}
}

var (
	_ controllers.NotificationFeed = (*notifications.Feed)(nil)
	_ controllers.SessionManager   = (*session.Manager)(nil)
)

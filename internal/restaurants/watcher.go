package restaurants

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/forkfinderz-realtime/internal/backend"
	"github.com/angelmondragon/forkfinderz-realtime/internal/notifications"
	"github.com/angelmondragon/forkfinderz-realtime/internal/poll"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/config"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/pagination"
)

const (
	detailJobName       = "restaurant-detail"
	defaultReviewsSize  = 5
	defaultFetchTimeout = 30 * time.Second
)

// API is the subset of the REST client the watcher reads from.
type API interface {
	GetRestaurant(ctx context.Context, id int64) (*backend.Restaurant, error)
	ListRestaurantReviews(ctx context.Context, id int64, page, size int) (*pagination.Page[backend.Review], error)
	GetReview(ctx context.Context, id string) (*backend.Review, error)
}

// ReviewSource delivers derived review events.
type ReviewSource interface {
	OnReview(fn notifications.ReviewListener) func()
}

// Config selects the watched restaurant.
type Config struct {
	RestaurantID int64
	ReviewsSize  int
	FetchTimeout time.Duration
}

// ConfigFrom maps the env-driven watch config.
func ConfigFrom(cfg config.WatchConfig) Config {
	return Config{RestaurantID: cfg.RestaurantID, ReviewsSize: cfg.ReviewsSize}
}

// Snapshot is the last polled state of the watched restaurant.
type Snapshot struct {
	Restaurant *backend.Restaurant `json:"restaurant"`
	Reviews    []backend.Review    `json:"reviews"`
	UpdatedAt  time.Time           `json:"updatedAt"`
}

// Watcher keeps a restaurant's detail and reviews fresh and reacts to review
// events that concern it.
type Watcher struct {
	cfg     Config
	api     API
	toaster notifications.Toaster
	logg    *logger.Logger

	group singleflight.Group

	mu          sync.RWMutex
	restaurant  *backend.Restaurant
	reviews     []backend.Review
	updatedAt   time.Time
	unsubscribe func()

	bgCtx    context.Context
	bgCancel context.CancelFunc
	bg       sync.WaitGroup
}

// Option configures optional watcher behavior.
type Option func(*Watcher)

// WithLogger attaches a logger.
func WithLogger(logg *logger.Logger) Option {
	return func(w *Watcher) {
		if logg != nil {
			w.logg = logg
		}
	}
}

// NewWatcher validates cfg and builds a watcher.
func NewWatcher(cfg Config, api API, toaster notifications.Toaster, opts ...Option) (*Watcher, error) {
	if cfg.RestaurantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id must be positive")
	}
	if api == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "restaurant api required")
	}
	if cfg.ReviewsSize <= 0 {
		cfg.ReviewsSize = defaultReviewsSize
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = defaultFetchTimeout
	}
	bgCtx, bgCancel := context.WithCancel(context.Background())
	w := &Watcher{
		cfg:      cfg,
		api:      api,
		toaster:  toaster,
		logg:     logger.Nop(),
		bgCtx:    bgCtx,
		bgCancel: bgCancel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// Job returns the poll job refreshing detail and reviews.
func (w *Watcher) Job() poll.Job {
	return poll.JobFunc{JobName: detailJobName, Fn: w.Refresh}
}

// Watch subscribes to review events from source. Calling it again replaces
// the previous subscription.
func (w *Watcher) Watch(source ReviewSource) {
	unsubscribe := source.OnReview(w.handleReview)
	w.mu.Lock()
	previous := w.unsubscribe
	w.unsubscribe = unsubscribe
	w.mu.Unlock()
	if previous != nil {
		previous()
	}
}

// Refresh fetches detail and the first reviews page in parallel.
func (w *Watcher) Refresh(ctx context.Context) error {
	var (
		restaurant *backend.Restaurant
		reviews    *pagination.Page[backend.Review]
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		restaurant, err = w.api.GetRestaurant(gctx, w.cfg.RestaurantID)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = w.api.ListRestaurantReviews(gctx, w.cfg.RestaurantID, 0, w.cfg.ReviewsSize)
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}

	w.mu.Lock()
	w.restaurant = restaurant
	w.reviews = append([]backend.Review(nil), reviews.Content...)
	w.updatedAt = time.Now()
	w.mu.Unlock()
	return nil
}

// RefreshReviews refetches only the reviews; concurrent calls share one request.
func (w *Watcher) RefreshReviews(ctx context.Context) error {
	_, err, _ := w.group.Do("reviews", func() (any, error) {
		page, err := w.api.ListRestaurantReviews(ctx, w.cfg.RestaurantID, 0, w.cfg.ReviewsSize)
		if err != nil {
			return nil, err
		}
		w.mu.Lock()
		w.reviews = append([]backend.Review(nil), page.Content...)
		w.updatedAt = time.Now()
		w.mu.Unlock()
		return nil, nil
	})
	return err
}

// Snapshot returns a copy of the last polled state.
func (w *Watcher) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	snap := Snapshot{
		Reviews:   append([]backend.Review(nil), w.reviews...),
		UpdatedAt: w.updatedAt,
	}
	if w.restaurant != nil {
		r := *w.restaurant
		snap.Restaurant = &r
	}
	return snap
}

// Close unsubscribes from review events and waits for in-flight lookups.
func (w *Watcher) Close() {
	w.mu.Lock()
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	w.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
	w.bgCancel()
	w.bg.Wait()
}

// handleReview runs on the transport goroutine, so the lookup happens in the
// background.
func (w *Watcher) handleReview(ctx context.Context, ref notifications.ReviewRef) {
	if w.bgCtx.Err() != nil {
		return
	}
	w.bg.Add(1)
	go func() {
		defer w.bg.Done()
		fetchCtx, cancel := context.WithTimeout(w.bgCtx, w.cfg.FetchTimeout)
		defer cancel()
		fetchCtx = w.logg.WithFields(fetchCtx, map[string]any{
			"review_id":       ref.ID,
			"notification_id": ref.NotificationID,
			"restaurant_id":   w.cfg.RestaurantID,
		})
		if err := w.onReview(fetchCtx, ref); err != nil {
			w.logg.Error(fetchCtx, "review event handling failed", err)
		}
	}()
}

func (w *Watcher) onReview(ctx context.Context, ref notifications.ReviewRef) error {
	review, err := w.api.GetReview(ctx, ref.ID)
	if err != nil {
		return err
	}
	if review.RestaurantID != w.cfg.RestaurantID {
		w.logg.Debug(ctx, "review belongs to another restaurant")
		return nil
	}
	if w.toaster != nil {
		w.toaster.Toast(ctx, notifications.Toast{
			NotificationID: ref.NotificationID,
			Type:           string(enums.NotificationTypeNewReview),
			Icon:           enums.NotificationTypeNewReview.Icon(),
			Title:          "New review",
			Message:        "Review " + strconv.FormatInt(review.ID, 10) + " rated " + strconv.Itoa(review.Rating) + " stars",
		})
	}
	return w.RefreshReviews(ctx)
}

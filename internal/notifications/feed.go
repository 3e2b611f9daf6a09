package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/enums"
	pkgerrors "github.com/angelmondragon/forkfinderz-realtime/pkg/errors"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/metrics"
	"github.com/angelmondragon/forkfinderz-realtime/pkg/pagination"
	"golang.org/x/sync/singleflight"
)

// HistoryClient reads paginated notification history and issues read commands.
type HistoryClient interface {
	ReadMarker
	ListNotifications(ctx context.Context, req pagination.Request) (*pagination.Page[Notification], error)
}

// Transport is the realtime push channel as seen by the feed.
type Transport interface {
	Connect(ctx context.Context, token string) error
	Disconnect() error
	IsConnected() bool
	State() enums.ConnectionState
	OnNotification(fn NotificationListener) func()
}

// FeedConfig carries history query defaults.
type FeedConfig struct {
	PageSize       int
	SortBy         string
	SortDirection  enums.SortDirection
	RefreshTimeout time.Duration
}

// FeedSnapshot extends Snapshot with the connection status.
type FeedSnapshot struct {
	Snapshot
	Connected       bool                  `json:"connected"`
	ConnectionState enums.ConnectionState `json:"connectionState"`
}

// Feed is the consumer surface: it connects the transport to the store, loads
// history pages and exposes read-state commands.
type Feed struct {
	cfg       FeedConfig
	store     *Store
	mutator   *Mutator
	history   HistoryClient
	transport Transport
	logg      *logger.Logger

	group singleflight.Group

	// pagesSlot serializes history loads so a refresh and a load-more never
	// interleave their fetch and apply steps.
	pagesSlot chan struct{}

	mu          sync.Mutex
	unsubscribe func()
	bgCtx       context.Context
	bgCancel    context.CancelFunc
	bg          sync.WaitGroup
}

// NewFeed builds the store and mutator around seen and wires background
// history invalidation into the store.
func NewFeed(cfg FeedConfig, history HistoryClient, transport Transport, seen SeenSet, toaster Toaster, opts ...FeedOption) (*Feed, error) {
	if history == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "history client required")
	}
	if transport == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transport required")
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = 30 * time.Second
	}
	f := &Feed{
		cfg:       cfg,
		history:   history,
		transport: transport,
		logg:      logger.Nop(),
		pagesSlot: make(chan struct{}, 1),
	}
	storeOpts := StoreOptions{Seen: seen, Toaster: toaster, Invalidate: f.invalidate}
	for _, opt := range opts {
		opt(f, &storeOpts)
	}
	storeOpts.Logger = f.logg

	store, err := NewStore(storeOpts)
	if err != nil {
		return nil, err
	}
	mutator, err := NewMutator(store, history, f.logg)
	if err != nil {
		return nil, err
	}
	f.store = store
	f.mutator = mutator
	f.bgCtx, f.bgCancel = context.WithCancel(context.Background())
	return f, nil
}

// Start registers the store on the transport, connects with token and loads
// the first history page. A transport failure other than a rejected token is
// logged and the feed keeps working from history alone.
func (f *Feed) Start(ctx context.Context, token string) error {
	f.mu.Lock()
	if f.bgCtx.Err() != nil {
		f.bgCtx, f.bgCancel = context.WithCancel(context.Background())
	}
	if f.unsubscribe == nil {
		f.unsubscribe = f.transport.OnNotification(func(ctx context.Context, n Notification) {
			if _, err := f.store.Push(ctx, n); err != nil {
				f.logg.Error(ctx, "push reconciliation failed", err)
			}
		})
	}
	f.mu.Unlock()

	if err := f.transport.Connect(ctx, token); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			return err
		}
		f.logg.Error(ctx, "realtime connect failed, continuing with history only", err)
	}
	if f.store.PageCount() == 0 {
		return f.FetchNextPage(ctx)
	}
	return nil
}

// Close unregisters the store, disconnects the transport and waits for
// background refreshes to stop.
func (f *Feed) Close() error {
	f.mu.Lock()
	unsubscribe := f.unsubscribe
	f.unsubscribe = nil
	f.bgCancel()
	f.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}

	err := f.transport.Disconnect()
	f.bg.Wait()
	f.store.Reset()
	return err
}

// FetchNextPage loads the page following the last fetched one. With no page
// loaded it fetches the first page; with no further page it is a no-op.
// Concurrent calls share one fetch.
func (f *Feed) FetchNextPage(ctx context.Context) error {
	_, err, _ := f.group.Do("next-page", func() (any, error) {
		release, err := f.acquirePages(ctx)
		if err != nil {
			return nil, err
		}
		defer release()

		index := f.store.PageCount()
		if index > 0 && !f.store.HasNextPage() {
			return nil, nil
		}
		page, err := f.fetchPage(ctx, index)
		if err != nil {
			return nil, err
		}
		return nil, f.keepSeenErrors(ctx, f.store.ApplyPage(ctx, index, *page))
	})
	return err
}

// Refresh refetches every loaded page in order, starting from the first, and
// swaps the result in at once. Concurrent refreshes collapse into one.
func (f *Feed) Refresh(ctx context.Context) error {
	_, err, _ := f.group.Do("refresh", func() (any, error) {
		release, err := f.acquirePages(ctx)
		if err != nil {
			return nil, err
		}
		defer release()

		loaded := f.store.PageCount()
		if loaded == 0 {
			loaded = 1
		}
		pages := make([]pagination.Page[Notification], 0, loaded)
		for index := 0; index < loaded; index++ {
			page, err := f.fetchPage(ctx, index)
			if err != nil {
				return nil, err
			}
			pages = append(pages, *page)
			if !page.HasNext() {
				break
			}
		}
		return nil, f.keepSeenErrors(ctx, f.store.ReplacePages(ctx, pages))
	})
	return err
}

func (f *Feed) acquirePages(ctx context.Context) (func(), error) {
	select {
	case f.pagesSlot <- struct{}{}:
		return func() { <-f.pagesSlot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (f *Feed) fetchPage(ctx context.Context, index int) (*pagination.Page[Notification], error) {
	req := pagination.Request{
		Page:          index,
		Size:          f.cfg.PageSize,
		SortBy:        f.cfg.SortBy,
		SortDirection: f.cfg.SortDirection,
	}.Normalize()
	return f.history.ListNotifications(ctx, req)
}

// keepSeenErrors logs seen-set failures of an applied page; the page itself
// is already in the store.
func (f *Feed) keepSeenErrors(ctx context.Context, err error) error {
	if err != nil && pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		f.logg.Error(ctx, "page applied with seen-set errors", err)
		return nil
	}
	return err
}

// invalidate refreshes history in the background; overlapping calls share
// the in-flight refresh.
func (f *Feed) invalidate() {
	f.mu.Lock()
	defer f.mu.Unlock()
	bgCtx := f.bgCtx
	if bgCtx.Err() != nil {
		return
	}
	f.bg.Add(1)
	go func() {
		defer f.bg.Done()
		ctx, cancel := context.WithTimeout(bgCtx, f.cfg.RefreshTimeout)
		defer cancel()
		if err := f.Refresh(ctx); err != nil && bgCtx.Err() == nil {
			f.logg.Error(ctx, "background history refresh failed", err)
		}
	}()
}

func (f *Feed) MarkAsRead(ctx context.Context, id int64) error {
	return f.mutator.MarkAsRead(ctx, id)
}

func (f *Feed) MarkAllAsRead(ctx context.Context) error {
	return f.mutator.MarkAllAsRead(ctx)
}

func (f *Feed) Notifications() []Notification {
	return f.store.Notifications()
}

func (f *Feed) UnreadCount() int {
	return f.store.UnreadCount()
}

func (f *Feed) HasNextPage() bool {
	return f.store.HasNextPage()
}

func (f *Feed) IsConnected() bool {
	return f.transport.IsConnected()
}

func (f *Feed) ConnectionState() enums.ConnectionState {
	return f.transport.State()
}

func (f *Feed) Snapshot() FeedSnapshot {
	return FeedSnapshot{
		Snapshot:        f.store.Snapshot(),
		Connected:       f.transport.IsConnected(),
		ConnectionState: f.transport.State(),
	}
}

// Subscribe streams store snapshots; see Store.Subscribe.
func (f *Feed) Subscribe() (<-chan Snapshot, func()) {
	return f.store.Subscribe()
}

// FeedOption customizes a Feed at construction.
type FeedOption func(f *Feed, store *StoreOptions)

func WithLogger(logg *logger.Logger) FeedOption {
	return func(f *Feed, _ *StoreOptions) {
		if logg != nil {
			f.logg = logg
		}
	}
}

func WithMetrics(m *metrics.RealtimeMetrics) FeedOption {
	return func(_ *Feed, store *StoreOptions) {
		store.Metrics = m
	}
}

// WithoutBackgroundRefresh disables history invalidation on push.
func WithoutBackgroundRefresh() FeedOption {
	return func(_ *Feed, store *StoreOptions) {
		store.Invalidate = nil
	}
}

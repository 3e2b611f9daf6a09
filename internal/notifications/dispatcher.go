package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/forkfinderz-realtime/pkg/logger"
)

// NotificationListener receives every dispatched notification.
type NotificationListener func(ctx context.Context, n Notification)

// ReviewListener receives review references derived from NEW_REVIEW notifications.
type ReviewListener func(ctx context.Context, ref ReviewRef)

type registration[T any] struct {
	id uint64
	fn T
}

// Dispatcher fans inbound notifications out to registered listeners in
// registration order. It holds no state besides the listener lists.
type Dispatcher struct {
	mu            sync.Mutex
	nextID        uint64
	notifications []registration[NotificationListener]
	reviews       []registration[ReviewListener]
	logg          *logger.Logger
}

func NewDispatcher(logg *logger.Logger) *Dispatcher {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Dispatcher{logg: logg}
}

// OnNotification registers fn and returns a function removing exactly that
// registration. Calling the returned function more than once is a no-op.
func (d *Dispatcher) OnNotification(fn NotificationListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.notifications = append(d.notifications, registration[NotificationListener]{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.notifications = without(d.notifications, id)
	}
}

// OnReview registers fn for derived review events.
func (d *Dispatcher) OnReview(fn ReviewListener) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.reviews = append(d.reviews, registration[ReviewListener]{id: id, fn: fn})
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.reviews = without(d.reviews, id)
	}
}

// Dispatch invokes notification listeners, then review listeners when a review
// reference can be derived. Listeners run synchronously on the caller's goroutine.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	d.mu.Lock()
	notifications := append([]registration[NotificationListener](nil), d.notifications...)
	reviews := append([]registration[ReviewListener](nil), d.reviews...)
	d.mu.Unlock()

	ctx = d.logg.WithNotificationID(ctx, n.ID)
	for _, reg := range notifications {
		d.invoke(ctx, "notification", func() { reg.fn(ctx, n) })
	}

	ref, ok := ExtractReviewRef(n)
	if !ok {
		return
	}
	for _, reg := range reviews {
		d.invoke(ctx, "review", func() { reg.fn(ctx, ref) })
	}
}

// Clear drops every registered listener.
func (d *Dispatcher) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = nil
	d.reviews = nil
}

// ListenerCounts returns the number of notification and review listeners.
func (d *Dispatcher) ListenerCounts() (notifications, reviews int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications), len(d.reviews)
}

func (d *Dispatcher) invoke(ctx context.Context, kind string, call func()) {
	defer func() {
		if rec := recover(); rec != nil {
			d.logg.Error(d.logg.WithField(ctx, "listener", kind), "listener panicked", fmt.Errorf("panic: %v", rec))
		}
	}()
	call()
}

func without[T any](regs []registration[T], id uint64) []registration[T] {
	for i, reg := range regs {
		if reg.id == id {
			out := make([]registration[T], 0, len(regs)-1)
			out = append(out, regs[:i]...)
			return append(out, regs[i+1:]...)
		}
	}
	return regs
}

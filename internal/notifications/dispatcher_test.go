package notifications

import (
	"context"
	"testing"
)

func TestDispatcherInvokesListenersInRegistrationOrder(t *testing.T) {
	d := NewDispatcher(nil)
	var calls []string
	d.OnNotification(func(context.Context, Notification) { calls = append(calls, "first") })
	d.OnNotification(func(context.Context, Notification) { calls = append(calls, "second") })
	d.OnNotification(func(context.Context, Notification) { calls = append(calls, "third") })

	d.Dispatch(context.Background(), newNotification(1))

	if len(calls) != 3 || calls[0] != "first" || calls[1] != "second" || calls[2] != "third" {
		t.Fatalf("unexpected call order %v", calls)
	}
}

func TestDispatcherUnsubscribeIsolatesListeners(t *testing.T) {
	d := NewDispatcher(nil)
	var a, b int
	unsubA := d.OnNotification(func(context.Context, Notification) { a++ })
	d.OnNotification(func(context.Context, Notification) { b++ })

	d.Dispatch(context.Background(), newNotification(1))
	unsubA()
	unsubA()
	d.Dispatch(context.Background(), newNotification(2))

	if a != 1 {
		t.Fatalf("expected unsubscribed listener to see 1 frame, got %d", a)
	}
	if b != 2 {
		t.Fatalf("expected remaining listener to see 2 frames, got %d", b)
	}
	if n, _ := d.ListenerCounts(); n != 1 {
		t.Fatalf("expected 1 listener left, got %d", n)
	}
}

func TestDispatcherDerivesReviewEvents(t *testing.T) {
	d := NewDispatcher(nil)
	var refs []ReviewRef
	d.OnReview(func(_ context.Context, ref ReviewRef) { refs = append(refs, ref) })

	d.Dispatch(context.Background(), newReviewNotification(1, "/reviews/42"))
	d.Dispatch(context.Background(), newReviewNotification(2, "/reviews/"))
	d.Dispatch(context.Background(), newNotification(3))

	if len(refs) != 1 {
		t.Fatalf("expected exactly one review event, got %d", len(refs))
	}
	if refs[0].ID != "42" {
		t.Fatalf("expected review id 42, got %q", refs[0].ID)
	}
}

func TestDispatcherRecoversPanickingListener(t *testing.T) {
	d := NewDispatcher(nil)
	delivered := 0
	d.OnNotification(func(context.Context, Notification) { panic("boom") })
	d.OnNotification(func(context.Context, Notification) { delivered++ })

	d.Dispatch(context.Background(), newNotification(1))

	if delivered != 1 {
		t.Fatalf("expected later listener to still receive the frame, got %d", delivered)
	}
}

func TestDispatcherListenerMayUnsubscribeDuringDispatch(t *testing.T) {
	d := NewDispatcher(nil)
	var unsub func()
	calls := 0
	unsub = d.OnNotification(func(context.Context, Notification) {
		calls++
		unsub()
	})

	d.Dispatch(context.Background(), newNotification(1))
	d.Dispatch(context.Background(), newNotification(2))

	if calls != 1 {
		t.Fatalf("expected single delivery, got %d", calls)
	}
}

func TestDispatcherClearDropsAllListeners(t *testing.T) {
	d := NewDispatcher(nil)
	calls := 0
	d.OnNotification(func(context.Context, Notification) { calls++ })
	d.OnReview(func(context.Context, ReviewRef) { calls++ })

	d.Clear()
	d.Dispatch(context.Background(), newReviewNotification(1, "/reviews/1"))

	if calls != 0 {
		t.Fatalf("expected no deliveries after clear, got %d", calls)
	}
	if n, r := d.ListenerCounts(); n != 0 || r != 0 {
		t.Fatalf("expected no listeners, got %d/%d", n, r)
	}
}
